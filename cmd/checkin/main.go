package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"ms-checkin/internal/app"
	"ms-checkin/internal/auth"
	"ms-checkin/internal/checkin"
	"ms-checkin/internal/config"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
)

const usage = `usage: checkin <command> [flags] [args]

commands:
  events                          list events and schedules
  validate [-event ID -schedule ID] [-pick N] [-confirm] CODE
  scan [-event ID -schedule ID]   read decoded codes from stdin
  history [-q QUERY]              list past check-ins
  delete CODE                     delete a past check-in
  login TOKEN                     store the operator credential
  logout                          forget the operator credential
  audit [-group ID]               follow the audit topic
`

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	minLevel := logger.WARN
	if cfg.Logging.Debug {
		minLevel = logger.DEBUG
	}
	log, err := logger.NewLogger(logger.Options{Dir: cfg.Logging.Dir, Name: "checkin", Color: cfg.Logging.Color, MinLevel: minLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	if envErr != nil {
		log.Debug("CONFIG", ".env file not found, using environment variables")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("APP", err.Error())
		os.Exit(1)
	}
	defer a.Close()

	if err := run(ctx, a, os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "checkin %s: %v\n", os.Args[1], err)
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string, in io.Reader, out io.Writer) error {
	switch cmd {
	case "events":
		return runEvents(ctx, a, out)
	case "validate":
		return runValidate(ctx, a, args, out)
	case "scan":
		return runScan(ctx, a, args, in, out)
	case "history":
		return runHistory(ctx, a, args, out)
	case "delete":
		return runDelete(ctx, a, args, out)
	case "login":
		return runLogin(ctx, a, args, out)
	case "logout":
		if err := a.Store.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out.")
		return nil
	case "audit":
		return runAudit(ctx, a, args, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func token(ctx context.Context, a *app.App) (string, error) {
	t, ok := a.Store.Token(ctx)
	if !ok {
		return "", checkin.ErrUnauthenticated
	}
	return t, nil
}

func runEvents(ctx context.Context, a *app.App, out io.Writer) error {
	tok, err := token(ctx, a)
	if err != nil {
		return err
	}
	events, err := a.Client.FetchEvents(ctx, tok)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "No events.")
	}
	for _, e := range events {
		fmt.Fprintf(out, "%s  %s  %s\n", e.ID, e.Title, e.EventLocation)
		for _, s := range e.Schedules {
			fmt.Fprintf(out, "    schedule %s  %s\n", s.ID, s.Date)
		}
	}
	return nil
}

// scopeFlags registers -event and -schedule on fs.
func scopeFlags(fs *flag.FlagSet) (eventID, scheduleID *string) {
	return fs.String("event", "", "event id to validate against"), fs.String("schedule", "", "schedule id to validate against")
}

// resolveScope checks an event/schedule pick against the service. No pick
// means validating without an event scope.
func resolveScope(ctx context.Context, a *app.App, eventID, scheduleID string, out io.Writer) (models.ValidationRequestContext, error) {
	if eventID == "" && scheduleID == "" {
		return models.ValidationRequestContext{}, nil
	}
	tok, err := token(ctx, a)
	if err != nil {
		return models.ValidationRequestContext{}, err
	}
	events, err := a.Client.FetchEvents(ctx, tok)
	if err != nil {
		return models.ValidationRequestContext{}, fmt.Errorf("failed to load events: %w", err)
	}
	sel, err := checkin.ChooseEvent(events, eventID, scheduleID)
	if err != nil {
		return models.ValidationRequestContext{}, err
	}
	fmt.Fprintf(out, "Checking in for %s at %s (%s)\n", sel.Event.Title, orDash(sel.Event.EventLocation), sel.Schedule.Date)
	return sel.Scope, nil
}

func runValidate(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(out)
	eventID, scheduleID := scopeFlags(fs)
	pick := fs.Int("pick", 0, "pick the n-th ticket when several match")
	confirm := fs.Bool("confirm", false, "check the ticket in right away")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one ticket code")
	}

	scope, err := resolveScope(ctx, a, *eventID, *scheduleID, out)
	if err != nil {
		return err
	}

	con := newConsole(out, a.Deps(), a.QR)
	orch := checkin.NewOrchestrator(con.Deps())
	res, err := orch.Validate(ctx, fs.Arg(0), scope)
	if err != nil {
		return err
	}

	if res.Outcome.Kind == checkin.KindAmbiguous {
		candidates := orch.Candidates()
		if *pick < 1 || *pick > len(candidates) {
			con.renderCandidates(candidates)
			return nil
		}
		if _, err := orch.SelectCandidate(ctx, candidates[*pick-1]); err != nil {
			return err
		}
	}

	if *confirm {
		details := con.Details()
		if details == nil {
			return checkin.ErrNoTicketData
		}
		_, err := details.ConfirmCheckIn(ctx)
		return err
	}
	return nil
}

func runHistory(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(out)
	query := fs.String("q", "", "filter by ticket code or seat")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list := a.History()
	if err := list.Load(ctx); err != nil {
		return err
	}
	n := 0
	for r := range list.Filter(*query) {
		by := ""
		if r.CheckedInBy != nil {
			by = r.CheckedInBy.Email
		}
		fmt.Fprintf(out, "%-14s %-8s %-20s %-24s %s\n", r.TicketCode, orDash(r.Seat), orDash(r.AttendeeName), orDash(r.CheckInTime), orDash(by))
		n++
	}
	fmt.Fprintf(out, "%d record(s)\n", n)
	return nil
}

func runDelete(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("expected exactly one ticket code")
	}
	list := a.History()
	if err := list.Load(ctx); err != nil {
		return err
	}
	if _, err := list.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted %s.\n", args[0])
	return nil
}

func runLogin(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("expected the operator token")
	}
	if err := a.Store.Save(ctx, args[0]); err != nil {
		return err
	}
	if op, err := auth.ParseOperator(args[0]); err == nil && op.Label() != "" {
		fmt.Fprintf(out, "Logged in as %s.\n", op.Label())
		return nil
	}
	fmt.Fprintln(out, "Logged in.")
	return nil
}

func runAudit(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(out)
	group := fs.String("group", "", "consumer group id (empty follows from the latest offset)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	consumer, err := a.AuditConsumer(*group)
	if err != nil {
		return err
	}
	defer consumer.Close()

	return consumer.Start(ctx, func(e models.AuditEvent) {
		fmt.Fprintf(out, "%s %-10s %-14s %-20s %s %s\n",
			e.OccurredAt.Format("15:04:05"), e.Type, e.TicketCode, e.Outcome, orDash(e.Operator), strconv.Quote(e.Message))
	})
}
