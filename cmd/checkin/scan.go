package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"ms-checkin/internal/app"
	"ms-checkin/internal/checkin"
	"ms-checkin/internal/scangate"
)

// runScan treats every stdin line as one decode event from a camera. Lines
// starting with ':' are operator commands. Resuming the stopped process
// (SIGCONT) counts as the app returning to the foreground.
func runScan(ctx context.Context, a *app.App, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(out)
	eventID, scheduleID := scopeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	scope, err := resolveScope(ctx, a, *eventID, *scheduleID, out)
	if err != nil {
		return err
	}

	con := newConsole(out, a.Deps(), a.QR)
	orch := checkin.NewOrchestrator(con.Deps())
	defer orch.Unmount()

	accepted := make(chan string, 1)
	gate := scangate.New(func(code string) { accepted <- code },
		scangate.WithAckDelay(a.Config.Scan.AckDelay),
		scangate.WithClock(a.Clock),
		scangate.WithLogger(a.Logger),
	)
	defer gate.Unmount()

	resume := make(chan os.Signal, 1)
	if sigs := resumeSignals(); len(sigs) > 0 {
		signal.Notify(resume, sigs...)
		defer signal.Stop(resume)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, "Scanner ready. Commands: :resume :pick <n> :checkin :quit")
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-resume:
			foreground(gate, out)

		case code := <-accepted:
			res, err := orch.Validate(ctx, code, scope)
			if err == nil && res.Outcome.Kind == checkin.KindAmbiguous {
				con.renderCandidates(orch.Candidates())
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(line, ":") {
				if line != "" && !gate.OnDecode(line) {
					fmt.Fprintln(out, "Scanner locked, :resume to scan again.")
				}
				continue
			}
			if done := scanCommand(ctx, line, gate, orch, con, out); done {
				return nil
			}
		}
	}
}

func foreground(gate *scangate.Gate, out io.Writer) {
	gate.OnAppStateChange(scangate.AppBackground)
	gate.OnAppStateChange(scangate.AppActive)
	fmt.Fprintln(out, "Scanner unlocked.")
}

func scanCommand(ctx context.Context, line string, gate *scangate.Gate, orch *checkin.Orchestrator, con *console, out io.Writer) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":resume":
		foreground(gate, out)
	case ":pick":
		candidates := orch.Candidates()
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: :pick <n>")
			return false
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(candidates) {
			fmt.Fprintf(out, "Pick a number between 1 and %d.\n", len(candidates))
			return false
		}
		if _, err := orch.SelectCandidate(ctx, candidates[n-1]); err != nil {
			fmt.Fprintf(out, "Could not open ticket: %v\n", err)
		}
	case ":checkin":
		details := con.Details()
		if details == nil {
			fmt.Fprintln(out, "No ticket is being shown.")
			return false
		}
		if _, err := details.ConfirmCheckIn(ctx); err != nil {
			fmt.Fprintf(out, "Check-in not completed: %v\n", err)
		}
	default:
		fmt.Fprintf(out, "Unknown command %s\n", fields[0])
	}
	return false
}
