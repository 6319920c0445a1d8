package checkin

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/checkinapi"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
	"ms-checkin/internal/payload"
)

// NetworkErrorMessage is shown when the service could not be reached at all.
const NetworkErrorMessage = "Network request failed"

// API is the part of the check-in service the screens call.
type API interface {
	Validate(ctx context.Context, token string, req models.ValidationRequestContext) (*checkinapi.RawResponse, error)
	ConfirmCheckIn(ctx context.Context, token, code, eventDate string) (*checkinapi.ConfirmResponse, error)
}

// Deps are the collaborators shared by the validate and details screens.
// Navigator, Alerter, Audit, Logger and Clock are optional.
type Deps struct {
	API         API
	Credentials auth.CredentialSource
	Navigator   Navigator
	Alerter     Alerter
	Audit       AuditPublisher
	Logger      *logger.Logger
	Clock       clock.Clock
}

func (d Deps) withDefaults() Deps {
	if d.Navigator == nil {
		d.Navigator = nopNavigator{}
	}
	if d.Alerter == nil {
		d.Alerter = nopAlerter{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Audit == nil {
		d.Audit = nopPublisher{}
	} else if _, ok := d.Audit.(*BackgroundAudit); !ok {
		d.Audit = NewBackgroundAudit(d.Audit, DefaultAuditTimeout, d.Logger)
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	return d
}

// State of the validate screen. Idle is both initial and terminal.
type State int

const (
	StateIdle State = iota
	StateSubmitting
)

func (s State) String() string {
	if s == StateSubmitting {
		return "submitting"
	}
	return "idle"
}

// Orchestrator drives one validate screen: it turns a code into an outcome and
// the outcome into navigation or an alert. One validation may be in flight at
// a time.
type Orchestrator struct {
	mu         sync.Mutex
	deps       Deps
	state      State
	input      string
	candidates []models.Ticket
	mounted    bool
}

func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps.withDefaults(), mounted: true}
}

// Validate checks code against the service. scope carries the optional event
// and schedule; its TicketCode and AttemptID are ignored and set here.
//
// Precondition failures return ErrInvalidInput, ErrUnauthenticated or ErrBusy
// and issue no request. Every classified outcome, including not found and
// transport errors, returns a nil error; the outcome is in the result.
func (o *Orchestrator) Validate(ctx context.Context, code string, scope models.ValidationRequestContext) (Result, error) {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return Result{}, ErrBusy
	}
	o.state = StateSubmitting
	o.input = code
	o.mu.Unlock()

	code = models.NormalizeCode(code)
	if code == "" {
		res := Result{Alert: &Alert{Title: "Error", Message: "Please enter a ticket code"}}
		o.finish(res)
		return res, ErrInvalidInput
	}

	token, ok := o.deps.Credentials.Token(ctx)
	if !ok {
		o.deps.Logger.LogSecurity("UNAUTHENTICATED", "Validation attempted without a credential")
		res := Result{
			Alert: &Alert{Title: "Error", Message: "Please login first"},
			Route: &Route{Destination: DestinationLogin},
		}
		o.finish(res)
		return res, ErrUnauthenticated
	}

	o.mu.Lock()
	o.candidates = nil
	o.mu.Unlock()

	req := models.ValidationRequestContext{
		TicketCode: code,
		EventID:    scope.EventID,
		ScheduleID: scope.ScheduleID,
		AttemptID:  uuid.NewString(),
	}
	o.deps.Logger.LogValidation(req.AttemptID, code, "Submitting")

	var outcome Outcome
	resp, err := o.deps.API.Validate(ctx, token, req)
	if err != nil {
		o.deps.Logger.Error("VALIDATE", fmt.Sprintf("[%s] %s - request failed: %v", req.AttemptID, code, err))
		outcome = TransportError(NetworkErrorMessage)
	} else {
		outcome = Classify(resp.StatusCode, resp.Body)
	}
	o.deps.Logger.LogValidation(req.AttemptID, code, outcome.Kind.String())

	res := Result{Outcome: &outcome}
	var routeErr error
	switch outcome.Kind {
	case KindValid:
		res.Route, routeErr = detailsRoute(*outcome.Ticket, nil)
	case KindAlreadyCheckedIn:
		res.Alert = &Alert{Title: "Already Checked In", Message: "This ticket was already checked in."}
		res.Route, routeErr = detailsRoute(*outcome.Ticket, outcome.Record)
	case KindAmbiguous:
		o.mu.Lock()
		o.candidates = append([]models.Ticket(nil), outcome.Candidates...)
		o.mu.Unlock()
	case KindNotFound:
		res.Alert = &Alert{Title: "Not Found", Message: outcome.Message}
	default:
		res.Alert = &Alert{Title: "Error", Message: outcome.Message}
	}
	if routeErr != nil {
		o.deps.Logger.Error("VALIDATE", fmt.Sprintf("[%s] %s - failed to build details payload: %v", req.AttemptID, code, routeErr))
		res = Result{Outcome: &outcome, Alert: &Alert{Title: "Error", Message: "Invalid ticket data"}}
	}

	o.finish(res)
	publishAudit(ctx, o.deps, token, validationAudit(req, outcome))
	return res, nil
}

// SelectCandidate opens the details screen for one ticket of the current
// ambiguous outcome. A checked-in candidate travels with its own check-in
// record, or an empty one when the server did not nest it. Each call is
// independent; the candidate list is kept so another ticket can be picked.
// ticket only identifies the candidate by code and ID; the server's copy is
// what travels to the details screen.
func (o *Orchestrator) SelectCandidate(ctx context.Context, ticket models.Ticket) (Result, error) {
	o.mu.Lock()
	found := false
	for _, c := range o.candidates {
		if c.Code == ticket.Code && c.ID == ticket.ID {
			ticket, found = c, true
			break
		}
	}
	o.mu.Unlock()
	if !found {
		return Result{}, ErrNotACandidate
	}

	var record *models.CheckinRecord
	res := Result{}
	if ticket.IsCheckedIn {
		record = ticket.CheckinRecord
		if record == nil {
			record = &models.CheckinRecord{}
		}
		res.Alert = &Alert{Title: "Already Checked In", Message: "This ticket was already checked in."}
	}

	route, err := detailsRoute(ticket, record)
	if err != nil {
		res = Result{Alert: &Alert{Title: "Error", Message: "Invalid ticket data"}}
		o.deliver(res)
		return res, fmt.Errorf("%w: %v", ErrNoTicketData, err)
	}
	res.Route = route
	o.deps.Logger.LogCheckin(ticket.Code, "Candidate selected")

	o.deliver(res)
	return res, nil
}

// Candidates returns the tickets of the last ambiguous outcome, in server order.
func (o *Orchestrator) Candidates() []models.Ticket {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.Ticket(nil), o.candidates...)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Input is the code as last submitted. It is never cleared by a failed attempt.
func (o *Orchestrator) Input() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.input
}

// Unmount detaches the screen. Results that arrive afterwards are returned to
// the caller but neither navigate nor alert.
func (o *Orchestrator) Unmount() {
	o.mu.Lock()
	o.mounted = false
	o.mu.Unlock()
}

// finish shows res and returns the screen to Idle.
func (o *Orchestrator) finish(res Result) {
	o.deliver(res)
	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
}

func (o *Orchestrator) deliver(res Result) {
	o.mu.Lock()
	mounted := o.mounted
	o.mu.Unlock()
	deliver(o.deps, mounted, res)
}

func deliver(deps Deps, mounted bool, res Result) {
	if !mounted {
		deps.Logger.Debug("NAVIGATION", "Screen unmounted, dropping result")
		return
	}
	if res.Alert != nil {
		deps.Alerter.Alert(*res.Alert)
	}
	if res.Route != nil {
		deps.Navigator.Navigate(*res.Route)
	}
}

func detailsRoute(ticket models.Ticket, record *models.CheckinRecord) (*Route, error) {
	params, err := payload.TicketParams(ticket, record)
	if err != nil {
		return nil, err
	}
	return &Route{Destination: DestinationTicketDetails, Params: params}, nil
}

func validationAudit(req models.ValidationRequestContext, outcome Outcome) models.AuditEvent {
	return models.AuditEvent{
		Type:       models.AuditValidation,
		AttemptID:  req.AttemptID,
		TicketCode: req.TicketCode,
		EventID:    req.EventID,
		ScheduleID: req.ScheduleID,
		Outcome:    outcome.Kind.String(),
		Message:    outcome.Message,
	}
}

func publishAudit(ctx context.Context, deps Deps, token string, event models.AuditEvent) {
	event.ID = uuid.NewString()
	event.OccurredAt = deps.Clock.Now()
	if op, err := auth.ParseOperator(token); err == nil {
		event.Operator = op.Label()
	}
	if err := deps.Audit.Publish(ctx, event); err != nil {
		deps.Logger.Warn("AUDIT", fmt.Sprintf("Failed to publish %s event for %s: %v", event.Type, event.TicketCode, err))
	}
}
