package checkin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"ms-checkin/internal/checkinapi"
	"ms-checkin/internal/models"
	"ms-checkin/internal/payload"
)

const notAvailable = "N/A"

// Category colors keyed by ticketPriceInfo.key.
var categoryColors = map[string]string{
	"zone1": "#B60208",
	"zone2": "#F99446",
	"zone3": "#d9cc09",
	"zone4": "#1EB0EF",
	"zone5": "#0FAD4F",
}

type DetailRow struct {
	Label string
	Value string
}

// DetailsView is everything the ticket-details screen renders. When Error is
// set the payload could not be read and nothing else is filled in.
type DetailsView struct {
	Error         string
	Status        string
	Code          string
	Color         string
	Used          bool
	CheckedInAt   string
	CheckedInBy   string
	Rows          []DetailRow
	ActionLabel   string
	ActionEnabled bool
}

// DetailsScreen is the ticket-details screen reconstructed from its route
// parameters.
type DetailsScreen struct {
	mu         sync.Mutex
	deps       Deps
	ticket     *models.Ticket
	record     *models.CheckinRecord
	submitting bool
	mounted    bool
}

// NewDetailsScreen decodes the ticket and optional check-in record tokens.
// Missing or malformed tokens leave the screen in the invalid-data state.
func NewDetailsScreen(params url.Values, deps Deps) *DetailsScreen {
	s := &DetailsScreen{deps: deps.withDefaults(), mounted: true}

	ticket, err := payload.DecodeTicket(params.Get(payload.ParamTicket))
	if err != nil {
		s.deps.Logger.Warn("DETAILS", fmt.Sprintf("Unreadable ticket payload: %v", err))
		return s
	}

	if token := params.Get(payload.ParamCheckinRecord); token != "" {
		record, err := payload.DecodeCheckinRecord(token)
		if err != nil {
			s.deps.Logger.Warn("DETAILS", fmt.Sprintf("Unreadable check-in record payload: %v", err))
			return s
		}
		s.record = record
	}
	s.ticket = ticket
	return s
}

// Ticket returns the decoded ticket, or ErrNoTicketData.
func (s *DetailsScreen) Ticket() (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticket == nil {
		return models.Ticket{}, ErrNoTicketData
	}
	return *s.ticket, nil
}

// Used reports whether the screen shows a redeemed ticket.
func (s *DetailsScreen) Used() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used()
}

func (s *DetailsScreen) used() bool {
	return s.record != nil || (s.ticket != nil && s.ticket.IsCheckedIn)
}

func (s *DetailsScreen) View() DetailsView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticket == nil {
		return DetailsView{Error: "Invalid ticket data"}
	}
	t := s.ticket

	v := DetailsView{
		Code: "#" + t.Code,
		Used: s.used(),
	}
	ticketType := ""
	if t.TicketPriceInfo != nil {
		ticketType = t.TicketPriceInfo.Name
		v.Color = categoryColors[t.TicketPriceInfo.Key]
	}
	v.Rows = []DetailRow{
		{"Name", orNA(t.AttendeeName)},
		{"Event", orNA(t.EventName)},
		{"Date", orNA(t.EventTime)},
		{"Email", orNA(t.Email)},
		{"Phone Number", orNA(t.PhoneNumber)},
		{"Ticket Type", orNA(ticketType)},
		{"Seat", orNA(t.Seat)},
	}

	if v.Used {
		v.Status = "TICKET USED"
		v.ActionLabel = "ALREADY CHECKED IN"
		v.CheckedInAt = notAvailable
		v.CheckedInBy = notAvailable
		if s.record != nil {
			v.CheckedInAt = formatCheckInTime(s.record.CheckInTime)
			if s.record.CheckedInBy != nil {
				v.CheckedInBy = orNA(s.record.CheckedInBy.Email)
			}
		}
	} else {
		v.Status = "VALID TICKET"
		v.ActionLabel = "CHECK IN NOW"
		v.ActionEnabled = !s.submitting
	}
	return v
}

// ConfirmCheckIn redeems the ticket. On success it alerts and returns to the
// validate screen; on failure the server message is surfaced as a
// *ServerError and the displayed status is left as it was.
func (s *DetailsScreen) ConfirmCheckIn(ctx context.Context) (Result, error) {
	s.mu.Lock()
	switch {
	case s.ticket == nil:
		s.mu.Unlock()
		res := Result{Alert: &Alert{Title: "Error", Message: "Invalid ticket data"}}
		s.deliver(res)
		return res, ErrNoTicketData
	case s.used():
		s.mu.Unlock()
		return Result{}, ErrAlreadyCheckedIn
	case s.submitting:
		s.mu.Unlock()
		return Result{}, ErrBusy
	}
	s.submitting = true
	ticket := *s.ticket
	s.mu.Unlock()

	token, ok := s.deps.Credentials.Token(ctx)
	if !ok {
		res := Result{
			Alert: &Alert{Title: "Error", Message: "Please login first"},
			Route: &Route{Destination: DestinationLogin},
		}
		s.finish(res)
		return res, ErrUnauthenticated
	}

	s.deps.Logger.LogCheckin(ticket.Code, "Confirming check-in")
	resp, err := s.deps.API.ConfirmCheckIn(ctx, token, ticket.Code, ticket.EventTime)
	if err != nil {
		var statusErr *checkinapi.StatusError
		if errors.As(err, &statusErr) {
			serverErr := &ServerError{Status: statusErr.StatusCode, Message: statusErr.Message}
			s.deps.Logger.Error("CHECKIN", fmt.Sprintf("%s - %v", ticket.Code, serverErr))
			res := Result{Alert: &Alert{Title: "Error", Message: serverErr.Message}}
			s.finish(res)
			return res, serverErr
		}
		s.deps.Logger.Error("CHECKIN", fmt.Sprintf("%s - request failed: %v", ticket.Code, err))
		res := Result{Alert: &Alert{Title: "Error", Message: DefaultCheckinFailedMsg}}
		s.finish(res)
		return res, fmt.Errorf("confirm check-in: %w", err)
	}

	record := resp.CheckinRecord
	if record == nil {
		record = &models.CheckinRecord{}
	}
	s.mu.Lock()
	s.record = record
	s.mu.Unlock()

	s.deps.Logger.LogCheckin(ticket.Code, "Checked in")
	res := Result{
		Alert: &Alert{Title: "Success", Message: "Ticket checked in successfully"},
		Route: &Route{Destination: DestinationValidate},
	}
	s.finish(res)
	publishAudit(ctx, s.deps, token, models.AuditEvent{
		Type:       models.AuditCheckin,
		TicketCode: ticket.Code,
		Outcome:    "checked_in",
	})
	return res, nil
}

func (s *DetailsScreen) Unmount() {
	s.mu.Lock()
	s.mounted = false
	s.mu.Unlock()
}

// finish shows res and lets the operator confirm again.
func (s *DetailsScreen) finish(res Result) {
	s.deliver(res)
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

func (s *DetailsScreen) deliver(res Result) {
	s.mu.Lock()
	mounted := s.mounted
	s.mu.Unlock()
	deliver(s.deps, mounted, res)
}

func orNA(v string) string {
	if v == "" {
		return notAvailable
	}
	return v
}

// formatCheckInTime renders an ISO-8601 timestamp in UTC, keeping the raw value
// when it does not parse.
func formatCheckInTime(raw string) string {
	if raw == "" {
		return notAvailable
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}
