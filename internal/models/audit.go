package models

import "time"

// AuditEvent types
const (
	AuditValidation = "validation"
	AuditCheckin    = "checkin"
)

// AuditEvent is published for every classified validation and confirmed check-in.
type AuditEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	AttemptID  string    `json:"attempt_id,omitempty"`
	TicketCode string    `json:"ticket_code"`
	EventID    string    `json:"event_id,omitempty"`
	ScheduleID string    `json:"schedule_id,omitempty"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	Operator   string    `json:"operator,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
