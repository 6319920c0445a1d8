package checkin

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("ticket code is required")
	ErrUnauthenticated  = errors.New("operator is not logged in")
	ErrBusy             = errors.New("a request is already in progress")
	ErrAlreadyCheckedIn = errors.New("ticket is already checked in")
	ErrNoTicketData     = errors.New("invalid ticket data")
	ErrNotACandidate    = errors.New("ticket is not one of the current candidates")
	ErrNoEventSelected  = errors.New("event and schedule must be selected")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrUnknownSchedule  = errors.New("unknown schedule")
)

// ServerError is a failed check-in confirmation. Message is what the service
// said, suitable for showing to the operator.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("check-in failed (status %d): %s", e.Status, e.Message)
}
