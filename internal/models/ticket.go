package models

import (
	"encoding/json"
	"strings"
)

// TicketPriceInfo is the price tier a ticket was sold under.
type TicketPriceInfo struct {
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
}

// Ticket is the ticket as returned by the check-in service. Every field except
// Code may be missing from a server response.
type Ticket struct {
	ID              string           `json:"id,omitempty"`
	Code            string           `json:"code"`
	AttendeeName    string           `json:"attendeeName,omitempty"`
	Seat            string           `json:"seat,omitempty"`
	TicketPriceInfo *TicketPriceInfo `json:"ticketPriceInfo,omitempty"`
	Email           string           `json:"email,omitempty"`
	PhoneNumber     string           `json:"phoneNumber,omitempty"`
	EventName       string           `json:"eventName,omitempty"`
	EventLocation   string           `json:"eventLocation,omitempty"`
	EventTime       string           `json:"eventTime,omitempty"`
	IsCheckedIn     bool             `json:"isCheckedIn,omitempty"`
	CheckinRecord   *CheckinRecord   `json:"checkinRecord,omitempty"`
}

// CheckedInBy identifies the operator that redeemed a ticket.
type CheckedInBy struct {
	Email string `json:"email,omitempty"`
}

// CheckinRecord is server-issued proof that a ticket was already redeemed.
type CheckinRecord struct {
	CheckInTime string       `json:"checkInTime"`
	CheckedInBy *CheckedInBy `json:"checkedInBy,omitempty"`
}

// UnmarshalJSON accepts the older "checkedInAt" key as an alias of "checkInTime".
func (r *CheckinRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		CheckInTime string       `json:"checkInTime"`
		CheckedInAt string       `json:"checkedInAt"`
		CheckedInBy *CheckedInBy `json:"checkedInBy"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.CheckInTime = raw.CheckInTime
	if r.CheckInTime == "" {
		r.CheckInTime = raw.CheckedInAt
	}
	r.CheckedInBy = raw.CheckedInBy
	return nil
}

// ValidationRequestContext carries one user-initiated check. It is built fresh
// for every attempt and dropped once the request resolves.
type ValidationRequestContext struct {
	TicketCode string
	EventID    string
	ScheduleID string
	AttemptID  string
}

// NormalizeCode trims surrounding whitespace; the code itself stays case-sensitive.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}
