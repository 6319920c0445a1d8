package models

// HistoryRecord is one past check-in shown on the history screen.
type HistoryRecord struct {
	ID           string       `json:"id,omitempty"`
	TicketCode   string       `json:"ticketCode"`
	Seat         string       `json:"seat,omitempty"`
	AttendeeName string       `json:"attendeeName,omitempty"`
	EventName    string       `json:"eventName,omitempty"`
	CheckInTime  string       `json:"checkInTime,omitempty"`
	CheckedInBy  *CheckedInBy `json:"checkedInBy,omitempty"`
}
