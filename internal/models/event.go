package models

// Schedule is one dated occurrence of an event.
type Schedule struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

// Event is an event the operator can scan tickets for.
type Event struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	EventLocation string     `json:"eventLocation,omitempty"`
	StartDatetime string     `json:"startDatetime,omitempty"`
	EndDatetime   string     `json:"endDatetime,omitempty"`
	Schedules     []Schedule `json:"schedules,omitempty"`
}

// Schedule returns the schedule with the given id.
func (e Event) Schedule(id string) (Schedule, bool) {
	for _, s := range e.Schedules {
		if s.ID == id {
			return s, true
		}
	}
	return Schedule{}, false
}
