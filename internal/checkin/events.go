package checkin

import (
	"net/url"

	"ms-checkin/internal/models"
)

// Selection is an event and schedule picked before validating. Scope is passed
// to Orchestrator.Validate for every code checked under it.
type Selection struct {
	Event    models.Event
	Schedule models.Schedule
	Scope    models.ValidationRequestContext
	Route    Route
}

// ChooseEvent resolves an event/schedule pick against the loaded events and
// builds the route to the validate screen.
func ChooseEvent(events []models.Event, eventID, scheduleID string) (Selection, error) {
	if eventID == "" || scheduleID == "" {
		return Selection{}, ErrNoEventSelected
	}

	var event *models.Event
	for i := range events {
		if events[i].ID == eventID {
			event = &events[i]
			break
		}
	}
	if event == nil {
		return Selection{}, ErrUnknownEvent
	}
	schedule, ok := event.Schedule(scheduleID)
	if !ok {
		return Selection{}, ErrUnknownSchedule
	}

	params := url.Values{}
	params.Set("eventId", event.ID)
	params.Set("scheduleId", schedule.ID)
	params.Set("eventLocation", event.EventLocation)
	params.Set("eventTitle", event.Title)
	params.Set("eventScheduleDate", schedule.Date)

	return Selection{
		Event:    *event,
		Schedule: schedule,
		Scope:    models.ValidationRequestContext{EventID: event.ID, ScheduleID: schedule.ID},
		Route:    Route{Destination: DestinationValidate, Params: params},
	}, nil
}

// ScopeFromParams reads the event scope back from validate route parameters.
func ScopeFromParams(params url.Values) models.ValidationRequestContext {
	return models.ValidationRequestContext{
		EventID:    params.Get("eventId"),
		ScheduleID: params.Get("scheduleId"),
	}
}
