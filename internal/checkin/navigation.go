package checkin

import (
	"net/url"
)

// Navigation destinations.
const (
	DestinationTicketDetails = "ticket-details"
	DestinationValidate      = "validate"
	DestinationLogin         = "login"
)

// Route is a destination plus its parameter bag.
type Route struct {
	Destination string
	Params      url.Values
}

// Navigator renders the next screen.
type Navigator interface {
	Navigate(route Route)
}

// Alert is a user-facing message.
type Alert struct {
	Title   string
	Message string
}

func (a Alert) String() string {
	if a.Title == "" {
		return a.Message
	}
	return a.Title + ": " + a.Message
}

// Alerter shows alerts to the operator.
type Alerter interface {
	Alert(alert Alert)
}

// Result reports what one orchestrator call produced. Outcome is nil when the
// call failed a precondition before any request was made.
type Result struct {
	Outcome *Outcome
	Route   *Route
	Alert   *Alert
}

type nopNavigator struct{}

func (nopNavigator) Navigate(Route) {}

type nopAlerter struct{}

func (nopAlerter) Alert(Alert) {}
