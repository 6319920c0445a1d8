package kiosk_api

import (
	"sync"

	"ms-checkin/internal/checkin"
	"ms-checkin/internal/models"
)

// session is the kiosk's navigation layer. It owns the screens a single
// kiosk device is showing.
type session struct {
	mu           sync.Mutex
	deps         checkin.Deps
	orchestrator *checkin.Orchestrator
	details      *checkin.DetailsScreen
	scope        models.ValidationRequestContext
	screen       string
}

func newSession(deps checkin.Deps) *session {
	s := &session{screen: checkin.DestinationValidate}
	deps.Navigator = s
	s.deps = deps
	s.orchestrator = checkin.NewOrchestrator(deps)
	return s
}

// Navigate swaps the visible screen. Leaving the details screen unmounts it.
func (s *session) Navigate(route checkin.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.details != nil {
		s.details.Unmount()
		s.details = nil
	}
	s.screen = route.Destination

	switch route.Destination {
	case checkin.DestinationTicketDetails:
		s.details = checkin.NewDetailsScreen(route.Params, s.deps)
	case checkin.DestinationValidate:
		if route.Params.Has("eventId") {
			s.scope = checkin.ScopeFromParams(route.Params)
		}
	}
}

func (s *session) Details() *checkin.DetailsScreen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details
}

func (s *session) Scope() models.ValidationRequestContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

func (s *session) Screen() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}
