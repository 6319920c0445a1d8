package checkin_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/checkin"
	"ms-checkin/internal/checkinapi"
	"ms-checkin/internal/clock"
	"ms-checkin/internal/models"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Validate(ctx context.Context, token string, req models.ValidationRequestContext) (*checkinapi.RawResponse, error) {
	args := m.Called(ctx, token, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkinapi.RawResponse), args.Error(1)
}

func (m *MockAPI) ConfirmCheckIn(ctx context.Context, token, code, eventDate string) (*checkinapi.ConfirmResponse, error) {
	args := m.Called(ctx, token, code, eventDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*checkinapi.ConfirmResponse), args.Error(1)
}

// screenRecorder plays both navigation layer and alert sink.
type screenRecorder struct {
	mu     sync.Mutex
	routes []checkin.Route
	alerts []string
}

func (r *screenRecorder) Navigate(route checkin.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *screenRecorder) Alert(a checkin.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a.String())
}

func (r *screenRecorder) Routes() []checkin.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]checkin.Route(nil), r.routes...)
}

func (r *screenRecorder) Alerts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.alerts...)
}

type auditRecorder struct {
	mu     sync.Mutex
	events []models.AuditEvent
	err    error
}

func (a *auditRecorder) Publish(ctx context.Context, event models.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return a.err
}

func (a *auditRecorder) Events() []models.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.AuditEvent(nil), a.events...)
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	release   chan struct{}
	published chan models.AuditEvent
}

func newBlockingPublisher() *blockingPublisher {
	return &blockingPublisher{release: make(chan struct{}), published: make(chan models.AuditEvent, 8)}
}

func (p *blockingPublisher) Publish(ctx context.Context, event models.AuditEvent) error {
	select {
	case <-p.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.published <- event
	return nil
}

var testNow = time.Date(2025, 1, 21, 9, 0, 0, 0, time.UTC)

type fixture struct {
	api        *MockAPI
	screen     *screenRecorder
	audit      *auditRecorder
	background *checkin.BackgroundAudit
	creds      *auth.MemoryStore
	deps       checkin.Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		api:    new(MockAPI),
		screen: &screenRecorder{},
		audit:  &auditRecorder{},
		creds:  auth.NewMemoryStore(operatorToken(t)),
	}
	f.background = checkin.NewBackgroundAudit(f.audit, time.Second, nil)
	f.deps = checkin.Deps{
		API:         f.api,
		Credentials: f.creds,
		Navigator:   f.screen,
		Alerter:     f.screen,
		Audit:       f.background,
		Clock:       clock.NewManual(testNow),
	}
	return f
}

// auditEvents waits for pending background publishes.
func (f *fixture) auditEvents() []models.AuditEvent {
	f.background.Wait()
	return f.audit.Events()
}

func operatorToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "op-1",
		"email": "gate@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func forCode(code string) any {
	return mock.MatchedBy(func(req models.ValidationRequestContext) bool {
		return req.TicketCode == code
	})
}

func respond(status int, body string) *checkinapi.RawResponse {
	return &checkinapi.RawResponse{StatusCode: status, Body: []byte(body)}
}

var errNetwork = errors.New("dial tcp: connection refused")
