package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/app"
	"ms-checkin/internal/config"
	"ms-checkin/internal/logger"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeCheckinService struct {
	mu        sync.Mutex
	confirmed []string
	deleted   []string
}

func (f *fakeCheckinService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/checkin-app/validate/{code}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("code") {
		case "T-1":
			fmt.Fprint(w, `{"ticket":{"code":"T-1","attendeeName":"Ada","seat":"A1","eventTime":"2025-02-01"}}`)
		case "ORD-1":
			w.WriteHeader(http.StatusMultipleChoices)
			fmt.Fprint(w, `{"tickets":[{"code":"A","attendeeName":"Alice"},{"code":"B","attendeeName":"Bob"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"not found"}`)
		}
	})
	mux.HandleFunc("POST /api/checkin-app/checkin/{code}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.confirmed = append(f.confirmed, r.PathValue("code"))
		f.mu.Unlock()
		fmt.Fprint(w, `{"checkinRecord":{"checkInTime":"2025-02-01T18:00:00Z"}}`)
	})
	mux.HandleFunc("GET /api/checkin-app/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"events":{"docs":[{"id":"ev-1","title":"Gala","schedules":[{"id":"sc-1","date":"2025-02-01"}]}]}}`)
	})
	mux.HandleFunc("GET /api/checkin-app/history", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":[{"ticketCode":"A10","seat":"S1"},{"ticketCode":"B2"},{"ticketCode":"a1x"}]}`)
	})
	mux.HandleFunc("DELETE /api/checkin-app/history/{code}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, r.PathValue("code"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (f *fakeCheckinService) Confirmed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.confirmed...)
}

func newTestApp(t *testing.T, token string) (*app.App, *fakeCheckinService) {
	t.Helper()
	svc := &fakeCheckinService{}
	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		API:  config.APIConfig{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second},
		Scan: config.ScanConfig{AckDelay: time.Millisecond},
		Auth: config.AuthConfig{Scheme: "JWT", Token: token},
	}
	a, err := app.New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, svc
}

func TestRun_ValidateAndConfirm(t *testing.T) {
	a, svc := newTestApp(t, "tok")
	var out bytes.Buffer

	err := run(context.Background(), a, "validate", []string{"-confirm", "T-1"}, nil, &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "VALID TICKET  #T-1")
	assert.Contains(t, out.String(), "Success: Ticket checked in successfully")
	assert.Equal(t, []string{"T-1"}, svc.Confirmed())
}

func TestRun_ValidateAmbiguous(t *testing.T) {
	a, _ := newTestApp(t, "tok")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), a, "validate", []string{"ORD-1"}, nil, &out))
	assert.Contains(t, out.String(), "1) A  Alice")
	assert.Contains(t, out.String(), "2) B  Bob")

	out.Reset()
	require.NoError(t, run(context.Background(), a, "validate", []string{"-pick", "2", "ORD-1"}, nil, &out))
	assert.Contains(t, out.String(), "#B")
}

func TestRun_ValidateNotFoundAndScoped(t *testing.T) {
	a, _ := newTestApp(t, "tok")
	var out bytes.Buffer

	err := run(context.Background(), a, "validate", []string{"-event", "ev-1", "-schedule", "sc-1", "T-404"}, nil, &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Checking in for Gala")
	assert.Contains(t, out.String(), "Not Found: not found")
}

func TestRun_RequiresLogin(t *testing.T) {
	a, _ := newTestApp(t, "")
	var out bytes.Buffer

	err := run(context.Background(), a, "validate", []string{"T-1"}, nil, &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Error: Please login first")

	require.NoError(t, run(context.Background(), a, "login", []string{"tok"}, nil, &out))
	require.NoError(t, run(context.Background(), a, "validate", []string{"T-1"}, nil, &out))

	require.NoError(t, run(context.Background(), a, "logout", nil, nil, &out))
	assert.Error(t, run(context.Background(), a, "events", nil, nil, &out))
}

func TestRun_EventsHistoryDelete(t *testing.T) {
	a, svc := newTestApp(t, "tok")
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), a, "events", nil, nil, &out))
	assert.Contains(t, out.String(), "ev-1  Gala")
	assert.Contains(t, out.String(), "schedule sc-1")

	out.Reset()
	require.NoError(t, run(context.Background(), a, "history", []string{"-q", "A1"}, nil, &out))
	assert.Contains(t, out.String(), "A10")
	assert.Contains(t, out.String(), "a1x")
	assert.NotContains(t, out.String(), "B2")
	assert.Contains(t, out.String(), "2 record(s)")

	out.Reset()
	require.NoError(t, run(context.Background(), a, "delete", []string{"B2"}, nil, &out))
	svc.mu.Lock()
	assert.Equal(t, []string{"B2"}, svc.deleted)
	svc.mu.Unlock()

	assert.Error(t, run(context.Background(), a, "nope", nil, nil, &out))
}

func TestRun_Scan(t *testing.T) {
	a, _ := newTestApp(t, "tok")
	in, feed := io.Pipe()
	out := &syncBuffer{}

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), a, "scan", nil, in, out) }()

	send := func(line string) {
		_, err := io.WriteString(feed, line+"\n")
		require.NoError(t, err)
	}
	waitFor := func(s string) {
		require.Eventually(t, func() bool { return strings.Contains(out.String(), s) }, 2*time.Second, 5*time.Millisecond, s)
	}

	send("T-1")
	waitFor("VALID TICKET  #T-1")

	send("T-404")
	waitFor("Scanner locked")

	send(":resume")
	waitFor("Scanner unlocked")

	send("T-404")
	waitFor("Not Found: not found")

	send(":quit")
	require.NoError(t, <-done)
	feed.Close()
}
