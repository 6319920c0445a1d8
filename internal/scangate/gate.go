package scangate

import (
	"fmt"
	"sync"
	"time"

	"ms-checkin/internal/clock"
	"ms-checkin/internal/logger"
)

// DefaultAckDelay leaves room for the visual/haptic acknowledgment before the screen moves on.
const DefaultAckDelay = 500 * time.Millisecond

// AppState mirrors the host application's lifecycle states.
type AppState string

const (
	AppActive     AppState = "active"
	AppInactive   AppState = "inactive"
	AppBackground AppState = "background"
)

// LockState is the gate's scan lock.
type LockState struct {
	Locked                   bool
	LastForegroundTransition time.Time
}

// Gate turns a noisy stream of decode events into at most one accepted code per
// scan session. One Gate belongs to one scanning screen.
type Gate struct {
	mu       sync.Mutex
	state    LockState
	appState AppState
	pending  clock.Timer
	mounted  bool

	delay  time.Duration
	clock  clock.Clock
	accept func(code string)
	logger *logger.Logger
}

type Option func(*Gate)

// WithAckDelay overrides DefaultAckDelay.
func WithAckDelay(d time.Duration) Option {
	return func(g *Gate) {
		if d >= 0 {
			g.delay = d
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(g *Gate) { g.clock = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// New returns a mounted gate that calls accept with each accepted code once the
// acknowledgment delay has passed.
func New(accept func(code string), opts ...Option) *Gate {
	g := &Gate{
		appState: AppActive,
		delay:    DefaultAckDelay,
		clock:    clock.NewSystem(),
		accept:   accept,
		mounted:  true,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// OnDecode handles one decode event. It reports whether the code was accepted.
// Events arriving while the gate is locked are dropped.
func (g *Gate) OnDecode(code string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if code == "" || g.state.Locked || !g.mounted {
		return false
	}

	g.state.Locked = true
	g.logger.LogScan(fmt.Sprintf("Accepted code %q, acting in %s", code, g.delay))

	g.pending = g.clock.AfterFunc(g.delay, func() {
		g.mu.Lock()
		active := g.mounted
		g.pending = nil
		g.mu.Unlock()

		if active && g.accept != nil {
			g.accept(code)
		}
	})
	return true
}

// OnAppStateChange feeds host lifecycle transitions. Returning to active from
// background or inactive clears the lock.
func (g *Gate) OnAppStateChange(next AppState) {
	g.mu.Lock()
	prev := g.appState
	g.appState = next
	g.mu.Unlock()

	if (prev == AppBackground || prev == AppInactive) && next == AppActive {
		g.OnAppForeground()
	}
}

// OnAppForeground releases the lock. Calling it repeatedly is harmless.
func (g *Gate) OnAppForeground() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state.LastForegroundTransition = g.clock.Now()
	if g.state.Locked {
		g.state.Locked = false
		g.logger.LogScan("App returned to foreground, scanner unlocked")
	}
}

// Mount resets the gate for a freshly shown scanning screen.
func (g *Gate) Mount() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.mounted = true
	g.appState = AppActive
	g.state.Locked = false
}

// Unmount cancels a scheduled action; nothing fires for a screen that is gone.
func (g *Gate) Unmount() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.mounted = false
	if g.pending != nil {
		g.pending.Stop()
		g.pending = nil
	}
}

// State returns a snapshot of the lock.
func (g *Gate) State() LockState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Gate) Locked() bool {
	return g.State().Locked
}
