package scangate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-checkin/internal/clock"
)

func newTestGate(t *testing.T) (*Gate, *clock.Manual, *[]string) {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	accepted := &[]string{}
	g := New(func(code string) { *accepted = append(*accepted, code) }, WithClock(clk))
	return g, clk, accepted
}

func TestGate_FirstCodeWinsWithinWindow(t *testing.T) {
	g, clk, accepted := newTestGate(t)

	assert.True(t, g.OnDecode("T-1"))
	assert.False(t, g.OnDecode("T-2"))
	assert.True(t, g.Locked())

	clk.Advance(DefaultAckDelay - time.Millisecond)
	assert.Empty(t, *accepted, "action waits for the acknowledgment delay")
	assert.False(t, g.OnDecode("T-3"), "decode between lock and action is dropped")

	clk.Advance(time.Millisecond)
	assert.Equal(t, []string{"T-1"}, *accepted)
	assert.True(t, g.Locked(), "the scheduled action does not release the lock")

	clk.Advance(10 * time.Second)
	assert.False(t, g.OnDecode("T-4"))
	assert.Equal(t, []string{"T-1"}, *accepted)
}

func TestGate_ForegroundUnlocks(t *testing.T) {
	g, clk, accepted := newTestGate(t)

	require.True(t, g.OnDecode("T-1"))
	clk.Advance(DefaultAckDelay)

	g.OnAppForeground()
	assert.False(t, g.Locked())
	assert.Equal(t, clk.Now(), g.State().LastForegroundTransition)

	assert.True(t, g.OnDecode("T-2"))
	clk.Advance(DefaultAckDelay)
	assert.Equal(t, []string{"T-1", "T-2"}, *accepted)
}

func TestGate_AppStateTransitions(t *testing.T) {
	g, _, _ := newTestGate(t)

	require.True(t, g.OnDecode("T-1"))

	g.OnAppStateChange(AppActive)
	assert.True(t, g.Locked(), "active to active is not a foreground transition")

	g.OnAppStateChange(AppInactive)
	assert.True(t, g.Locked())
	g.OnAppStateChange(AppActive)
	assert.False(t, g.Locked())

	require.True(t, g.OnDecode("T-2"))
	g.OnAppStateChange(AppBackground)
	g.OnAppStateChange(AppActive)
	assert.False(t, g.Locked())
}

func TestGate_RepeatedForegroundIsIdempotent(t *testing.T) {
	g, clk, accepted := newTestGate(t)

	require.True(t, g.OnDecode("T-1"))
	for i := 0; i < 5; i++ {
		g.OnAppStateChange(AppBackground)
		g.OnAppStateChange(AppActive)
		g.OnAppForeground()
	}
	assert.False(t, g.Locked())

	require.True(t, g.OnDecode("T-2"))
	assert.False(t, g.OnDecode("T-3"), "one release admits exactly one new code")

	clk.Advance(DefaultAckDelay)
	assert.Equal(t, []string{"T-1", "T-2"}, *accepted)
}

func TestGate_EmptyCodeIgnored(t *testing.T) {
	g, _, _ := newTestGate(t)

	assert.False(t, g.OnDecode(""))
	assert.False(t, g.Locked())
}

func TestGate_UnmountCancelsPendingAction(t *testing.T) {
	g, clk, accepted := newTestGate(t)

	require.True(t, g.OnDecode("T-1"))
	g.Unmount()
	clk.Advance(time.Second)

	assert.Empty(t, *accepted)
	assert.Equal(t, 0, clk.Pending())
	assert.False(t, g.OnDecode("T-2"), "an unmounted gate accepts nothing")

	g.Mount()
	assert.False(t, g.Locked())
	assert.True(t, g.OnDecode("T-3"))
	clk.Advance(DefaultAckDelay)
	assert.Equal(t, []string{"T-3"}, *accepted)
}

func TestGate_CustomDelay(t *testing.T) {
	clk := clock.NewManual(time.Now())
	var got string
	g := New(func(code string) { got = code }, WithClock(clk), WithAckDelay(50*time.Millisecond))

	require.True(t, g.OnDecode("T-9"))
	clk.Advance(50 * time.Millisecond)
	assert.Equal(t, "T-9", got)
}

func TestGate_PermissionDenied(t *testing.T) {
	g, _, _ := newTestGate(t)

	prompt := g.OnPermissionDenied()
	assert.Equal(t, "Camera Permission Required", prompt.Title)
	assert.Equal(t, []PromptAction{ActionCancel, ActionOpenSettings}, prompt.Actions)

	leave, link, err := prompt.Resolve(ActionCancel)
	require.NoError(t, err)
	assert.True(t, leave)
	assert.Empty(t, link)

	leave, link, err = prompt.Resolve(ActionOpenSettings)
	require.NoError(t, err)
	assert.False(t, leave)
	assert.Equal(t, SettingsURL, link)

	_, _, err = prompt.Resolve("retry")
	assert.Error(t, err)
	assert.False(t, g.Locked())
}
