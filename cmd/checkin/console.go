package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"ms-checkin/internal/checkin"
	"ms-checkin/internal/models"
	"ms-checkin/internal/qr"
)

// console is the terminal navigation layer: it prints alerts and renders the
// screen a route points at.
type console struct {
	mu      sync.Mutex
	out     io.Writer
	deps    checkin.Deps
	qr      *qr.Generator
	details *checkin.DetailsScreen
}

func newConsole(out io.Writer, deps checkin.Deps, gen *qr.Generator) *console {
	c := &console{out: out, qr: gen}
	deps.Navigator = c
	deps.Alerter = c
	c.deps = deps
	return c
}

func (c *console) Deps() checkin.Deps {
	return c.deps
}

func (c *console) Alert(a checkin.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "\n  !! %s\n\n", a)
}

func (c *console) Navigate(route checkin.Route) {
	c.mu.Lock()
	if c.details != nil {
		c.details.Unmount()
		c.details = nil
	}
	var details *checkin.DetailsScreen
	if route.Destination == checkin.DestinationTicketDetails {
		details = checkin.NewDetailsScreen(route.Params, c.deps)
		c.details = details
	}
	c.mu.Unlock()

	switch route.Destination {
	case checkin.DestinationTicketDetails:
		c.renderDetails(details)
	case checkin.DestinationLogin:
		fmt.Fprintln(c.out, "Run `checkin login <token>` to sign in.")
	case checkin.DestinationValidate:
		fmt.Fprintln(c.out, "Ready for the next ticket.")
	}
}

// Details is the details screen being shown, if any.
func (c *console) Details() *checkin.DetailsScreen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.details
}

func (c *console) renderDetails(s *checkin.DetailsScreen) {
	view := s.View()
	if view.Error != "" {
		fmt.Fprintln(c.out, view.Error)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "==== %s  %s ====\n", view.Status, view.Code)
	if view.Used {
		fmt.Fprintf(&b, "  Checked in at: %s\n  By: %s\n", view.CheckedInAt, view.CheckedInBy)
	}
	for _, row := range view.Rows {
		fmt.Fprintf(&b, "  %-13s %s\n", row.Label+":", row.Value)
	}
	if ticket, err := s.Ticket(); err == nil && c.qr != nil {
		if art, err := c.qr.Terminal(ticket.Code); err == nil {
			b.WriteString(art)
		}
	}
	if view.ActionEnabled {
		fmt.Fprintf(&b, "[%s] type :checkin to confirm\n", view.ActionLabel)
	} else {
		fmt.Fprintf(&b, "[%s]\n", view.ActionLabel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, b.String())
}

func (c *console) renderCandidates(candidates []models.Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, "Several tickets match this code, pick one with :pick <n>")
	for i, t := range candidates {
		status := "valid"
		if t.IsCheckedIn {
			status = "checked in"
		}
		fmt.Fprintf(c.out, "  %d) %s  %s  seat %s  [%s]\n", i+1, t.Code, orDash(t.AttendeeName), orDash(t.Seat), status)
	}
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
