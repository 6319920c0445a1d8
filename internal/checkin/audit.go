package checkin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
)

// DefaultAuditTimeout bounds one background publish.
const DefaultAuditTimeout = 5 * time.Second

// AuditPublisher receives an event for every classified validation and every
// confirmed check-in. Publishing failures are logged and never change the
// outcome shown to the operator.
type AuditPublisher interface {
	Publish(ctx context.Context, event models.AuditEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.AuditEvent) error { return nil }

// BackgroundAudit hands every event to next on its own goroutine, so screens
// never wait on the broker. Publish always returns nil; failures are logged.
type BackgroundAudit struct {
	next    AuditPublisher
	timeout time.Duration
	logger  *logger.Logger
	wg      sync.WaitGroup
}

func NewBackgroundAudit(next AuditPublisher, timeout time.Duration, log *logger.Logger) *BackgroundAudit {
	if timeout <= 0 {
		timeout = DefaultAuditTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BackgroundAudit{next: next, timeout: timeout, logger: log}
}

// Publish returns immediately. The publish outlives ctx cancellation but not
// the audit timeout.
func (b *BackgroundAudit) Publish(ctx context.Context, event models.AuditEvent) error {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()
		if err := b.next.Publish(ctx, event); err != nil {
			b.logger.Warn("AUDIT", fmt.Sprintf("Failed to publish %s event for %s: %v", event.Type, event.TicketCode, err))
		}
	}()
	return nil
}

// Wait blocks until every publish started so far has returned.
func (b *BackgroundAudit) Wait() {
	b.wg.Wait()
}
