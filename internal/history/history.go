// Package history backs the check-in history screen: loading past check-ins,
// filtering them by a free-text query, and deleting single records.
package history

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"

	"ms-checkin/internal/auth"
	"ms-checkin/internal/logger"
	"ms-checkin/internal/models"
)

var (
	ErrUnauthenticated = errors.New("operator is not logged in")
	ErrRecordNotFound  = errors.New("history record not found")
)

// Filter yields the records whose ticket code or seat contains query, ignoring
// case, in their original order. It is lazy and restartable: every range over
// the result walks records afresh, and records is never modified. An empty
// query matches everything.
func Filter(records []models.HistoryRecord, query string) iter.Seq[models.HistoryRecord] {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(yield func(models.HistoryRecord) bool) {
		for _, r := range records {
			if q != "" && !matches(r, q) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

func matches(r models.HistoryRecord, q string) bool {
	return strings.Contains(strings.ToLower(r.TicketCode), q) ||
		strings.Contains(strings.ToLower(r.Seat), q)
}

// API is the part of the check-in service the history screen uses.
type API interface {
	FetchHistory(ctx context.Context, token string) ([]models.HistoryRecord, error)
	DeleteHistoryRecord(ctx context.Context, token, code string) error
}

// List is the history screen's displayed sequence.
type List struct {
	mu          sync.Mutex
	records     []models.HistoryRecord
	api         API
	credentials auth.CredentialSource
	logger      *logger.Logger
}

func NewList(api API, credentials auth.CredentialSource, log *logger.Logger) *List {
	if log == nil {
		log = logger.Nop()
	}
	return &List{api: api, credentials: credentials, logger: log}
}

// Load replaces the displayed records with the service's history.
func (l *List) Load(ctx context.Context) error {
	token, ok := l.credentials.Token(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	records, err := l.api.FetchHistory(ctx, token)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	l.mu.Lock()
	l.records = records
	l.mu.Unlock()

	l.logger.Info("HISTORY", fmt.Sprintf("Loaded %d check-in records", len(records)))
	return nil
}

// Records returns a copy of the displayed records.
func (l *List) Records() []models.HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Filter applies Filter to a snapshot of the displayed records.
func (l *List) Filter(query string) iter.Seq[models.HistoryRecord] {
	return Filter(l.Records(), query)
}

// Removal is a record taken off the displayed list whose remote delete failed.
type Removal struct {
	Record models.HistoryRecord
	Index  int
	list   *List
}

// Undo puts the record back where it was, or at the end if the list has since
// shrunk. It is a no-op if a record with the same code is already displayed.
func (r *Removal) Undo() {
	l := r.list
	l.mu.Lock()
	defer l.mu.Unlock()

	if slices.ContainsFunc(l.records, func(h models.HistoryRecord) bool { return h.TicketCode == r.Record.TicketCode }) {
		return
	}
	idx := min(r.Index, len(l.records))
	l.records = slices.Insert(l.records, idx, r.Record)
}

// Delete removes the record with the given ticket code from the displayed
// list and then asks the service to delete it, once. The local removal is not
// rolled back on failure: the caller gets the Removal and decides whether to
// Undo it.
func (l *List) Delete(ctx context.Context, code string) (*Removal, error) {
	token, ok := l.credentials.Token(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	l.mu.Lock()
	idx := slices.IndexFunc(l.records, func(h models.HistoryRecord) bool { return h.TicketCode == code })
	if idx < 0 {
		l.mu.Unlock()
		return nil, ErrRecordNotFound
	}
	removed := l.records[idx]
	l.records = slices.Delete(l.records, idx, idx+1)
	l.mu.Unlock()

	if err := l.api.DeleteHistoryRecord(ctx, token, code); err != nil {
		l.logger.Error("HISTORY", fmt.Sprintf("Failed to delete record %s: %v", code, err))
		return &Removal{Record: removed, Index: idx, list: l}, fmt.Errorf("delete history record: %w", err)
	}

	l.logger.Info("HISTORY", fmt.Sprintf("Deleted record %s", code))
	return nil, nil
}
