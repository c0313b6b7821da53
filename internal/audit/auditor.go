// Package audit follows the published event stream and checks it against
// the ledger's ordering guarantees.
package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rpggio/proofchain/internal/domain/event"
)

// Source delivers published events.
type Source interface {
	Consume(ctx context.Context) (<-chan event.Event, error)
}

// Report counts what the auditor has seen.
type Report struct {
	Received   int
	Duplicates int
	Reordered  int
}

// Auditor logs every event and flags redeliveries and events whose
// sequence number is not above the highest one seen.
type Auditor struct {
	logger *slog.Logger

	mu      sync.Mutex
	seen    map[string]struct{}
	lastSeq int64
	report  Report
}

// New creates an auditor. logger may be nil.
func New(logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Auditor{logger: logger, seen: make(map[string]struct{})}
}

// Run consumes src until ctx is done or the delivery channel closes.
func (a *Auditor) Run(ctx context.Context, src Source) error {
	events, err := src.Consume(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			a.Observe(evt)
		}
	}
}

// Observe records one event.
func (a *Auditor) Observe(evt event.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.report.Received++
	if _, dup := a.seen[evt.EventID]; dup {
		a.report.Duplicates++
		a.logger.Warn("duplicate event delivery", "event_id", evt.EventID, "seq", evt.Seq)
		return
	}
	a.seen[evt.EventID] = struct{}{}

	if evt.Seq <= a.lastSeq {
		a.report.Reordered++
		a.logger.Warn("event out of commit order", "event_id", evt.EventID, "seq", evt.Seq, "last_seq", a.lastSeq)
	} else {
		a.lastSeq = evt.Seq
	}

	attrs := []any{
		"seq", evt.Seq,
		"type", evt.Type,
		"project_id", evt.ProjectID,
		"actor", evt.Actor,
	}
	for k, v := range evt.Details {
		attrs = append(attrs, k, v)
	}
	a.logger.Info("ledger event", attrs...)
}

// Report returns a snapshot of the counters.
func (a *Auditor) Report() Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.report
}
