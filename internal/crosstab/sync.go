// Package crosstab keeps a tab's session Store in step with writes made by
// other tabs of the same browser context. It listens on the storage change
// channel and asks the Store to reconcile; local writes never pass through it.
package crosstab

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keyxmakerx/ledgerweb/internal/metrics"
	"github.com/keyxmakerx/ledgerweb/internal/session"
)

// Sync reconciles one Store with external changes between Start and stop.
type Sync struct {
	store *session.Store
}

// New binds a Sync to the given Store.
func New(store *session.Store) *Sync {
	return &Sync{store: store}
}

// Start subscribes to the store's change channel and returns once the
// subscription is live. Reconciliation runs in the background until ctx is
// done; the returned stop function cancels it and waits for it to finish.
// stop may be called more than once.
func (s *Sync) Start(ctx context.Context) (stop func(), err error) {
	storage := s.store.Storage()
	w, err := storage.Watch(ctx, s.store.Key(), s.store.Origin())
	if err != nil {
		return nil, fmt.Errorf("watching session changes: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		defer w.Close()
		s.loop(ctx, w)
	}()

	return func() {
		cancel()
		<-finished
	}, nil
}

func (s *Sync) loop(ctx context.Context, w session.Watch) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.Events():
			s.handle(ctx, ev)
		}
	}
}

// handle re-reads the record after an external change. A storage error is
// logged and left for the next event; the tabs converge eventually.
func (s *Sync) handle(ctx context.Context, ev session.ChangeEvent) {
	changed, err := s.store.Reconcile(ctx)
	switch {
	case err != nil:
		metrics.SyncEvents.WithLabelValues("error").Inc()
		slog.Warn("session reconcile failed",
			slog.String("origin", ev.Origin),
			slog.Any("error", err),
		)
	case changed:
		metrics.SyncEvents.WithLabelValues("changed").Inc()
		slog.Debug("session changed in another tab",
			slog.String("origin", ev.Origin),
		)
	default:
		metrics.SyncEvents.WithLabelValues("unchanged").Inc()
	}
}
