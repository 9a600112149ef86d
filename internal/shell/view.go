package shell

import (
	"context"
	"log/slog"
	"sync"

	"github.com/keyxmakerx/ledgerweb/internal/guard"
	"github.com/keyxmakerx/ledgerweb/internal/metrics"
	"github.com/keyxmakerx/ledgerweb/internal/session"
)

// Evaluate loads the session and runs the guard for req. If the store cannot
// be read the view degrades to "no session" instead of failing.
func Evaluate(ctx context.Context, store *session.Store, req guard.Request) (session.Snapshot, guard.Decision) {
	snap, err := store.Load(ctx)
	if err != nil {
		logUnavailable(req, err)
		snap = session.Absent()
	}

	return snap, decide(req, snap)
}

func logUnavailable(req guard.Request, err error) {
	slog.Warn("session storage unavailable, treating as signed out",
		slog.String("area", req.Area.String()),
		slog.Any("error", err),
	)
}

func decide(req guard.Request, snap session.Snapshot) guard.Decision {
	d := guard.Decide(req, snap)
	metrics.GuardDecisions.WithLabelValues(req.Area.String(), d.Outcome()).Inc()
	return d
}

// View is one mounted page of one tab. It keeps the guard decision for its
// route fresh: every session notification re-runs the guard, and a redirect
// is handed to navigate.
type View struct {
	store    *session.Store
	req      guard.Request
	navigate func(to string)

	mu       sync.Mutex
	sub      *session.Subscription
	decision guard.Decision
	notified bool
	closed   bool
}

// NewView creates an unmounted view.
func NewView(store *session.Store, req guard.Request, navigate func(to string)) *View {
	return &View{store: store, req: req, navigate: navigate}
}

// Mount evaluates the guard once and follows session changes from then on.
// The subscription is in place before the session is read, so a change in
// another tab cannot slip between the two. The initial decision is returned
// rather than passed to navigate; the caller acts on it the same way it
// renders the first page.
func (v *View) Mount(ctx context.Context) guard.Decision {
	snap, sub, err := v.store.Mount(ctx, v.onChange)
	if err != nil {
		logUnavailable(v.req, err)
	}
	d := decide(v.req, snap)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		sub.Unsubscribe()
		return d
	}
	v.sub = sub
	if v.notified {
		// A change arrived while mounting; its decision is newer.
		d = v.decision
	} else {
		v.decision = d
	}
	v.mu.Unlock()
	return d
}

// Decision returns the latest guard decision.
func (v *View) Decision() guard.Decision {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.decision
}

// Close stops following session changes. It is safe to call more than once
// and from inside navigate.
func (v *View) Close() {
	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.closed = true
	v.mu.Unlock()

	sub.Unsubscribe()
}

func (v *View) onChange(snap session.Snapshot) {
	d := decide(v.req, snap)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.decision = d
	v.notified = true
	v.mu.Unlock()

	if !d.Allowed() {
		v.navigate(d.RedirectTo())
	}
}
