package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Store is one tab's handle on the session record of a browser context. It
// is the single source of truth for that tab: reads go through Load, writes
// through Set and Clear, and every change is fanned out to subscribers.
//
// Several Stores (one per tab) may point at the same key. Only the Store that
// performed a write notifies synchronously; the others learn about it through
// Reconcile, driven by cross-tab sync.
type Store struct {
	storage Storage
	codec   *Codec
	key     string
	origin  string

	// syncMu serializes Reconcile and Mount, so a re-read never races the
	// value a mount is about to record.
	syncMu sync.Mutex

	mu      sync.Mutex
	subs    []*Subscription
	last    Snapshot
	nextID  uint64
	version uint64
}

// NewStore creates the view of key seen by the tab origin.
func NewStore(storage Storage, codec *Codec, key, origin string) *Store {
	return &Store{
		storage: storage,
		codec:   codec,
		key:     key,
		origin:  origin,
	}
}

// Key returns the storage key of the browser context.
func (s *Store) Key() string { return s.key }

// Origin returns the tab id writes are attributed to.
func (s *Store) Origin() string { return s.origin }

// Storage returns the backing storage, used by cross-tab sync to watch it.
func (s *Store) Storage() Storage { return s.storage }

// Load reads the persisted record. A missing or malformed record yields
// Absent with a nil error; only a storage failure is returned. Load does not
// touch subscribers or the last-known value.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return Absent(), nil
	}
	if err != nil {
		return Absent(), fmt.Errorf("loading session: %w", err)
	}

	sess, err := s.codec.Decode(data)
	if err != nil {
		slog.Debug("discarding unreadable session record", slog.Any("error", err))
		return Absent(), nil
	}
	return Valid(sess), nil
}

// Set persists sess and then notifies every current subscriber before
// returning.
func (s *Store) Set(ctx context.Context, sess Session) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("setting session: %w", err)
	}

	data, err := s.codec.Encode(sess)
	if err != nil {
		return err
	}
	if err := s.storage.Put(ctx, s.key, data, s.origin); err != nil {
		return err
	}

	s.publish(Valid(sess))
	return nil
}

// Clear removes the persisted record and then notifies every current
// subscriber before returning.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.key, s.origin); err != nil {
		return err
	}

	s.publish(Absent())
	return nil
}

// Reconcile re-reads the record after an external change. When the result
// differs from the last value this Store saw, it is recorded and fanned out.
// Subscribers notified from here must not call Reconcile or Mount.
func (s *Store) Reconcile(ctx context.Context) (bool, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	snap, err := s.Load(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if snap.Equal(s.last) {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	s.publish(snap)
	return true, nil
}

// Mount subscribes fn, reads the record and records it as the last known
// value, all as one step with respect to Reconcile. An external change that
// lands during the mount is either in the returned snapshot or delivered to
// fn afterwards. If a local write is published while the record is read, the
// published value wins and is returned instead.
//
// On a storage failure the subscription stays registered and Absent is
// returned with the error.
func (s *Store) Mount(ctx context.Context, fn func(Snapshot)) (Snapshot, *Subscription, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	sub := s.Subscribe(fn)

	s.mu.Lock()
	version := s.version
	s.mu.Unlock()

	snap, err := s.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != version {
		return s.last, sub, nil
	}
	if err != nil {
		return Absent(), sub, err
	}
	s.last = snap
	return snap, sub, nil
}

// Subscribe registers fn to run on every change. The returned handle must be
// released with Unsubscribe when the caller is done.
func (s *Store) Subscribe(fn func(Snapshot)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sub := &Subscription{store: s, id: s.nextID, fn: fn}
	sub.active.Store(true)
	s.subs = append(s.subs, sub)
	return sub
}

// publish records snap and invokes the subscribers registered at this moment.
// Callbacks run outside the lock, so they may Subscribe, Unsubscribe or read
// the store freely.
func (s *Store) publish(snap Snapshot) {
	s.mu.Lock()
	s.last = snap
	s.version++
	subs := make([]*Subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if !sub.active.Load() {
			continue
		}
		sub.fn(snap)
	}
}

func (s *Store) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// subscriberCount is used by tests to check for leaked subscriptions.
func (s *Store) subscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Subscription is the owned handle returned by Store.Subscribe.
type Subscription struct {
	store  *Store
	id     uint64
	fn     func(Snapshot)
	active atomic.Bool
}

// Unsubscribe stops further deliveries. It is safe to call more than once and
// from inside the subscription's own callback.
func (sub *Subscription) Unsubscribe() {
	if sub == nil || !sub.active.CompareAndSwap(true, false) {
		return
	}
	sub.store.remove(sub.id)
}
