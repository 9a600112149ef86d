package session

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Storage.Get when no record exists under a key.
var ErrNotFound = errors.New("session record not found")

// ChangeEvent announces that the record under Key was written or removed by
// the tab identified by Origin. It carries no payload; receivers re-read.
type ChangeEvent struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Watch is an owned subscription to a storage change channel. Close releases
// it and may be called more than once.
type Watch interface {
	Events() <-chan ChangeEvent
	Close() error
}

// Storage is the durable layer shared by every tab of a browser context.
// Writes are last-write-wins; there is no cross-tab locking.
type Storage interface {
	// Get returns the raw record or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the raw record and announces the change to watchers of key
	// other than origin.
	Put(ctx context.Context, key string, value []byte, origin string) error

	// Delete removes the record (a missing record is not an error) and
	// announces the change to watchers of key other than origin.
	Delete(ctx context.Context, key string, origin string) error

	// Watch subscribes to changes of key. Like the browser storage event,
	// changes made by origin itself are never delivered to it.
	Watch(ctx context.Context, key string, origin string) (Watch, error)
}

// offer delivers ev on a one-slot channel without blocking. A pending event
// already forces the receiver to re-read, so a second one adds nothing.
func offer(ch chan ChangeEvent, ev ChangeEvent) {
	select {
	case ch <- ev:
	default:
	}
}
