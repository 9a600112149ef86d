package crosstab

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/keyxmakerx/ledgerweb/internal/session"
)

func newCodec(t *testing.T) *session.Codec {
	t.Helper()
	codec, err := session.NewCodec("crosstab-test-secret-key-32-chars!!")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

// recorder collects notifications delivered on the sync goroutine.
type recorder struct {
	mu    sync.Mutex
	snaps []session.Snapshot
	ch    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 16)}
}

func (r *recorder) record(s session.Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T) session.Snapshot {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

func (r *recorder) assertQuiet(t *testing.T) {
	t.Helper()
	select {
	case <-r.ch:
		t.Fatal("unexpected notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSync_ExternalLogoutReachesOtherTab(t *testing.T) {
	storage := session.NewMemoryStorage()
	codec := newCodec(t)
	ctx := context.Background()

	tabA := session.NewStore(storage, codec, "ctx-1", "tab-a")
	tabB := session.NewStore(storage, codec, "ctx-1", "tab-b")

	login := session.Session{Token: "t1", User: session.User{ID: "7"}}
	if err := tabA.Set(ctx, login); err != nil {
		t.Fatalf("Set: %v", err)
	}
	rec := newRecorder()
	_, sub, err := tabB.Mount(ctx, rec.record)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer sub.Unsubscribe()

	stop, err := New(tabB).Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stop()

	if err := tabA.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if snap := rec.wait(t); snap.Authenticated() {
		t.Errorf("expected tab B to observe logout, got %s", snap)
	}
}

func TestSync_IgnoresOwnWrites(t *testing.T) {
	storage := session.NewMemoryStorage()
	codec := newCodec(t)
	ctx := context.Background()
	tab := session.NewStore(storage, codec, "ctx-1", "tab-a")

	stop, err := New(tab).Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stop()

	rec := newRecorder()
	sub := tab.Subscribe(rec.record)
	defer sub.Unsubscribe()

	_ = tab.Set(ctx, session.Session{Token: "t1", User: session.User{ID: "7"}})

	// The local write notifies synchronously exactly once; sync adds nothing.
	rec.wait(t)
	rec.assertQuiet(t)
}

func TestSync_UnchangedRecordDoesNotNotify(t *testing.T) {
	storage := session.NewMemoryStorage()
	codec := newCodec(t)
	ctx := context.Background()
	login := session.Session{Token: "t1", User: session.User{ID: "7"}}

	tabA := session.NewStore(storage, codec, "ctx-1", "tab-a")
	tabB := session.NewStore(storage, codec, "ctx-1", "tab-b")
	_ = tabA.Set(ctx, login)
	rec := newRecorder()
	_, sub, err := tabB.Mount(ctx, rec.record)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	defer sub.Unsubscribe()

	stop, _ := New(tabB).Start(ctx)
	defer stop()

	// Tab A writes the same session again: tab B re-reads but sees no change.
	_ = tabA.Set(ctx, login)
	rec.assertQuiet(t)
}

func TestSync_StopReleasesWatch(t *testing.T) {
	storage := session.NewMemoryStorage()
	codec := newCodec(t)
	ctx := context.Background()
	tabA := session.NewStore(storage, codec, "ctx-1", "tab-a")
	tabB := session.NewStore(storage, codec, "ctx-1", "tab-b")

	rec := newRecorder()
	sub := tabB.Subscribe(rec.record)
	defer sub.Unsubscribe()

	stop, err := New(tabB).Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	stop()
	stop()

	_ = tabA.Set(ctx, session.Session{Token: "t1", User: session.User{ID: "7"}})
	rec.assertQuiet(t)
}

func TestSync_StopsWhenContextEnds(t *testing.T) {
	storage := session.NewMemoryStorage()
	codec := newCodec(t)
	tabA := session.NewStore(storage, codec, "ctx-1", "tab-a")
	tabB := session.NewStore(storage, codec, "ctx-1", "tab-b")
	ctx, cancel := context.WithCancel(context.Background())

	rec := newRecorder()
	sub := tabB.Subscribe(rec.record)
	defer sub.Unsubscribe()

	stop, err := New(tabB).Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stop()

	cancel()
	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after the context ended")
	}

	_ = tabA.Set(context.Background(), session.Session{Token: "t1", User: session.User{ID: "7"}})
	rec.assertQuiet(t)
}
