package shell

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
	"github.com/keyxmakerx/ledgerweb/internal/browser"
	"github.com/keyxmakerx/ledgerweb/internal/crosstab"
	"github.com/keyxmakerx/ledgerweb/internal/metrics"
)

const (
	liveWriteTimeout = 10 * time.Second
	livePingInterval = 30 * time.Second
)

// liveMessage is pushed to the page over the live channel.
type liveMessage struct {
	Type string `json:"type"`
	To   string `json:"to,omitempty"`
}

// Live serves the live channel of open pages (GET /live). Each connection
// mounts a View for the page's route and follows session writes made by the
// other tabs of the browser. When a change flips the guard, the page is told
// where to navigate and the connection ends.
type Live struct {
	contexts *browser.Contexts
	upgrader websocket.Upgrader
}

// NewLive creates the live channel handler. The upgrader keeps gorilla's
// default same-origin check.
func NewLive(contexts *browser.Contexts) *Live {
	return &Live{
		contexts: contexts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 512,
		},
	}
}

// Serve handles one live connection (GET /live?path=...&tab=...).
func (l *Live) Serve(c echo.Context) error {
	route, ok := Resolve(c.QueryParam("path"))
	if !ok {
		return apperror.NewBadRequest("path must be inside /admin or /auth")
	}
	store := l.contexts.Store(c)

	conn, err := l.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		slog.Debug("live upgrade failed", slog.Any("error", err))
		return nil
	}
	defer conn.Close()

	metrics.LiveViews.Inc()
	defer metrics.LiveViews.Dec()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	var writeMu sync.Mutex
	send := func(msg liveMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
		return conn.WriteJSON(msg)
	}

	// Watch before mounting. A write that lands before the mount reads the
	// record is in the mount's snapshot; a later one reaches the view
	// through the sync.
	stop, err := crosstab.New(store).Start(ctx)
	if err != nil {
		slog.Warn("live channel cannot follow session changes", slog.Any("error", err))
		return nil
	}
	defer stop()

	redirects := make(chan string, 1)
	view := NewView(store, route.Request, func(to string) {
		select {
		case redirects <- to:
		default:
		}
	})
	decision := view.Mount(ctx)
	defer view.Close()

	if !decision.Allowed() {
		_ = send(liveMessage{Type: "redirect", To: decision.RedirectTo()})
		return nil
	}
	if err := send(liveMessage{Type: "ready"}); err != nil {
		return nil
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case to := <-redirects:
			_ = send(liveMessage{Type: "redirect", To: to})
			return nil
		case <-closed:
			return nil
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout))
			writeMu.Unlock()
			if err != nil {
				return nil
			}
		}
	}
}
