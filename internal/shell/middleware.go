package shell

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/browser"
	"github.com/keyxmakerx/ledgerweb/internal/session"
)

// Context keys for the guarded request. Plugins read them through the
// exported getters below.
const (
	contextKeyStore    = "shell_store"
	contextKeySnapshot = "shell_snapshot"
	contextKeyRoute    = "shell_route"
)

// Gate returns middleware that runs the route guard on every navigation into
// the admin or auth area. A redirect decision ends the request with a replace
// navigation; an allowed request continues with the Store, snapshot and
// route available to the handler. Paths outside both areas pass untouched.
func Gate(contexts *browser.Contexts) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route, ok := Resolve(c.Request().URL.Path)
			if !ok {
				return next(c)
			}

			store := contexts.Store(c)
			snap, decision := Evaluate(c.Request().Context(), store, route.Request)
			if !decision.Allowed() {
				slog.Debug("navigation redirected",
					slog.String("path", c.Request().URL.Path),
					slog.String("to", decision.RedirectTo()),
					slog.String("session", snap.String()),
				)
				return Navigate(c, decision.RedirectTo())
			}

			c.Set(contextKeyStore, store)
			c.Set(contextKeySnapshot, snap)
			c.Set(contextKeyRoute, route)
			return next(c)
		}
	}
}

// Navigate performs a replace navigation to path. HTMX requests get an
// HX-Redirect header so the whole page navigates; browsers get a 303, which
// replaces the request instead of adding a history entry.
func Navigate(c echo.Context, path string) error {
	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Redirect", path)
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusSeeOther, path)
}

// --- Exported getters for plugins ---

// GetStore returns the Store of a guarded request, or nil outside the gate.
func GetStore(c echo.Context) *session.Store {
	store, _ := c.Get(contextKeyStore).(*session.Store)
	return store
}

// GetSnapshot returns the session snapshot the guard decided on. Outside
// the gate it is Absent.
func GetSnapshot(c echo.Context) session.Snapshot {
	snap, _ := c.Get(contextKeySnapshot).(session.Snapshot)
	return snap
}

// GetRoute returns the resolved route of a guarded request.
func GetRoute(c echo.Context) (Route, bool) {
	route, ok := c.Get(contextKeyRoute).(Route)
	return route, ok
}
