// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (session storage, Redis client,
// optional preference database, Echo instance) and wires the shell and the
// plugins together.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
	"github.com/keyxmakerx/ledgerweb/internal/config"
	"github.com/keyxmakerx/ledgerweb/internal/guard"
	"github.com/keyxmakerx/ledgerweb/internal/middleware"
	"github.com/keyxmakerx/ledgerweb/internal/session"
	"github.com/keyxmakerx/ledgerweb/internal/templates/pages"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go.
type App struct {
	Config *config.Config

	// Storage holds the persisted session records of every browser context.
	Storage session.Storage

	// Redis backs Storage when SESSION_STORAGE=redis. Nil otherwise.
	Redis *redis.Client

	// DB backs language preferences when PREFERENCES_DB is on. Nil otherwise.
	DB *sql.DB

	Echo *echo.Echo
}

// New creates the App and configures Echo with global middleware and error
// handling. rdb and db may be nil.
func New(cfg *config.Config, storage session.Storage, rdb *redis.Client, db *sql.DB) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, cfg.TrustedProxies)

	app := &App{
		Config:  cfg,
		Storage: storage,
		Redis:   rdb,
		DB:      db,
		Echo:    e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler
	e.Static("/static", "static")

	return app
}

// setupMiddleware registers global middleware. Order matters: recovery runs
// first, CSRF last.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.SecurityHeaders())
	a.Echo.Use(middleware.CSRF())
}

// errorHandler maps AppErrors to responses: an error page for browsers,
// JSON for the live channel and JSON clients. HTMX requests get the page
// swapped into the body.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		if message == "" {
			message = defaultErrorMessage(code)
		}
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		code = echoErr.Code
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if wantsJSON(c) {
		_ = c.JSON(code, map[string]string{
			"error":   http.StatusText(code),
			"message": message,
		})
		return
	}

	if code == http.StatusUnauthorized {
		if isHTMXRequest(c) {
			c.Response().Header().Set("HX-Redirect", guard.LoginPath)
			_ = c.NoContent(http.StatusNoContent)
			return
		}
		_ = c.Redirect(http.StatusSeeOther, guard.LoginPath)
		return
	}

	if isHTMXRequest(c) {
		c.Response().Header().Set("HX-Retarget", "body")
		c.Response().Header().Set("HX-Reswap", "innerHTML")
	}
	_ = middleware.Render(c, code, pages.ErrorPage(code, message))
}

// defaultErrorMessage returns a user-friendly message for common status
// codes when the error carried none.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusForbidden:
		return "You don't have permission to do that."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist or has been moved."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusUnprocessableEntity:
		return "The submitted data could not be processed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusBadGateway:
		return "The server could not be reached. Please try again."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "Something went wrong on our end. Please try again."
	}
}

// wantsJSON is true for the live channel and for clients that ask for JSON.
func wantsJSON(c echo.Context) bool {
	r := c.Request()
	return r.URL.Path == "/live" ||
		strings.HasPrefix(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting ledgerweb server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
