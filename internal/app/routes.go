package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyxmakerx/ledgerweb/internal/backend"
	"github.com/keyxmakerx/ledgerweb/internal/browser"
	"github.com/keyxmakerx/ledgerweb/internal/middleware"
	"github.com/keyxmakerx/ledgerweb/internal/plugins/auth"
	"github.com/keyxmakerx/ledgerweb/internal/plugins/preferences"
	"github.com/keyxmakerx/ledgerweb/internal/session"
	"github.com/keyxmakerx/ledgerweb/internal/shell"
	"github.com/keyxmakerx/ledgerweb/internal/templates/layouts"
)

// RegisterRoutes wires the shell and plugins and registers every route.
// This is the single place where routes are aggregated.
func (a *App) RegisterRoutes() error {
	e := a.Echo

	codec, err := session.NewCodec(a.Config.Session.SecretKey)
	if err != nil {
		return fmt.Errorf("creating session codec: %w", err)
	}
	contexts := browser.NewContexts(a.Storage, codec)
	api := backend.NewClient(a.Config.Backend.URL, a.Config.Backend.Timeout)

	// --- Plugins ---
	shellHandler := shell.NewHandler(api)
	authHandler := auth.NewHandler(auth.NewAuthService(api), contexts)

	var prefRepo preferences.PreferenceRepository
	if a.DB != nil {
		prefRepo = preferences.NewPreferenceRepository(a.DB)
	}
	prefHandler := preferences.NewHandler(preferences.NewPreferenceService(prefRepo), contexts)

	// Layout data for every rendered page. Runs at render time, after the
	// gate has put the session snapshot on the context.
	middleware.LayoutInjector = func(c echo.Context, ctx context.Context) context.Context {
		ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
		ctx = layouts.SetTabID(ctx, browser.TabID(c))
		ctx = layouts.SetLanguage(ctx, prefHandler.Language(c))
		ctx = layouts.SetIsAuthenticated(ctx, shell.GetSnapshot(c).Authenticated())
		return ctx
	}

	// --- Guarded areas ---
	gate := shell.Gate(contexts)

	e.GET("/", shellHandler.AdminRoot, gate)

	admin := e.Group("/admin", gate)
	admin.GET("", shellHandler.AdminRoot)
	admin.GET("/", shellHandler.AdminRoot)
	admin.GET("/:page", shellHandler.AdminPage)

	authGroup := e.Group("/auth", gate)
	authGroup.GET("", shellHandler.AuthRoot)
	authGroup.GET("/", shellHandler.AuthRoot)
	auth.RegisterRoutes(e, authGroup, authHandler)

	// --- Outside the gate ---
	preferences.RegisterRoutes(e, prefHandler)
	e.GET("/live", shell.NewLive(contexts).Serve)

	e.GET("/healthz", a.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return nil
}

// healthz reports whether the session storage (and the preference database,
// when configured) answer.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			status["status"], status["redis"] = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			status["status"], status["database"] = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}
