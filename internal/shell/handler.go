package shell

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
	"github.com/keyxmakerx/ledgerweb/internal/guard"
	"github.com/keyxmakerx/ledgerweb/internal/middleware"
	"github.com/keyxmakerx/ledgerweb/internal/session"
	"github.com/keyxmakerx/ledgerweb/internal/templates/layouts"
	"github.com/keyxmakerx/ledgerweb/internal/templates/pages"
)

// profileTimeout bounds the navbar profile lookup. The page renders with
// the session's own user fields when the backend is slow.
const profileTimeout = 2 * time.Second

// ProfileSource fetches the current profile of a user for the navbar.
type ProfileSource interface {
	Me(ctx context.Context, token, userID string) (session.User, error)
}

// Handler renders the admin area. The auth area's pages belong to the auth
// plugin; both sit behind Gate.
type Handler struct {
	profiles ProfileSource
}

// NewHandler creates the admin area handler. profiles may be nil.
func NewHandler(profiles ProfileSource) *Handler {
	return &Handler{profiles: profiles}
}

// AdminRoot sends "/" and "/admin" to the admin default page (GET).
func (h *Handler) AdminRoot(c echo.Context) error {
	return Navigate(c, AdminDefault)
}

// AuthRoot sends "/auth" to the login page (GET).
func (h *Handler) AuthRoot(c echo.Context) error {
	return Navigate(c, guard.LoginPath)
}

// AdminPage renders one admin page inside the admin shell
// (GET /admin/:page).
func (h *Handler) AdminPage(c echo.Context) error {
	route, ok := GetRoute(c)
	if !ok || route.Page == nil || route.Request.Area != guard.AreaAdmin {
		return apperror.NewNotFound("page not found")
	}
	page := *route.Page

	user := h.profile(c.Request().Context(), GetSnapshot(c))

	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ctx = layouts.SetActivePage(ctx, page.Path(), page.Name)
		ctx = layouts.SetUser(ctx, user.ID, user.Name, user.Image)
		return layouts.Admin(sidebarLinks(), pages.AdminScreen(page.Slug, page.Name)).Render(ctx, w)
	})
	return middleware.Render(c, http.StatusOK, content)
}

// profile returns the freshest user record available: the backend's when it
// answers in time, otherwise the one stored at login.
func (h *Handler) profile(ctx context.Context, snap session.Snapshot) session.User {
	sess, _ := snap.Session()
	if h.profiles == nil {
		return sess.User
	}

	ctx, cancel := context.WithTimeout(ctx, profileTimeout)
	defer cancel()

	user, err := h.profiles.Me(ctx, sess.Token, sess.User.ID)
	if err != nil {
		slog.Debug("profile lookup failed, using stored user",
			slog.String("user_id", sess.User.ID),
			slog.Any("error", err),
		)
		return sess.User
	}
	if user.ID == "" {
		user.ID = sess.User.ID
	}
	return user
}

func sidebarLinks() []layouts.SidebarLink {
	ps := SidebarPages()
	links := make([]layouts.SidebarLink, 0, len(ps))
	for _, p := range ps {
		links = append(links, layouts.SidebarLink{Path: p.Path(), Name: p.Name, Icon: p.Icon})
	}
	return links
}
