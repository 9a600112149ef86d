package preferences

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
	"github.com/keyxmakerx/ledgerweb/internal/session"
	"github.com/keyxmakerx/ledgerweb/internal/shell"
)

// contextKeyLanguage caches the resolved language on the Echo context.
const contextKeyLanguage = "preferences_language"

// StoreSource yields the session Store of a request's browser context.
// *browser.Contexts satisfies it.
type StoreSource interface {
	Store(c echo.Context) *session.Store
}

// Handler serves the language selector and resolves the language of
// rendered pages.
type Handler struct {
	service PreferenceService
	stores  StoreSource
}

// NewHandler creates a new preferences handler.
func NewHandler(service PreferenceService, stores StoreSource) *Handler {
	return &Handler{service: service, stores: stores}
}

// SetLanguage stores the navbar choice (POST /preferences/language) and
// sends the tab back to the page it came from.
func (h *Handler) SetLanguage(c echo.Context) error {
	var req LanguageRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if !Supported(req.Language) {
		return apperror.NewValidation("unsupported language")
	}

	userID := h.userID(c)
	if err := h.service.Save(c.Request().Context(), userID, req.Language); err != nil {
		// The cookie still carries the choice.
		slog.Error("saving language preference",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	r := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    req.Language,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return shell.Navigate(c, safeReturn(req.ReturnTo))
}

// Language returns the language to render the current request in. It is
// called by the layout injector and cached per request.
func (h *Handler) Language(c echo.Context) string {
	if lang, ok := c.Get(contextKeyLanguage).(string); ok {
		return lang
	}

	var cookieValue string
	if cookie, err := c.Cookie(cookieName); err == nil {
		cookieValue = cookie.Value
	}
	lang := h.service.Resolve(c.Request().Context(), shell.GetSnapshot(c).UserID(), cookieValue)
	c.Set(contextKeyLanguage, lang)
	return lang
}

// userID returns the signed-in user of the request's browser context, or
// "" when there is none or the storage cannot be read.
func (h *Handler) userID(c echo.Context) string {
	if h.stores == nil {
		return ""
	}
	snap, err := h.stores.Store(c).Load(c.Request().Context())
	if err != nil {
		slog.Warn("session storage unavailable on language change", slog.Any("error", err))
		return ""
	}
	return snap.UserID()
}

// safeReturn keeps the redirect inside the guarded areas. Anything else
// (absolute URLs, protocol-relative paths, unknown areas) goes to "/".
func safeReturn(p string) string {
	if p == "" || p[0] != '/' || (len(p) > 1 && (p[1] == '/' || p[1] == '\\')) {
		return "/"
	}
	if _, ok := shell.Resolve(p); !ok {
		return "/"
	}
	return shell.Normalize(p)
}
