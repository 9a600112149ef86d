// Package browser maps HTTP requests onto browser contexts and tabs.
//
// A browser context is identified by a cookie without Max-Age: it survives
// reloads and dies with the browser session, just like tab-scoped storage.
// Every tab of that browser shares the context, and so shares the session
// record. Each tab sends its own id so its writes can be told apart from
// those of its siblings.
package browser

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/session"
)

const (
	// contextCookieName holds the browser context id.
	contextCookieName = "ledger_ctx"

	// TabHeader carries the tab id on fetch/HTMX requests.
	TabHeader = "X-Ledger-Tab"

	// tabParam carries the tab id on form posts, links and the live channel.
	tabParam = "tab"

	// Echo context keys.
	keyContextID = "browser_context_id"
	keyTabID     = "browser_tab_id"
)

// idPattern accepts the ids we hand out (UUIDs) and rejects anything that
// could smuggle separators into storage keys.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// Contexts builds session Stores for requests.
type Contexts struct {
	storage session.Storage
	codec   *session.Codec
}

// NewContexts creates a Contexts over the shared storage.
func NewContexts(storage session.Storage, codec *session.Codec) *Contexts {
	return &Contexts{storage: storage, codec: codec}
}

// Store returns the session Store of the request's browser context as seen
// by the request's tab. A missing context cookie is issued on the spot.
func (b *Contexts) Store(c echo.Context) *session.Store {
	return session.NewStore(b.storage, b.codec, ContextID(c), TabID(c))
}

// ContextID returns the browser context id, issuing a cookie if the request
// has none (or a forged one).
func ContextID(c echo.Context) string {
	if id, ok := c.Get(keyContextID).(string); ok {
		return id
	}

	if cookie, err := c.Cookie(contextCookieName); err == nil && idPattern.MatchString(cookie.Value) {
		c.Set(keyContextID, cookie.Value)
		return cookie.Value
	}

	id := uuid.NewString()
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     contextCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(keyContextID, id)
	return id
}

// TabID returns the id of the tab that sent the request. Requests that carry
// none (first page load, curl) get a fresh id, which makes them a tab of
// their own.
func TabID(c echo.Context) string {
	if id, ok := c.Get(keyTabID).(string); ok {
		return id
	}

	id := c.Request().Header.Get(TabHeader)
	if !idPattern.MatchString(id) {
		id = c.QueryParam(tabParam)
	}
	if !idPattern.MatchString(id) {
		id = c.FormValue(tabParam)
	}
	if !idPattern.MatchString(id) {
		id = uuid.NewString()
	}

	c.Set(keyTabID, id)
	return id
}
