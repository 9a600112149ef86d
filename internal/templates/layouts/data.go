// data.go provides typed context helpers for passing layout data from
// handlers/middleware to Templ components. Only simple types are stored so
// the layouts package never imports plugin or shell types.
//
// Data flow: Middleware → Echo Context → LayoutInjector → Go Context → Templ
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyIsAuthenticated ctxKey = "layout_is_authenticated"
	keyUserID          ctxKey = "layout_user_id"
	keyUserName        ctxKey = "layout_user_name"
	keyUserImage       ctxKey = "layout_user_image"
	keyCSRFToken       ctxKey = "layout_csrf_token"
	keyTabID           ctxKey = "layout_tab_id"
	keyActivePath      ctxKey = "layout_active_path"
	keyPageName        ctxKey = "layout_page_name"
	keyLanguage        ctxKey = "layout_language"
	keyFlashSuccess    ctxKey = "layout_flash_success"
)

// SetIsAuthenticated stores whether the current tab has a session.
func SetIsAuthenticated(ctx context.Context, v bool) context.Context {
	return context.WithValue(ctx, keyIsAuthenticated, v)
}

// IsAuthenticated reports whether the current tab has a session.
func IsAuthenticated(ctx context.Context) bool {
	v, _ := ctx.Value(keyIsAuthenticated).(bool)
	return v
}

// SetUser stores the signed-in user's display fields.
func SetUser(ctx context.Context, id, name, image string) context.Context {
	ctx = context.WithValue(ctx, keyUserID, id)
	ctx = context.WithValue(ctx, keyUserName, name)
	return context.WithValue(ctx, keyUserImage, image)
}

// GetUserID returns the signed-in user's id.
func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(keyUserID).(string)
	return v
}

// GetUserName returns the signed-in user's display name.
func GetUserName(ctx context.Context) string {
	v, _ := ctx.Value(keyUserName).(string)
	return v
}

// GetUserImage returns the signed-in user's avatar URL.
func GetUserImage(ctx context.Context) string {
	v, _ := ctx.Value(keyUserImage).(string)
	return v
}

// SetCSRFToken stores the CSRF token for forms.
func SetCSRFToken(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, v)
}

// GetCSRFToken returns the CSRF token for forms.
func GetCSRFToken(ctx context.Context) string {
	v, _ := ctx.Value(keyCSRFToken).(string)
	return v
}

// SetTabID stores the id of the tab the page is rendered for.
func SetTabID(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyTabID, v)
}

// GetTabID returns the id of the tab the page is rendered for.
func GetTabID(ctx context.Context) string {
	v, _ := ctx.Value(keyTabID).(string)
	return v
}

// SetActivePage stores the current path and its navbar title.
func SetActivePage(ctx context.Context, path, name string) context.Context {
	ctx = context.WithValue(ctx, keyActivePath, path)
	return context.WithValue(ctx, keyPageName, name)
}

// GetActivePath returns the current normalized path.
func GetActivePath(ctx context.Context) string {
	v, _ := ctx.Value(keyActivePath).(string)
	return v
}

// GetPageName returns the navbar title of the current page.
func GetPageName(ctx context.Context) string {
	v, _ := ctx.Value(keyPageName).(string)
	return v
}

// SetLanguage stores the preferred UI language.
func SetLanguage(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyLanguage, v)
}

// GetLanguage returns the preferred UI language, "en" when unset.
func GetLanguage(ctx context.Context) string {
	if v, ok := ctx.Value(keyLanguage).(string); ok && v != "" {
		return v
	}
	return "en"
}

// SetFlashSuccess stores a one-shot success banner.
func SetFlashSuccess(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyFlashSuccess, v)
}

// GetFlashSuccess returns the success banner, if any.
func GetFlashSuccess(ctx context.Context) string {
	v, _ := ctx.Value(keyFlashSuccess).(string)
	return v
}
