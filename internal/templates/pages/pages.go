// Package pages holds full-page and page-content components that do not
// belong to a single plugin.
package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/ledgerweb/internal/templates/layouts"
)

// ErrorPage renders a standalone error document.
func ErrorPage(code int, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		h.Raw(`<div class="flex items-center justify-center"><div class="error-card"><h1>`)
		h.Text(strconv.Itoa(code))
		h.Raw(`</h1><p>`)
		h.Text(message)
		h.Raw(`</p><a href="/">Back to the dashboard</a></div></div>`)
		return h.Err()
	})
	return layouts.Base("Error", body)
}

// AdminScreen is the content panel of an admin page. The ledger screens are
// rendered client-side from the backend API; the panel hands the script the
// resolved user id and which screen to mount.
func AdminScreen(slug, name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		h.Raw(`<div class="screen" data-screen="`)
		h.Text(slug)
		h.Raw(`" data-user-id="`)
		h.Text(layouts.GetUserID(ctx))
		h.Raw(`"><h2>`)
		h.Text(name)
		h.Raw(`</h2><div class="screen-body" aria-busy="true"></div></div>`)
		return h.Err()
	})
}
