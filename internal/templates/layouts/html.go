package layouts

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// HTML is a small sticky-error writer for the page bodies that are not
// written as .templ files. Text goes through templ.EscapeString; Raw is for
// markup only.
type HTML struct {
	w   io.Writer
	err error
}

// NewHTML wraps w.
func NewHTML(w io.Writer) *HTML {
	return &HTML{w: w}
}

// Raw writes trusted markup.
func (h *HTML) Raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// Text writes escaped text. Also safe inside double-quoted attributes.
func (h *HTML) Text(s string) {
	h.Raw(templ.EscapeString(s))
}

// Component renders a nested component.
func (h *HTML) Component(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Err returns the first write error.
func (h *HTML) Err() error {
	return h.err
}

// HiddenFields writes the CSRF and tab id inputs every form carries.
func (h *HTML) HiddenFields(ctx context.Context) {
	h.Component(ctx, HiddenFields())
}
