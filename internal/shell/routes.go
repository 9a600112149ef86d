// Package shell is the navigation shell of ledgerweb. It resolves URL paths
// into guarded route requests, runs the route guard on every navigation and
// on every session change, and renders the admin or auth area when allowed.
package shell

import (
	"path"
	"strings"

	"github.com/keyxmakerx/ledgerweb/internal/guard"
)

// Page is one entry of the route table.
type Page struct {
	Area guard.Area

	// Slug is the sub-path under the area ("income", "login").
	Slug string

	// Name is shown in the navbar and the sidebar.
	Name string

	// Icon is a Font Awesome class for the sidebar.
	Icon string

	// Sidebar marks admin pages listed in the sidebar.
	Sidebar bool
}

// Path returns the canonical URL of the page.
func (p Page) Path() string {
	return "/" + p.Area.String() + "/" + p.Slug
}

// AdminDefault is the admin landing page.
const AdminDefault = "/admin/default"

// routeTable lists every page. Order is sidebar order.
var routeTable = []Page{
	{Area: guard.AreaAdmin, Slug: "default", Name: "Dashboard", Icon: "fa-house", Sidebar: true},
	{Area: guard.AreaAdmin, Slug: "income", Name: "Income", Icon: "fa-money-bill", Sidebar: true},
	{Area: guard.AreaAdmin, Slug: "expense", Name: "Expense", Icon: "fa-money-bill-transfer", Sidebar: true},
	{Area: guard.AreaAdmin, Slug: "categories", Name: "Categories", Icon: "fa-tags", Sidebar: true},
	{Area: guard.AreaAdmin, Slug: "report", Name: "Reports", Icon: "fa-chart-column", Sidebar: true},
	{Area: guard.AreaAdmin, Slug: "profile", Name: "Profile", Icon: "fa-user", Sidebar: true},

	{Area: guard.AreaAuth, Slug: "login", Name: "Sign In"},
	{Area: guard.AreaAuth, Slug: "register", Name: "Create Account"},
	{Area: guard.AreaAuth, Slug: "forgot-password", Name: "Forgot Password"},
	{Area: guard.AreaAuth, Slug: "verify-code", Name: "Verify Code"},
	{Area: guard.AreaAuth, Slug: "reset-password", Name: "Reset Password"},
}

// byPath indexes pages by normalized path. Lookups are exact: "/admin/inc"
// is not "/admin/income".
var byPath = func() map[string]Page {
	m := make(map[string]Page, len(routeTable))
	for _, p := range routeTable {
		m[p.Path()] = p
	}
	return m
}()

// Route is a resolved URL path.
type Route struct {
	Request guard.Request

	// Page is set when the sub-path is in the route table.
	Page *Page
}

// Normalize cleans a URL path for table lookups: lower case, no duplicate or
// trailing slashes, no dot segments.
func Normalize(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.ToLower(p))
}

// Resolve maps a URL path to a route request. The root path belongs to the
// admin area with an empty sub-path, which the admin handler sends on to the
// default page. Paths outside both areas do not resolve.
func Resolve(rawPath string) (Route, bool) {
	p := Normalize(rawPath)
	if p == "/" {
		return Route{Request: guard.Request{Area: guard.AreaAdmin}}, true
	}

	segments := strings.SplitN(strings.TrimPrefix(p, "/"), "/", 2)
	var area guard.Area
	switch segments[0] {
	case "admin":
		area = guard.AreaAdmin
	case "auth":
		area = guard.AreaAuth
	default:
		return Route{}, false
	}

	var sub string
	if len(segments) == 2 {
		sub = segments[1]
	}

	route := Route{Request: guard.Request{Area: area, SubPath: sub}}
	if page, ok := byPath[p]; ok {
		route.Page = &page
	}
	return route, true
}

// SidebarPages returns the admin pages shown in the sidebar, in order.
func SidebarPages() []Page {
	out := make([]Page, 0, len(routeTable))
	for _, p := range routeTable {
		if p.Sidebar {
			out = append(out, p)
		}
	}
	return out
}
