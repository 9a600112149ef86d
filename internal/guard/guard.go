// Package guard decides whether a navigation may proceed. Decide is a pure
// function of the requested route and a session snapshot: it has no hidden
// state, performs no I/O and never fails, so every combination of inputs has
// exactly one outcome.
package guard

import (
	"github.com/keyxmakerx/ledgerweb/internal/session"
)

// Area is one of the two top-level navigation partitions.
type Area int

const (
	// AreaAdmin holds the ledger screens and requires a session.
	AreaAdmin Area = iota + 1

	// AreaAuth holds the login/register forms and requires no session.
	AreaAuth
)

// String returns the URL segment of the area.
func (a Area) String() string {
	switch a {
	case AreaAdmin:
		return "admin"
	case AreaAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Default landing paths of each area.
const (
	AdminHome = "/admin"
	LoginPath = "/auth/login"
)

// publicAuthPages are auth sub-paths reachable with or without a session.
// Someone recovering a password has no session yet, and someone who does
// must not be bounced between the two areas.
var publicAuthPages = map[string]bool{
	"forgot-password": true,
	"verify-code":     true,
	"reset-password":  true,
}

// Request is an attempted navigation.
type Request struct {
	Area    Area
	SubPath string
}

// Decision is the outcome of Decide: allow, or redirect to a path.
type Decision struct {
	redirectTo string
}

// Allow is the decision that lets the navigation through.
func Allow() Decision { return Decision{} }

// Redirect is the decision that replaces the navigation with one to path.
func Redirect(path string) Decision { return Decision{redirectTo: path} }

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool { return d.redirectTo == "" }

// RedirectTo returns the replacement path, or "" when allowed.
func (d Decision) RedirectTo() string { return d.redirectTo }

// Outcome returns "allow" or "redirect", for logs and metrics.
func (d Decision) Outcome() string {
	if d.Allowed() {
		return "allow"
	}
	return "redirect"
}

// IsPublic reports whether an auth sub-path is on the always-reachable list.
func IsPublic(req Request) bool {
	return req.Area == AreaAuth && publicAuthPages[req.SubPath]
}

// Decide maps a request and the current session to a decision.
//
// An unknown area is treated like the admin area: it is only reachable with a
// session, which keeps the function total without granting anything extra.
func Decide(req Request, snap session.Snapshot) Decision {
	authenticated := snap.Authenticated()

	switch req.Area {
	case AreaAuth:
		if IsPublic(req) || !authenticated {
			return Allow()
		}
		return Redirect(AdminHome)
	default:
		if authenticated {
			return Allow()
		}
		return Redirect(LoginPath)
	}
}
