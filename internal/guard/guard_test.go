package guard

import (
	"testing"

	"github.com/keyxmakerx/ledgerweb/internal/session"
)

var (
	signedIn  = session.Valid(session.Session{Token: "t1", User: session.User{ID: "7"}})
	noSession = session.Absent()
)

func TestDecide_Table(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		snap session.Snapshot
		want Decision
	}{
		{"admin with session", Request{AreaAdmin, "default"}, signedIn, Allow()},
		{"admin without session", Request{AreaAdmin, "default"}, noSession, Redirect("/auth/login")},
		{"admin root without session", Request{AreaAdmin, ""}, noSession, Redirect("/auth/login")},
		{"auth with session", Request{AreaAuth, "login"}, signedIn, Redirect("/admin")},
		{"register with session", Request{AreaAuth, "register"}, signedIn, Redirect("/admin")},
		{"auth without session", Request{AreaAuth, "login"}, noSession, Allow()},
		{"forgot password with session", Request{AreaAuth, "forgot-password"}, signedIn, Allow()},
		{"forgot password without session", Request{AreaAuth, "forgot-password"}, noSession, Allow()},
		{"verify code with session", Request{AreaAuth, "verify-code"}, signedIn, Allow()},
		{"reset password with session", Request{AreaAuth, "reset-password"}, signedIn, Allow()},
		{"unknown area without session", Request{Area(0), "x"}, noSession, Redirect("/auth/login")},
		{"unknown area with session", Request{Area(99), "x"}, signedIn, Allow()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.req, tt.snap)
			if got != tt.want {
				t.Errorf("Decide(%v, %s) = %q/%v, want %q/%v",
					tt.req, tt.snap, got.RedirectTo(), got.Allowed(), tt.want.RedirectTo(), tt.want.Allowed())
			}
		})
	}
}

func TestDecide_TotalAndDeterministic(t *testing.T) {
	areas := []Area{AreaAdmin, AreaAuth, Area(0), Area(42)}
	subPaths := []string{"", "default", "login", "register", "forgot-password", "verify-code", "reset-password", "nope"}
	snaps := []session.Snapshot{
		noSession,
		signedIn,
		session.Valid(session.Session{User: session.User{ID: "x"}}),
		session.Valid(session.Session{Token: "orphan"}),
	}

	for _, area := range areas {
		for _, sub := range subPaths {
			for _, snap := range snaps {
				req := Request{Area: area, SubPath: sub}
				first := Decide(req, snap)
				if !first.Allowed() && first.RedirectTo() == "" {
					t.Fatalf("Decide(%v, %s) produced neither allow nor a target", req, snap)
				}
				for i := 0; i < 3; i++ {
					if again := Decide(req, snap); again != first {
						t.Fatalf("Decide(%v, %s) not deterministic: %v then %v", req, snap, first, again)
					}
				}
			}
		}
	}
}

func TestDecide_TokenWithoutUserIsNotAuthenticated(t *testing.T) {
	orphan := session.Valid(session.Session{Token: "t1"})
	if got := Decide(Request{AreaAdmin, "default"}, orphan); got.Allowed() {
		t.Error("a token without a user must not open the admin area")
	}
}

func TestDecision_Outcome(t *testing.T) {
	if Allow().Outcome() != "allow" || Redirect("/x").Outcome() != "redirect" {
		t.Error("unexpected outcome labels")
	}
	if AreaAdmin.String() != "admin" || AreaAuth.String() != "auth" || Area(0).String() != "unknown" {
		t.Error("unexpected area names")
	}
}
