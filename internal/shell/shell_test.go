package shell

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
	"github.com/keyxmakerx/ledgerweb/internal/browser"
	"github.com/keyxmakerx/ledgerweb/internal/crosstab"
	"github.com/keyxmakerx/ledgerweb/internal/guard"
	"github.com/keyxmakerx/ledgerweb/internal/session"
)

const (
	testContextID = "ctx-0000-0001"
	tabA          = "tab-aaaa-0001"
	tabB          = "tab-bbbb-0002"
)

func newCodec(t *testing.T) *session.Codec {
	t.Helper()
	codec, err := session.NewCodec("shell-test-secret-key-32-characters")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func amina() session.Session {
	return session.Session{Token: "t1", User: session.User{ID: "7", Name: "Amina"}}
}

// navigations records the targets handed to a View.
type navigations chan string

func (n navigations) navigate(to string) {
	select {
	case n <- to:
	default:
	}
}

func (n navigations) wait(t *testing.T) string {
	t.Helper()
	select {
	case to := <-n:
		return to
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for navigation")
		return ""
	}
}

func (n navigations) none(t *testing.T) {
	t.Helper()
	select {
	case to := <-n:
		t.Fatalf("unexpected navigation to %q", to)
	case <-time.After(50 * time.Millisecond):
	}
}

// failingStorage fails every read.
type failingStorage struct{ session.Storage }

func (failingStorage) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("storage down")
}

func TestEvaluate_StorageFailureIsSignedOut(t *testing.T) {
	store := session.NewStore(failingStorage{session.NewMemoryStorage()}, newCodec(t), testContextID, tabA)

	snap, d := Evaluate(context.Background(), store, guard.Request{Area: guard.AreaAdmin, SubPath: "income"})
	if snap.Authenticated() {
		t.Error("snapshot should be absent")
	}
	if d.RedirectTo() != guard.LoginPath {
		t.Errorf("decision = %q, want redirect to login", d.RedirectTo())
	}
}

func TestView_MountReturnsInitialDecision(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryStorage(), newCodec(t), testContextID, tabA)
	nav := make(navigations, 4)

	v := NewView(store, guard.Request{Area: guard.AreaAdmin, SubPath: "default"}, nav.navigate)
	defer v.Close()

	if d := v.Mount(ctx); d.RedirectTo() != guard.LoginPath {
		t.Fatalf("Mount = %q, want redirect to login", d.RedirectTo())
	}
	nav.none(t)
}

func TestView_LoginInSameTabLeavesAuthArea(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryStorage(), newCodec(t), testContextID, tabA)
	nav := make(navigations, 4)

	v := NewView(store, guard.Request{Area: guard.AreaAuth, SubPath: ""}, nav.navigate)
	defer v.Close()
	if d := v.Mount(ctx); !d.Allowed() {
		t.Fatalf("auth area should be allowed without a session")
	}

	if err := store.Set(ctx, amina()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if to := nav.wait(t); to != guard.AdminHome {
		t.Errorf("navigated to %q, want %q", to, guard.AdminHome)
	}
	if v.Decision().Allowed() {
		t.Error("latest decision should be the redirect")
	}
}

func TestView_PublicAuthPageStays(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryStorage(), newCodec(t), testContextID, tabA)
	nav := make(navigations, 4)

	v := NewView(store, guard.Request{Area: guard.AreaAuth, SubPath: "reset-password"}, nav.navigate)
	defer v.Close()
	v.Mount(ctx)

	if err := store.Set(ctx, amina()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	nav.none(t)
}

func TestView_ClosedViewIgnoresChanges(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(session.NewMemoryStorage(), newCodec(t), testContextID, tabA)
	_ = store.Set(ctx, amina())
	nav := make(navigations, 4)

	v := NewView(store, guard.Request{Area: guard.AreaAdmin, SubPath: "income"}, nav.navigate)
	v.Mount(ctx)
	v.Close()
	v.Close()

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	nav.none(t)
}

// A logout in tab A sends tab B's admin page to the login page.
func TestView_LogoutInOtherTab(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage := session.NewMemoryStorage()
	codec := newCodec(t)
	storeA := session.NewStore(storage, codec, testContextID, tabA)
	storeB := session.NewStore(storage, codec, testContextID, tabB)
	if err := storeA.Set(ctx, amina()); err != nil {
		t.Fatalf("Set: %v", err)
	}

	stop, err := crosstab.New(storeB).Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stop()

	nav := make(navigations, 4)
	v := NewView(storeB, guard.Request{Area: guard.AreaAdmin, SubPath: "income"}, nav.navigate)
	defer v.Close()
	if d := v.Mount(ctx); !d.Allowed() {
		t.Fatalf("tab B should see the shared session")
	}

	if err := storeA.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if to := nav.wait(t); to != guard.LoginPath {
		t.Errorf("tab B navigated to %q, want %q", to, guard.LoginPath)
	}
}

// readHookStorage runs hook once, after the first Get has read the record
// and before the result reaches the caller.
type readHookStorage struct {
	*session.MemoryStorage
	once sync.Once
	hook func()
}

func (r *readHookStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.MemoryStorage.Get(ctx, key)
	r.once.Do(r.hook)
	return data, err
}

// A logout in tab A that lands while tab B's view is mounting still sends
// tab B to the login page.
func TestView_LogoutDuringMount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	memory := session.NewMemoryStorage()
	codec := newCodec(t)
	storeA := session.NewStore(memory, codec, testContextID, tabA)
	if err := storeA.Set(ctx, amina()); err != nil {
		t.Fatalf("Set: %v", err)
	}

	storage := &readHookStorage{MemoryStorage: memory}
	storeB := session.NewStore(storage, codec, testContextID, tabB)

	stop, err := crosstab.New(storeB).Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stop()

	storage.hook = func() {
		if err := storeA.Clear(ctx); err != nil {
			t.Errorf("Clear: %v", err)
		}
		// Give tab B's sync every chance to handle the event mid-mount.
		time.Sleep(50 * time.Millisecond)
	}

	nav := make(navigations, 4)
	v := NewView(storeB, guard.Request{Area: guard.AreaAdmin, SubPath: "income"}, nav.navigate)
	defer v.Close()

	v.Mount(ctx)
	if to := nav.wait(t); to != guard.LoginPath {
		t.Errorf("tab B navigated to %q, want %q", to, guard.LoginPath)
	}
	if v.Decision().Allowed() {
		t.Error("latest decision should be the redirect")
	}
}

// A different browser context never sees tab A's session.
func TestView_OtherBrowserUnaffected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage := session.NewMemoryStorage()
	codec := newCodec(t)
	storeA := session.NewStore(storage, codec, testContextID, tabA)
	other := session.NewStore(storage, codec, "ctx-9999-0009", tabB)

	stop, err := crosstab.New(other).Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stop()

	nav := make(navigations, 4)
	v := NewView(other, guard.Request{Area: guard.AreaAuth, SubPath: "login"}, nav.navigate)
	defer v.Close()
	v.Mount(ctx)

	if err := storeA.Set(ctx, amina()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	nav.none(t)
}

// --- Gate and handlers ---

type fakeProfiles struct {
	user session.User
	err  error
}

func (f fakeProfiles) Me(context.Context, string, string) (session.User, error) {
	return f.user, f.err
}

type gateFixture struct {
	e        *echo.Echo
	storage  *session.MemoryStorage
	codec    *session.Codec
	contexts *browser.Contexts
}

func newGateFixture(t *testing.T, profiles ProfileSource) *gateFixture {
	t.Helper()
	f := &gateFixture{storage: session.NewMemoryStorage(), codec: newCodec(t)}
	f.contexts = browser.NewContexts(f.storage, f.codec)

	h := NewHandler(profiles)
	gate := Gate(f.contexts)
	f.e = echo.New()
	f.e.HTTPErrorHandler = func(err error, c echo.Context) {
		_ = c.String(apperror.SafeCode(err), apperror.SafeMessage(err))
	}
	f.e.GET("/", h.AdminRoot, gate)
	admin := f.e.Group("/admin", gate)
	admin.GET("", h.AdminRoot)
	admin.GET("/:page", h.AdminPage)
	authGroup := f.e.Group("/auth", gate)
	authGroup.GET("", h.AuthRoot)
	authGroup.GET("/login", func(c echo.Context) error { return c.String(http.StatusOK, "login form") })
	authGroup.GET("/reset-password", func(c echo.Context) error { return c.String(http.StatusOK, "reset form") })
	return f
}

func (f *gateFixture) signIn(t *testing.T) {
	t.Helper()
	store := session.NewStore(f.storage, f.codec, testContextID, tabA)
	if err := store.Set(context.Background(), amina()); err != nil {
		t.Fatalf("Set: %v", err)
	}
}

func (f *gateFixture) get(path string, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: "ledger_ctx", Value: testContextID})
	req.Header.Set(browser.TabHeader, tabA)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestGate_Redirects(t *testing.T) {
	tests := []struct {
		name     string
		signedIn bool
		path     string
		code     int
		location string
	}{
		{"root signed out", false, "/", http.StatusSeeOther, guard.LoginPath},
		{"admin page signed out", false, "/admin/income", http.StatusSeeOther, guard.LoginPath},
		{"unknown admin page signed out", false, "/admin/nope", http.StatusSeeOther, guard.LoginPath},
		{"login signed out", false, "/auth/login", http.StatusOK, ""},
		{"auth root signed out", false, "/auth", http.StatusSeeOther, guard.LoginPath},
		{"root signed in", true, "/", http.StatusSeeOther, AdminDefault},
		{"admin root signed in", true, "/admin", http.StatusSeeOther, AdminDefault},
		{"login signed in", true, "/auth/login", http.StatusSeeOther, guard.AdminHome},
		{"reset page signed in", true, "/auth/reset-password", http.StatusOK, ""},
		{"admin page signed in", true, "/admin/income", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGateFixture(t, nil)
			if tt.signedIn {
				f.signIn(t)
			}
			rec := f.get(tt.path, false)
			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			if got := rec.Header().Get("Location"); got != tt.location {
				t.Errorf("Location = %q, want %q", got, tt.location)
			}
		})
	}
}

func TestGate_HTMXRedirect(t *testing.T) {
	f := newGateFixture(t, nil)
	rec := f.get("/admin/income", true)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); got != guard.LoginPath {
		t.Errorf("HX-Redirect = %q", got)
	}
}

func TestAdminPage_RendersProfile(t *testing.T) {
	f := newGateFixture(t, fakeProfiles{user: session.User{Name: "Amina Noor", Image: "https://cdn.example.com/a.png"}})
	f.signIn(t)

	rec := f.get("/admin/income", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Amina Noor", `data-screen="income"`, `data-user-id="7"`, "https://cdn.example.com/a.png", `aria-current="page"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestAdminPage_FallsBackToStoredUser(t *testing.T) {
	f := newGateFixture(t, fakeProfiles{err: errors.New("backend down")})
	f.signIn(t)

	rec := f.get("/admin/default", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Amina") {
		t.Error("navbar should show the stored user name")
	}
}

func TestAdminPage_UnknownPage(t *testing.T) {
	f := newGateFixture(t, nil)
	f.signIn(t)

	rec := f.get("/admin/nope", false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
