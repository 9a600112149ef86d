package auth

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
	"github.com/keyxmakerx/ledgerweb/internal/backend"
	"github.com/keyxmakerx/ledgerweb/internal/browser"
	"github.com/keyxmakerx/ledgerweb/internal/session"
	"github.com/keyxmakerx/ledgerweb/internal/shell"
)

// testApp is a gated echo instance with the auth routes and the admin
// pages, backed by in-memory session storage.
type testApp struct {
	e       *echo.Echo
	gw      *mockGateway
	storage *session.MemoryStorage
	cookies []*http.Cookie
}

func newTestApp(t *testing.T, gw *mockGateway) *testApp {
	t.Helper()
	codec, err := session.NewCodec("test-secret-key-at-least-32-chars!!")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	storage := session.NewMemoryStorage()
	contexts := browser.NewContexts(storage, codec)

	e := echo.New()
	gate := shell.Gate(contexts)
	admin := e.Group("/admin", gate)
	admin.GET("/:page", shell.NewHandler(nil).AdminPage)
	authGroup := e.Group("/auth", gate)
	RegisterRoutes(e, authGroup, NewHandler(NewAuthService(gw), contexts))

	return &testApp{e: e, gw: gw, storage: storage}
}

// do sends a request as one tab of the app's browser context, keeping the
// cookies the server sets.
func (a *testApp) do(t *testing.T, req *http.Request, tab string) *httptest.ResponseRecorder {
	t.Helper()
	if tab != "" {
		req.Header.Set(browser.TabHeader, tab)
	}
	for _, c := range a.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		a.cookies = append(a.cookies, c)
	}
	return rec
}

func (a *testApp) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return a.do(t, httptest.NewRequest(http.MethodGet, path, nil), "tab-aaaa-0001")
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return a.do(t, req, "tab-aaaa-0001")
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, to string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 (body: %s)", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != to {
		t.Fatalf("Location = %q, want %q", got, to)
	}
}

func assertOK(t *testing.T, rec *httptest.ResponseRecorder, contains ...string) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (Location %q)", rec.Code, rec.Header().Get("Location"))
	}
	for _, s := range contains {
		if !strings.Contains(rec.Body.String(), s) {
			t.Errorf("body does not contain %q", s)
		}
	}
}

func signIn(t *testing.T, a *testApp) {
	t.Helper()
	rec := a.postForm(t, "/auth/login", url.Values{"email": {"amina@example.com"}, "password": {"secret1"}})
	assertRedirect(t, rec, "/admin")
}

// --- Scenarios ---

func TestLoginThenAuthPagesRedirectToAdmin(t *testing.T) {
	app := newTestApp(t, &mockGateway{loginFn: acceptAmina})

	assertRedirect(t, app.get(t, "/admin/income"), "/auth/login")
	signIn(t, app)

	assertOK(t, app.get(t, "/admin/income"), "Income")
	assertRedirect(t, app.get(t, "/auth/login"), "/admin")
	assertRedirect(t, app.get(t, "/auth/register"), "/admin")
}

func TestLogoutThenAdminRedirectsToLogin(t *testing.T) {
	app := newTestApp(t, &mockGateway{loginFn: acceptAmina})
	signIn(t, app)
	assertOK(t, app.get(t, "/admin/default"))

	assertRedirect(t, app.postForm(t, "/logout", nil), "/auth/login")

	assertRedirect(t, app.get(t, "/admin/default"), "/auth/login")
	assertOK(t, app.get(t, "/auth/login"), "Sign In")
}

func TestLogin_FailureShowsMessageAndKeepsSignedOut(t *testing.T) {
	app := newTestApp(t, &mockGateway{loginFn: acceptAmina})

	rec := app.postForm(t, "/auth/login", url.Values{"email": {"amina@example.com"}, "password": {"nope"}})
	assertOK(t, rec, "Invalid email or password", `value="amina@example.com"`)

	assertRedirect(t, app.get(t, "/admin/default"), "/auth/login")
}

func TestLogin_EmptyFieldsSkipBackend(t *testing.T) {
	gw := &mockGateway{loginFn: acceptAmina}
	app := newTestApp(t, gw)

	assertOK(t, app.postForm(t, "/auth/login", url.Values{}), "Enter email", "Enter password")
	if gw.loginCalls != 0 {
		t.Errorf("backend called %d times", gw.loginCalls)
	}
}

func TestLogin_SessionSharedByOtherTabs(t *testing.T) {
	app := newTestApp(t, &mockGateway{loginFn: acceptAmina})
	signIn(t, app)

	// Same browser context, different tab.
	rec := app.do(t, httptest.NewRequest(http.MethodGet, "/admin/report", nil), "tab-bbbb-0002")
	assertOK(t, rec, "Reports")
}

func TestLogin_OtherBrowserStaysSignedOut(t *testing.T) {
	app := newTestApp(t, &mockGateway{loginFn: acceptAmina})
	signIn(t, app)

	other := &testApp{e: app.e}
	assertRedirect(t, other.get(t, "/admin/default"), "/auth/login")
}

func TestPublicAuthPagesWithSession(t *testing.T) {
	app := newTestApp(t, &mockGateway{loginFn: acceptAmina})
	signIn(t, app)

	assertOK(t, app.get(t, "/auth/forgot-password"), "Forgot Password")
	assertOK(t, app.get(t, "/auth/verify-code?email=amina@example.com"), "Verify Code")
	assertOK(t, app.get(t, "/auth/reset-password?email=amina@example.com"), "Reset Your Password")
}

// --- Registration ---

func multipartForm(t *testing.T, fields map[string]string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "me.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write(image)
	}
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestRegister_ValidationErrors(t *testing.T) {
	app := newTestApp(t, &mockGateway{})

	rec := app.postForm(t, "/auth/register", url.Values{
		"name":            {"R2D2"},
		"email":           {"bad"},
		"password":        {"123"},
		"confirmPassword": {"321"},
	})
	assertOK(t, rec, "Only letters &amp; spaces allowed", "Invalid email format", "Min 6 characters", "Passwords do not match")
}

func TestRegister_SuccessRedirectsToLogin(t *testing.T) {
	var got backend.Registration
	var image string
	app := newTestApp(t, &mockGateway{registerFn: func(_ context.Context, reg backend.Registration) error {
		got = reg
		if reg.Image != nil {
			data, _ := io.ReadAll(reg.Image.Content)
			image = string(data)
		}
		return nil
	}})

	body, contentType := multipartForm(t, map[string]string{
		"name":            "Amina Noor",
		"email":           "amina@example.com",
		"password":        "secret1",
		"confirmPassword": "secret1",
	}, []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	assertRedirect(t, app.do(t, req, "tab-aaaa-0001"), "/auth/login?registered=1")
	if got.Name != "Amina Noor" || got.Email != "amina@example.com" {
		t.Errorf("registration = %+v", got)
	}
	if image != "png-bytes" {
		t.Errorf("image = %q", image)
	}

	assertOK(t, app.get(t, "/auth/login?registered=1"), msgRegistered)
	assertRedirect(t, app.get(t, "/admin/default"), "/auth/login")
}

func TestRegister_BackendMessage(t *testing.T) {
	app := newTestApp(t, &mockGateway{registerFn: func(context.Context, backend.Registration) error {
		return apperror.NewConflict("User already exists")
	}})

	rec := app.postForm(t, "/auth/register", url.Values{
		"name":            {"Amina"},
		"email":           {"amina@example.com"},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	assertOK(t, rec, "User already exists")
}

// --- Password reset ---

func TestPasswordResetFlow(t *testing.T) {
	var resetTo string
	app := newTestApp(t, &mockGateway{
		forgotPasswordFn: func(context.Context, string) (string, error) { return "Code sent to your email", nil },
		verifyCodeFn: func(_ context.Context, _, code string) error {
			if code != "123456" {
				return apperror.NewBadRequest("Invalid or expired code")
			}
			return nil
		},
		resetPasswordFn: func(_ context.Context, _, pw string) error {
			resetTo = pw
			return nil
		},
	})

	rec := app.postForm(t, "/auth/forgot-password", url.Values{"email": {"amina@example.com"}})
	assertOK(t, rec, "Code sent to your email", `action="/auth/verify-code"`, `value="amina@example.com"`)

	rec = app.postForm(t, "/auth/verify-code", url.Values{"email": {"amina@example.com"}, "code": {"000000"}})
	assertOK(t, rec, "Invalid or expired code")

	rec = app.postForm(t, "/auth/verify-code", url.Values{"email": {"amina@example.com"}, "code": {"123456"}})
	assertOK(t, rec, `action="/auth/reset-password"`)

	rec = app.postForm(t, "/auth/reset-password", url.Values{
		"email": {"amina@example.com"}, "newPassword": {"newpass"}, "confirmPassword": {"other"},
	})
	assertOK(t, rec, "Passwords do not match")
	if resetTo != "" {
		t.Fatal("mismatched passwords must not reach the backend")
	}

	rec = app.postForm(t, "/auth/reset-password", url.Values{
		"email": {"amina@example.com"}, "newPassword": {"newpass"}, "confirmPassword": {"newpass"},
	})
	assertRedirect(t, rec, "/auth/login?reset=1")
	if resetTo != "newpass" {
		t.Errorf("reset to %q", resetTo)
	}
	assertOK(t, app.get(t, "/auth/login?reset=1"), "Password updated successfully")
}

func TestPasswordReset_RequestFailure(t *testing.T) {
	app := newTestApp(t, &mockGateway{forgotPasswordFn: func(context.Context, string) (string, error) {
		return "", apperror.NewNotFound("")
	}})
	assertOK(t, app.postForm(t, "/auth/forgot-password", url.Values{"email": {"amina@example.com"}}), msgRequestFailed)
}

func TestPasswordReset_StepsNeedEmail(t *testing.T) {
	app := newTestApp(t, &mockGateway{})
	assertRedirect(t, app.get(t, "/auth/verify-code"), "/auth/forgot-password")
	assertRedirect(t, app.get(t, "/auth/reset-password"), "/auth/forgot-password")
}

func TestHTMXLoginGetsHXRedirect(t *testing.T) {
	app := newTestApp(t, &mockGateway{loginFn: acceptAmina})

	form := url.Values{"email": {"amina@example.com"}, "password": {"secret1"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("HX-Request", "true")

	rec := app.do(t, req, "tab-aaaa-0001")
	if rec.Code != http.StatusNoContent || rec.Header().Get("HX-Redirect") != "/admin" {
		t.Errorf("status %d, HX-Redirect %q", rec.Code, rec.Header().Get("HX-Redirect"))
	}
}
