package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
	"github.com/keyxmakerx/ledgerweb/internal/backend"
	"github.com/keyxmakerx/ledgerweb/internal/guard"
	"github.com/keyxmakerx/ledgerweb/internal/middleware"
	"github.com/keyxmakerx/ledgerweb/internal/session"
	"github.com/keyxmakerx/ledgerweb/internal/shell"
)

// maxImageSize caps the profile image accepted at sign-up.
const maxImageSize = 5 << 20

// Paths the auth flows send the browser to after a successful step.
const (
	registeredPath    = guard.LoginPath + "?registered=1"
	passwordResetPath = guard.LoginPath + "?reset=1"
	forgotPath        = "/auth/forgot-password"
)

// StoreSource yields the session Store of a request's browser context.
// *browser.Contexts satisfies it.
type StoreSource interface {
	Store(c echo.Context) *session.Store
}

// Handler handles the auth area's forms and logout. Handlers are thin:
// they bind the request, call the service, and render the response.
type Handler struct {
	service AuthService
	stores  StoreSource
}

// NewHandler creates a new auth handler.
func NewHandler(service AuthService, stores StoreSource) *Handler {
	return &Handler{service: service, stores: stores}
}

// store returns the Store the gate already built for this request, or a
// fresh one for routes outside the gate (logout).
func (h *Handler) store(c echo.Context) *session.Store {
	if s := shell.GetStore(c); s != nil {
		return s
	}
	return h.stores.Store(c)
}

// --- Sign in ---

// LoginForm renders the sign-in page (GET /auth/login).
func (h *Handler) LoginForm(c echo.Context) error {
	var flash string
	switch {
	case c.QueryParam("registered") != "":
		flash = msgRegistered
	case c.QueryParam("reset") != "":
		flash = msgPasswordReset
	}
	return middleware.Render(c, http.StatusOK, withFlash(flash, LoginPage(LoginRequest{}, nil)))
}

// Login processes the sign-in form (POST /auth/login). On success the
// session is written to the browser context and the tab navigates to the
// admin area; other tabs follow over their live channel.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	req.Normalize()

	if errs := req.Validate(); !errs.Empty() {
		return middleware.Render(c, http.StatusOK, LoginPage(req, errs))
	}

	if err := h.service.Login(c.Request().Context(), h.store(c), req); err != nil {
		return middleware.Render(c, http.StatusOK, LoginPage(req, formError(apperror.SafeMessage(err))))
	}
	return shell.Navigate(c, guard.AdminHome)
}

// --- Sign up ---

// RegisterForm renders the sign-up page (GET /auth/register).
func (h *Handler) RegisterForm(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, RegisterPage(RegisterRequest{}, nil))
}

// Register processes the sign-up form (POST /auth/register, multipart).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	req.Normalize()

	errs := req.Validate()
	image, closeImage, imgErr := formImage(c)
	if imgErr != "" {
		errs[formErrorKey] = imgErr
	}
	defer closeImage()
	if !errs.Empty() {
		return middleware.Render(c, http.StatusOK, RegisterPage(req, errs))
	}

	if err := h.service.Register(c.Request().Context(), req, image); err != nil {
		return middleware.Render(c, http.StatusOK, RegisterPage(req, formError(apperror.SafeMessage(err))))
	}
	return shell.Navigate(c, registeredPath)
}

// formImage opens the optional profile image. The returned close func is
// always safe to call.
func formImage(c echo.Context) (*backend.Upload, func(), string) {
	noop := func() {}
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || (err == nil && fh.Size == 0) {
		return nil, noop, ""
	}
	if err != nil {
		// Not a multipart body: the form was posted without a file input.
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, ""
		}
		return nil, noop, "Could not read the image"
	}
	if fh.Size > maxImageSize {
		return nil, noop, "Image must be 5 MB or smaller"
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, "Could not read the image"
	}
	return &backend.Upload{Filename: fh.Filename, Content: f}, func() { _ = f.Close() }, ""
}

// --- Password reset ---

// ForgotPasswordForm renders step one (GET /auth/forgot-password).
func (h *Handler) ForgotPasswordForm(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, ForgotPasswordPage(c.QueryParam("email"), nil))
}

// ForgotPassword requests a reset code (POST /auth/forgot-password) and
// moves on to the verification step.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	email := normalizeEmail(req.Email)

	if email == "" {
		return middleware.Render(c, http.StatusOK, ForgotPasswordPage(email, FieldErrors{"email": "Email is required"}))
	}
	if !emailPattern.MatchString(email) {
		return middleware.Render(c, http.StatusOK, ForgotPasswordPage(email, FieldErrors{"email": "Invalid email format"}))
	}

	notice, err := h.service.RequestReset(c.Request().Context(), email)
	if err != nil {
		return middleware.Render(c, http.StatusOK, ForgotPasswordPage(email, formError(apperror.SafeMessage(err))))
	}
	return middleware.Render(c, http.StatusOK, VerifyCodePage(email, notice, nil))
}

// VerifyCodeForm renders step two (GET /auth/verify-code?email=...).
func (h *Handler) VerifyCodeForm(c echo.Context) error {
	email := normalizeEmail(c.QueryParam("email"))
	if email == "" {
		return shell.Navigate(c, forgotPath)
	}
	return middleware.Render(c, http.StatusOK, VerifyCodePage(email, "", nil))
}

// VerifyCode checks the reset code (POST /auth/verify-code) and moves on to
// the new password step.
func (h *Handler) VerifyCode(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return shell.Navigate(c, forgotPath)
	}
	code := trimmed(req.Code)
	if code == "" {
		return middleware.Render(c, http.StatusOK, VerifyCodePage(email, "", FieldErrors{"code": "Enter the code"}))
	}

	if err := h.service.VerifyCode(c.Request().Context(), email, code); err != nil {
		return middleware.Render(c, http.StatusOK, VerifyCodePage(email, "", formError(apperror.SafeMessage(err))))
	}
	return middleware.Render(c, http.StatusOK, ResetPasswordPage(email, nil))
}

// ResetPasswordForm renders step three (GET /auth/reset-password?email=...).
func (h *Handler) ResetPasswordForm(c echo.Context) error {
	email := normalizeEmail(c.QueryParam("email"))
	if email == "" {
		return shell.Navigate(c, forgotPath)
	}
	return middleware.Render(c, http.StatusOK, ResetPasswordPage(email, nil))
}

// ResetPassword sets the new password (POST /auth/reset-password).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return shell.Navigate(c, forgotPath)
	}

	if req.NewPassword == "" {
		return middleware.Render(c, http.StatusOK, ResetPasswordPage(email, FieldErrors{"newPassword": "Password is required"}))
	}
	if req.NewPassword != req.ConfirmPassword {
		return middleware.Render(c, http.StatusOK, ResetPasswordPage(email, formError(msgPasswordsMismatch)))
	}

	if err := h.service.ResetPassword(c.Request().Context(), email, req.NewPassword); err != nil {
		return middleware.Render(c, http.StatusOK, ResetPasswordPage(email, formError(apperror.SafeMessage(err))))
	}
	return shell.Navigate(c, passwordResetPath)
}

// --- Sign out ---

// Logout clears the session of the browser context (POST /logout). Every
// open tab of the context is sent to the sign-in page.
func (h *Handler) Logout(c echo.Context) error {
	if err := h.service.Logout(c.Request().Context(), h.store(c)); err != nil {
		return err
	}
	return shell.Navigate(c, guard.LoginPath)
}
