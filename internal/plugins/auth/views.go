package auth

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/ledgerweb/internal/templates/layouts"
)

// LoginPage renders the sign-in form.
func LoginPage(form LoginRequest, errs FieldErrors) templ.Component {
	return layouts.Auth("Sign In", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		h.Raw(`<h2 class="title">Sign In</h2><form method="post" action="/auth/login" class="auth-form" novalidate>`)
		h.HiddenFields(ctx)
		input(h, "email", "email", "Email", form.Email, errs)
		input(h, "password", "password", "Password", "", errs)
		formMessage(h, errs)
		h.Raw(`<a class="link" href="/auth/forgot-password">Forgot your password?</a>`)
		h.Raw(`<button type="submit" class="btn">Sign In</button></form>`)
		h.Raw(`<p class="switch">New here? <a class="link" href="/auth/register">Create an account</a></p>`)
		return h.Err()
	}))
}

// RegisterPage renders the sign-up form.
func RegisterPage(form RegisterRequest, errs FieldErrors) templ.Component {
	return layouts.Auth("Create Account", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		h.Raw(`<h2 class="title">Create Account</h2>`)
		h.Raw(`<form method="post" action="/auth/register" enctype="multipart/form-data" class="auth-form" novalidate>`)
		h.HiddenFields(ctx)
		input(h, "text", "name", "Name", form.Name, errs)
		input(h, "email", "email", "Email", form.Email, errs)
		input(h, "password", "password", "Password", "", errs)
		input(h, "password", "confirmPassword", "Confirm Password", "", errs)
		h.Raw(`<label class="label" for="image">Upload Image</label>`)
		h.Raw(`<input class="input" type="file" id="image" name="image" accept="image/*">`)
		formMessage(h, errs)
		h.Raw(`<button type="submit" class="btn">Sign Up</button></form>`)
		h.Raw(`<p class="switch">Already have an account? <a class="link" href="/auth/login">Sign in</a></p>`)
		return h.Err()
	}))
}

// ForgotPasswordPage renders step one of the reset flow: ask for a code.
func ForgotPasswordPage(email string, errs FieldErrors) templ.Component {
	return layouts.Auth("Forgot Password", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		h.Raw(`<h2 class="title">Forgot Password</h2>`)
		h.Raw(`<form method="post" action="/auth/forgot-password" class="auth-form" novalidate>`)
		h.HiddenFields(ctx)
		input(h, "email", "email", "Email Address", email, errs)
		formMessage(h, errs)
		h.Raw(`<button type="submit" class="btn">Send Code</button></form>`)
		backToLogin(h)
		return h.Err()
	}))
}

// VerifyCodePage renders step two: enter the code sent to email. notice is
// the backend's confirmation from step one, if any.
func VerifyCodePage(email, notice string, errs FieldErrors) templ.Component {
	return layouts.Auth("Verify Code", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		h.Raw(`<h2 class="title">Verify Code</h2>`)
		if notice != "" {
			h.Raw(`<div class="alert alert-success">`)
			h.Text(notice)
			h.Raw(`</div>`)
		}
		h.Raw(`<form method="post" action="/auth/verify-code" class="auth-form" novalidate>`)
		h.HiddenFields(ctx)
		hidden(h, "email", email)
		input(h, "text", "code", "Verification Code", "", errs)
		formMessage(h, errs)
		h.Raw(`<button type="submit" class="btn">Verify</button></form>`)
		backToLogin(h)
		return h.Err()
	}))
}

// ResetPasswordPage renders step three: choose the new password.
func ResetPasswordPage(email string, errs FieldErrors) templ.Component {
	return layouts.Auth("Reset Password", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := layouts.NewHTML(w)
		h.Raw(`<h2 class="title">Reset Your Password</h2>`)
		h.Raw(`<form method="post" action="/auth/reset-password" class="auth-form" novalidate>`)
		h.HiddenFields(ctx)
		hidden(h, "email", email)
		input(h, "password", "newPassword", "New Password", "", errs)
		input(h, "password", "confirmPassword", "Confirm Password", "", errs)
		formMessage(h, errs)
		h.Raw(`<button type="submit" class="btn">Update Password</button></form>`)
		backToLogin(h)
		return h.Err()
	}))
}

// withFlash renders c with a success banner above the form.
func withFlash(msg string, c templ.Component) templ.Component {
	if msg == "" {
		return c
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return c.Render(layouts.SetFlashSuccess(ctx, msg), w)
	})
}

func input(h *layouts.HTML, typ, name, label, value string, errs FieldErrors) {
	h.Raw(`<label class="label" for="`)
	h.Text(name)
	h.Raw(`">`)
	h.Text(label)
	h.Raw(`</label><input class="input" type="`)
	h.Text(typ)
	h.Raw(`" id="`)
	h.Text(name)
	h.Raw(`" name="`)
	h.Text(name)
	h.Raw(`"`)
	if value != "" {
		h.Raw(` value="`)
		h.Text(value)
		h.Raw(`"`)
	}
	h.Raw(`>`)
	if msg := errs[name]; msg != "" {
		h.Raw(`<label class="field-error" for="`)
		h.Text(name)
		h.Raw(`">`)
		h.Text(msg)
		h.Raw(`</label>`)
	}
}

func hidden(h *layouts.HTML, name, value string) {
	h.Raw(`<input type="hidden" name="`)
	h.Text(name)
	h.Raw(`" value="`)
	h.Text(value)
	h.Raw(`">`)
}

func formMessage(h *layouts.HTML, errs FieldErrors) {
	if msg := errs.Form(); msg != "" {
		h.Raw(`<div class="alert alert-error" role="alert">`)
		h.Text(msg)
		h.Raw(`</div>`)
	}
}

func backToLogin(h *layouts.HTML) {
	h.Raw(`<p class="switch"><a class="link" href="/auth/login">Back to sign in</a></p>`)
}
