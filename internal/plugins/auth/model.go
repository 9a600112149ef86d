// Package auth serves the sign-in, registration and password reset forms of
// the auth area, and logout. Credentials are checked by the backend; this
// package only writes the resulting session into the browser context's
// Store, which every open tab then follows.
package auth

import (
	"regexp"
	"strings"
)

const (
	// minPasswordLen matches the backend's own rule.
	minPasswordLen = 6
	maxEmailLen    = 254
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	namePattern  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
)

// --- Request DTOs (bound from HTTP requests) ---

// LoginRequest holds the data submitted by the sign-in form.
type LoginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// RegisterRequest holds the text fields of the sign-up form. The optional
// image is read from the multipart body separately.
type RegisterRequest struct {
	Name            string `form:"name"`
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirmPassword"`
}

// ResetRequest holds the fields of the three password reset steps. Email is
// carried from step to step in a hidden field.
type ResetRequest struct {
	Email           string `form:"email"`
	Code            string `form:"code"`
	NewPassword     string `form:"newPassword"`
	ConfirmPassword string `form:"confirmPassword"`
}

// FieldErrors maps a form field name to the message shown under it. The
// "api" key holds the form-level message.
type FieldErrors map[string]string

// formErrorKey is the FieldErrors key for messages not tied to one field.
const formErrorKey = "api"

// Empty reports whether there are no errors.
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// Form returns the form-level message.
func (fe FieldErrors) Form() string {
	return fe[formErrorKey]
}

// formError builds a FieldErrors holding only a form-level message.
func formError(msg string) FieldErrors {
	return FieldErrors{formErrorKey: msg}
}

// Normalize trims the text fields. Passwords are left alone.
func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// Validate checks presence only. Wrong credentials are the backend's call.
func (r *LoginRequest) Validate() FieldErrors {
	fe := FieldErrors{}
	if r.Email == "" {
		fe["email"] = "Enter email"
	}
	if r.Password == "" {
		fe["password"] = "Enter password"
	}
	return fe
}

// Normalize trims the text fields.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

// Validate applies the sign-up rules. Every failing field gets a message,
// not just the first.
func (r *RegisterRequest) Validate() FieldErrors {
	fe := FieldErrors{}

	switch {
	case r.Name == "":
		fe["name"] = "Name is required"
	case !namePattern.MatchString(r.Name):
		fe["name"] = "Only letters & spaces allowed"
	}

	switch {
	case r.Email == "":
		fe["email"] = "Email is required"
	case !emailPattern.MatchString(r.Email):
		fe["email"] = "Invalid email format"
	}

	switch {
	case r.Password == "":
		fe["password"] = "Password is required"
	case len(r.Password) < minPasswordLen:
		fe["password"] = "Min 6 characters"
	}

	switch {
	case r.ConfirmPassword == "":
		fe["confirmPassword"] = "Please confirm password"
	case r.ConfirmPassword != r.Password:
		fe["confirmPassword"] = "Passwords do not match"
	}

	return fe
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

// normalizeEmail trims the address carried between reset steps. Anything
// longer than an address can be is dropped.
func normalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxEmailLen {
		return ""
	}
	return s
}
