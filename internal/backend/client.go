// Package backend is the client for the REST API that owns accounts and all
// ledger data. Only the auth endpoints are called from the server side; the
// ledger screens talk to the API from the browser.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
	"github.com/keyxmakerx/ledgerweb/internal/session"
)

// maxResponseSize caps how much of a backend response body is read.
const maxResponseSize = 1 << 20

// Client calls the backend's /api/auth endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API at baseURL (no trailing slash).
// timeout bounds each call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Credentials is the login form payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up payload. Image is optional.
type Registration struct {
	Name     string
	Email    string
	Password string
	Image    *Upload
}

// Upload is a file attached to a multipart request.
type Upload struct {
	Filename string
	Content  io.Reader
}

// loginResponse is the body of a successful login.
type loginResponse struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// messageResponse is the body the backend sends with most answers,
// successful or not.
type messageResponse struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a session. The returned session is
// validated: a backend answer without a token or user id is an error.
func (c *Client) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	var out loginResponse
	if err := c.postJSON(ctx, "/api/auth/login", creds, &out); err != nil {
		return session.Session{}, err
	}
	sess := session.Session{Token: out.Token, User: out.User}
	if out.Token == "" {
		return session.Session{}, apperror.NewUpstream("Login failed", errors.New("login response has no token"))
	}
	if err := sess.Validate(); err != nil {
		return session.Session{}, apperror.NewUpstream("Login failed", err)
	}
	return sess, nil
}

// Register creates an account. The request is multipart so a profile image
// can ride along.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, field := range []struct{ name, value string }{
		{"name", reg.Name},
		{"email", reg.Email},
		{"password", reg.Password},
	} {
		if err := mw.WriteField(field.name, field.value); err != nil {
			return apperror.NewInternal(fmt.Errorf("writing %s field: %w", field.name, err))
		}
	}
	if reg.Image != nil {
		part, err := mw.CreateFormFile("image", reg.Image.Filename)
		if err != nil {
			return apperror.NewInternal(fmt.Errorf("creating image part: %w", err))
		}
		if _, err := io.Copy(part, reg.Image.Content); err != nil {
			return apperror.NewInternal(fmt.Errorf("copying image: %w", err))
		}
	}
	if err := mw.Close(); err != nil {
		return apperror.NewInternal(fmt.Errorf("closing multipart body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/register", &body)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, nil)
}

// ForgotPassword asks the backend to e-mail a reset code and returns the
// backend's confirmation message.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.postJSON(ctx, "/api/auth/forgot-password", map[string]string{"email": email}, &out)
	return out.Message, err
}

// VerifyCode checks a reset code for email.
func (c *Client) VerifyCode(ctx context.Context, email, code string) error {
	return c.postJSON(ctx, "/api/auth/verify-code", map[string]string{"email": email, "code": code}, nil)
}

// ResetPassword sets a new password for email. The backend only accepts it
// after a successful VerifyCode.
func (c *Client) ResetPassword(ctx context.Context, email, newPassword string) error {
	return c.postJSON(ctx, "/api/auth/reset-password", map[string]string{"email": email, "newPassword": newPassword}, nil)
}

// Me fetches the current profile of userID. token is sent as a bearer
// credential when present.
func (c *Client) Me(ctx context.Context, token, userID string) (session.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/me/"+url.PathEscape(userID), nil)
	if err != nil {
		return session.User{}, apperror.NewInternal(fmt.Errorf("creating request: %w", err))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	var user session.User
	if err := c.do(req, &user); err != nil {
		return session.User{}, err
	}
	return user, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do sends req and decodes a 2xx body into out (when non-nil). Every
// failure comes back as an *apperror.AppError.
func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperror.NewUpstream("The server could not be reached. Please try again.",
			fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return apperror.NewUpstream("The server could not be reached. Please try again.",
			fmt.Errorf("reading %s response: %w", req.URL.Path, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, body, req.URL.Path)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperror.NewUpstream("Unexpected answer from the server.",
			fmt.Errorf("decoding %s response: %w", req.URL.Path, err))
	}
	return nil
}

// statusError maps a non-2xx answer to an AppError that carries the
// backend's message, if it sent one. The message is raw backend text;
// callers sanitize it before display.
func statusError(status int, body []byte, path string) *apperror.AppError {
	var msg messageResponse
	_ = json.Unmarshal(body, &msg)
	cause := fmt.Errorf("%s: backend answered %d", path, status)

	var appErr *apperror.AppError
	switch {
	case status == http.StatusUnauthorized:
		appErr = apperror.NewUnauthorized(msg.Message)
	case status == http.StatusForbidden:
		appErr = apperror.NewForbidden(msg.Message)
	case status == http.StatusNotFound:
		appErr = apperror.NewNotFound(msg.Message)
	case status == http.StatusConflict:
		appErr = apperror.NewConflict(msg.Message)
	case status == http.StatusTooManyRequests:
		appErr = apperror.NewTooManyRequests()
		if msg.Message != "" {
			appErr.Message = msg.Message
		}
	case status >= 500:
		appErr = apperror.NewUpstream(msg.Message, nil)
	default:
		appErr = apperror.NewBadRequest(msg.Message)
	}
	appErr.Internal = cause
	return appErr
}
