package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
	"github.com/keyxmakerx/ledgerweb/internal/backend"
	"github.com/keyxmakerx/ledgerweb/internal/sanitize"
	"github.com/keyxmakerx/ledgerweb/internal/session"
)

// User-facing messages. Backend messages replace the fallbacks when the
// backend sends one.
const (
	msgLoginFailed        = "Invalid email or password"
	msgRegisterFailed     = "Registration failed"
	msgRequestFailed      = "Request failed"
	msgVerifyFailed       = "Verification failed"
	msgResetFailed        = "Reset failed"
	msgPasswordsMismatch  = "Passwords do not match"
	msgRegistered         = "Account created. You can now sign in."
	msgPasswordReset      = "Password updated successfully. You can now log in."
	msgDefaultCodeMessage = "A verification code has been sent to your email."
)

// Gateway is the slice of the backend API the auth flows call.
// *backend.Client satisfies it.
type Gateway interface {
	Login(ctx context.Context, creds backend.Credentials) (session.Session, error)
	Register(ctx context.Context, reg backend.Registration) error
	ForgotPassword(ctx context.Context, email string) (string, error)
	VerifyCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
}

// AuthService defines the auth flows. Handlers call these methods; they
// never talk to the backend directly. Every returned *apperror.AppError
// carries a message ready to show inline.
type AuthService interface {
	Login(ctx context.Context, store *session.Store, req LoginRequest) error
	Register(ctx context.Context, req RegisterRequest, image *backend.Upload) error
	RequestReset(ctx context.Context, email string) (string, error)
	VerifyCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
	Logout(ctx context.Context, store *session.Store) error
}

type authService struct {
	backend Gateway
}

// NewAuthService creates the auth service over the backend gateway.
func NewAuthService(gw Gateway) AuthService {
	return &authService{backend: gw}
}

// Login exchanges the credentials for a session and writes it into store.
// Every failure reads the same to the user and leaves store untouched.
func (s *authService) Login(ctx context.Context, store *session.Store, req LoginRequest) error {
	sess, err := s.backend.Login(ctx, backend.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		slog.Info("login rejected", slog.Any("error", err))
		return apperror.NewUnauthorized(msgLoginFailed)
	}

	if err := store.Set(ctx, sess); err != nil {
		slog.Error("storing session after login",
			slog.String("user_id", sess.User.ID),
			slog.Any("error", err),
		)
		appErr := apperror.NewInternal(fmt.Errorf("storing session: %w", err))
		appErr.Message = msgLoginFailed
		return appErr
	}

	slog.Info("user signed in", slog.String("user_id", sess.User.ID))
	return nil
}

// Register creates the account. It does not sign the user in.
func (s *authService) Register(ctx context.Context, req RegisterRequest, image *backend.Upload) error {
	err := s.backend.Register(ctx, backend.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    image,
	})
	if err != nil {
		return withBackendMessage(err, msgRegisterFailed)
	}
	return nil
}

// RequestReset asks the backend to send a reset code and returns its
// confirmation text.
func (s *authService) RequestReset(ctx context.Context, email string) (string, error) {
	msg, err := s.backend.ForgotPassword(ctx, email)
	if err != nil {
		return "", withBackendMessage(err, msgRequestFailed)
	}
	return sanitize.Message(msg, msgDefaultCodeMessage), nil
}

// VerifyCode checks the reset code.
func (s *authService) VerifyCode(ctx context.Context, email, code string) error {
	if err := s.backend.VerifyCode(ctx, email, code); err != nil {
		return withBackendMessage(err, msgVerifyFailed)
	}
	return nil
}

// ResetPassword sets the new password.
func (s *authService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if err := s.backend.ResetPassword(ctx, email, newPassword); err != nil {
		return withBackendMessage(err, msgResetFailed)
	}
	return nil
}

// Logout clears the session of the browser context. Every tab of it follows.
func (s *authService) Logout(ctx context.Context, store *session.Store) error {
	if err := store.Clear(ctx); err != nil {
		return apperror.NewInternal(fmt.Errorf("clearing session: %w", err))
	}
	slog.Info("user signed out")
	return nil
}

// withBackendMessage returns err as an AppError whose message is the
// sanitized backend message, or fallback when there is none.
func withBackendMessage(err error, fallback string) *apperror.AppError {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return apperror.NewUpstream(fallback, err)
	}
	out := *appErr
	out.Message = sanitize.Message(appErr.Message, fallback)
	if out.Code >= 500 {
		slog.Warn("backend failure in auth flow",
			slog.String("type", out.Type),
			slog.Any("error", appErr.Internal),
		)
	}
	return &out
}
