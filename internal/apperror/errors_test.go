package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestSafeMessage_AppError(t *testing.T) {
	err := NewUnauthorized("Invalid email or password")
	if got := SafeMessage(err); got != "Invalid email or password" {
		t.Errorf("SafeMessage = %q", got)
	}
	if got := SafeCode(err); got != http.StatusUnauthorized {
		t.Errorf("SafeCode = %d", got)
	}
}

func TestSafeMessage_Wrapped(t *testing.T) {
	err := fmt.Errorf("login: %w", NewConflict("Email already registered"))
	if got := SafeMessage(err); got != "Email already registered" {
		t.Errorf("SafeMessage = %q", got)
	}
	if got := SafeCode(err); got != http.StatusConflict {
		t.Errorf("SafeCode = %d", got)
	}
}

func TestSafeMessage_PlainErrorHidden(t *testing.T) {
	err := errors.New("dial tcp 10.0.0.3:5000: connection refused")
	if got := SafeMessage(err); got == err.Error() {
		t.Error("plain error text must not be exposed")
	}
	if got := SafeCode(err); got != http.StatusInternalServerError {
		t.Errorf("SafeCode = %d", got)
	}
}

func TestNewUpstream_KeepsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := NewUpstream("Request failed", cause)
	if err.Code != http.StatusBadGateway {
		t.Errorf("Code = %d", err.Code)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
}
