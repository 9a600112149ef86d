package preferences

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keyxmakerx/ledgerweb/internal/apperror"
)

// lookupTimeout bounds the database read done while rendering a page.
const lookupTimeout = time.Second

// PreferenceService resolves and saves language choices.
type PreferenceService interface {
	// Resolve returns the language to render in: the stored preference of
	// userID, then the cookie value, then DefaultLanguage. userID may be "".
	Resolve(ctx context.Context, userID, cookieValue string) string

	// Save validates language and stores it for userID when the database is
	// configured and the user is signed in.
	Save(ctx context.Context, userID, language string) error
}

type preferenceService struct {
	repo PreferenceRepository
}

// NewPreferenceService creates the service. repo may be nil, which leaves
// the preference in the cookie only.
func NewPreferenceService(repo PreferenceRepository) PreferenceService {
	return &preferenceService{repo: repo}
}

func (s *preferenceService) Resolve(ctx context.Context, userID, cookieValue string) string {
	if s.repo != nil && userID != "" {
		ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
		defer cancel()

		lang, err := s.repo.GetLanguage(ctx, userID)
		if err != nil {
			slog.Warn("language preference lookup failed",
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
		} else if Supported(lang) {
			return lang
		}
	}
	if Supported(cookieValue) {
		return cookieValue
	}
	return DefaultLanguage
}

func (s *preferenceService) Save(ctx context.Context, userID, language string) error {
	if !Supported(language) {
		return apperror.NewValidation("unsupported language")
	}
	if s.repo == nil || userID == "" {
		return nil
	}
	if err := s.repo.SetLanguage(ctx, userID, language); err != nil {
		return apperror.NewInternal(fmt.Errorf("saving language: %w", err))
	}
	return nil
}
