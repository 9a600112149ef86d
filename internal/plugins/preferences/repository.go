package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PreferenceRepository handles database operations for user preferences.
type PreferenceRepository interface {
	// GetLanguage returns the stored language of userID, or "" when the user
	// has never picked one.
	GetLanguage(ctx context.Context, userID string) (string, error)

	// SetLanguage stores the language of userID. Uses INSERT ... ON
	// DUPLICATE KEY UPDATE so the first choice and later ones share a path.
	SetLanguage(ctx context.Context, userID, language string) error
}

// preferenceRepository implements PreferenceRepository with MariaDB.
type preferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new preference repository.
func NewPreferenceRepository(db *sql.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) GetLanguage(ctx context.Context, userID string) (string, error) {
	var lang string
	err := r.db.QueryRowContext(ctx,
		`SELECT language FROM user_preferences WHERE user_id = ?`, userID,
	).Scan(&lang)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying language preference: %w", err)
	}
	return lang, nil
}

func (r *preferenceRepository) SetLanguage(ctx context.Context, userID, language string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, language)
		 VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE language = VALUES(language)`,
		userID, language,
	)
	if err != nil {
		return fmt.Errorf("upserting language preference: %w", err)
	}
	return nil
}
