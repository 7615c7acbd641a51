package storage

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"addebiti/internal/core"
)

// SettingsTable implements store.SettingsStore on the single user_settings row.
type SettingsTable struct {
	repo *SQLiteRepository
}

func (t *SettingsTable) Get(ctx context.Context) (core.UserSettings, error) {
	var s core.UserSettings
	err := t.repo.sb.
		Select("terms_accepted", "setup_completed").
		From("user_settings").
		Where(squirrel.Eq{"id": 1}).
		QueryRowContext(ctx).
		Scan(&s.TermsAccepted, &s.SetupCompleted)
	if err != nil {
		return core.UserSettings{}, fmt.Errorf("get user settings: %w", err)
	}
	return s, nil
}

func (t *SettingsTable) Save(ctx context.Context, s core.UserSettings) error {
	_, err := t.repo.sb.
		Update("user_settings").
		Set("terms_accepted", s.TermsAccepted).
		Set("setup_completed", s.SetupCompleted).
		Where(squirrel.Eq{"id": 1}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("save user settings: %w", err)
	}
	return nil
}

func (t *SettingsTable) Ping(ctx context.Context) error {
	return t.repo.Ping(ctx)
}
