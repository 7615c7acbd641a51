package services

import (
	"context"
	"fmt"
	"sync"

	"addebiti/internal/core"
	"addebiti/internal/store"
)

// SettingsService tracks the onboarding flags.
type SettingsService struct {
	mu    sync.Mutex
	store store.SettingsStore
}

func NewSettingsService(s store.SettingsStore) *SettingsService {
	return &SettingsService{store: s}
}

func (s *SettingsService) Get(ctx context.Context) (core.UserSettings, error) {
	v, err := s.store.Get(ctx)
	if err != nil {
		return core.UserSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return v, nil
}

func (s *SettingsService) AcceptTerms(ctx context.Context) error {
	return s.update(ctx, func(v *core.UserSettings) { v.TermsAccepted = true })
}

func (s *SettingsService) CompleteSetup(ctx context.Context) error {
	return s.update(ctx, func(v *core.UserSettings) { v.SetupCompleted = true })
}

func (s *SettingsService) update(ctx context.Context, fn func(*core.UserSettings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("get settings: %w", err)
	}
	fn(&v)
	if err := s.store.Save(ctx, v); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
