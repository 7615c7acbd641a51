package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"addebiti/internal/core"
	"addebiti/internal/store"
)

var ErrServiceNotFound = errors.New("service not found")

// SubscriptionService manages the registry. Writes share the payment lock so
// they serialize with resolution and edits.
type SubscriptionService struct {
	mu       *sync.RWMutex
	registry store.ServiceRegistry
	notifier ChangeNotifier
	newID    func() string
}

func NewSubscriptionService(registry store.ServiceRegistry, mu *sync.RWMutex, notifier ChangeNotifier) *SubscriptionService {
	if mu == nil {
		mu = &sync.RWMutex{}
	}
	return &SubscriptionService{
		mu:       mu,
		registry: registry,
		notifier: notifier,
		newID:    uuid.NewString,
	}
}

func (s *SubscriptionService) List(ctx context.Context) ([]core.SubscriptionService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	if list == nil {
		list = []core.SubscriptionService{}
	}
	return list, nil
}

func (s *SubscriptionService) Get(ctx context.Context, id string) (core.SubscriptionService, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, err := s.registry.Get(ctx, id)
	if err != nil {
		return core.SubscriptionService{}, fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return core.SubscriptionService{}, ErrServiceNotFound
	}
	return *svc, nil
}

// Create stores svc under a freshly generated id. Any id on svc is ignored.
func (s *SubscriptionService) Create(ctx context.Context, svc core.SubscriptionService) (core.SubscriptionService, error) {
	svc.ServiceName = strings.TrimSpace(svc.ServiceName)
	if err := svc.Validate(); err != nil {
		return core.SubscriptionService{}, err
	}
	svc.ID = s.newID()

	s.mu.Lock()
	err := s.registry.Create(ctx, svc)
	s.mu.Unlock()
	if err != nil {
		return core.SubscriptionService{}, fmt.Errorf("create service: %w", err)
	}

	slog.InfoContext(ctx, "Service created",
		"service_id", svc.ID,
		"service_name", svc.ServiceName,
		"withdrawal_date", svc.WithdrawalDate)
	notify(ctx, s.notifier, core.PaymentChange{Kind: core.ChangeServiceCreated, ServiceID: svc.ID})
	return svc, nil
}

// Replace overwrites the whole record with id.
func (s *SubscriptionService) Replace(ctx context.Context, id string, svc core.SubscriptionService) (core.SubscriptionService, error) {
	svc.ID = id
	svc.ServiceName = strings.TrimSpace(svc.ServiceName)
	if err := svc.Validate(); err != nil {
		return core.SubscriptionService{}, err
	}

	s.mu.Lock()
	found, err := s.registry.Put(ctx, svc)
	s.mu.Unlock()
	if err != nil {
		return core.SubscriptionService{}, fmt.Errorf("replace service: %w", err)
	}
	if !found {
		return core.SubscriptionService{}, ErrServiceNotFound
	}

	slog.InfoContext(ctx, "Service replaced", "service_id", id)
	notify(ctx, s.notifier, core.PaymentChange{Kind: core.ChangeServiceReplaced, ServiceID: id})
	return svc, nil
}

// Delete removes the service. Its overrides stay in place.
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	found, err := s.registry.Delete(ctx, id)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if !found {
		return ErrServiceNotFound
	}

	slog.InfoContext(ctx, "Service deleted", "service_id", id)
	notify(ctx, s.notifier, core.PaymentChange{Kind: core.ChangeServiceDeleted, ServiceID: id})
	return nil
}
