package store

import (
	"context"

	"addebiti/internal/core"
)

// Ports for the persistence adapters.
type (
	// ServiceRegistry holds recurring service definitions. List returns them
	// in insertion order.
	ServiceRegistry interface {
		List(ctx context.Context) ([]core.SubscriptionService, error)
		// Get returns nil and no error when id is unknown.
		Get(ctx context.Context, id string) (*core.SubscriptionService, error)
		// Create appends svc. The caller assigns svc.ID.
		Create(ctx context.Context, svc core.SubscriptionService) error
		// Put replaces the service with svc.ID in place, reporting whether it existed.
		Put(ctx context.Context, svc core.SubscriptionService) (bool, error)
		// Patch writes the non-nil fields of patch, reporting whether id existed.
		Patch(ctx context.Context, id string, patch core.ServicePatch) (bool, error)
		Delete(ctx context.Context, id string) (bool, error)
		Ping(ctx context.Context) error
	}

	// OverrideStore maps an exact YYYY-MM-DD key to at most one override.
	OverrideStore interface {
		// Get returns nil and no error when no override exists at date.
		Get(ctx context.Context, date string) (*core.PaymentOverride, error)
		// Set replaces any override at date.
		Set(ctx context.Context, date string, o core.PaymentOverride) error
		KeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
		Ping(ctx context.Context) error
	}

	SettingsStore interface {
		Get(ctx context.Context) (core.UserSettings, error)
		Save(ctx context.Context, s core.UserSettings) error
		Ping(ctx context.Context) error
	}
)

// Stores groups the adapters built from one backend.
type Stores struct {
	Services  ServiceRegistry
	Overrides OverrideStore
	Settings  SettingsStore
}
