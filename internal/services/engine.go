package services

import (
	"sync"

	"addebiti/internal/store"
)

// Engine wires the services over one set of stores with a shared lock.
type Engine struct {
	Payments      *PaymentService
	Subscriptions *SubscriptionService
	Settings      *SettingsService
}

func NewEngine(stores store.Stores, notifier ChangeNotifier) *Engine {
	mu := &sync.RWMutex{}
	return &Engine{
		Payments:      NewPaymentService(stores.Services, stores.Overrides, mu, notifier),
		Subscriptions: NewSubscriptionService(stores.Services, mu, notifier),
		Settings:      NewSettingsService(stores.Settings),
	}
}
