package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"addebiti/internal/core"
)

// ChangeNotifier receives a change after it has been written.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, change core.PaymentChange) error
}

// FanoutNotifier forwards each change to every registered notifier. Failures
// of one notifier do not stop the others.
type FanoutNotifier struct {
	mu        sync.RWMutex
	notifiers []ChangeNotifier
}

func NewFanoutNotifier(notifiers ...ChangeNotifier) *FanoutNotifier {
	f := &FanoutNotifier{}
	for _, n := range notifiers {
		f.Add(n)
	}
	return f
}

// Add registers n. Nil notifiers are ignored.
func (f *FanoutNotifier) Add(n ChangeNotifier) {
	if n == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifiers = append(f.notifiers, n)
}

func (f *FanoutNotifier) NotifyChange(ctx context.Context, change core.PaymentChange) error {
	f.mu.RLock()
	notifiers := append([]ChangeNotifier(nil), f.notifiers...)
	f.mu.RUnlock()

	var errs []error
	for _, n := range notifiers {
		if err := n.NotifyChange(ctx, change); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// notify publishes change, logging instead of failing: the write already
// succeeded.
func notify(ctx context.Context, n ChangeNotifier, change core.PaymentChange) {
	if n == nil {
		slog.DebugContext(ctx, "No change notifier configured, skipping notification",
			"kind", change.Kind)
		return
	}
	if err := n.NotifyChange(ctx, change); err != nil {
		slog.ErrorContext(ctx, "Failed to publish payment change",
			"kind", change.Kind,
			"service_id", change.ServiceID,
			"error", err)
	}
}
