package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"addebiti/internal/amqp"
	"addebiti/internal/core"
)

// ChangeConsumer delivers payment change messages until ctx ends.
type ChangeConsumer interface {
	ConsumePaymentChanges(ctx context.Context, handler func(context.Context, *amqp.PaymentChangeMessage) error) error
}

// Invalidator drops cached data a change may have made stale.
type Invalidator interface {
	Invalidate(change core.PaymentChange) int
}

// InvalidationWorker applies change messages published by any instance to
// the local caches.
type InvalidationWorker struct {
	consumer     ChangeConsumer
	invalidators []Invalidator

	mu        sync.Mutex
	processed int64
}

func NewInvalidationWorker(consumer ChangeConsumer, invalidators ...Invalidator) *InvalidationWorker {
	return &InvalidationWorker{
		consumer:     consumer,
		invalidators: invalidators,
	}
}

// Run consumes until ctx is cancelled. Cancellation is not an error.
func (w *InvalidationWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Cache invalidation worker started")

	err := w.consumer.ConsumePaymentChanges(ctx, w.HandleChangeMessage)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.InfoContext(ctx, "Cache invalidation worker stopped", "processed", w.Processed())
		return nil
	}
	if err != nil {
		return fmt.Errorf("consume payment changes: %w", err)
	}
	return nil
}

// HandleChangeMessage invalidates for a single message. Unknown kinds are
// treated as service-level changes.
func (w *InvalidationWorker) HandleChangeMessage(ctx context.Context, msg *amqp.PaymentChangeMessage) error {
	if msg == nil {
		return errors.New("nil message")
	}

	change := msg.Change()
	switch change.Kind {
	case core.ChangeOverrideWritten, core.ChangeServicePatched, core.ChangeServiceCreated,
		core.ChangeServiceReplaced, core.ChangeServiceDeleted:
	default:
		slog.WarnContext(ctx, "Unknown change kind, invalidating everything", "kind", change.Kind)
	}

	removed := 0
	for _, inv := range w.invalidators {
		removed += inv.Invalidate(change)
	}

	w.mu.Lock()
	w.processed++
	w.mu.Unlock()

	slog.DebugContext(ctx, "Processed payment change message",
		"kind", change.Kind,
		"service_id", change.ServiceID,
		"dates", len(change.Dates),
		"removed", removed,
		"published_at", msg.Timestamp)
	return nil
}

func (w *InvalidationWorker) Processed() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.processed
}
