package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"addebiti/internal/core"
	"addebiti/internal/store"
)

// PaymentService resolves effective payments, applies scoped edits and
// aggregates calendar days. One lock covers both stores so a resolution never
// observes half of a multi-month edit.
type PaymentService struct {
	mu       *sync.RWMutex
	targets  EditTargets
	notifier ChangeNotifier
	tracer   trace.Tracer
}

// NewPaymentService builds the service. A nil mu gets a private lock.
func NewPaymentService(registry store.ServiceRegistry, overrides store.OverrideStore, mu *sync.RWMutex, notifier ChangeNotifier) *PaymentService {
	if mu == nil {
		mu = &sync.RWMutex{}
	}
	return &PaymentService{
		mu:       mu,
		targets:  EditTargets{Registry: registry, Overrides: overrides},
		notifier: notifier,
		tracer:   otel.Tracer("PaymentService"),
	}
}

// ResolvePayments returns the payments due on date, in registry order, with
// the date's override merged into the first payment of its service.
func (s *PaymentService) ResolvePayments(ctx context.Context, date string) ([]core.EffectivePayment, error) {
	ctx, span := s.tracer.Start(ctx, "ResolvePayments", trace.WithAttributes(
		attribute.String("payment.date", date),
	))
	defer span.End()

	day, err := core.DayOfMonth(date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed date")
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	services, err := s.targets.Registry.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list services: %w", err)
	}

	payments := make([]core.EffectivePayment, 0)
	for _, svc := range services {
		if svc.WithdrawalDate == day {
			payments = append(payments, svc.Payment())
		}
	}

	override, err := s.targets.Overrides.Get(ctx, date)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("get override: %w", err)
	}
	if override != nil {
		for i := range payments {
			if payments[i].ID == override.ServiceID {
				payments[i] = override.Apply(payments[i])
				span.SetAttributes(attribute.String("payment.override_service_id", override.ServiceID))
				break
			}
		}
	}

	span.SetAttributes(attribute.Int("payment.count", len(payments)))
	return payments, nil
}

// ApplyEdit applies req under its scope. Unknown scopes and edits that
// target nothing succeed without writing.
func (s *PaymentService) ApplyEdit(ctx context.Context, req core.EditRequest) error {
	scope := req.ScopeOrDefault()
	ctx, span := s.tracer.Start(ctx, "ApplyEdit", trace.WithAttributes(
		attribute.String("payment.service_id", req.ServiceID),
		attribute.String("payment.date", req.Date),
		attribute.String("payment.scope", string(scope)),
		attribute.Int("payment.months", len(req.Months)),
	))
	defer span.End()

	applier, ok := GetScopeApplier(scope)
	if !ok {
		slog.WarnContext(ctx, "Ignoring edit with unknown scope",
			"scope", scope,
			"service_id", req.ServiceID)
		return nil
	}

	s.mu.Lock()
	change, err := applier.Apply(ctx, s.targets, req)
	s.mu.Unlock()

	// Partial manual_months writes are still announced
	if change != nil {
		notify(ctx, s.notifier, *change)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply edit failed")
		return fmt.Errorf("apply %s edit: %w", scope, err)
	}

	if change == nil {
		slog.DebugContext(ctx, "Edit had no effect",
			"scope", scope,
			"service_id", req.ServiceID,
			"date", req.Date)
		return nil
	}

	slog.InfoContext(ctx, "Edit applied",
		"scope", scope,
		"service_id", req.ServiceID,
		"date", req.Date,
		"overrides_written", len(change.Dates))
	return nil
}

// CalendarDays returns the ascending, deduplicated days of year/month on
// which a service is due or an override is stored. Month length is not
// considered.
func (s *PaymentService) CalendarDays(ctx context.Context, year, month int) ([]int, error) {
	prefix := core.MonthPrefix(year, month)
	ctx, span := s.tracer.Start(ctx, "CalendarDays", trace.WithAttributes(
		attribute.String("calendar.month", prefix),
	))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	services, err := s.targets.Registry.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list services: %w", err)
	}

	seen := make(map[int]struct{})
	for _, svc := range services {
		if core.ValidDay(svc.WithdrawalDate) {
			seen[svc.WithdrawalDate] = struct{}{}
		}
	}

	keys, err := s.targets.Overrides.KeysWithPrefix(ctx, prefix)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list override keys: %w", err)
	}
	for _, key := range keys {
		day, err := core.DayOfMonth(key)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("override key: %w", err)
		}
		seen[day] = struct{}{}
	}

	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	slices.Sort(days)

	span.SetAttributes(attribute.Int("calendar.days", len(days)))
	return days, nil
}
