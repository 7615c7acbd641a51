// Package services provides the payment engine and the orchestration around it.
//
// This file implements one edit strategy per mutation scope. Each strategy
// decides which store it writes and which override keys it touches.

package services

import (
	"context"
	"fmt"

	"addebiti/internal/core"
	"addebiti/internal/store"
)

// EditTargets are the stores an edit strategy may write.
type EditTargets struct {
	Registry  store.ServiceRegistry
	Overrides store.OverrideStore
}

// ScopeApplier is the strategy interface for applying an edit under one scope.
// It returns the change it made, or nil when the edit was a no-op.
type ScopeApplier interface {
	Apply(ctx context.Context, t EditTargets, req core.EditRequest) (*core.PaymentChange, error)
}

// DayOnlyApplier stores the request as the override of its own date,
// replacing whatever override that date held before.
type DayOnlyApplier struct{}

func (DayOnlyApplier) Apply(ctx context.Context, t EditTargets, req core.EditRequest) (*core.PaymentChange, error) {
	if err := t.Overrides.Set(ctx, req.Date, req.Override()); err != nil {
		return nil, fmt.Errorf("write override: %w", err)
	}
	return &core.PaymentChange{
		Kind:      core.ChangeOverrideWritten,
		ServiceID: req.ServiceID,
		Dates:     []string{req.Date},
	}, nil
}

// AllServiceApplier patches the service definition itself. Unknown services
// are ignored and overrides are left alone.
type AllServiceApplier struct{}

func (AllServiceApplier) Apply(ctx context.Context, t EditTargets, req core.EditRequest) (*core.PaymentChange, error) {
	svc, err := t.Registry.Get(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	if svc == nil {
		return nil, nil
	}

	patch := req.Patch()
	if patch.IsEmpty() {
		return nil, nil
	}
	found, err := t.Registry.Patch(ctx, req.ServiceID, patch)
	if err != nil {
		return nil, fmt.Errorf("patch service: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &core.PaymentChange{Kind: core.ChangeServicePatched, ServiceID: req.ServiceID}, nil
}

// ManualMonthsApplier writes one override per listed month, on the new
// withdrawal day when given and on the request's own day otherwise.
type ManualMonthsApplier struct{}

func (ManualMonthsApplier) Apply(ctx context.Context, t EditTargets, req core.EditRequest) (*core.PaymentChange, error) {
	if len(req.Months) == 0 {
		return nil, nil
	}

	day, err := core.DayOfMonth(req.Date)
	if err != nil {
		return nil, err
	}
	if req.WithdrawalDate != nil {
		day = *req.WithdrawalDate
	}

	change := &core.PaymentChange{
		Kind:      core.ChangeOverrideWritten,
		ServiceID: req.ServiceID,
		Months:    append([]string(nil), req.Months...),
	}
	override := req.Override()
	for _, month := range req.Months {
		key := core.OverrideKey(month, day)
		if err := t.Overrides.Set(ctx, key, override); err != nil {
			return change, fmt.Errorf("write override %s: %w", key, err)
		}
		change.Dates = append(change.Dates, key)
	}
	return change, nil
}

// scopeStrategies maps scopes to their appliers. Scopes missing here are no-ops.
var scopeStrategies = map[core.Scope]ScopeApplier{
	core.ScopeDayOnly:      DayOnlyApplier{},
	core.ScopeAllService:   AllServiceApplier{},
	core.ScopeManualMonths: ManualMonthsApplier{},
}

// GetScopeApplier returns the applier for scope and whether the scope is known.
func GetScopeApplier(scope core.Scope) (ScopeApplier, bool) {
	a, ok := scopeStrategies[scope]
	return a, ok
}
