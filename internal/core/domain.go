package core

import (
	"errors"
	"strings"
)

const (
	ScopeDayOnly      Scope = "day_only"
	ScopeAllService   Scope = "all_service"
	ScopeManualMonths Scope = "manual_months"
)

type (
	// Scope selects how an edit is applied.
	Scope string

	SubscriptionService struct {
		ID             string  `json:"id" yaml:"id"`
		ServiceName    string  `json:"service_name" yaml:"service_name"`
		WithdrawalDate int     `json:"withdrawal_date" yaml:"withdrawal_date"`
		Amount         float64 `json:"amount" yaml:"amount"`
	}

	// PaymentOverride replaces fields of a single payment occurrence.
	// Nil fields fall back to the service's own values.
	PaymentOverride struct {
		ServiceID      string   `json:"service_id" yaml:"service_id"`
		ServiceName    *string  `json:"service_name" yaml:"service_name"`
		Amount         *float64 `json:"amount" yaml:"amount"`
		WithdrawalDate *int     `json:"withdrawal_date" yaml:"withdrawal_date"`
	}

	EffectivePayment struct {
		ID             string  `json:"id"`
		ServiceName    string  `json:"service_name"`
		Amount         float64 `json:"amount"`
		WithdrawalDate int     `json:"withdrawal_date"`
		IsOverride     bool    `json:"is_override"`
	}

	// ServicePatch carries the fields of an in-place service update. Only
	// non-nil fields are written.
	ServicePatch struct {
		ServiceName    *string
		Amount         *float64
		WithdrawalDate *int
	}

	EditRequest struct {
		ServiceID      string
		Date           string
		ServiceName    *string
		Amount         *float64
		WithdrawalDate *int
		Scope          Scope
		Months         []string
	}

	UserSettings struct {
		TermsAccepted  bool `json:"terms_accepted" yaml:"terms_accepted"`
		SetupCompleted bool `json:"setup_completed" yaml:"setup_completed"`
	}
)

var (
	ErrEmptyServiceName     = errors.New("empty service name")
	ErrInvalidWithdrawalDay = errors.New("withdrawal day must be between 1 and 31")
)

// Validate checks a service before it enters the registry. Days are not
// checked against month length.
func (s SubscriptionService) Validate() error {
	if strings.TrimSpace(s.ServiceName) == "" {
		return ErrEmptyServiceName
	}
	if !ValidDay(s.WithdrawalDate) {
		return ErrInvalidWithdrawalDay
	}
	return nil
}

// Payment returns the natural, non-overridden occurrence of s.
func (s SubscriptionService) Payment() EffectivePayment {
	return EffectivePayment{
		ID:             s.ID,
		ServiceName:    s.ServiceName,
		Amount:         s.Amount,
		WithdrawalDate: s.WithdrawalDate,
	}
}

// Apply merges o over p field by field and marks the result as overridden.
func (o PaymentOverride) Apply(p EffectivePayment) EffectivePayment {
	if o.ServiceName != nil {
		p.ServiceName = *o.ServiceName
	}
	if o.Amount != nil {
		p.Amount = *o.Amount
	}
	if o.WithdrawalDate != nil {
		p.WithdrawalDate = *o.WithdrawalDate
	}
	p.IsOverride = true
	return p
}

// Clone returns a copy of o that shares no pointers with it.
func (o PaymentOverride) Clone() PaymentOverride {
	c := PaymentOverride{ServiceID: o.ServiceID}
	if o.ServiceName != nil {
		v := *o.ServiceName
		c.ServiceName = &v
	}
	if o.Amount != nil {
		v := *o.Amount
		c.Amount = &v
	}
	if o.WithdrawalDate != nil {
		v := *o.WithdrawalDate
		c.WithdrawalDate = &v
	}
	return c
}

func (p ServicePatch) IsEmpty() bool {
	return p.ServiceName == nil && p.Amount == nil && p.WithdrawalDate == nil
}

// ApplyTo writes the non-nil fields of p onto s.
func (p ServicePatch) ApplyTo(s *SubscriptionService) {
	if p.ServiceName != nil {
		s.ServiceName = *p.ServiceName
	}
	if p.Amount != nil {
		s.Amount = *p.Amount
	}
	if p.WithdrawalDate != nil {
		s.WithdrawalDate = *p.WithdrawalDate
	}
}

// Override builds the payload stored by day-level edits. Nil fields stay nil.
func (r EditRequest) Override() PaymentOverride {
	return PaymentOverride{
		ServiceID:      r.ServiceID,
		ServiceName:    r.ServiceName,
		Amount:         r.Amount,
		WithdrawalDate: r.WithdrawalDate,
	}.Clone()
}

func (r EditRequest) Patch() ServicePatch {
	o := r.Override()
	return ServicePatch{
		ServiceName:    o.ServiceName,
		Amount:         o.Amount,
		WithdrawalDate: o.WithdrawalDate,
	}
}

// ScopeOrDefault returns the request scope, day_only when unset.
func (r EditRequest) ScopeOrDefault() Scope {
	if r.Scope == "" {
		return ScopeDayOnly
	}
	return r.Scope
}

// Change kinds published after successful writes.
const (
	ChangeOverrideWritten ChangeKind = "override_written"
	ChangeServicePatched  ChangeKind = "service_patched"
	ChangeServiceCreated  ChangeKind = "service_created"
	ChangeServiceReplaced ChangeKind = "service_replaced"
	ChangeServiceDeleted  ChangeKind = "service_deleted"
)

type (
	ChangeKind string

	// PaymentChange describes a write that may alter resolved payments or
	// calendar days. Dates holds the override keys written, if any, and
	// Months the YYYY-MM values a manual_months edit targeted.
	PaymentChange struct {
		Kind      ChangeKind
		ServiceID string
		Dates     []string
		Months    []string
	}
)

// ServiceLevel reports whether the change can affect any month.
func (c PaymentChange) ServiceLevel() bool {
	return c.Kind != ChangeOverrideWritten
}
