package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"addebiti/internal/core"
	"addebiti/internal/store"
	"addebiti/internal/store/memory"
)

func ptr[T any](v T) *T { return &v }

type recordingNotifier struct {
	mu      sync.Mutex
	changes []core.PaymentChange
	err     error
}

func (n *recordingNotifier) NotifyChange(_ context.Context, c core.PaymentChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
	return n.err
}

func (n *recordingNotifier) all() []core.PaymentChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.PaymentChange(nil), n.changes...)
}

func newTestEngine(t *testing.T, services ...core.SubscriptionService) (*Engine, store.Stores, *recordingNotifier) {
	t.Helper()
	stores := memory.New(memory.Seed{Services: services})
	n := &recordingNotifier{}
	return NewEngine(stores, n), stores, n
}

var (
	netflix = core.SubscriptionService{ID: "netflix", ServiceName: "Netflix", WithdrawalDate: 5, Amount: 15.99}
	spotify = core.SubscriptionService{ID: "spotify", ServiceName: "Spotify", WithdrawalDate: 5, Amount: 9.99}
	gym     = core.SubscriptionService{ID: "gym", ServiceName: "Gym", WithdrawalDate: 12, Amount: 30}
)

func TestResolvePaymentsWithoutOverrides(t *testing.T) {
	engine, _, _ := newTestEngine(t, netflix, gym, spotify)
	ctx := context.Background()

	got, err := engine.Payments.ResolvePayments(ctx, "2024-04-05")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "netflix", got[0].ID)
	assert.Equal(t, "spotify", got[1].ID)
	for _, p := range got {
		assert.False(t, p.IsOverride)
	}

	got, err = engine.Payments.ResolvePayments(ctx, "2024-04-06")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestResolvePaymentsIgnoresYearAndMonth(t *testing.T) {
	engine, _, _ := newTestEngine(t, gym)

	for _, date := range []string{"2024-04-12", "1999-12-12", "xxxx-yy-12"} {
		got, err := engine.Payments.ResolvePayments(context.Background(), date)
		require.NoError(t, err, date)
		require.Len(t, got, 1, date)
	}
}

func TestResolvePaymentsMalformedDate(t *testing.T) {
	engine, _, _ := newTestEngine(t, netflix)

	for _, date := range []string{"2024-04", "2024-04-aa", ""} {
		_, err := engine.Payments.ResolvePayments(context.Background(), date)
		assert.ErrorIs(t, err, core.ErrMalformedDate, date)
	}
}

func TestDayOnlyOverrideChangesOnlyGivenFields(t *testing.T) {
	engine, stores, n := newTestEngine(t, netflix, spotify)
	ctx := context.Background()

	err := engine.Payments.ApplyEdit(ctx, core.EditRequest{
		ServiceID: "spotify",
		Date:      "2024-04-05",
		Amount:    ptr(4.99),
		Scope:     core.ScopeDayOnly,
	})
	require.NoError(t, err)

	got, err := engine.Payments.ResolvePayments(ctx, "2024-04-05")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, core.EffectivePayment{ID: "netflix", ServiceName: "Netflix", Amount: 15.99, WithdrawalDate: 5}, got[0])
	assert.Equal(t, core.EffectivePayment{ID: "spotify", ServiceName: "Spotify", Amount: 4.99, WithdrawalDate: 5, IsOverride: true}, got[1])

	// raw nils are stored, fallback happens at resolution
	stored, err := stores.Overrides.Get(ctx, "2024-04-05")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.ServiceName)
	assert.Nil(t, stored.WithdrawalDate)

	// the same day in another month is untouched
	other, err := engine.Payments.ResolvePayments(ctx, "2024-05-05")
	require.NoError(t, err)
	assert.False(t, other[1].IsOverride)

	changes := n.all()
	require.Len(t, changes, 1)
	assert.Equal(t, core.ChangeOverrideWritten, changes[0].Kind)
	assert.Equal(t, []string{"2024-04-05"}, changes[0].Dates)
}

func TestDayOnlyIsDefaultScope(t *testing.T) {
	engine, stores, _ := newTestEngine(t, netflix)
	ctx := context.Background()

	require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{ServiceID: "netflix", Date: "2024-04-05", ServiceName: ptr("N")}))

	o, err := stores.Overrides.Get(ctx, "2024-04-05")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "N", *o.ServiceName)
}

func TestSecondDayOnlyOverrideReplacesFirst(t *testing.T) {
	engine, _, _ := newTestEngine(t, netflix, spotify)
	ctx := context.Background()

	require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{ServiceID: "netflix", Date: "2024-04-05", Amount: ptr(1.0), Scope: core.ScopeDayOnly}))
	require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{ServiceID: "spotify", Date: "2024-04-05", Amount: ptr(2.0), Scope: core.ScopeDayOnly}))

	got, err := engine.Payments.ResolvePayments(ctx, "2024-04-05")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.False(t, got[0].IsOverride)
	assert.Equal(t, 15.99, got[0].Amount)
	assert.True(t, got[1].IsOverride)
	assert.Equal(t, 2.0, got[1].Amount)
}

func TestOverrideForServiceNotDueIsIneffective(t *testing.T) {
	engine, _, _ := newTestEngine(t, netflix, gym)
	ctx := context.Background()

	before, err := engine.Payments.ResolvePayments(ctx, "2024-04-05")
	require.NoError(t, err)

	for _, id := range []string{"gym", "unknown"} {
		require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{ServiceID: id, Date: "2024-04-05", Amount: ptr(0.0), Scope: core.ScopeDayOnly}))

		after, err := engine.Payments.ResolvePayments(ctx, "2024-04-05")
		require.NoError(t, err)
		assert.Equal(t, before, after, id)
	}
}

func TestOverridePatchesOnlyFirstMatch(t *testing.T) {
	ctx := context.Background()
	reg := memory.NewRegistry()
	ov := memory.NewOverrides()
	// two registry entries sharing an id can only come from a misbehaving
	// store; the first one wins
	dup := &duplicatingRegistry{ServiceRegistry: reg, svc: netflix}
	svc := NewPaymentService(dup, ov, nil, nil)

	require.NoError(t, ov.Set(ctx, "2024-04-05", core.PaymentOverride{ServiceID: "netflix", Amount: ptr(1.0)}))

	got, err := svc.ResolvePayments(ctx, "2024-04-05")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsOverride)
	assert.False(t, got[1].IsOverride)
}

type duplicatingRegistry struct {
	store.ServiceRegistry
	svc core.SubscriptionService
}

func (d *duplicatingRegistry) List(context.Context) ([]core.SubscriptionService, error) {
	return []core.SubscriptionService{d.svc, d.svc}, nil
}

func TestAllServiceEditPatchesRegistry(t *testing.T) {
	engine, stores, n := newTestEngine(t, netflix, gym)
	ctx := context.Background()

	require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{
		ServiceID:      "netflix",
		Date:           "2024-04-05",
		WithdrawalDate: ptr(20),
		Scope:          core.ScopeAllService,
	}))

	svc, err := stores.Services.Get(ctx, "netflix")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionService{ID: "netflix", ServiceName: "Netflix", WithdrawalDate: 20, Amount: 15.99}, *svc)

	for _, date := range []string{"2024-04-20", "2025-01-20"} {
		got, err := engine.Payments.ResolvePayments(ctx, date)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "netflix", got[0].ID)
		assert.False(t, got[0].IsOverride)
	}

	keys, err := stores.Overrides.KeysWithPrefix(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, keys)

	require.Len(t, n.all(), 1)
	assert.Equal(t, core.ChangeServicePatched, n.all()[0].Kind)
}

func TestAllServiceEditUnknownServiceIsNoop(t *testing.T) {
	engine, stores, n := newTestEngine(t, netflix)
	ctx := context.Background()

	require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{ServiceID: "missing", Date: "2024-04-05", Amount: ptr(1.0), Scope: core.ScopeAllService}))

	list, _ := stores.Services.List(ctx)
	assert.Equal(t, []core.SubscriptionService{netflix}, list)
	assert.Empty(t, n.all())
}

func TestManualMonthsEdit(t *testing.T) {
	t.Run("keeps original day", func(t *testing.T) {
		engine, stores, n := newTestEngine(t, netflix)
		ctx := context.Background()

		require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{
			ServiceID: "netflix",
			Date:      "2024-03-15",
			Amount:    ptr(7.5),
			Scope:     core.ScopeManualMonths,
			Months:    []string{"2024-04", "2024-05"},
		}))

		keys, err := stores.Overrides.KeysWithPrefix(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-04-15", "2024-05-15"}, keys)

		changes := n.all()
		require.Len(t, changes, 1)
		assert.Equal(t, []string{"2024-04-15", "2024-05-15"}, changes[0].Dates)
		assert.Equal(t, []string{"2024-04", "2024-05"}, changes[0].Months)
	})

	t.Run("moves to new day", func(t *testing.T) {
		engine, stores, _ := newTestEngine(t, netflix)
		ctx := context.Background()

		require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{
			ServiceID:      "netflix",
			Date:           "2024-03-05",
			WithdrawalDate: ptr(3),
			Scope:          core.ScopeManualMonths,
			Months:         []string{"2024-07"},
		}))

		o, err := stores.Overrides.Get(ctx, "2024-07-03")
		require.NoError(t, err)
		require.NotNil(t, o)
		assert.Equal(t, 3, *o.WithdrawalDate)

		// the service is not due on day 3, so the override does not surface
		got, err := engine.Payments.ResolvePayments(ctx, "2024-07-03")
		require.NoError(t, err)
		assert.Empty(t, got)

		days, err := engine.Payments.CalendarDays(ctx, 2024, 7)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 5}, days)
	})

	t.Run("duplicate months collapse", func(t *testing.T) {
		engine, stores, _ := newTestEngine(t, netflix)
		ctx := context.Background()

		require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{
			ServiceID: "netflix",
			Date:      "2024-03-05",
			Scope:     core.ScopeManualMonths,
			Months:    []string{"2024-04", "2024-04"},
		}))

		keys, _ := stores.Overrides.KeysWithPrefix(ctx, "")
		assert.Equal(t, []string{"2024-04-05"}, keys)
	})

	t.Run("empty months is a noop", func(t *testing.T) {
		engine, stores, n := newTestEngine(t, netflix)
		ctx := context.Background()

		require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{ServiceID: "netflix", Date: "bad", Scope: core.ScopeManualMonths}))

		keys, _ := stores.Overrides.KeysWithPrefix(ctx, "")
		assert.Empty(t, keys)
		assert.Empty(t, n.all())
	})

	t.Run("malformed date fails", func(t *testing.T) {
		engine, stores, _ := newTestEngine(t, netflix)
		ctx := context.Background()

		err := engine.Payments.ApplyEdit(ctx, core.EditRequest{ServiceID: "netflix", Date: "2024-03", Scope: core.ScopeManualMonths, Months: []string{"2024-04"}})
		assert.ErrorIs(t, err, core.ErrMalformedDate)

		keys, _ := stores.Overrides.KeysWithPrefix(ctx, "")
		assert.Empty(t, keys)
	})
}

func TestUnknownScopeIsNoop(t *testing.T) {
	engine, stores, n := newTestEngine(t, netflix)
	ctx := context.Background()

	require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{ServiceID: "netflix", Date: "2024-04-05", Amount: ptr(1.0), Scope: "forever"}))

	keys, _ := stores.Overrides.KeysWithPrefix(ctx, "")
	assert.Empty(t, keys)
	assert.Empty(t, n.all())
}

func TestCalendarDays(t *testing.T) {
	engine, stores, _ := newTestEngine(t,
		core.SubscriptionService{ID: "a", ServiceName: "A", WithdrawalDate: 12},
		core.SubscriptionService{ID: "b", ServiceName: "B", WithdrawalDate: 5},
		core.SubscriptionService{ID: "c", ServiceName: "C", WithdrawalDate: 5},
	)
	ctx := context.Background()

	require.NoError(t, stores.Overrides.Set(ctx, "2024-04-20", core.PaymentOverride{ServiceID: "a"}))
	require.NoError(t, stores.Overrides.Set(ctx, "2024-04-05", core.PaymentOverride{ServiceID: "b"}))
	require.NoError(t, stores.Overrides.Set(ctx, "2024-05-25", core.PaymentOverride{ServiceID: "a"}))

	days, err := engine.Payments.CalendarDays(ctx, 2024, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 12, 20}, days)

	days, err = engine.Payments.CalendarDays(ctx, 2024, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 12, 25}, days)

	// no month length awareness: day 31 shows up in February
	_, err = engine.Subscriptions.Create(ctx, core.SubscriptionService{ServiceName: "Rent", WithdrawalDate: 31})
	require.NoError(t, err)
	days, err = engine.Payments.CalendarDays(ctx, 2024, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 12, 31}, days)
}

func TestCalendarDaysEmpty(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	days, err := engine.Payments.CalendarDays(context.Background(), 2024, 4)
	require.NoError(t, err)
	assert.NotNil(t, days)
	assert.Empty(t, days)
}

func TestCalendarDaysSkipsOutOfRangeServiceDays(t *testing.T) {
	reg := memory.NewRegistry()
	ctx := context.Background()
	require.NoError(t, reg.Create(ctx, core.SubscriptionService{ID: "a", ServiceName: "A", WithdrawalDate: 0}))
	require.NoError(t, reg.Create(ctx, core.SubscriptionService{ID: "b", ServiceName: "B", WithdrawalDate: 40}))
	require.NoError(t, reg.Create(ctx, core.SubscriptionService{ID: "c", ServiceName: "C", WithdrawalDate: 8}))

	svc := NewPaymentService(reg, memory.NewOverrides(), nil, nil)
	days, err := svc.CalendarDays(ctx, 2024, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, days)
}

func TestCalendarDaysMalformedKey(t *testing.T) {
	engine, stores, _ := newTestEngine(t, netflix)
	ctx := context.Background()

	require.NoError(t, engine.Payments.ApplyEdit(ctx, core.EditRequest{ServiceID: "netflix", Date: "2024-04-xx"}))

	_, err := engine.Payments.CalendarDays(ctx, 2024, 4)
	assert.ErrorIs(t, err, core.ErrMalformedDate)

	keys, _ := stores.Overrides.KeysWithPrefix(ctx, "2024-04")
	assert.Equal(t, []string{"2024-04-xx"}, keys)
}

type failingOverrides struct {
	store.OverrideStore
	failAfter int
	writes    int
}

func (f *failingOverrides) Set(ctx context.Context, date string, o core.PaymentOverride) error {
	if f.writes >= f.failAfter {
		return errors.New("disk full")
	}
	f.writes++
	return f.OverrideStore.Set(ctx, date, o)
}

func TestManualMonthsPartialFailureStillNotifies(t *testing.T) {
	ctx := context.Background()
	ov := &failingOverrides{OverrideStore: memory.NewOverrides(), failAfter: 1}
	n := &recordingNotifier{}
	svc := NewPaymentService(memory.NewRegistry(), ov, nil, n)

	err := svc.ApplyEdit(ctx, core.EditRequest{ServiceID: "a", Date: "2024-03-05", Scope: core.ScopeManualMonths, Months: []string{"2024-04", "2024-05"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-05-05")

	changes := n.all()
	require.Len(t, changes, 1)
	assert.Equal(t, []string{"2024-04-05"}, changes[0].Dates)
}

func TestNotifierFailureDoesNotFailEdit(t *testing.T) {
	stores := memory.New(memory.Seed{Services: []core.SubscriptionService{netflix}})
	n := &recordingNotifier{err: errors.New("broker down")}
	engine := NewEngine(stores, n)

	require.NoError(t, engine.Payments.ApplyEdit(context.Background(), core.EditRequest{ServiceID: "netflix", Date: "2024-04-05"}))
	assert.Len(t, n.all(), 1)
}

func TestConcurrentEditsAndResolution(t *testing.T) {
	engine, _, _ := newTestEngine(t, netflix, spotify)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = engine.Payments.ApplyEdit(ctx, core.EditRequest{
				ServiceID: "netflix",
				Date:      "2024-04-05",
				Scope:     core.ScopeManualMonths,
				Amount:    ptr(float64(i)),
				Months:    []string{fmt.Sprintf("2025-%02d", i%12+1)},
			})
		}(i)
		go func() {
			defer wg.Done()
			got, err := engine.Payments.ResolvePayments(ctx, "2024-04-05")
			assert.NoError(t, err)
			assert.Len(t, got, 2)
		}()
	}
	wg.Wait()

	days, err := engine.Payments.CalendarDays(ctx, 2025, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, days)
}
