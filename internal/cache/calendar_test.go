package cache

import (
	"context"
	"testing"
	"time"

	"addebiti/internal/core"
)

func seededCalendar() *CalendarCache {
	c := NewCalendarCache(10, time.Minute)
	c.Set(CalendarKey(2024, 4), []int{5})
	c.Set(CalendarKey(2024, 5), []int{5})
	c.Set(CalendarKey(2024, 6), []int{5})
	return c
}

func TestCalendarCacheInvalidateOverrideDates(t *testing.T) {
	c := seededCalendar()

	n := c.Invalidate(core.PaymentChange{
		Kind:  core.ChangeOverrideWritten,
		Dates: []string{"2024-04-15", "2024-05-15"},
	})
	if n != 2 {
		t.Fatalf("expected 2 removals, got %d", n)
	}
	if _, ok := c.Get("2024-06"); !ok {
		t.Error("unrelated month must stay cached")
	}
	if _, ok := c.Get("2024-04"); ok {
		t.Error("2024-04 must be invalidated")
	}
}

func TestCalendarCacheInvalidateServiceChange(t *testing.T) {
	for _, kind := range []core.ChangeKind{core.ChangeServicePatched, core.ChangeServiceCreated, core.ChangeServiceReplaced, core.ChangeServiceDeleted} {
		c := seededCalendar()
		if err := c.NotifyChange(context.Background(), core.PaymentChange{Kind: kind, ServiceID: "x"}); err != nil {
			t.Fatalf("NotifyChange: %v", err)
		}
		if c.Size() != 0 {
			t.Errorf("%s: expected every month invalidated, %d left", kind, c.Size())
		}
	}
}

func TestCalendarCacheInvalidationHook(t *testing.T) {
	c := seededCalendar()
	var removed []int
	c.OnInvalidate(func(n int) { removed = append(removed, n) })

	c.Invalidate(core.PaymentChange{Kind: core.ChangeOverrideWritten, Dates: []string{"2023-01-01"}})
	c.Invalidate(core.PaymentChange{Kind: core.ChangeOverrideWritten, Dates: []string{"2024-04-01"}})
	c.Invalidate(core.PaymentChange{Kind: core.ChangeServiceDeleted})

	if len(removed) != 2 || removed[0] != 1 || removed[1] != 2 {
		t.Errorf("unexpected hook calls: %v", removed)
	}
}
