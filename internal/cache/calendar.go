package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"addebiti/internal/core"
)

// CalendarCache holds calendar days per month, keyed by the month's
// override key prefix.
type CalendarCache struct {
	*LRUCache[[]int]
	onInvalidate func(removed int)
}

func NewCalendarCache(maxSize int, ttl time.Duration) *CalendarCache {
	return &CalendarCache{LRUCache: NewLRUCache[[]int](maxSize, ttl)}
}

// OnInvalidate registers fn to be called with the number of entries each
// non-empty invalidation removed. Call it before the cache is shared.
func (c *CalendarCache) OnInvalidate(fn func(removed int)) {
	c.onInvalidate = fn
}

func CalendarKey(year, month int) string {
	return core.MonthPrefix(year, month)
}

// Invalidate drops the months change can affect and returns how many entries
// it removed. Service-level changes affect every month.
func (c *CalendarCache) Invalidate(change core.PaymentChange) int {
	var n int
	if change.ServiceLevel() {
		n = c.Size()
		c.Clear()
	} else {
		n = c.DeleteFunc(func(key string) bool {
			for _, date := range change.Dates {
				if strings.HasPrefix(date, key) {
					return true
				}
			}
			return false
		})
	}
	if n > 0 && c.onInvalidate != nil {
		c.onInvalidate(n)
	}
	return n
}

// NotifyChange implements services.ChangeNotifier for in-process writes.
func (c *CalendarCache) NotifyChange(ctx context.Context, change core.PaymentChange) error {
	if n := c.Invalidate(change); n > 0 {
		slog.DebugContext(ctx, "Calendar cache invalidated", "kind", change.Kind, "removed", n)
	}
	return nil
}
