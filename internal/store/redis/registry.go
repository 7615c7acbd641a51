package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"addebiti/internal/core"
)

// Registry stores services as JSON in a hash, with a list holding the
// insertion order.
type Registry struct {
	c *Client
}

func (r *Registry) hashKey() string  { return r.c.key("services") }
func (r *Registry) orderKey() string { return r.c.key("services", "order") }

func (r *Registry) List(ctx context.Context) ([]core.SubscriptionService, error) {
	ids, err := r.c.LRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list service order: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := r.c.HMGet(ctx, r.hashKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	out := make([]core.SubscriptionService, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// deleted between LRANGE and HMGET
			continue
		}
		var svc core.SubscriptionService
		if err := json.Unmarshal([]byte(raw), &svc); err != nil {
			return nil, fmt.Errorf("decode service %s: %w", ids[i], err)
		}
		out = append(out, svc)
	}
	return out, nil
}

func (r *Registry) Get(ctx context.Context, id string) (*core.SubscriptionService, error) {
	return r.get(ctx, r.c.Client, id)
}

func (r *Registry) get(ctx context.Context, cmd redis.Cmdable, id string) (*core.SubscriptionService, error) {
	raw, err := cmd.HGet(ctx, r.hashKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", id, err)
	}
	var svc core.SubscriptionService
	if err := json.Unmarshal([]byte(raw), &svc); err != nil {
		return nil, fmt.Errorf("decode service %s: %w", id, err)
	}
	return &svc, nil
}

func (r *Registry) Create(ctx context.Context, svc core.SubscriptionService) error {
	data, err := json.Marshal(svc)
	if err != nil {
		return fmt.Errorf("encode service: %w", err)
	}
	return r.c.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, r.hashKey(), svc.ID).Result()
		if err != nil {
			return fmt.Errorf("check service %s: %w", svc.ID, err)
		}
		if exists {
			return fmt.Errorf("service %s already exists", svc.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.hashKey(), svc.ID, data)
			pipe.RPush(ctx, r.orderKey(), svc.ID)
			return nil
		})
		return err
	}, r.hashKey())
}

func (r *Registry) Put(ctx context.Context, svc core.SubscriptionService) (bool, error) {
	return r.update(ctx, svc.ID, func(cur *core.SubscriptionService) {
		*cur = svc
	})
}

func (r *Registry) Patch(ctx context.Context, id string, patch core.ServicePatch) (bool, error) {
	return r.update(ctx, id, patch.ApplyTo)
}

func (r *Registry) update(ctx context.Context, id string, mutate func(*core.SubscriptionService)) (bool, error) {
	var found bool
	err := r.c.watch(ctx, func(tx *redis.Tx) error {
		cur, err := r.get(ctx, tx, id)
		if err != nil || cur == nil {
			return err
		}
		found = true
		mutate(cur)
		data, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("encode service: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.hashKey(), id, data)
			return nil
		})
		return err
	}, r.hashKey())
	if err != nil {
		return false, fmt.Errorf("update service %s: %w", id, err)
	}
	return found, nil
}

func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	var removed *redis.IntCmd
	_, err := r.c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.HDel(ctx, r.hashKey(), id)
		pipe.LRem(ctx, r.orderKey(), 0, id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete service %s: %w", id, err)
	}
	return removed.Val() > 0, nil
}

func (r *Registry) Ping(ctx context.Context) error {
	return r.c.Health(ctx)
}
