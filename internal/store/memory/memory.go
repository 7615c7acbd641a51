package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"addebiti/internal/core"
	"addebiti/internal/store"
)

// Seed is the YAML document accepted by NewFromFile.
type Seed struct {
	Services  []core.SubscriptionService      `yaml:"services"`
	Overrides map[string]core.PaymentOverride `yaml:"overrides"`
	Settings  core.UserSettings               `yaml:"settings"`
}

// New returns memory-backed stores populated from seed.
func New(seed Seed) store.Stores {
	reg := NewRegistry()
	for _, svc := range seed.Services {
		if svc.ID == "" {
			svc.ID = uuid.NewString()
		}
		_ = reg.Create(context.Background(), svc)
	}
	ov := NewOverrides()
	for date, o := range seed.Overrides {
		_ = ov.Set(context.Background(), date, o)
	}
	return store.Stores{
		Services:  reg,
		Overrides: ov,
		Settings:  &Settings{current: seed.Settings},
	}
}

// NewFromFile seeds the stores from a YAML file. An empty path or a missing
// file yields empty stores.
func NewFromFile(path string) (store.Stores, error) {
	if path == "" {
		return New(Seed{}), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(Seed{}), nil
	}
	if err != nil {
		return store.Stores{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return store.Stores{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	for i, svc := range seed.Services {
		if err := svc.Validate(); err != nil {
			return store.Stores{}, fmt.Errorf("seed service %d (%q): %w", i, svc.ServiceName, err)
		}
	}
	return New(seed), nil
}

// Registry keeps services in insertion order.
type Registry struct {
	mu    sync.RWMutex
	order []string
	items map[string]core.SubscriptionService
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]core.SubscriptionService)}
}

func (r *Registry) List(_ context.Context) ([]core.SubscriptionService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SubscriptionService, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out, nil
}

func (r *Registry) Get(_ context.Context, id string) (*core.SubscriptionService, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &svc, nil
}

func (r *Registry) Create(_ context.Context, svc core.SubscriptionService) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[svc.ID]; exists {
		return fmt.Errorf("service %s already exists", svc.ID)
	}
	r.order = append(r.order, svc.ID)
	r.items[svc.ID] = svc
	return nil
}

func (r *Registry) Put(_ context.Context, svc core.SubscriptionService) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[svc.ID]; !ok {
		return false, nil
	}
	r.items[svc.ID] = svc
	return true, nil
}

func (r *Registry) Patch(_ context.Context, id string, patch core.ServicePatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.items[id]
	if !ok {
		return false, nil
	}
	patch.ApplyTo(&svc)
	r.items[id] = svc
	return true, nil
}

func (r *Registry) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *Registry) Ping(context.Context) error { return nil }

// Overrides stores one override per date key.
type Overrides struct {
	mu    sync.RWMutex
	items map[string]core.PaymentOverride
}

func NewOverrides() *Overrides {
	return &Overrides{items: make(map[string]core.PaymentOverride)}
}

func (o *Overrides) Get(_ context.Context, date string) (*core.PaymentOverride, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.items[date]
	if !ok {
		return nil, nil
	}
	c := v.Clone()
	return &c, nil
}

func (o *Overrides) Set(_ context.Context, date string, v core.PaymentOverride) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[date] = v.Clone()
	return nil
}

// KeysWithPrefix returns the matching keys sorted.
func (o *Overrides) KeysWithPrefix(_ context.Context, prefix string) ([]string, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var keys []string
	for k := range o.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (o *Overrides) Ping(context.Context) error { return nil }

type Settings struct {
	mu      sync.Mutex
	current core.UserSettings
}

func (s *Settings) Get(_ context.Context) (core.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

func (s *Settings) Save(_ context.Context, v core.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = v
	return nil
}

func (s *Settings) Ping(context.Context) error { return nil }
