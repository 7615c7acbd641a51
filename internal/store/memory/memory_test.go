package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"addebiti/internal/core"
)

func TestRegistryKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		if err := r.Create(ctx, core.SubscriptionService{ID: id, ServiceName: id, WithdrawalDate: 1}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	name := "renamed"
	if ok, err := r.Patch(ctx, "a", core.ServicePatch{ServiceName: &name}); err != nil || !ok {
		t.Fatalf("patch: ok=%v err=%v", ok, err)
	}
	if ok, _ := r.Delete(ctx, "c"); !ok {
		t.Fatal("expected delete to find c")
	}
	if err := r.Create(ctx, core.SubscriptionService{ID: "c", ServiceName: "c", WithdrawalDate: 1}); err != nil {
		t.Fatalf("recreate c: %v", err)
	}

	list, _ := r.List(ctx)
	got := []string{}
	for _, s := range list {
		got = append(got, s.ID)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if list[0].ServiceName != "renamed" {
		t.Errorf("patch lost: %+v", list[0])
	}
}

func TestRegistryMissingIDs(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	svc, err := r.Get(ctx, "nope")
	if svc != nil || err != nil {
		t.Fatalf("expected nil,nil for unknown id, got %v, %v", svc, err)
	}
	if ok, _ := r.Put(ctx, core.SubscriptionService{ID: "nope"}); ok {
		t.Error("put on unknown id must report false")
	}
	if ok, _ := r.Patch(ctx, "nope", core.ServicePatch{}); ok {
		t.Error("patch on unknown id must report false")
	}
	if ok, _ := r.Delete(ctx, "nope"); ok {
		t.Error("delete on unknown id must report false")
	}
}

func TestOverridesLastWriteWinsAndPrefix(t *testing.T) {
	ctx := context.Background()
	o := NewOverrides()
	amount := 5.0

	_ = o.Set(ctx, "2024-04-05", core.PaymentOverride{ServiceID: "a", Amount: &amount})
	_ = o.Set(ctx, "2024-04-05", core.PaymentOverride{ServiceID: "b"})
	_ = o.Set(ctx, "2024-05-01", core.PaymentOverride{ServiceID: "a"})

	got, err := o.Get(ctx, "2024-04-05")
	if err != nil || got == nil {
		t.Fatalf("expected override, got %v err=%v", got, err)
	}
	if got.ServiceID != "b" || got.Amount != nil {
		t.Errorf("expected second write to replace first, got %+v", got)
	}

	keys, _ := o.KeysWithPrefix(ctx, "2024-04")
	if len(keys) != 1 || keys[0] != "2024-04-05" {
		t.Errorf("unexpected keys: %v", keys)
	}
	if missing, _ := o.Get(ctx, "2024-06-01"); missing != nil {
		t.Errorf("expected nil for absent date, got %+v", missing)
	}
}

func TestOverridesDoNotAliasCallerValues(t *testing.T) {
	ctx := context.Background()
	o := NewOverrides()
	amount := 5.0
	_ = o.Set(ctx, "2024-04-05", core.PaymentOverride{ServiceID: "a", Amount: &amount})
	amount = 99

	got, _ := o.Get(ctx, "2024-04-05")
	if *got.Amount != 5 {
		t.Fatalf("stored override changed with caller value: %v", *got.Amount)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	stores, err := NewFromFile(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should yield empty stores: %v", err)
	}
	list, _ := stores.Services.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("expected no services, got %v", list)
	}

	path := filepath.Join(dir, "seed.yaml")
	content := `services:
  - id: netflix
    service_name: Netflix
    withdrawal_date: 5
    amount: 15.99
  - service_name: Gym
    withdrawal_date: 20
    amount: 30
overrides:
  "2024-04-05":
    service_id: netflix
    amount: 9.99
settings:
  terms_accepted: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	stores, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	list, _ = stores.Services.List(context.Background())
	if len(list) != 2 || list[0].ID != "netflix" || list[1].ID == "" {
		t.Fatalf("unexpected services: %+v", list)
	}
	o, _ := stores.Overrides.Get(context.Background(), "2024-04-05")
	if o == nil || o.Amount == nil || *o.Amount != 9.99 || o.ServiceName != nil {
		t.Fatalf("unexpected override: %+v", o)
	}
	settings, _ := stores.Settings.Get(context.Background())
	if !settings.TermsAccepted || settings.SetupCompleted {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}

func TestNewFromFileRejectsInvalidService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte("services:\n  - service_name: X\n    withdrawal_date: 40\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatal("expected validation error for day 40")
	}
}
