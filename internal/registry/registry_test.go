// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/camsentry/camsentry/internal/models"
	"github.com/camsentry/camsentry/internal/store"
)

// fakeTypeConfigStore is an in-memory TypeConfigStore with fault injection.
type fakeTypeConfigStore struct {
	mu      sync.Mutex
	rows    map[string]models.DetectionTypeConfig
	failGet error
	gets    int
}

func newFakeStore() *fakeTypeConfigStore {
	return &fakeTypeConfigStore{rows: make(map[string]models.DetectionTypeConfig)}
}

func (f *fakeTypeConfigStore) key(orgID string, c models.Category) string {
	return orgID + "/" + string(c)
}

func (f *fakeTypeConfigStore) GetTypeConfig(_ context.Context, orgID string, c models.Category) (*models.DetectionTypeConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.failGet != nil {
		return nil, f.failGet
	}
	row, ok := f.rows[f.key(orgID, c)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &row, nil
}

func (f *fakeTypeConfigStore) ListTypeConfigs(_ context.Context, orgID string) ([]models.DetectionTypeConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DetectionTypeConfig
	for _, row := range f.rows {
		if row.OrganizationID == orgID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeTypeConfigStore) UpsertTypeConfig(_ context.Context, cfg *models.DetectionTypeConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[f.key(cfg.OrganizationID, cfg.Category)] = *cfg
	return nil
}

func TestResolveFallsBackToDefault(t *testing.T) {
	r := New(newFakeStore())

	cfg, err := r.Resolve(context.Background(), "org-a", models.CategoryFire)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !cfg.Enabled || cfg.Severity != models.SeverityCritical {
		t.Errorf("fire default = %+v, want enabled critical", cfg)
	}

	if _, err := r.Resolve(context.Background(), "org-a", "hologram"); err == nil {
		t.Error("Resolve accepted unknown category")
	}
}

func TestResolveUsesOverrideAndCache(t *testing.T) {
	fs := newFakeStore()
	r := New(fs)
	ctx := context.Background()

	if _, err := r.Put(ctx, models.DetectionTypeConfig{
		OrganizationID:      "org-a",
		Category:            models.CategoryMotion,
		Enabled:             false,
		ConfidenceThreshold: 0.9,
		Severity:            models.SeverityLow,
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	cfg, err := r.Resolve(ctx, "org-a", models.CategoryMotion)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Enabled {
		t.Error("override should disable motion")
	}

	// Put primes the cache, so Resolve must not hit the store again.
	before := fs.gets
	if _, err := r.Resolve(ctx, "org-a", models.CategoryMotion); err != nil {
		t.Fatalf("cached Resolve failed: %v", err)
	}
	if fs.gets != before {
		t.Errorf("cached Resolve hit the store (%d -> %d gets)", before, fs.gets)
	}

	// Other orgs are unaffected by org-a's override.
	other, err := r.Resolve(ctx, "org-b", models.CategoryMotion)
	if err != nil {
		t.Fatalf("Resolve for org-b failed: %v", err)
	}
	if !other.Enabled {
		t.Error("org-b inherited org-a's override")
	}
}

func TestResolveDegradesOnStoreError(t *testing.T) {
	fs := newFakeStore()
	fs.failGet = errors.New("connection refused")
	r := New(fs)

	cfg, err := r.Resolve(context.Background(), "org-a", models.CategoryTheft)
	if err != nil {
		t.Fatalf("Resolve should degrade to default, got error: %v", err)
	}
	if cfg.ConfidenceThreshold != defaults[models.CategoryTheft].ConfidenceThreshold {
		t.Errorf("degraded Resolve returned %+v, want built-in default", cfg)
	}
}

func TestPutClampsThreshold(t *testing.T) {
	r := New(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"below floor", 0.1, models.MinConfidenceThreshold},
		{"above ceiling", 1.0, models.MaxConfidenceThreshold},
		{"in range", 0.8, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Put(ctx, models.DetectionTypeConfig{
				OrganizationID:      "org-a",
				Category:            models.CategoryPerson,
				Enabled:             true,
				ConfidenceThreshold: tt.in,
				Severity:            models.SeverityLow,
			})
			if err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			if got.ConfidenceThreshold != tt.want {
				t.Errorf("threshold = %v, want %v", got.ConfidenceThreshold, tt.want)
			}
		})
	}

	if _, err := r.Put(ctx, models.DetectionTypeConfig{Category: models.CategoryPerson}); err == nil {
		t.Error("Put accepted empty organization_id")
	}
}

func TestListMergesOverrides(t *testing.T) {
	r := New(newFakeStore())
	ctx := context.Background()

	if _, err := r.Put(ctx, models.DetectionTypeConfig{
		OrganizationID:      "org-a",
		Category:            models.CategoryFire,
		Enabled:             true,
		ConfidenceThreshold: 0.7,
		Severity:            models.SeverityCritical,
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	configs, err := r.List(ctx, "org-a")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(configs) != len(models.Categories) {
		t.Fatalf("List returned %d configs, want %d", len(configs), len(models.Categories))
	}
	for _, c := range configs {
		if c.Category == models.CategoryFire && c.ConfidenceThreshold != 0.7 {
			t.Errorf("fire config = %+v, want overridden threshold 0.7", c)
		}
	}
}
