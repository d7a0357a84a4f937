// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package detection

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/camsentry/camsentry/internal/config"
	"github.com/camsentry/camsentry/internal/models"
)

func testWindows() Windows {
	return NewWindows(config.DedupConfig{
		MotionWindow:   30 * time.Second,
		StandardWindow: 45 * time.Second,
		SecurityWindow: 60 * time.Second,
		CriticalWindow: 120 * time.Second,
	})
}

func TestWindowTiers(t *testing.T) {
	w := testWindows()
	tests := []struct {
		category models.Category
		want     time.Duration
	}{
		{models.CategoryMotion, 30 * time.Second},
		{models.CategoryPerson, 30 * time.Second},
		{models.CategoryVehicle, 45 * time.Second},
		{models.CategoryFace, 45 * time.Second},
		{models.CategoryTheft, 60 * time.Second},
		{models.CategoryIntrusion, 60 * time.Second},
		{models.CategoryFire, 120 * time.Second},
		{models.CategoryFall, 120 * time.Second},
	}
	for _, tt := range tests {
		if got := w.For(tt.category); got != tt.want {
			t.Errorf("For(%s) = %v, want %v", tt.category, got, tt.want)
		}
	}
}

func TestMemoryWindowSuppression(t *testing.T) {
	m := NewMemoryWindowStore(testWindows())
	ctx := context.Background()
	base := time.Now().UTC()

	ok, err := m.Acquire(ctx, "org-a", "cam-1", models.CategoryTheft, base)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v, want accepted", ok, err)
	}

	// 5 seconds later, inside the 60s window.
	ok, _ = m.Acquire(ctx, "org-a", "cam-1", models.CategoryTheft, base.Add(5*time.Second))
	if ok {
		t.Error("repeat within window not suppressed")
	}

	// Different category on the same camera is independent.
	ok, _ = m.Acquire(ctx, "org-a", "cam-1", models.CategoryFire, base.Add(5*time.Second))
	if !ok {
		t.Error("different category on same camera was suppressed")
	}

	// Different camera is independent.
	ok, _ = m.Acquire(ctx, "org-a", "cam-2", models.CategoryTheft, base.Add(5*time.Second))
	if !ok {
		t.Error("same category on different camera was suppressed")
	}

	// After the window elapses, the key becomes available again.
	ok, _ = m.Acquire(ctx, "org-a", "cam-1", models.CategoryTheft, base.Add(61*time.Second))
	if !ok {
		t.Error("acquire after window elapsed was suppressed")
	}
}

func TestMemoryWindowConcurrentAcquire(t *testing.T) {
	m := NewMemoryWindowStore(testWindows())
	now := time.Now().UTC()

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.Acquire(context.Background(), "org-a", "cam-1", models.CategoryFire, now)
			if err != nil {
				t.Errorf("Acquire failed: %v", err)
			}
			if ok {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != 1 {
		t.Errorf("%d concurrent acquires won, want exactly 1", accepted.Load())
	}
}

func TestBadgerWindowSuppression(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close badger: %v", err)
		}
	})

	b := NewBadgerWindowStore(db, testWindows())
	ctx := context.Background()
	base := time.Now().UTC()

	ok, err := b.Acquire(ctx, "org-a", "cam-3", models.CategoryTheft, base)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v, want accepted", ok, err)
	}
	ok, err = b.Acquire(ctx, "org-a", "cam-3", models.CategoryTheft, base.Add(5*time.Second))
	if err != nil {
		t.Fatalf("second Acquire errored: %v", err)
	}
	if ok {
		t.Error("repeat within window not suppressed")
	}
	ok, _ = b.Acquire(ctx, "org-a", "cam-3", models.CategoryMotion, base.Add(5*time.Second))
	if !ok {
		t.Error("different category was suppressed")
	}
	ok, _ = b.Acquire(ctx, "org-a", "cam-3", models.CategoryTheft, base.Add(2*time.Minute))
	if !ok {
		t.Error("acquire after window elapsed was suppressed")
	}
}

func TestMemoryWindowRelease(t *testing.T) {
	m := NewMemoryWindowStore(testWindows())
	ctx := context.Background()
	base := time.Now().UTC()

	ok, err := m.Acquire(ctx, "org-a", "cam-9", models.CategoryFire, base)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v, want accepted", ok, err)
	}
	if err := m.Release(ctx, "org-a", "cam-9", models.CategoryFire); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	ok, err = m.Acquire(ctx, "org-a", "cam-9", models.CategoryFire, base.Add(time.Second))
	if err != nil || !ok {
		t.Errorf("Acquire after Release = %v, %v, want accepted", ok, err)
	}
}

func TestBadgerWindowRelease(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close badger: %v", err)
		}
	})

	b := NewBadgerWindowStore(db, testWindows())
	ctx := context.Background()
	base := time.Now().UTC()

	ok, err := b.Acquire(ctx, "org-a", "cam-9", models.CategoryFire, base)
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v, want accepted", ok, err)
	}
	if err := b.Release(ctx, "org-a", "cam-9", models.CategoryFire); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	ok, err = b.Acquire(ctx, "org-a", "cam-9", models.CategoryFire, base.Add(time.Second))
	if err != nil || !ok {
		t.Errorf("Acquire after Release = %v, %v, want accepted", ok, err)
	}

	// Releasing a key that was never acquired is a no-op.
	if err := b.Release(ctx, "org-a", "cam-10", models.CategoryMotion); err != nil {
		t.Errorf("Release of missing key errored: %v", err)
	}
}
