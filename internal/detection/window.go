// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/camsentry/camsentry/internal/config"
	"github.com/camsentry/camsentry/internal/models"
)

// WindowStore holds dedup state: the last-accepted timestamp per
// (organization, camera, category). Acquire is an atomic check-and-set:
// it reports true and records now when the key is outside its window,
// false when a detection of the same key was accepted within the window.
// Concurrent calls for the same key must serialize so exactly one wins.
type WindowStore interface {
	Acquire(ctx context.Context, orgID, cameraID string, category models.Category, now time.Time) (bool, error)

	// Release clears the key after a successful Acquire whose detection
	// could not be persisted, so the retried submission is not suppressed
	// by its own failed attempt.
	Release(ctx context.Context, orgID, cameraID string, category models.Category) error
}

// Windows maps each category to its dedup window duration. Ambient
// categories use short windows; continuing-condition categories (fire,
// fall) use long ones so a persistent flame does not re-alert while it
// still allows a fresh incident once the condition clears and recurs.
type Windows struct {
	cfg config.DedupConfig
}

// NewWindows builds the category tiering from configuration.
func NewWindows(cfg config.DedupConfig) Windows {
	return Windows{cfg: cfg}
}

// For returns the dedup window for a category.
func (w Windows) For(category models.Category) time.Duration {
	switch category {
	case models.CategoryMotion, models.CategoryPerson:
		return w.cfg.MotionWindow
	case models.CategoryTheft, models.CategoryIntrusion:
		return w.cfg.SecurityWindow
	case models.CategoryFire, models.CategoryFall:
		return w.cfg.CriticalWindow
	default:
		return w.cfg.StandardWindow
	}
}

func windowKey(orgID, cameraID string, category models.Category) string {
	return fmt.Sprintf("dedup/%s/%s/%s", orgID, cameraID, category)
}

// MemoryWindowStore keeps dedup state in process memory. Suitable for
// single-instance deployments and tests; multi-instance deployments use
// the Badger-backed store.
type MemoryWindowStore struct {
	windows Windows

	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryWindowStore creates an empty in-memory window store.
func NewMemoryWindowStore(windows Windows) *MemoryWindowStore {
	return &MemoryWindowStore{
		windows: windows,
		last:    make(map[string]time.Time),
	}
}

// Acquire implements WindowStore. The single mutex serializes all keys;
// dedup checks are sub-microsecond so contention is not a concern at
// camera-fleet scale.
func (m *MemoryWindowStore) Acquire(_ context.Context, orgID, cameraID string, category models.Category, now time.Time) (bool, error) {
	key := windowKey(orgID, cameraID, category)
	window := m.windows.For(category)

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.last[key]; ok && now.Sub(last) < window {
		return false, nil
	}
	m.last[key] = now
	return true, nil
}

// Release implements WindowStore.
func (m *MemoryWindowStore) Release(_ context.Context, orgID, cameraID string, category models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.last, windowKey(orgID, cameraID, category))
	return nil
}
