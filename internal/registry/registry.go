// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

// Package registry resolves the effective detection type configuration for
// an organization and category: built-in platform defaults overlaid with
// any persisted organization override.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/models"
	"github.com/camsentry/camsentry/internal/store"
)

// TypeConfigStore is the persistence surface the registry needs.
type TypeConfigStore interface {
	GetTypeConfig(ctx context.Context, orgID string, category models.Category) (*models.DetectionTypeConfig, error)
	ListTypeConfigs(ctx context.Context, orgID string) ([]models.DetectionTypeConfig, error)
	UpsertTypeConfig(ctx context.Context, cfg *models.DetectionTypeConfig) error
}

// defaults are the built-in platform configurations applied when an
// organization has not overridden a category. Emergency-capable categories
// notify by default; ambient categories (motion, person, vehicle, object)
// record silently.
var defaults = map[models.Category]models.DetectionTypeConfig{
	models.CategoryMotion: {
		Category: models.CategoryMotion, DisplayName: "Motion",
		Description: "Generic motion in frame",
		Enabled:     true, ConfidenceThreshold: 0.60,
		Severity: models.SeverityLow, NotifyEnabled: false,
	},
	models.CategoryPerson: {
		Category: models.CategoryPerson, DisplayName: "Person",
		Description: "Person present in frame",
		Enabled:     true, ConfidenceThreshold: 0.70,
		Severity: models.SeverityLow, NotifyEnabled: false,
	},
	models.CategoryVehicle: {
		Category: models.CategoryVehicle, DisplayName: "Vehicle",
		Description: "Vehicle present in frame",
		Enabled:     true, ConfidenceThreshold: 0.70,
		Severity: models.SeverityLow, NotifyEnabled: false,
	},
	models.CategoryObject: {
		Category: models.CategoryObject, DisplayName: "Object",
		Description: "Object of interest in frame",
		Enabled:     true, ConfidenceThreshold: 0.65,
		Severity: models.SeverityLow, NotifyEnabled: false,
	},
	models.CategoryFace: {
		Category: models.CategoryFace, DisplayName: "Face Recognition",
		Description: "Recognized face in frame",
		Enabled:     true, ConfidenceThreshold: 0.80,
		Severity: models.SeverityLow, NotifyEnabled: true,
	},
	models.CategoryTheft: {
		Category: models.CategoryTheft, DisplayName: "Theft",
		Description: "Suspected theft behavior",
		Enabled:     true, ConfidenceThreshold: 0.70,
		Severity: models.SeverityHigh, NotifyEnabled: true,
	},
	models.CategoryIntrusion: {
		Category: models.CategoryIntrusion, DisplayName: "Intrusion",
		Description: "Unauthorized presence in a restricted zone",
		Enabled:     true, ConfidenceThreshold: 0.70,
		Severity: models.SeverityHigh, NotifyEnabled: true,
	},
	models.CategoryFall: {
		Category: models.CategoryFall, DisplayName: "Fall",
		Description: "Person fallen and not moving",
		Enabled:     true, ConfidenceThreshold: 0.65,
		Severity: models.SeverityHigh, NotifyEnabled: true,
	},
	models.CategoryFire: {
		Category: models.CategoryFire, DisplayName: "Fire and Smoke",
		Description: "Flame or smoke visible in frame",
		Enabled:     true, ConfidenceThreshold: 0.55,
		Severity: models.SeverityCritical, NotifyEnabled: true,
	},
}

// Default returns the built-in configuration for a category.
func Default(category models.Category) (models.DetectionTypeConfig, bool) {
	d, ok := defaults[category]
	return d, ok
}

// Registry caches effective type configurations per organization. Writes
// go through Put, which persists the override and refreshes the cache
// entry, so readers always see the latest committed override.
type Registry struct {
	store TypeConfigStore

	mu    sync.RWMutex
	cache map[cacheKey]models.DetectionTypeConfig
}

type cacheKey struct {
	orgID    string
	category models.Category
}

// New creates a registry over the given store.
func New(s TypeConfigStore) *Registry {
	return &Registry{
		store: s,
		cache: make(map[cacheKey]models.DetectionTypeConfig),
	}
}

// Resolve returns the effective configuration for an organization and
// category: the organization's override if one exists, the built-in
// default otherwise. Unknown categories return an error; the gate treats
// that as a rejection.
//
// Store failures fall back to the built-in default so a degraded database
// slows intake decisions down to platform behavior rather than stopping
// them.
func (r *Registry) Resolve(ctx context.Context, orgID string, category models.Category) (models.DetectionTypeConfig, error) {
	def, ok := defaults[category]
	if !ok {
		return models.DetectionTypeConfig{}, fmt.Errorf("unknown detection category %q", category)
	}

	key := cacheKey{orgID: orgID, category: category}
	r.mu.RLock()
	cached, hit := r.cache[key]
	r.mu.RUnlock()
	if hit {
		return cached, nil
	}

	override, err := r.store.GetTypeConfig(ctx, orgID, category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.mu.Lock()
			r.cache[key] = def
			r.mu.Unlock()
			return def, nil
		}
		logging.Ctx(ctx).Warn().Err(err).
			Str("organization_id", orgID).
			Str("category", string(category)).
			Msg("Type config lookup failed, using built-in default")
		return def, nil
	}

	effective := *override
	r.mu.Lock()
	r.cache[key] = effective
	r.mu.Unlock()
	return effective, nil
}

// List returns the effective configuration for every known category,
// overrides applied where they exist.
func (r *Registry) List(ctx context.Context, orgID string) ([]models.DetectionTypeConfig, error) {
	overrides, err := r.store.ListTypeConfigs(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list type configs: %w", err)
	}
	byCategory := make(map[models.Category]models.DetectionTypeConfig, len(overrides))
	for _, o := range overrides {
		byCategory[o.Category] = o
	}

	out := make([]models.DetectionTypeConfig, 0, len(models.Categories))
	for _, c := range models.Categories {
		if o, ok := byCategory[c]; ok {
			out = append(out, o)
			continue
		}
		d := defaults[c]
		d.OrganizationID = orgID
		out = append(out, d)
	}
	return out, nil
}

// Put validates, clamps, persists, and caches an organization override.
// The confidence threshold is clamped into the editable range rather than
// rejected, so sliders and bulk imports cannot push a category into
// never-fires or always-fires territory.
func (r *Registry) Put(ctx context.Context, cfg models.DetectionTypeConfig) (models.DetectionTypeConfig, error) {
	def, ok := defaults[cfg.Category]
	if !ok {
		return models.DetectionTypeConfig{}, fmt.Errorf("unknown detection category %q", cfg.Category)
	}
	if cfg.OrganizationID == "" {
		return models.DetectionTypeConfig{}, errors.New("organization_id is required")
	}
	if !cfg.Severity.Valid() {
		cfg.Severity = def.Severity
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = def.DisplayName
	}
	cfg.ConfidenceThreshold = models.ClampThreshold(cfg.ConfidenceThreshold)
	cfg.UpdatedAt = time.Now().UTC()

	if err := r.store.UpsertTypeConfig(ctx, &cfg); err != nil {
		return models.DetectionTypeConfig{}, fmt.Errorf("failed to persist type config: %w", err)
	}

	r.mu.Lock()
	r.cache[cacheKey{orgID: cfg.OrganizationID, category: cfg.Category}] = cfg
	r.mu.Unlock()

	logging.Ctx(ctx).Info().
		Str("organization_id", cfg.OrganizationID).
		Str("category", string(cfg.Category)).
		Bool("enabled", cfg.Enabled).
		Float64("confidence_threshold", cfg.ConfidenceThreshold).
		Msg("Detection type config updated")
	return cfg, nil
}

// Invalidate drops an organization's cached entries. Used when overrides
// are changed outside this process.
func (r *Registry) Invalidate(orgID string) {
	r.mu.Lock()
	for key := range r.cache {
		if key.orgID == orgID {
			delete(r.cache, key)
		}
	}
	r.mu.Unlock()
}
