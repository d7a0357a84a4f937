// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

package detection

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/camsentry/camsentry/internal/logging"
	"github.com/camsentry/camsentry/internal/models"
)

// BadgerWindowStore persists dedup state in Badger so the window survives
// restarts and can be shared by co-located instances. Entries carry a TTL
// equal to the category window, so expired keys vanish without a sweeper.
type BadgerWindowStore struct {
	db      *badger.DB
	windows Windows
}

// NewBadgerWindowStore wraps an open Badger database.
func NewBadgerWindowStore(db *badger.DB, windows Windows) *BadgerWindowStore {
	return &BadgerWindowStore{db: db, windows: windows}
}

// Acquire implements WindowStore. The read-check-write runs inside one
// Badger transaction; a conflicting concurrent transaction for the same
// key aborts and is treated as lost, which is exactly the suppress
// outcome the loser should see.
//
// Store failures fail open. Missing a dedup is safer than losing a real
// alert.
func (b *BadgerWindowStore) Acquire(ctx context.Context, orgID, cameraID string, category models.Category, now time.Time) (bool, error) {
	key := []byte(windowKey(orgID, cameraID, category))
	window := b.windows.For(category)

	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var last time.Time
			if verr := item.Value(func(val []byte) error {
				return last.UnmarshalBinary(val)
			}); verr != nil {
				return fmt.Errorf("failed to decode window timestamp: %w", verr)
			}
			if now.Sub(last) < window {
				return errSuppressed
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// First detection for this key.
		default:
			return fmt.Errorf("failed to read window key: %w", err)
		}

		val, err := now.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to encode window timestamp: %w", err)
		}
		return txn.SetEntry(badger.NewEntry(key, val).WithTTL(window))
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errSuppressed):
		return false, nil
	case errors.Is(err, badger.ErrConflict):
		// Another detection for the same key won the race.
		return false, nil
	default:
		logging.Ctx(ctx).Warn().Err(err).
			Str("camera_id", cameraID).
			Str("category", string(category)).
			Msg("Dedup window store unavailable, failing open")
		return true, nil
	}
}

// Release implements WindowStore. Deleting an already-missing key is a
// no-op; on the failure path an open window is the safe direction.
func (b *BadgerWindowStore) Release(ctx context.Context, orgID, cameraID string, category models.Category) error {
	key := []byte(windowKey(orgID, cameraID, category))

	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("camera_id", cameraID).
			Str("category", string(category)).
			Msg("Failed to release dedup window key")
		return fmt.Errorf("failed to release window key: %w", err)
	}
	return nil
}

var errSuppressed = errors.New("detection suppressed by dedup window")
