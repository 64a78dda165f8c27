// Package store persists the market snapshot and the dedup/cooldown ledger
// in a key-value backend. The snapshot is one composite JSON record under a
// single key; ledger entries are sparse independently-expiring keys.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trendzbr/trendwatch/internal/kv"
	"github.com/trendzbr/trendwatch/internal/logger"
	"github.com/trendzbr/trendwatch/internal/models"
)

// SnapshotStore loads the snapshot once per cycle into memory and writes it
// back exactly once, after alert delivery was attempted. A crash before Save
// leaves the prior snapshot in place, so the next cycle re-detects the same
// changes (at-least-once alerting).
type SnapshotStore struct {
	kv       kv.Store
	stateKey string
	initKey  string

	snap     *models.Snapshot
	firstRun bool
	loaded   bool
}

// NewSnapshotStore creates a store writing under the given key prefix.
func NewSnapshotStore(backend kv.Store, prefix string) *SnapshotStore {
	return &SnapshotStore{
		kv:       backend,
		stateKey: prefix + ":state",
		initKey:  prefix + ":init",
	}
}

// Load reads the full snapshot into memory. A missing snapshot yields an
// empty one; whether that means a true first run is decided by a separate
// initialization marker, since an empty market list is a valid real state.
func (s *SnapshotStore) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, s.stateKey)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	if !ok {
		initialized, err := s.kv.Exists(ctx, s.initKey)
		if err != nil {
			return fmt.Errorf("failed to check init marker: %w", err)
		}
		s.snap = models.NewSnapshot()
		s.firstRun = !initialized
		s.loaded = true
		logger.Info("No snapshot found in store (first run: %v)", s.firstRun)
		return nil
	}

	snap := models.NewSnapshot()
	if err := json.Unmarshal([]byte(raw), snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	snap.Normalize()

	s.snap = snap
	s.firstRun = false
	s.loaded = true
	logger.Debug("Snapshot loaded: %d pools, %d markets, cycle %d",
		len(snap.KnownPoolIDs), len(snap.KnownMarketIDs), snap.CycleCount)
	return nil
}

// Snapshot returns the in-memory snapshot. Load must have been called.
func (s *SnapshotStore) Snapshot() *models.Snapshot {
	if !s.loaded {
		return models.NewSnapshot()
	}
	return s.snap
}

// IsFirstRun reports whether no prior snapshot nor init marker existed at
// Load time. It keeps reporting the loaded value for the rest of the cycle,
// even after Save writes the marker.
func (s *SnapshotStore) IsFirstRun() bool {
	return s.firstRun
}

// Save merges the current pools into the in-memory snapshot and persists the
// whole record as one atomic write. On first run it also writes the
// initialization marker so subsequent Loads report isFirstRun = false.
func (s *SnapshotStore) Save(ctx context.Context, pools []models.Pool) error {
	if !s.loaded {
		return fmt.Errorf("snapshot store: Save called before Load")
	}

	s.snap.Merge(pools, time.Now().UTC())

	raw, err := json.Marshal(s.snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, s.stateKey, string(raw), 0); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}

	if s.firstRun {
		if err := s.kv.Set(ctx, s.initKey, "1", 0); err != nil {
			return fmt.Errorf("failed to write init marker: %w", err)
		}
	}

	logger.Debug("Snapshot saved: %d pools, %d markets, cycle %d",
		len(s.snap.KnownPoolIDs), len(s.snap.KnownMarketIDs), s.snap.CycleCount)
	return nil
}
