package models

import (
	"time"
)

// PoolSummary is the persisted record of a pool's last-observed attributes.
type PoolSummary struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	EndDate  string `json:"end_date,omitempty"`
	Volume   string `json:"volume,omitempty"`
	Status   string `json:"status,omitempty"`
	URL      string `json:"url"`
}

// MarketSummary ties a market option back to its owning pool.
type MarketSummary struct {
	Name   string `json:"name"`
	PoolID string `json:"pool_id"`
}

// Observation is the most recent odds reading for one market option.
// Only the latest observation per market is retained.
type Observation struct {
	YesPct        float64   `json:"yes_pct"`
	NoPct         float64   `json:"no_pct"`
	YesMultiplier float64   `json:"yes_multiplier"`
	NoMultiplier  float64   `json:"no_multiplier"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Snapshot is the persisted record of the world as of the last successful
// cycle. It is loaded once at cycle start and mutated only by the store's
// save step, so the detector never sees a partially updated snapshot.
type Snapshot struct {
	Pools          map[string]PoolSummary   `json:"pools"`
	Markets        map[string]MarketSummary `json:"markets"`
	Latest         map[string]Observation   `json:"latest"`
	KnownPoolIDs   map[string]bool          `json:"known_pool_ids"`
	KnownMarketIDs map[string]bool          `json:"known_market_ids"`
	CycleCount     int                      `json:"cycle_count"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// NewSnapshot returns an empty snapshot with all maps initialized.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Pools:          make(map[string]PoolSummary),
		Markets:        make(map[string]MarketSummary),
		Latest:         make(map[string]Observation),
		KnownPoolIDs:   make(map[string]bool),
		KnownMarketIDs: make(map[string]bool),
	}
}

// Normalize re-initializes any nil map after JSON decoding an older or
// partial record.
func (s *Snapshot) Normalize() {
	if s.Pools == nil {
		s.Pools = make(map[string]PoolSummary)
	}
	if s.Markets == nil {
		s.Markets = make(map[string]MarketSummary)
	}
	if s.Latest == nil {
		s.Latest = make(map[string]Observation)
	}
	if s.KnownPoolIDs == nil {
		s.KnownPoolIDs = make(map[string]bool)
	}
	if s.KnownMarketIDs == nil {
		s.KnownMarketIDs = make(map[string]bool)
	}
}

// KnowsPool reports whether the pool was observed in a previous cycle.
func (s *Snapshot) KnowsPool(poolID string) bool {
	return s.KnownPoolIDs[poolID]
}

// KnowsMarket reports whether the market option was observed in a previous cycle.
func (s *Snapshot) KnowsMarket(marketKey string) bool {
	return s.KnownMarketIDs[marketKey]
}

// LatestObservation returns the previous odds reading for a market, if any.
func (s *Snapshot) LatestObservation(marketKey string) (Observation, bool) {
	obs, ok := s.Latest[marketKey]
	return obs, ok
}

// Merge folds the current pool list into the snapshot: known-id sets grow by
// union, per-market latest observations are overwritten, and the cycle
// counter and timestamp advance. Merging the same pool list twice yields an
// identical snapshot apart from the cycle metadata.
func (s *Snapshot) Merge(pools []Pool, now time.Time) {
	for i := range pools {
		pool := &pools[i]
		s.Pools[pool.ID] = PoolSummary{
			Title:    pool.Title,
			Category: pool.Category,
			EndDate:  pool.EndDate,
			Volume:   pool.Volume,
			Status:   pool.Status,
			URL:      pool.URL,
		}
		s.KnownPoolIDs[pool.ID] = true
		for _, opt := range pool.Options {
			key := MarketKey(opt.MarketID)
			s.Markets[key] = MarketSummary{Name: opt.Name, PoolID: pool.ID}
			s.KnownMarketIDs[key] = true
			s.Latest[key] = Observation{
				YesPct:        opt.YesPct,
				NoPct:         opt.NoPct,
				YesMultiplier: opt.YesMultiplier,
				NoMultiplier:  opt.NoMultiplier,
				ObservedAt:    now,
			}
		}
	}
	s.CycleCount++
	s.UpdatedAt = now
}
