// Package detector implements the alert decision logic: given the current
// pool list, the loaded snapshot, and the dedup ledger, it produces the
// ordered list of alerts for this cycle.
package detector

import (
	"context"
	"sort"
	"time"

	"github.com/trendzbr/trendwatch/internal/logger"
	"github.com/trendzbr/trendwatch/internal/models"
	"github.com/trendzbr/trendwatch/internal/store"
)

// Config holds detection thresholds and suppression windows.
type Config struct {
	OddsChangeThresholdPP float64
	OddsCooldown          time.Duration
	ClosingWindowsHours   []int
	ClosingDedupTTL       time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		OddsChangeThresholdPP: 10.0,
		OddsCooldown:          30 * time.Minute,
		ClosingWindowsHours:   []int{24, 6, 1},
		ClosingDedupTTL:       24 * time.Hour,
	}
}

// Detector runs the three detection rules against one cycle's pools.
type Detector struct {
	snap   *models.Snapshot
	ledger *store.Ledger
	config Config
	now    func() time.Time
}

// New creates a detector reading the given snapshot and ledger.
func New(snap *models.Snapshot, ledger *store.Ledger, config Config) *Detector {
	return &Detector{
		snap:   snap,
		ledger: ledger,
		config: config,
		now:    time.Now,
	}
}

// SetClock replaces the detector's time source. Test helper.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

// Detect runs all three rules in fixed order: new markets, odds changes,
// closing soon. The order only shapes the user-facing notification sequence.
// No rule's failure blocks another rule from running.
func (d *Detector) Detect(ctx context.Context, pools []models.Pool) []models.Alert {
	alerts := d.CheckNewMarkets(ctx, pools)
	alerts = append(alerts, d.CheckOddsChanges(ctx, pools)...)
	alerts = append(alerts, d.CheckClosingSoon(ctx, pools)...)
	return alerts
}

// CheckNewMarkets detects brand-new pools and new options inside known
// pools. A brand-new pool emits a single pool-level alert that subsumes its
// options; per-option alerts only fire for pools already known.
func (d *Detector) CheckNewMarkets(_ context.Context, pools []models.Pool) []models.Alert {
	var alerts []models.Alert

	for i := range pools {
		pool := &pools[i]
		if err := pool.Validate(); err != nil {
			logger.Warn("Skipping malformed pool %q: %v", pool.ID, err)
			continue
		}

		if !d.snap.KnowsPool(pool.ID) {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertNewMarket,
				PoolID:    pool.ID,
				PoolTitle: pool.Title,
				Category:  pool.Category,
				Message:   formatNewPool(pool, d.now()),
				URL:       pool.URL,
				Priority:  models.PriorityMedium,
			})
			logger.Info("New pool detected: %s - %s", pool.ID, pool.Title)
			continue
		}

		for _, opt := range pool.Options {
			if err := opt.Validate(); err != nil {
				logger.Warn("Skipping malformed option %d in pool %q: %v", opt.MarketID, pool.ID, err)
				continue
			}
			if d.snap.KnowsMarket(models.MarketKey(opt.MarketID)) {
				continue
			}
			alerts = append(alerts, models.Alert{
				Type:      models.AlertNewMarket,
				PoolID:    pool.ID,
				PoolTitle: pool.Title,
				Category:  pool.Category,
				Message:   formatNewOption(pool, &opt),
				URL:       pool.URL,
				Priority:  models.PriorityLow,
			})
			logger.Info("New option detected: %d - %s in pool %s", opt.MarketID, opt.Name, pool.ID)
		}
	}

	return alerts
}

// CheckOddsChanges detects swings in yes-percentage at or above the
// configured threshold since the last snapshot. Once a market fires, a
// cooldown entry suppresses any further change for that market until expiry,
// regardless of magnitude.
func (d *Detector) CheckOddsChanges(ctx context.Context, pools []models.Pool) []models.Alert {
	var alerts []models.Alert

	for i := range pools {
		pool := &pools[i]
		for _, opt := range pool.Options {
			key := models.MarketKey(opt.MarketID)
			prev, ok := d.snap.LatestObservation(key)
			if !ok {
				continue // no baseline yet
			}

			changePP := opt.YesPct - prev.YesPct
			if abs(changePP) < d.config.OddsChangeThresholdPP {
				continue
			}

			// Record-if-absent is atomic, so a concurrent or
			// immediately-following cycle cannot double-fire.
			recorded, err := d.ledger.Record(ctx, store.ClassOddsCooldown, key, d.config.OddsCooldown)
			if err != nil {
				logger.Warn("Odds cooldown check failed for market %s: %v", key, err)
				continue
			}
			if !recorded {
				continue // active cooldown suppresses any magnitude
			}

			priority := models.PriorityMedium
			if abs(changePP) >= 20 {
				priority = models.PriorityHigh
			}

			alerts = append(alerts, models.Alert{
				Type:      models.AlertOddsChange,
				PoolID:    pool.ID,
				PoolTitle: pool.Title,
				Category:  pool.Category,
				Message:   formatOddsChange(pool, &opt, prev, changePP),
				URL:       pool.URL,
				Priority:  priority,
			})
			logger.Info("Odds change detected: %s in %s (%.1f%% -> %.1f%%, %+.1fpp)",
				opt.Name, pool.Title, prev.YesPct, opt.YesPct, changePP)
		}
	}

	return alerts
}

// CheckClosingSoon detects pools whose end date falls within a configured
// window. Windows are evaluated most urgent first regardless of their
// configured order; a pool emits at most one closing alert per cycle, for
// its most urgent still-unsent window.
func (d *Detector) CheckClosingSoon(ctx context.Context, pools []models.Pool) []models.Alert {
	var alerts []models.Alert
	now := d.now()
	windows := ascendingWindows(d.config.ClosingWindowsHours)

	for i := range pools {
		pool := &pools[i]
		endAt, ok := pool.EndTime()
		if !ok {
			continue // unparseable end date: no closing alert possible
		}
		timeLeft := endAt.Sub(now)
		if timeLeft <= 0 {
			continue
		}
		hoursLeft := timeLeft.Hours()

		for _, window := range windows {
			if hoursLeft > float64(window) {
				continue // not yet within this window
			}

			windowKey := windowLabel(window)
			recorded, err := d.ledger.Record(ctx, store.ClassClosing,
				pool.ID+":"+windowKey, d.config.ClosingDedupTTL)
			if err != nil {
				logger.Warn("Closing dedup check failed for pool %s window %s: %v", pool.ID, windowKey, err)
				continue
			}
			if !recorded {
				continue // this window already alerted; try the next one
			}

			var priority models.Priority
			switch {
			case window <= 1:
				priority = models.PriorityHigh
			case window <= 6:
				priority = models.PriorityMedium
			default:
				priority = models.PriorityLow
			}

			alerts = append(alerts, models.Alert{
				Type:      models.AlertClosingSoon,
				PoolID:    pool.ID,
				PoolTitle: pool.Title,
				Category:  pool.Category,
				Message:   formatClosingSoon(pool, endAt, now),
				URL:       pool.URL,
				Priority:  priority,
			})
			logger.Info("Closing soon alert: %s closes in ~%s (window: %s)",
				pool.Title, formatTimeRemaining(endAt, now), windowKey)
			break // at most one closing alert per pool per cycle
		}
	}

	return alerts
}

// ascendingWindows returns a sorted copy so the most urgent window is
// evaluated first whatever order the configuration lists them in.
func ascendingWindows(hours []int) []int {
	out := make([]int, len(hours))
	copy(out, hours)
	sort.Ints(out)
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
