// Package worker sequences one monitoring cycle: load state, fetch pools,
// detect alerts, send them, persist the new snapshot.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trendzbr/trendwatch/internal/detector"
	"github.com/trendzbr/trendwatch/internal/logger"
	"github.com/trendzbr/trendwatch/internal/models"
	"github.com/trendzbr/trendwatch/internal/store"
)

// Fetcher produces the current pool list. An empty list is valid and
// distinct from an error.
type Fetcher interface {
	FetchPools(ctx context.Context) ([]models.Pool, error)
}

// Transport delivers alerts, applying its own cap and delay policy, and
// reports how many actually went out.
type Transport interface {
	SendAlerts(ctx context.Context, alerts []models.Alert) int
}

// Archiver appends emitted alerts to the audit archive.
type Archiver interface {
	Append(cycleID string, alerts []models.Alert, sentCount int) error
}

// Worker owns the collaborators of the monitoring cycle. Cycles must not
// run concurrently against the same snapshot and ledger; the scheduler
// (the main loop) runs them strictly one at a time.
type Worker struct {
	snapshots *store.SnapshotStore
	ledger    *store.Ledger
	fetcher   Fetcher
	transport Transport // nil when notifications are disabled
	archive   Archiver  // nil when the history archive is disabled
	detConfig detector.Config
}

// New wires a worker. transport and archive may be nil.
func New(snapshots *store.SnapshotStore, ledger *store.Ledger, fetcher Fetcher, transport Transport, archive Archiver, detConfig detector.Config) *Worker {
	return &Worker{
		snapshots: snapshots,
		ledger:    ledger,
		fetcher:   fetcher,
		transport: transport,
		archive:   archive,
		detConfig: detConfig,
	}
}

// CycleResult summarizes one completed cycle.
type CycleResult struct {
	CycleID        string
	Pools          int
	Options        int
	AlertsDetected int
	AlertsSent     int
	FirstRun       bool
	Elapsed        time.Duration
}

// RunCycle executes one fetch → detect → send → persist pass.
//
// An empty fetch result is a recoverable warning: the cycle ends early
// without touching the snapshot. On the first run all detection rules are
// skipped so the pre-existing market state does not turn into a storm of
// alerts, but the snapshot is still persisted and the init marker written.
// The snapshot is saved after delivery was attempted, so a failure between
// send and save can duplicate alerts but never silently lose them.
func (w *Worker) RunCycle(ctx context.Context) (CycleResult, error) {
	start := time.Now()
	result := CycleResult{CycleID: uuid.New().String()}

	if err := w.snapshots.Load(ctx); err != nil {
		return result, fmt.Errorf("failed to load state: %w", err)
	}
	result.FirstRun = w.snapshots.IsFirstRun()

	pools, err := w.fetcher.FetchPools(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to fetch pools: %w", err)
	}
	if len(pools) == 0 {
		logger.Warn("No pools returned from scraper [cycle %s]", result.CycleID)
		result.Elapsed = time.Since(start)
		return result, nil
	}

	result.Pools = len(pools)
	for i := range pools {
		result.Options += len(pools[i].Options)
	}
	logger.Info("Found %d pools with %d total options [cycle %s]", result.Pools, result.Options, result.CycleID)

	var alerts []models.Alert
	if result.FirstRun {
		logger.Info("First run - saving initial state without sending alerts [cycle %s]", result.CycleID)
	} else {
		det := detector.New(w.snapshots.Snapshot(), w.ledger, w.detConfig)
		alerts = det.Detect(ctx, pools)
	}
	result.AlertsDetected = len(alerts)

	if len(alerts) > 0 && w.transport != nil {
		result.AlertsSent = w.transport.SendAlerts(ctx, alerts)
	}

	if len(alerts) > 0 && w.archive != nil {
		if err := w.archive.Append(result.CycleID, alerts, result.AlertsSent); err != nil {
			logger.Warn("Failed to archive alerts: %v", err)
		}
	}

	if err := w.snapshots.Save(ctx, pools); err != nil {
		return result, fmt.Errorf("failed to save state: %w", err)
	}

	result.Elapsed = time.Since(start)
	logger.Info("Cycle %s completed: pools=%d options=%d detected=%d sent=%d first_run=%v elapsed=%v",
		result.CycleID, result.Pools, result.Options, result.AlertsDetected, result.AlertsSent,
		result.FirstRun, result.Elapsed)
	return result, nil
}
