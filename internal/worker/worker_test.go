package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/trendzbr/trendwatch/internal/detector"
	"github.com/trendzbr/trendwatch/internal/kv"
	"github.com/trendzbr/trendwatch/internal/models"
	"github.com/trendzbr/trendwatch/internal/store"
)

type fakeFetcher struct {
	pools []models.Pool
	err   error
}

func (f *fakeFetcher) FetchPools(context.Context) ([]models.Pool, error) {
	return f.pools, f.err
}

type fakeTransport struct {
	batches [][]models.Alert
}

func (f *fakeTransport) SendAlerts(_ context.Context, alerts []models.Alert) int {
	f.batches = append(f.batches, alerts)
	return len(alerts)
}

type fakeArchive struct {
	appended int
}

func (f *fakeArchive) Append(_ string, alerts []models.Alert, _ int) error {
	f.appended += len(alerts)
	return nil
}

func testPools() []models.Pool {
	return []models.Pool{
		{
			ID:       "pool-1",
			Title:    "Quem vence o paredao?",
			Category: "Reality",
			URL:      "https://example.com/market/101",
			Options: []models.MarketOption{
				{MarketID: 101, Name: "Alice", YesPct: 60, NoPct: 40, YesMultiplier: 1.67, NoMultiplier: 2.5},
			},
		},
	}
}

type env struct {
	backend   *kv.MemoryStore
	snapshots *store.SnapshotStore
	transport *fakeTransport
	archive   *fakeArchive
}

func newWorker(t *testing.T, backend *kv.MemoryStore, fetcher Fetcher) (*Worker, *env) {
	t.Helper()
	snapshots := store.NewSnapshotStore(backend, "test")
	ledger := store.NewLedger(backend, "test")
	transport := &fakeTransport{}
	archive := &fakeArchive{}
	w := New(snapshots, ledger, fetcher, transport, archive, detector.DefaultConfig())
	return w, &env{backend: backend, snapshots: snapshots, transport: transport, archive: archive}
}

func TestFirstRunSuppressesAlerts(t *testing.T) {
	backend := kv.NewMemoryStore()
	w, e := newWorker(t, backend, &fakeFetcher{pools: testPools()})

	result, err := w.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if !result.FirstRun {
		t.Error("expected first run")
	}
	if result.AlertsDetected != 0 || result.AlertsSent != 0 {
		t.Errorf("first run must not alert: detected=%d sent=%d",
			result.AlertsDetected, result.AlertsSent)
	}
	if len(e.transport.batches) != 0 {
		t.Error("transport must not be called on first run")
	}

	// The snapshot was still persisted with exactly the input pools.
	s2 := store.NewSnapshotStore(backend, "test")
	if err := s2.Load(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if s2.IsFirstRun() {
		t.Error("first run flag must clear after the initial Save")
	}
	snap := s2.Snapshot()
	if len(snap.KnownPoolIDs) != 1 || !snap.KnowsPool("pool-1") {
		t.Errorf("snapshot pools after first run = %v", snap.KnownPoolIDs)
	}
}

func TestSecondCycleDetectsNewPool(t *testing.T) {
	backend := kv.NewMemoryStore()
	fetcher := &fakeFetcher{pools: testPools()}
	w, e := newWorker(t, backend, fetcher)
	ctx := context.Background()

	if _, err := w.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}

	// Second cycle sees one extra pool.
	fetcher.pools = append(testPools(), models.Pool{
		ID:    "pool-2",
		Title: "Novo mercado",
		URL:   "https://example.com/market/201",
		Options: []models.MarketOption{
			{MarketID: 201, Name: "Sim", YesPct: 50, NoPct: 50, YesMultiplier: 2, NoMultiplier: 2},
		},
	})

	result, err := w.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if result.FirstRun {
		t.Error("second cycle must not be first run")
	}
	if result.AlertsDetected != 1 {
		t.Fatalf("detected = %d, want 1 (the new pool)", result.AlertsDetected)
	}
	if result.AlertsSent != 1 {
		t.Errorf("sent = %d, want 1", result.AlertsSent)
	}
	if len(e.transport.batches) != 1 || len(e.transport.batches[0]) != 1 {
		t.Fatalf("unexpected transport batches: %+v", e.transport.batches)
	}
	if e.transport.batches[0][0].PoolID != "pool-2" {
		t.Errorf("alert pool = %s, want pool-2", e.transport.batches[0][0].PoolID)
	}
	if e.archive.appended != 1 {
		t.Errorf("archived alerts = %d, want 1", e.archive.appended)
	}
}

func TestEmptyFetchEndsCycleWithoutSaving(t *testing.T) {
	backend := kv.NewMemoryStore()
	w, _ := newWorker(t, backend, &fakeFetcher{pools: nil})

	result, err := w.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("empty fetch must be a recoverable warning, got error: %v", err)
	}
	if result.Pools != 0 {
		t.Errorf("pools = %d, want 0", result.Pools)
	}

	// The snapshot was never written, so the next cycle is still a first run.
	s2 := store.NewSnapshotStore(backend, "test")
	if err := s2.Load(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !s2.IsFirstRun() {
		t.Error("snapshot must stay untouched when fetch returns nothing")
	}
}

func TestFetchErrorAbortsCycle(t *testing.T) {
	backend := kv.NewMemoryStore()
	w, e := newWorker(t, backend, &fakeFetcher{err: errors.New("site down")})

	if _, err := w.RunCycle(context.Background()); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	if len(e.transport.batches) != 0 {
		t.Error("transport must not be called on fetch failure")
	}
}

func TestStableCycleEmitsNothing(t *testing.T) {
	backend := kv.NewMemoryStore()
	w, e := newWorker(t, backend, &fakeFetcher{pools: testPools()})
	ctx := context.Background()

	if _, err := w.RunCycle(ctx); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	result, err := w.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if result.AlertsDetected != 0 {
		t.Errorf("unchanged state must not alert, detected = %d", result.AlertsDetected)
	}
	if len(e.transport.batches) != 0 {
		t.Error("transport must not be called when nothing changed")
	}
}
