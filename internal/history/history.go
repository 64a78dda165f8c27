// Package history provides a SQLite-backed audit archive of emitted alerts.
// The archive is write-only observability outside the alerting core: the
// detector and transport never read it.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/trendzbr/trendwatch/internal/models"
	_ "modernc.org/sqlite"
)

// Archive wraps a SQLite database holding one row per emitted alert.
type Archive struct {
	db        *sql.DB
	maxAlerts int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/trendwatch/alerts.db.
func New(dbPath string, maxAlerts int) (*Archive, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "trendwatch", "alerts.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	a := &Archive{db: db, maxAlerts: maxAlerts}
	if err := a.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return a, nil
}

// Close closes the underlying database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id          TEXT PRIMARY KEY,
			cycle_id    TEXT NOT NULL,
			alert_type  TEXT NOT NULL,
			pool_id     TEXT NOT NULL,
			pool_title  TEXT NOT NULL,
			category    TEXT,
			priority    TEXT NOT NULL,
			message     TEXT NOT NULL,
			url         TEXT,
			sent        INTEGER NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_cycle ON alerts(cycle_id)`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append records one cycle's alerts. The first sentCount alerts are marked
// as delivered, matching the transport's in-order cap-and-skip behavior.
func (a *Archive) Append(cycleID string, alerts []models.Alert, sentCount int) error {
	if len(alerts) == 0 {
		return nil
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UnixNano()
	for i, alert := range alerts {
		sent := 0
		if i < sentCount {
			sent = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO alerts
				(id, cycle_id, alert_type, pool_id, pool_title, category, priority, message, url, sent, created_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			uuid.New().String(), cycleID, string(alert.Type), alert.PoolID, alert.PoolTitle,
			alert.Category, string(alert.Priority), alert.Message, alert.URL, sent, now,
		); err != nil {
			return fmt.Errorf("failed to insert alert: %w", err)
		}
	}

	if _, err := tx.Exec(`
		DELETE FROM alerts WHERE id NOT IN (
			SELECT id FROM alerts ORDER BY created_at DESC LIMIT ?
		)`, a.maxAlerts); err != nil {
		return fmt.Errorf("failed to enforce alert cap: %w", err)
	}

	return tx.Commit()
}

// Count returns the number of archived alerts.
func (a *Archive) Count() (int, error) {
	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM alerts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}
