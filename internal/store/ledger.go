package store

import (
	"context"
	"fmt"
	"time"

	"github.com/trendzbr/trendwatch/internal/kv"
)

// Alert classes tracked by the ledger. Each class has its own suppression
// semantics; entries are independent presence flags that expire on their own.
const (
	ClassOddsCooldown = "cooldown" // per-market odds alert cooldown
	ClassClosing      = "closing"  // per-pool+window closing-soon dedup
	ClassError        = "error"    // system error notification cooldown
)

// Ledger answers "has this alert class already fired for this key within its
// cooldown window?". Record uses an atomic set-if-absent, closing the
// check-then-act race between concurrent cycles.
type Ledger struct {
	kv     kv.Store
	prefix string
}

// NewLedger creates a ledger writing under the given key prefix.
func NewLedger(backend kv.Store, prefix string) *Ledger {
	return &Ledger{kv: backend, prefix: prefix}
}

func (l *Ledger) key(class, key string) string {
	return fmt.Sprintf("%s:%s:%s", l.prefix, class, key)
}

// Exists reports whether an unexpired entry is present for (class, key).
func (l *Ledger) Exists(ctx context.Context, class, key string) (bool, error) {
	return l.kv.Exists(ctx, l.key(class, key))
}

// Record sets the presence flag with the given expiry and reports whether it
// was newly set. Recording twice before expiry has no additional effect and
// returns false the second time.
func (l *Ledger) Record(ctx context.Context, class, key string, ttl time.Duration) (bool, error) {
	return l.kv.SetNX(ctx, l.key(class, key), "1", ttl)
}
