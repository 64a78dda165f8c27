// Package models defines the core domain entities: pools, market options, and alerts.
package models

import (
	"errors"
	"strconv"
	"time"
)

// MarketKey renders a market ID in the string form used by snapshot maps
// and ledger keys.
func MarketKey(marketID int64) string {
	return strconv.FormatInt(marketID, 10)
}

// MarketOption is a single wagerable sub-market inside a pool
// (e.g. one contestant). MarketID is unique across the whole system,
// not just within its pool.
type MarketOption struct {
	MarketID      int64   `json:"market_id"`
	Name          string  `json:"name"`
	YesPct        float64 `json:"yes_pct"`
	NoPct         float64 `json:"no_pct"`
	YesMultiplier float64 `json:"yes_multiplier"`
	NoMultiplier  float64 `json:"no_multiplier"`
}

// Validate checks option field constraints.
func (o *MarketOption) Validate() error {
	if o.MarketID <= 0 {
		return errors.New("market ID must be positive")
	}
	if o.Name == "" {
		return errors.New("option name must not be empty")
	}
	if o.YesPct < 0 || o.YesPct > 100 {
		return errors.New("yes pct must be between 0 and 100")
	}
	if o.NoPct < 0 || o.NoPct > 100 {
		return errors.New("no pct must be between 0 and 100")
	}
	if o.YesMultiplier < 0 {
		return errors.New("yes multiplier must not be negative")
	}
	if o.NoMultiplier < 0 {
		return errors.New("no multiplier must not be negative")
	}
	return nil
}

// Pool represents a prediction market pool fetched from TrendzBR.
// It is reconstructed fresh every cycle and never mutated in place.
type Pool struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Category string         `json:"category"`
	EndDate  string         `json:"end_date,omitempty"` // raw string, may be absent or unparseable
	Volume   string         `json:"volume,omitempty"`
	Status   string         `json:"status,omitempty"`
	URL      string         `json:"url"`
	Options  []MarketOption `json:"options"`
}

// Validate checks pool field constraints.
func (p *Pool) Validate() error {
	if p.ID == "" {
		return errors.New("pool ID must not be empty")
	}
	if p.Title == "" {
		return errors.New("pool title must not be empty")
	}
	return nil
}

// endDateLayouts are the formats the site has been observed to use, most
// specific first. RFC3339 comes from the flight-data epoch conversion; the
// short forms appear in rendered HTML.
var endDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"Jan 2, 15:04",
}

// EndTime parses the pool's end date. The second return value is false when
// the date is absent or unparseable, which callers treat as "no closing
// alert possible" rather than an error.
func (p *Pool) EndTime() (time.Time, bool) {
	if p.EndDate == "" {
		return time.Time{}, false
	}
	for _, layout := range endDateLayouts {
		t, err := time.Parse(layout, p.EndDate)
		if err != nil {
			continue
		}
		// Layouts without a year parse into year 0; pin them to the
		// current year like the site does.
		if t.Year() == 0 {
			now := time.Now().UTC()
			t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// AlertType classifies a notification.
type AlertType string

const (
	AlertNewMarket   AlertType = "new_market"
	AlertOddsChange  AlertType = "odds_change"
	AlertClosingSoon AlertType = "closing_soon"
)

// Priority orders notifications by urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Alert is a single notification produced by the detector. Alerts are
// cycle-scoped values: created by the detector, consumed once by the
// transport, then discarded (the optional history archive keeps a copy).
type Alert struct {
	Type      AlertType `json:"alert_type"`
	PoolID    string    `json:"pool_id"`
	PoolTitle string    `json:"pool_title"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	URL       string    `json:"url"`
	Priority  Priority  `json:"priority"`
}
