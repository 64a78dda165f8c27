// Package scraper fetches the TrendzBR homepage and extracts the market
// pools embedded in its Next.js flight data.
package scraper

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/trendzbr/trendwatch/internal/logger"
	"github.com/trendzbr/trendwatch/internal/models"
)

// Config holds fetch behavior settings.
type Config struct {
	HomeURL           string
	MarketURLTemplate string // fmt template with %d (market id) and %s (slug)
	UserAgent         string
	Timeout           time.Duration
	MaxRetries        int
	RetryDelayBase    time.Duration
}

// Client fetches pools from the market site.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a scraper client with its own HTTP client.
func NewClient(config Config) *Client {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelayBase <= 0 {
		config.RetryDelayBase = time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// FetchPools retrieves the homepage and parses all market pools out of the
// embedded flight data. An empty result with a nil error means the site
// currently lists no markets; transport failures return an error.
func (c *Client) FetchPools(ctx context.Context) ([]models.Pool, error) {
	body, err := c.fetchPage(ctx, c.config.HomeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch homepage: %w", err)
	}

	raws, err := extractInitialMarkets(body)
	if err != nil {
		return nil, fmt.Errorf("failed to extract markets: %w", err)
	}

	pools := make([]models.Pool, 0, len(raws))
	for i := range raws {
		pool, err := c.rawToPool(&raws[i])
		if err != nil {
			logger.Warn("Skipping unparseable pool %s: %v", raws[i].ID, err)
			continue
		}
		pools = append(pools, pool)
	}

	logger.Info("Parsed %d pools from flight data", len(pools))
	return pools, nil
}

// rawToPool converts one raw flight-data market into a Pool.
func (c *Client) rawToPool(raw *rawPool) (models.Pool, error) {
	poolID := raw.ID.String()
	if poolID == "" || raw.Question == "" {
		return models.Pool{}, fmt.Errorf("missing id or question")
	}

	options := make([]models.MarketOption, 0, len(raw.Markets))
	for _, sm := range raw.Markets {
		options = append(options, models.MarketOption{
			MarketID:      sm.ID,
			Name:          sm.Question,
			YesPct:        round2(sm.HypePrice * 100),
			NoPct:         round2(sm.FlopPrice * 100),
			YesMultiplier: multiplier(sm.HypePrice),
			NoMultiplier:  multiplier(sm.FlopPrice),
		})
	}

	var endDate string
	if len(raw.Markets) > 0 && raw.Markets[0].MarketEnd > 0 {
		endDate = time.Unix(raw.Markets[0].MarketEnd, 0).UTC().Format(time.RFC3339)
	}

	var category, status string
	if raw.Category != nil {
		category = raw.Category.Name
		if raw.Category.Authority != "" {
			status = "Official"
		}
	}

	var volume string
	var total float64
	for _, sm := range raw.Markets {
		total += sm.TotalVolume
	}
	if total > 0 {
		volume = "R$" + humanize.CommafWithDigits(total, 2)
	}

	firstMarketID := int64(0)
	if len(raw.Markets) > 0 {
		firstMarketID = raw.Markets[0].ID
	}
	url := fmt.Sprintf(c.config.MarketURLTemplate, firstMarketID, titleToSlug(raw.Question))

	return models.Pool{
		ID:       poolID,
		Title:    raw.Question,
		Category: category,
		EndDate:  endDate,
		Volume:   volume,
		Status:   status,
		URL:      url,
		Options:  options,
	}, nil
}

// multiplier inverts a price into a payout multiplier. Prices at or below
// 0.01 are treated as undefined and yield 0.
func multiplier(price float64) float64 {
	if price <= 0.01 {
		return 0
	}
	return round2(1.0 / price)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// fetchPage performs a GET with linear-backoff retry on transport errors
// and 5xx responses.
func (c *Client) fetchPage(ctx context.Context, url string) (string, error) {
	var lastErr error

	for i := 0; i < c.config.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.config.RetryDelayBase * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.5")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return string(body), nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
