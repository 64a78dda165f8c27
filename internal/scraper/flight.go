package scraper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Wire structs for the initialMarkets payload embedded in the homepage's
// Next.js flight data.

type rawPool struct {
	ID       json.Number    `json:"id"`
	Question string         `json:"question"`
	Category *rawCategory   `json:"category"`
	Markets  []rawSubMarket `json:"markets"`
}

type rawCategory struct {
	Name      string `json:"name"`
	Authority string `json:"authority"`
}

type rawSubMarket struct {
	ID          int64   `json:"id"`
	Question    string  `json:"question"`
	HypePrice   float64 `json:"hypePrice"`
	FlopPrice   float64 `json:"flopPrice"`
	MarketEnd   int64   `json:"marketEnd"`
	TotalVolume float64 `json:"totalVolume"`
}

const (
	escapedMarker = `\"initialMarkets\":`
	plainMarker   = `"initialMarkets":`
)

// extractInitialMarkets locates the initialMarkets array inside the page
// HTML and decodes it. The payload appears either JSON-escaped inside a
// flight-data string or as plain JSON.
func extractInitialMarkets(html string) ([]rawPool, error) {
	idx := strings.Index(html, escapedMarker)
	escaped := idx >= 0
	if idx < 0 {
		idx = strings.Index(html, plainMarker)
	}
	if idx < 0 {
		return nil, fmt.Errorf("initialMarkets not found in page")
	}

	chunk := html[idx:]
	if escaped {
		chunk = strings.ReplaceAll(chunk, `\"`, `"`)
		chunk = strings.ReplaceAll(chunk, `\\`, `\`)
	}
	arrStart := strings.Index(chunk, plainMarker) + len(plainMarker)

	jsonStr, ok := extractJSONArray(chunk, arrStart)
	if !ok {
		return nil, fmt.Errorf("could not extract initialMarkets JSON array")
	}

	var raws []rawPool
	if err := json.Unmarshal([]byte(jsonStr), &raws); err != nil {
		return nil, fmt.Errorf("failed to parse initialMarkets JSON: %w", err)
	}
	return raws, nil
}

// extractJSONArray returns the balanced JSON array starting at start,
// tracking string literals so brackets inside values don't confuse the
// depth count.
func extractJSONArray(text string, start int) (string, bool) {
	if start < 0 || start >= len(text) || text[start] != '[' {
		return "", false
	}
	depth := 0
	inString := false
	escapeNext := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escapeNext = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '[':
			depth++
		case ch == ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

var (
	slugAccents = map[*regexp.Regexp]string{
		regexp.MustCompile(`[àáâãä]`): "a",
		regexp.MustCompile(`[èéêë]`): "e",
		regexp.MustCompile(`[ìíîï]`): "i",
		regexp.MustCompile(`[òóôõö]`): "o",
		regexp.MustCompile(`[ùúûü]`): "u",
		regexp.MustCompile(`[ç]`):    "c",
	}
	slugInvalid  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugRepeated = regexp.MustCompile(`-+`)
)

// titleToSlug converts a market title to the URL slug the site uses.
func titleToSlug(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	for re, repl := range slugAccents {
		slug = re.ReplaceAllString(slug, repl)
	}
	slug = slugInvalid.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugRepeated.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
