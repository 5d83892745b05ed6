// Package prices resolves current unit prices for heterogeneous asset
// identifiers across multiple quote providers and maintains the TTL-based
// price cache embedded in the portfolio document.
package prices

import (
	"context"
	"log/slog"
	"time"

	"github.com/chrisjgf/portfolio/internal/models"
)

// DefaultTTL is how long a cached price counts as fresh.
const DefaultTTL = 15 * time.Minute

// Provider source labels recorded in cache entries.
const (
	SourceCoinGecko = "coingecko"
	SourceYahoo     = "yahoo"
)

// Service routes refresh requests to the per-category providers and merges
// results into a new cache. It never schedules itself; callers decide when
// a refresh happens.
type Service struct {
	batch *CoinGeckoSource
	relay *QuoteSource
	ttl   time.Duration
	now   func() time.Time
}

// NewService wires the two providers behind a single refresh entry point.
// A non-positive ttl falls back to DefaultTTL.
func NewService(batch *CoinGeckoSource, relay *QuoteSource, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{batch: batch, relay: relay, ttl: ttl, now: time.Now}
}

// TTL returns the freshness window.
func (s *Service) TTL() time.Duration { return s.ttl }

// NeedsRefresh reports whether an identifier must be fetched again: no
// entry at all, or an entry past the TTL.
func (s *Service) NeedsRefresh(entry *models.PriceCacheEntry, now time.Time) bool {
	if entry == nil {
		return true
	}
	return now.Sub(entry.Time()) > s.ttl
}

// IsStale classifies an existing entry for display. Stale prices are still
// used for valuation; they are only flagged.
func (s *Service) IsStale(entry models.PriceCacheEntry) bool {
	return s.now().Sub(entry.Time()) > s.ttl
}

// Refresh fetches prices for every holding whose cache entry is missing or
// expired and returns a new cache with the results merged in. Identifiers
// that fail to resolve keep their previous entries: a failed refresh never
// discards data. The batch provider is invoked exactly once; the relay
// provider is walked sequentially, one identifier per request.
func (s *Service) Refresh(ctx context.Context, holdings []models.Holding, cache models.PriceCache) models.PriceCache {
	now := s.now()
	next := cache.Clone()

	type relayLookup struct{ ticker, original string }
	var batchIDs []string
	var relayIDs []relayLookup
	seen := make(map[string]bool)

	for _, h := range holdings {
		if h.Identifier == "" || seen[h.Identifier] {
			continue
		}
		if entry, ok := cache[h.Identifier]; ok && !s.NeedsRefresh(&entry, now) {
			continue
		}
		seen[h.Identifier] = true
		switch h.Category.Route() {
		case models.RouteBatch:
			batchIDs = append(batchIDs, h.Identifier)
		case models.RouteRelay:
			relayIDs = append(relayIDs, relayLookup{
				ticker:   NormalizeTicker(h.Identifier, h.Category),
				original: h.Identifier,
			})
		}
	}

	if len(batchIDs) > 0 {
		fetched, err := s.batch.FetchPrices(ctx, batchIDs)
		if err != nil {
			// Degrades to "no updates for this batch"; old entries stay.
			slog.Warn("batch price fetch failed", slog.String("error", err.Error()))
		}
		for id, price := range fetched {
			next[id] = models.PriceCacheEntry{Price: price, Timestamp: now.UnixMilli(), Source: SourceCoinGecko}
		}
	}

	// Sequential on purpose: the quote upstream rate-limits aggressively.
	for _, l := range relayIDs {
		price, ok := s.relay.Fetch(ctx, l.ticker)
		if !ok {
			continue
		}
		next[l.original] = models.PriceCacheEntry{Price: price, Timestamp: now.UnixMilli(), Source: SourceYahoo}
	}

	return next
}
