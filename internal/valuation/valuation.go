// Package valuation combines holdings, cached prices, and manual overrides
// into display-ready values and portfolio-level aggregates.
package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chrisjgf/portfolio/internal/models"
)

// Valuate resolves a price for each holding. The resolution order is fixed:
// a positive manual price always wins regardless of category; otherwise a
// cache entry for the identifier is used and flagged "api" or "cached" by
// staleness; otherwise the price is zero with source "manual". Stale prices
// are used as-is, never zeroed. Negative quantities produce negative
// totals; nothing is clamped.
func Valuate(holdings []models.Holding, cache models.PriceCache, now time.Time, ttl time.Duration) []models.HoldingWithValue {
	out := make([]models.HoldingWithValue, 0, len(holdings))
	for _, h := range holdings {
		v := models.HoldingWithValue{Holding: h, PriceSource: models.SourceManual}
		switch {
		case h.ManualPrice.IsPositive():
			v.CurrentPrice = h.ManualPrice
		case h.Identifier != "":
			if entry, ok := cache[h.Identifier]; ok {
				v.CurrentPrice = entry.Price
				ts := entry.Time()
				v.LastUpdated = &ts
				if now.Sub(ts) > ttl {
					v.PriceSource = models.SourceCached
				} else {
					v.PriceSource = models.SourceAPI
				}
			}
		}
		v.TotalValue = h.Quantity.Mul(v.CurrentPrice)
		out = append(out, v)
	}
	return out
}

// Snapshot sums valued holdings into an immutable history record. Every
// category appears in the totals, zero-valued ones included.
func Snapshot(valued []models.HoldingWithValue, now time.Time) models.HistorySnapshot {
	categoryValues := make(map[models.Category]decimal.Decimal, len(models.Categories))
	for _, c := range models.Categories {
		categoryValues[c] = decimal.Zero
	}
	total := decimal.Zero
	for _, v := range valued {
		categoryValues[v.Category] = categoryValues[v.Category].Add(v.TotalValue)
		total = total.Add(v.TotalValue)
	}
	return models.HistorySnapshot{Date: now, TotalValue: total, CategoryValues: categoryValues}
}
