package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chrisjgf/portfolio/internal/models"
)

const ttl = 15 * time.Minute

func cacheEntry(price int64, at time.Time) models.PriceCacheEntry {
	return models.PriceCacheEntry{
		Price:     decimal.NewFromInt(price),
		Timestamp: at.UnixMilli(),
		Source:    "coingecko",
	}
}

func TestManualPriceBeatsCache(t *testing.T) {
	now := time.Now()
	holdings := []models.Holding{{
		ID:          "h1",
		Name:        "Bitcoin",
		Category:    models.Crypto,
		Quantity:    decimal.NewFromInt(2),
		Identifier:  "bitcoin",
		ManualPrice: decimal.NewFromInt(5),
	}}
	cache := models.PriceCache{"bitcoin": cacheEntry(10, now)}

	got := Valuate(holdings, cache, now, ttl)
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	v := got[0]
	if !v.CurrentPrice.Equal(decimal.NewFromInt(5)) {
		t.Errorf("price = %s, want manual 5", v.CurrentPrice)
	}
	if v.PriceSource != models.SourceManual {
		t.Errorf("source = %s, want manual", v.PriceSource)
	}
	if !v.TotalValue.Equal(decimal.NewFromInt(10)) {
		t.Errorf("total = %s, want 10", v.TotalValue)
	}
	if v.LastUpdated != nil {
		t.Error("manual pricing should not carry a cache timestamp")
	}
}

func TestCacheHitFreshAndStale(t *testing.T) {
	now := time.Now()
	holdings := []models.Holding{
		{ID: "f", Name: "Fresh", Category: models.Crypto, Quantity: decimal.NewFromInt(1), Identifier: "fresh"},
		{ID: "s", Name: "Stale", Category: models.Crypto, Quantity: decimal.NewFromInt(1), Identifier: "stale"},
	}
	cache := models.PriceCache{
		"fresh": cacheEntry(100, now.Add(-14*time.Minute)),
		"stale": cacheEntry(80, now.Add(-16*time.Minute)),
	}

	got := Valuate(holdings, cache, now, ttl)
	if got[0].PriceSource != models.SourceAPI {
		t.Errorf("fresh source = %s, want api", got[0].PriceSource)
	}
	if got[1].PriceSource != models.SourceCached {
		t.Errorf("stale source = %s, want cached", got[1].PriceSource)
	}
	// Stale prices are used, never zeroed.
	if !got[1].CurrentPrice.Equal(decimal.NewFromInt(80)) {
		t.Errorf("stale price = %s, want 80", got[1].CurrentPrice)
	}
	if got[0].LastUpdated == nil || got[1].LastUpdated == nil {
		t.Error("cache hits must carry the entry timestamp")
	}
}

func TestNoPriceAnywhere(t *testing.T) {
	now := time.Now()
	holdings := []models.Holding{{
		ID: "x", Name: "Unknown", Category: models.Stock,
		Quantity: decimal.NewFromInt(3), Identifier: "MISSING",
	}}

	got := Valuate(holdings, models.PriceCache{}, now, ttl)
	v := got[0]
	if !v.CurrentPrice.IsZero() || !v.TotalValue.IsZero() {
		t.Errorf("price=%s total=%s, want zeros", v.CurrentPrice, v.TotalValue)
	}
	if v.PriceSource != models.SourceManual {
		t.Errorf("source = %s, want manual", v.PriceSource)
	}
}

func TestNegativeQuantityIsNotClamped(t *testing.T) {
	now := time.Now()
	holdings := []models.Holding{{
		ID: "short", Name: "Short", Category: models.Stock,
		Quantity: decimal.NewFromInt(-2), Identifier: "AAPL",
	}}
	cache := models.PriceCache{"AAPL": cacheEntry(100, now)}

	got := Valuate(holdings, cache, now, ttl)
	if !got[0].TotalValue.Equal(decimal.NewFromInt(-200)) {
		t.Errorf("total = %s, want -200", got[0].TotalValue)
	}
}

func TestSnapshotIncludesEveryCategory(t *testing.T) {
	now := time.Now()
	valued := []models.HoldingWithValue{
		{Holding: models.Holding{Category: models.Crypto}, TotalValue: decimal.NewFromInt(100)},
		{Holding: models.Holding{Category: models.Stock}, TotalValue: decimal.NewFromInt(50)},
	}

	snap := Snapshot(valued, now)
	if !snap.TotalValue.Equal(decimal.NewFromInt(150)) {
		t.Errorf("total = %s, want 150", snap.TotalValue)
	}
	if !snap.Date.Equal(now) {
		t.Errorf("date = %s, want %s", snap.Date, now)
	}
	if len(snap.CategoryValues) != len(models.Categories) {
		t.Fatalf("categories = %d, want %d", len(snap.CategoryValues), len(models.Categories))
	}
	if !snap.CategoryValues[models.Crypto].Equal(decimal.NewFromInt(100)) {
		t.Errorf("crypto = %s", snap.CategoryValues[models.Crypto])
	}
	if !snap.CategoryValues[models.Metals].IsZero() {
		t.Errorf("metals = %s, want 0", snap.CategoryValues[models.Metals])
	}
}

func TestSnapshotOfEmptyPortfolio(t *testing.T) {
	snap := Snapshot(nil, time.Now())
	if !snap.TotalValue.IsZero() {
		t.Errorf("total = %s, want 0", snap.TotalValue)
	}
	for _, c := range models.Categories {
		if _, ok := snap.CategoryValues[c]; !ok {
			t.Errorf("category %s missing from empty snapshot", c)
		}
	}
}
