// Package models defines the domain types for the portfolio tracker.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

func init() {
	// Money fields go over the wire and into the vault as JSON numbers,
	// not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Category classifies a holding. The set is closed: price refresh routing
// dispatches on the category, so every value must be listed here and in
// Route.
type Category string

const (
	Crypto Category = "crypto"
	Metals Category = "metals"
	Stock  Category = "stock"
	Cash   Category = "cash"
	Seed   Category = "seed"
)

// Categories lists every category in display order. Snapshot totals include
// all of them, zero-valued or not.
var Categories = []Category{Crypto, Metals, Stock, Cash, Seed}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Crypto, Metals, Stock, Cash, Seed:
		return true
	}
	return false
}

// Route identifies the quote provider serving a category.
type Route int

const (
	// RouteNone means no live quotes; pricing is manual only.
	RouteNone Route = iota
	// RouteBatch is the batched index provider (crypto identifiers).
	RouteBatch
	// RouteRelay is the one-identifier-at-a-time quote-relay provider.
	RouteRelay
)

// Route returns the provider route for the category.
func (c Category) Route() Route {
	switch c {
	case Crypto:
		return RouteBatch
	case Metals, Stock:
		return RouteRelay
	default:
		return RouteNone
	}
}

// Holding is a single position in the portfolio. ID is generated once at
// creation and never reused. Identifier is the provider-specific symbol
// (ticker or index id) and is only meaningful for categories with a live
// quote route. A positive ManualPrice overrides any fetched price.
type Holding struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    Category        `json:"category"`
	Quantity    decimal.Decimal `json:"quantity"`
	Identifier  string          `json:"identifier,omitempty"`
	ManualPrice decimal.Decimal `json:"manualPrice"`
}

// Validate checks the invariants a holding must satisfy before it is
// accepted into the document.
func (h Holding) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.ID, validation.Required),
		validation.Field(&h.Name, validation.Required),
		validation.Field(&h.Category, validation.Required,
			validation.In(Crypto, Metals, Stock, Cash, Seed)),
	)
}

// PriceCacheEntry is the last known unit price for an asset identifier,
// always in the reference currency (USD).
type PriceCacheEntry struct {
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
	Source    string          `json:"source"`
}

// Time returns the capture instant of the entry.
func (e PriceCacheEntry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// PriceCache maps an asset identifier to its last known price. Entries are
// overwritten on refresh and never deleted except by whole-document
// replacement.
type PriceCache map[string]PriceCacheEntry

// Clone returns a shallow copy safe to mutate independently.
func (c PriceCache) Clone() PriceCache {
	out := make(PriceCache, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// PriceSource tells the display layer where a holding's price came from.
type PriceSource string

const (
	SourceAPI    PriceSource = "api"    // cache hit within TTL
	SourceCached PriceSource = "cached" // cache hit past TTL, still used
	SourceManual PriceSource = "manual" // manual override or no price at all
)

// HoldingWithValue is a derived view of a holding; it is never persisted.
type HoldingWithValue struct {
	Holding
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	TotalValue   decimal.Decimal `json:"totalValue"`
	PriceSource  PriceSource     `json:"priceSource"`
	LastUpdated  *time.Time      `json:"lastUpdated,omitempty"`
}

// HistorySnapshot is an immutable point-in-time record of portfolio value.
// Snapshots are created only by explicit user action and removed only by
// explicit index-addressed deletion.
type HistorySnapshot struct {
	Date           time.Time                    `json:"date"`
	TotalValue     decimal.Decimal              `json:"totalValue"`
	CategoryValues map[Category]decimal.Decimal `json:"categoryValues"`
}

// Document is the unit of encryption: the entire portfolio state is
// serialized and re-encrypted as a whole on every write.
type Document struct {
	Holdings   []Holding         `json:"holdings"`
	PriceCache PriceCache        `json:"priceCache"`
	History    []HistorySnapshot `json:"history"`
}

// NewDocument returns an empty document with non-nil collections so it
// serializes as [] and {} rather than null.
func NewDocument() *Document {
	return &Document{
		Holdings:   []Holding{},
		PriceCache: PriceCache{},
		History:    []HistorySnapshot{},
	}
}

// Clone returns a deep copy. The store hands out clones so API handlers can
// marshal a document without racing a concurrent write.
func (d *Document) Clone() *Document {
	out := &Document{
		Holdings:   make([]Holding, len(d.Holdings)),
		PriceCache: d.PriceCache.Clone(),
		History:    make([]HistorySnapshot, len(d.History)),
	}
	copy(out.Holdings, d.Holdings)
	for i, s := range d.History {
		cv := make(map[Category]decimal.Decimal, len(s.CategoryValues))
		for k, v := range s.CategoryValues {
			cv[k] = v
		}
		out.History[i] = HistorySnapshot{Date: s.Date, TotalValue: s.TotalValue, CategoryValues: cv}
	}
	return out
}
