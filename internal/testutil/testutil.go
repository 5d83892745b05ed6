// Package testutil provides shared test helpers for setting up vault
// stores and stub quote providers.
package testutil

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chrisjgf/portfolio/internal/prices"
	"github.com/chrisjgf/portfolio/internal/vault"
)

// TestStore creates a vault store backed by a temp directory.
func TestStore(t *testing.T) *vault.Store {
	t.Helper()
	store, err := vault.NewStore(filepath.Join(t.TempDir(), "portfolio.enc"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

// UnlockedStore creates a store with a fresh vault already set up and an
// active session.
func UnlockedStore(t *testing.T, password string) *vault.Store {
	t.Helper()
	store := TestStore(t)
	if _, err := store.Setup(password); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	return store
}

// PriceService wires a price service against the given provider URLs with
// a short request timeout suitable for tests. geckoURL also backs the
// USD→GBP rate source.
func PriceService(t *testing.T, geckoURL, quoteURL string, relays []string, ttl time.Duration) *prices.Service {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	rates := prices.NewRateSource(client, geckoURL, ttl, decimal.RequireFromString("0.79"))
	batch := prices.NewCoinGeckoSource(client, geckoURL)
	relay := prices.NewQuoteSource(client, quoteURL, relays, rates)
	return prices.NewService(batch, relay, ttl)
}
