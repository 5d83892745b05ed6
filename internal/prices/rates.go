package prices

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RateSource resolves the USD→GBP conversion rate used to bring GBP-quoted
// prices into the reference currency. The rate is cached under its own TTL;
// a failed lookup degrades to a hardcoded fallback and is never an error.
type RateSource struct {
	client   *http.Client
	baseURL  string
	ttl      time.Duration
	fallback decimal.Decimal

	mu   sync.Mutex
	rate decimal.Decimal
	at   time.Time
}

// NewRateSource creates a rate source backed by the index provider's
// conversion endpoint.
func NewRateSource(client *http.Client, baseURL string, ttl time.Duration, fallback decimal.Decimal) *RateSource {
	return &RateSource{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		ttl:      ttl,
		fallback: fallback,
	}
}

// USDToGBP returns the cached rate while fresh, refreshes it when expired,
// and falls back to the hardcoded rate when the lookup fails. A failed
// lookup does not overwrite a previously cached rate.
func (r *RateSource) USDToGBP(ctx context.Context) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if !r.at.IsZero() && now.Sub(r.at) < r.ttl {
		return r.rate
	}

	addr := fmt.Sprintf("%s/simple/price?ids=usd&vs_currencies=gbp", r.baseURL)
	payload := make(map[string]map[string]decimal.Decimal)
	if err := getJSON(ctx, r.client, addr, &payload); err != nil {
		slog.Warn("usd/gbp rate lookup failed", slog.String("error", err.Error()))
		return r.fallback
	}
	gbp, ok := payload["usd"]["gbp"]
	if !ok || !gbp.IsPositive() {
		slog.Warn("usd/gbp rate missing from response")
		return r.fallback
	}

	r.rate, r.at = gbp, now
	return gbp
}
