package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/chrisjgf/portfolio/internal/models"
)

// QuoteSource is the quote-relay provider for equities and metal ETCs. The
// upstream rejects unmediated clients, so each lookup walks an ordered list
// of relay endpoints and only then tries a direct fetch. Identifiers are
// fetched strictly one at a time; the sequencing lives in Service.Refresh
// and exists to respect the upstream rate limit, not as an oversight.
type QuoteSource struct {
	client  *http.Client
	baseURL string
	relays  []string // URL prefixes; the target URL is appended query-escaped
	rates   *RateSource
}

// NewQuoteSource creates a relay provider. baseURL is the chart endpoint
// root (e.g. https://query1.finance.yahoo.com).
func NewQuoteSource(client *http.Client, baseURL string, relays []string, rates *RateSource) *QuoteSource {
	return &QuoteSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		relays:  relays,
		rates:   rates,
	}
}

// NormalizeTicker maps an identifier to the symbol the quote service
// expects. Identifiers already carrying a market suffix pass through;
// metals default to the London listing. The price cache keys on the
// original identifier, never on this value.
func NormalizeTicker(identifier string, category models.Category) string {
	if strings.Contains(identifier, ".") {
		return identifier
	}
	if category == models.Metals {
		return identifier + ".L"
	}
	return identifier
}

// Fetch returns the USD unit price for ticker, or ok=false when every relay
// and the direct attempt fail or the response carries no price. A miss is a
// normal outcome, never an error: the cache keeps its previous entry.
func (q *QuoteSource) Fetch(ctx context.Context, ticker string) (price decimal.Decimal, ok bool) {
	target := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d", q.baseURL, url.PathEscape(ticker))
	body, ok := q.get(ctx, target)
	if !ok {
		slog.Warn("quote fetch failed on all endpoints", slog.String("ticker", ticker))
		return decimal.Decimal{}, false
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Warn("quote response is not JSON", slog.String("ticker", ticker))
		return decimal.Decimal{}, false
	}

	raw, err := jsonpath.Get("$.chart.result[0].meta.regularMarketPrice", payload)
	if err != nil {
		slog.Warn("quote response has no price", slog.String("ticker", ticker))
		return decimal.Decimal{}, false
	}
	price, ok = toDecimal(raw)
	if !ok {
		return decimal.Decimal{}, false
	}

	currency := ""
	if raw, err := jsonpath.Get("$.chart.result[0].meta.currency", payload); err == nil {
		currency, _ = raw.(string)
	}

	// Pence → pounds before any currency conversion.
	if currency == "GBp" {
		price = price.Div(decimal.NewFromInt(100))
	}
	if currency == "GBp" || currency == "GBP" {
		if rate := q.rates.USDToGBP(ctx); rate.IsPositive() {
			price = price.Div(rate)
		}
	}
	return price, true
}

// get fetches target through each relay in order, falling back to the next
// on any failure, with a final direct attempt. First success wins.
func (q *QuoteSource) get(ctx context.Context, target string) ([]byte, bool) {
	for _, relay := range q.relays {
		body, err := getBody(ctx, q.client, relay+url.QueryEscape(target))
		if err == nil {
			return body, true
		}
		slog.Debug("quote relay failed", slog.String("relay", relay), slog.String("error", err.Error()))
	}
	body, err := getBody(ctx, q.client, target)
	if err != nil {
		slog.Debug("direct quote fetch failed", slog.String("error", err.Error()))
		return nil, false
	}
	return body, true
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}
