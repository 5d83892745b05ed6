package prices

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chrisjgf/portfolio/internal/models"
)

func chartJSON(price float64, currency string) string {
	return fmt.Sprintf(
		`{"chart":{"result":[{"meta":{"regularMarketPrice":%v,"currency":%q}}]}}`,
		price, currency)
}

func testClient() *http.Client {
	return &http.Client{Timeout: 2 * time.Second}
}

// fixedRates returns a rate source whose lookups always fail, so the
// fallback rate is the effective rate.
func fixedRates(t *testing.T, fallback float64) *RateSource {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return NewRateSource(testClient(), srv.URL, time.Minute, decimal.NewFromFloat(fallback))
}

func TestNormalizeTicker(t *testing.T) {
	cases := []struct {
		identifier string
		category   models.Category
		want       string
	}{
		{"AAPL", models.Stock, "AAPL"},
		{"VUSA.L", models.Stock, "VUSA.L"},
		{"PHGP", models.Metals, "PHGP.L"},
		{"PHGP.L", models.Metals, "PHGP.L"},
		{"SGLN", models.Metals, "SGLN.L"},
	}
	for _, tc := range cases {
		if got := NormalizeTicker(tc.identifier, tc.category); got != tc.want {
			t.Errorf("NormalizeTicker(%q, %q) = %q, want %q", tc.identifier, tc.category, got, tc.want)
		}
	}
}

func TestFetchWalksRelaysInOrder(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("direct endpoint reached despite a working relay")
	}))
	defer direct.Close()

	var order []string
	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, r.URL.Path)
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, chartJSON(187.5, "USD"))
	}))
	defer relaySrv.Close()

	relays := []string{relaySrv.URL + "/broken?url=", relaySrv.URL + "/good?url="}
	q := NewQuoteSource(testClient(), direct.URL, relays, fixedRates(t, 0.79))

	price, ok := q.Fetch(context.Background(), "AAPL")
	if !ok {
		t.Fatal("Fetch reported a miss")
	}
	if !price.Equal(decimal.NewFromFloat(187.5)) {
		t.Errorf("price = %s, want 187.5", price)
	}
	if len(order) != 2 || order[0] != "/broken" || order[1] != "/good" {
		t.Errorf("relay order = %v, want [/broken /good]", order)
	}
}

func TestFetchFallsBackToDirect(t *testing.T) {
	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer relaySrv.Close()

	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON(42, "USD"))
	}))
	defer direct.Close()

	q := NewQuoteSource(testClient(), direct.URL, []string{relaySrv.URL + "/?url="}, fixedRates(t, 0.79))
	price, ok := q.Fetch(context.Background(), "AAPL")
	if !ok {
		t.Fatal("Fetch reported a miss")
	}
	if !price.Equal(decimal.NewFromInt(42)) {
		t.Errorf("price = %s, want 42", price)
	}
}

func TestFetchConvertsPenceToUSD(t *testing.T) {
	rateSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"usd":{"gbp":0.8}}`)
	}))
	defer rateSrv.Close()
	rates := NewRateSource(testClient(), rateSrv.URL, time.Minute, decimal.NewFromFloat(0.79))

	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 12000 pence = £120; at 0.8 GBP per USD that is $150.
		fmt.Fprint(w, chartJSON(12000, "GBp"))
	}))
	defer direct.Close()

	q := NewQuoteSource(testClient(), direct.URL, nil, rates)
	price, ok := q.Fetch(context.Background(), "PHGP.L")
	if !ok {
		t.Fatal("Fetch reported a miss")
	}
	if !price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("price = %s, want 150", price)
	}
}

func TestFetchConvertsPoundsToUSD(t *testing.T) {
	rateSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"usd":{"gbp":0.8}}`)
	}))
	defer rateSrv.Close()
	rates := NewRateSource(testClient(), rateSrv.URL, time.Minute, decimal.NewFromFloat(0.79))

	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartJSON(120, "GBP"))
	}))
	defer direct.Close()

	q := NewQuoteSource(testClient(), direct.URL, nil, rates)
	price, ok := q.Fetch(context.Background(), "VUSA.L")
	if !ok {
		t.Fatal("Fetch reported a miss")
	}
	if !price.Equal(decimal.NewFromInt(150)) {
		t.Errorf("price = %s, want 150", price)
	}
}

func TestFetchMissWhenResponseHasNoPrice(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[]}}`)
	}))
	defer direct.Close()

	q := NewQuoteSource(testClient(), direct.URL, nil, fixedRates(t, 0.79))
	if _, ok := q.Fetch(context.Background(), "NOPE"); ok {
		t.Error("Fetch returned ok for a priceless response")
	}
}
