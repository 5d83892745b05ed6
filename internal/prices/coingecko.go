package prices

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// CoinGeckoSource is the batched index provider for crypto identifiers.
// One request per refresh regardless of batch size. Identifiers the index
// does not know are simply absent from the result, not an error.
type CoinGeckoSource struct {
	client  *http.Client
	baseURL string
}

// NewCoinGeckoSource creates a batch provider rooted at baseURL
// (e.g. https://api.coingecko.com/api/v3).
func NewCoinGeckoSource(client *http.Client, baseURL string) *CoinGeckoSource {
	return &CoinGeckoSource{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// FetchPrices returns USD unit prices for ids in a single batched call.
func (c *CoinGeckoSource) FetchPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	addr := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.baseURL, url.QueryEscape(strings.Join(ids, ",")))

	payload := make(map[string]map[string]decimal.Decimal)
	if err := getJSON(ctx, c.client, addr, &payload); err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		if usd, ok := payload[id]["usd"]; ok {
			out[id] = usd
		}
	}
	return out, nil
}
