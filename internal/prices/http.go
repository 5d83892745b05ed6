package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// getJSON performs a GET and decodes the JSON response body into v.
func getJSON(ctx context.Context, client *http.Client, addr string, v any) error {
	body, err := getBody(ctx, client, addr)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// getBody performs a GET and returns the raw response body. Any non-200
// status is an error so relay fallback chains can move on.
func getBody(ctx context.Context, client *http.Client, addr string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("prices: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prices: GET: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prices: GET %s/%s: %s", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("prices: read body: %w", err)
	}
	return body, nil
}
