// Package market fetches ranked cryptocurrency listings from a
// CoinMarketCap-compatible provider.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://pro-api.coinmarketcap.com"

// Coin is one row of the ranked listing. Provider order (descending market
// cap) is preserved; this package never re-sorts.
type Coin struct {
	Symbol   string
	PriceUSD float64
}

// Fetcher is the read contract consumers depend on.
type Fetcher interface {
	FetchTop(ctx context.Context, limit int) ([]Coin, error)
}

// FetchError carries enough diagnostic detail for logging a failed provider
// call. Status is 0 for transport/decode failures.
type FetchError struct {
	Status  int
	Reason  string
	Snippet string
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("market fetch failed: status=%d reason=%s", e.Status, e.Reason)
	}
	return "market fetch failed: " + e.Reason
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

// listing mirrors the provider's response shape; only the fields we read.
type listing struct {
	Data []struct {
		Symbol string `json:"symbol"`
		Quote  struct {
			USD struct {
				Price float64 `json:"price"`
			} `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
}

// FetchTop returns the top-`limit` listing ordered by market cap descending.
// Exactly one HTTP call per invocation; failures are returned once, with no
// internal retry.
func (c *Client) FetchTop(ctx context.Context, limit int) ([]Coin, error) {
	q := url.Values{}
	q.Set("start", "1")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("convert", "USD")
	u := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/cryptocurrency/listings/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{Reason: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Reason: "reading body: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Status:  resp.StatusCode,
			Reason:  resp.Status,
			Snippet: snippet(body),
		}
	}

	var parsed listing
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Reason: "malformed body: " + err.Error(), Snippet: snippet(body)}
	}
	if parsed.Data == nil {
		return nil, &FetchError{Status: resp.StatusCode, Reason: "missing data array", Snippet: snippet(body)}
	}

	coins := make([]Coin, 0, len(parsed.Data))
	for _, row := range parsed.Data {
		coins = append(coins, Coin{Symbol: row.Symbol, PriceUSD: row.Quote.USD.Price})
	}
	return coins, nil
}

func snippet(b []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(b))
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
