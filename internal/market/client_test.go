package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchTopRequestShape(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-CMC_PRO_API_KEY")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	if _, err := c.FetchTop(context.Background(), 25); err != nil {
		t.Fatalf("FetchTop: %v", err)
	}

	if gotPath != "/v1/cryptocurrency/listings/latest" {
		t.Fatalf("path = %q", gotPath)
	}
	for _, part := range []string{"start=1", "limit=25", "convert=USD"} {
		if !strings.Contains(gotQuery, part) {
			t.Fatalf("query %q missing %q", gotQuery, part)
		}
	}
	if gotKey != "test-key" {
		t.Fatalf("api key header = %q", gotKey)
	}
}

func TestFetchTopParsesOrderedListing(t *testing.T) {
	body := `{"data":[
		{"symbol":"BTC","quote":{"USD":{"price":65000.0}}},
		{"symbol":"ETH","quote":{"USD":{"price":3200.5}}},
		{"symbol":"XRP","quote":{"USD":{"price":0.52}}}
	]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	coins, err := c.FetchTop(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchTop: %v", err)
	}
	if len(coins) != 3 {
		t.Fatalf("got %d coins, want 3", len(coins))
	}
	// Provider order must be preserved.
	want := []Coin{
		{Symbol: "BTC", PriceUSD: 65000.0},
		{Symbol: "ETH", PriceUSD: 3200.5},
		{Symbol: "XRP", PriceUSD: 0.52},
	}
	for i, c := range coins {
		if c != want[i] {
			t.Fatalf("coins[%d] = %+v, want %+v", i, c, want[i])
		}
	}
}

func TestFetchTopNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":{"error_message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.FetchTop(context.Background(), 10)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", fe.Status)
	}
	if !strings.Contains(fe.Snippet, "rate limited") {
		t.Fatalf("snippet %q missing body detail", fe.Snippet)
	}
}

func TestFetchTopMalformedBody(t *testing.T) {
	for _, body := range []string{"not json", `{"unexpected":true}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
		_, err := c.FetchTop(context.Background(), 10)
		srv.Close()

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("body %q: err = %v, want *FetchError", body, err)
		}
	}
}

func TestFetchTopTransportFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	_, err := c.FetchTop(context.Background(), 10)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Status != 0 {
		t.Fatalf("status = %d for transport fault, want 0", fe.Status)
	}
}
