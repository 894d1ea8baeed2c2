package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTimeout bounds a single quote request. A slow feed degrades
// valuation accuracy, it must not stall the whole request.
const DefaultTimeout = 5 * time.Second

// Client fetches quotes from the feed service over HTTP.
//
//	GET {base}/v1/quote/{symbol}            → {"symbol":"AAPL","price":"189.55"}
//	GET {base}/v1/quotes?symbols=AAPL,GOOG  → {"quotes":[{"symbol":...,"price":...}]}
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type quotePayload struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

type quoteBatchPayload struct {
	Quotes []quotePayload `json:"quotes"`
}

// Quote fetches the current price for one symbol.
func (c *Client) Quote(ctx context.Context, sym string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/quote/"+url.PathEscape(sym), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, sym, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: %s: feed returned %d", ErrUnavailable, sym, resp.StatusCode)
	}

	var q quotePayload
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: decode: %v", ErrUnavailable, sym, err)
	}
	if q.Price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive price", ErrUnavailable, sym)
	}
	return q.Price, nil
}

// QuoteBatch fetches prices for several symbols in one round trip.
// Symbols the feed cannot price are absent from the returned map.
func (c *Client) QuoteBatch(ctx context.Context, syms []string) (map[string]decimal.Decimal, error) {
	if len(syms) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	u := c.baseURL + "/v1/quotes?symbols=" + url.QueryEscape(strings.Join(syms, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build batch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: batch: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: batch: feed returned %d", ErrUnavailable, resp.StatusCode)
	}

	var payload quoteBatchPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: batch: decode: %v", ErrUnavailable, err)
	}

	prices := make(map[string]decimal.Decimal, len(payload.Quotes))
	for _, q := range payload.Quotes {
		if q.Price.IsPositive() {
			prices[q.Symbol] = q.Price
		}
	}
	return prices, nil
}
