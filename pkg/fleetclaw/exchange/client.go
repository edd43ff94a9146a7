// Package exchange is a thin REST client for the trading venue. It places
// market orders on behalf of bot identities; order semantics (fills,
// slippage, fees) are entirely the venue's business.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Order sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order is one market order for a bot identity.
type Order struct {
	Bot    string  `json:"bot"`
	Symbol string  `json:"symbol"`
	Side   string  `json:"side"`
	Amount float64 `json:"amount"`
}

// OrderResult is the venue's acknowledgement.
type OrderResult struct {
	OrderID string  `json:"order_id"`
	Status  string  `json:"status"`
	Filled  float64 `json:"filled"`
	Price   float64 `json:"price"`
}

// apiError is the venue's error envelope.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client talks to one trading venue.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a venue client. The API key may be empty for venues with
// IP-allowlist auth.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// PlaceOrder submits a market order and returns the acknowledgement.
func (c *Client) PlaceOrder(ctx context.Context, order Order) (*OrderResult, error) {
	if order.Side != SideBuy && order.Side != SideSell {
		return nil, fmt.Errorf("exchange: invalid side %q", order.Side)
	}
	if order.Amount <= 0 {
		return nil, fmt.Errorf("exchange: order amount must be positive")
	}

	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("exchange: encode order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("exchange: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange: place order: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("exchange: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && (ae.Error != "" || ae.Message != "") {
			return nil, fmt.Errorf("exchange: %s %s (HTTP %d)", ae.Error, ae.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("exchange: HTTP %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var result OrderResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("exchange: decode response: %w", err)
	}
	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
