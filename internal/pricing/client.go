package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public model list endpoint root.
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	requestTimeout = 10 * time.Second
	maxBodySize    = 16 << 20
	userAgent      = "cc-enhanced/1.0"
)

var (
	// ErrRateLimited indicates the price list endpoint throttled us.
	ErrRateLimited = errors.New("pricing: rate limited")
	// ErrUnexpectedStatus indicates a non-2xx response.
	ErrUnexpectedStatus = errors.New("pricing: unexpected status")
)

// Client fetches the remote model price list.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, hc *http.Client) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: baseURL, http: hc}
}

type modelsResponse struct {
	Data []remoteModel `json:"data"`
}

type remoteModel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Pricing struct {
		Prompt          json.RawMessage `json:"prompt"`
		Completion      json.RawMessage `json:"completion"`
		InputCacheWrite json.RawMessage `json:"input_cache_write"`
		InputCacheRead  json.RawMessage `json:"input_cache_read"`
	} `json:"pricing"`
}

// FetchModels downloads the model list and returns per-token prices for every
// model whose id mentions "claude".
func (c *Client) FetchModels(ctx context.Context) (map[string]ModelPricing, error) {
	body, err := c.get(ctx, "/models")
	if err != nil {
		return nil, err
	}

	var raw modelsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("pricing: parsing models: %w", err)
	}

	out := make(map[string]ModelPricing)
	for _, m := range raw.Data {
		if !strings.Contains(strings.ToLower(m.ID), "claude") {
			continue
		}
		in, ok := parsePrice(m.Pricing.Prompt)
		if !ok {
			continue
		}
		outCost, ok := parsePrice(m.Pricing.Completion)
		if !ok {
			continue
		}
		p := ModelPricing{InputCost: in, OutputCost: outCost}
		if v, ok := parsePrice(m.Pricing.InputCacheWrite); ok {
			p.CacheCreationCost = v
		}
		if v, ok := parsePrice(m.Pricing.InputCacheRead); ok {
			p.CacheReadCost = v
		}
		p = p.WithDefaults()
		if !p.Valid() {
			continue
		}
		out[m.ID] = p
	}
	if len(out) == 0 {
		return nil, errors.New("pricing: no claude models in price list")
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("pricing: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pricing: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("pricing: reading response: %w", err)
	}
	return body, nil
}

// parsePrice accepts a JSON number or numeric string. Negative values mean
// "variable" upstream and are rejected.
func parsePrice(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, f >= 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v, v >= 0
		}
	}
	return 0, false
}
