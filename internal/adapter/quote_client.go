// Package adapter provides clients for external data providers.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/copiqat-backend/internal/config"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// QuoteClient fetches batch quotes from the external price provider.
// One request covers a comma-separated batch of symbols; the provider
// answers with a JSON object keyed by symbol for batches, or a single
// flat quote object for one-symbol requests.
type QuoteClient struct {
	client *resty.Client
	apiKey string
}

// NewQuoteClient creates a quote client from configuration
func NewQuoteClient(cfg *config.QuoteConfig) *QuoteClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(0)

	return &QuoteClient{client: client, apiKey: cfg.APIKey}
}

// priceFields is the priority order for resolving a quote's price from the
// provider's loosely specified response shape.
var priceFields = []string{"close", "price", "last", "value"}

// FetchQuotes requests quotes for a batch of symbols and returns the prices
// it could resolve, keyed by the requested symbol. Symbols the provider
// omitted or answered unparseably are simply absent from the result.
func (c *QuoteClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(symbols))
	if len(symbols) == 0 {
		return prices, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", strings.Join(symbols, ",")).
		SetQueryParam("apikey", c.apiKey).
		Get("/quote")
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("quote request failed: status %d: %s", resp.StatusCode(), resp.String())
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	for _, symbol := range symbols {
		entry := resolveEntry(body, symbol)
		if entry == nil {
			continue
		}
		price, ok := resolvePrice(entry)
		if !ok {
			continue
		}
		prices[symbol] = price
	}

	return prices, nil
}

// resolveEntry finds the response object for a symbol, trying the exact key
// and the provider's upper-cased and slash-stripped variants. A flat
// single-quote response (top-level price fields) covers one-symbol batches.
func resolveEntry(body map[string]json.RawMessage, symbol string) map[string]json.RawMessage {
	candidates := []string{
		symbol,
		strings.ToUpper(symbol),
		strings.ReplaceAll(symbol, "/", ""),
		strings.ToUpper(strings.ReplaceAll(symbol, "/", "")),
	}
	for _, key := range candidates {
		raw, ok := body[key]
		if !ok {
			continue
		}
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		return entry
	}

	for _, field := range priceFields {
		if _, ok := body[field]; ok {
			return body
		}
	}
	return nil
}

// resolvePrice extracts a decimal price from an entry, preferring
// close over price over last over value. Fields arrive either as JSON
// strings or numbers.
func resolvePrice(entry map[string]json.RawMessage) (decimal.Decimal, bool) {
	for _, field := range priceFields {
		raw, ok := entry[field]
		if !ok {
			continue
		}

		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			if price, err := decimal.NewFromString(asString); err == nil {
				return price, true
			}
			continue
		}

		var asNumber float64
		if err := json.Unmarshal(raw, &asNumber); err == nil {
			return decimal.NewFromFloat(asNumber), true
		}
	}
	return decimal.Decimal{}, false
}
