package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// MarketClient wraps a CoinMarketCap-compatible market data API.
type MarketClient struct {
	baseURL string
	client  *resty.Client
}

// Quote is the current market state of one asset.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"` // fractional, not percent
	MarketCap float64   `json:"market_cap"`
	Volume24h float64   `json:"volume_24h"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PricePoint is one (timestamp, price) observation in a history response.
// Responses are ordered oldest first.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

type marketQuoteResponse struct {
	Data map[string]struct {
		Symbol string `json:"symbol"`
		Quote  struct {
			USD struct {
				Price            float64 `json:"price"`
				PercentChange24h float64 `json:"percent_change_24h"`
				MarketCap        float64 `json:"market_cap"`
				Volume24h        float64 `json:"volume_24h"`
			} `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

type marketHistoryResponse struct {
	Data struct {
		Quotes []struct {
			Timestamp time.Time `json:"timestamp"`
			Quote     struct {
				USD struct {
					Price float64 `json:"price"`
				} `json:"USD"`
			} `json:"quote"`
		} `json:"quotes"`
	} `json:"data"`
}

func NewMarketClient(baseURL, apiKey string) *MarketClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	client.SetHeader("X-CMC_PRO_API_KEY", apiKey)

	return &MarketClient{
		baseURL: baseURL,
		client:  client,
	}
}

// Quote fetches the current price, 24h change and market cap for a symbol.
func (c *MarketClient) Quote(ctx context.Context, symbol string) (*Quote, error) {
	url := fmt.Sprintf("%s/v1/cryptocurrency/quotes/latest", c.baseURL)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: quote request for %s: %v", ErrDataFetch, symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: quote for %s returned HTTP %d", ErrDataFetch, symbol, resp.StatusCode())
	}

	var qr marketQuoteResponse
	if err := json.Unmarshal(resp.Body(), &qr); err != nil {
		return nil, fmt.Errorf("%w: decoding quote for %s: %v", ErrDataFetch, symbol, err)
	}
	if qr.Status.ErrorCode != 0 {
		return nil, fmt.Errorf("%w: quote for %s: %s", ErrDataFetch, symbol, qr.Status.ErrorMessage)
	}

	entry, ok := qr.Data[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: symbol %s not in quote response", ErrNotFound, symbol)
	}

	return &Quote{
		Symbol:    entry.Symbol,
		Price:     entry.Quote.USD.Price,
		Change24h: entry.Quote.USD.PercentChange24h / 100,
		MarketCap: entry.Quote.USD.MarketCap,
		Volume24h: entry.Quote.USD.Volume24h,
		FetchedAt: time.Now(),
	}, nil
}

// History fetches daily closes for the trailing number of days, oldest first.
func (c *MarketClient) History(ctx context.Context, symbol string, days int) ([]PricePoint, error) {
	if days < 2 {
		return nil, fmt.Errorf("%w: history window must be at least 2 days, got %d", ErrDataFetch, days)
	}

	url := fmt.Sprintf("%s/v2/cryptocurrency/quotes/historical", c.baseURL)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"count":    fmt.Sprintf("%d", days),
			"interval": "daily",
		}).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: history request for %s: %v", ErrDataFetch, symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: history for %s returned HTTP %d", ErrDataFetch, symbol, resp.StatusCode())
	}

	var hr marketHistoryResponse
	if err := json.Unmarshal(resp.Body(), &hr); err != nil {
		return nil, fmt.Errorf("%w: decoding history for %s: %v", ErrDataFetch, symbol, err)
	}

	points := make([]PricePoint, 0, len(hr.Data.Quotes))
	for _, q := range hr.Data.Quotes {
		points = append(points, PricePoint{
			Timestamp: q.Timestamp,
			Price:     q.Quote.USD.Price,
		})
	}
	return points, nil
}

// Prices strips timestamps from a history response for the numeric layer.
func Prices(points []PricePoint) []float64 {
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return prices
}
