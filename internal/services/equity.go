package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
)

// EquityClient wraps an Alpha Vantage-compatible equity API, used to source
// the S&P 500 benchmark series through an index-tracking ticker.
type EquityClient struct {
	baseURL string
	apiKey  string
	client  *resty.Client
}

type equityDailyResponse struct {
	Series map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
	Note         string `json:"Note"`
	ErrorMessage string `json:"Error Message"`
}

func NewEquityClient(baseURL, apiKey string) *EquityClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &EquityClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
	}
}

// DailyCloses fetches daily closes for a ticker, oldest first.
func (c *EquityClient) DailyCloses(ctx context.Context, ticker string) ([]PricePoint, error) {
	url := fmt.Sprintf("%s/query", c.baseURL)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     ticker,
			"outputsize": "full",
			"apikey":     c.apiKey,
		}).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: daily closes request for %s: %v", ErrDataFetch, ticker, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: daily closes for %s returned HTTP %d", ErrDataFetch, ticker, resp.StatusCode())
	}

	var dr equityDailyResponse
	if err := json.Unmarshal(resp.Body(), &dr); err != nil {
		return nil, fmt.Errorf("%w: decoding daily closes for %s: %v", ErrDataFetch, ticker, err)
	}
	if dr.ErrorMessage != "" {
		return nil, fmt.Errorf("%w: daily closes for %s: %s", ErrDataFetch, ticker, dr.ErrorMessage)
	}
	if dr.Note != "" {
		// Alpha Vantage signals rate limiting through a Note payload.
		return nil, fmt.Errorf("%w: daily closes for %s rate limited: %s", ErrDataFetch, ticker, dr.Note)
	}
	if len(dr.Series) == 0 {
		return nil, fmt.Errorf("%w: empty daily series for %s", ErrNotFound, ticker)
	}

	points := make([]PricePoint, 0, len(dr.Series))
	for dateStr, bar := range dr.Series {
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		var closePrice float64
		if _, err := fmt.Sscanf(bar.Close, "%f", &closePrice); err != nil {
			continue
		}
		points = append(points, PricePoint{Timestamp: d, Price: closePrice})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}
