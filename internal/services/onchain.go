package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// OnchainClient wraps a Glassnode-compatible on-chain metrics API.
type OnchainClient struct {
	baseURL string
	apiKey  string
	client  *resty.Client
}

// MetricPoint is one observation in an on-chain metric series.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Glassnode-style payload: [{"t": unixSeconds, "v": value}, ...]
type onchainPoint struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

func NewOnchainClient(baseURL, apiKey string) *OnchainClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &OnchainClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
	}
}

// Metric fetches a named metric series for an asset at the given resolution
// (e.g. "24h"), oldest first.
func (c *OnchainClient) Metric(ctx context.Context, asset, metric, resolution string) ([]MetricPoint, error) {
	url := fmt.Sprintf("%s/v1/metrics/%s", c.baseURL, metric)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"a":       asset,
			"i":       resolution,
			"api_key": c.apiKey,
		}).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s request: %v", ErrDataFetch, asset, metric, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: %s/%s returned HTTP %d", ErrDataFetch, asset, metric, resp.StatusCode())
	}

	var raw []onchainPoint
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding %s/%s: %v", ErrDataFetch, asset, metric, err)
	}

	points := make([]MetricPoint, 0, len(raw))
	for _, p := range raw {
		points = append(points, MetricPoint{
			Timestamp: time.Unix(p.T, 0).UTC(),
			Value:     p.V,
		})
	}
	return points, nil
}

// LatestMetric returns the newest value of a metric, or ErrNotFound for an
// empty series.
func (c *OnchainClient) LatestMetric(ctx context.Context, asset, metric string) (float64, error) {
	points, err := c.Metric(ctx, asset, metric, "24h")
	if err != nil {
		return 0, err
	}
	if len(points) == 0 {
		return 0, fmt.Errorf("%w: empty %s series for %s", ErrNotFound, metric, asset)
	}
	return points[len(points)-1].Value, nil
}

// MVRV returns the latest market-value-to-realized-value ratio.
func (c *OnchainClient) MVRV(ctx context.Context, asset string) (float64, error) {
	return c.LatestMetric(ctx, asset, "market/mvrv")
}

// AVIV returns the latest active-value-to-investor-value ratio.
func (c *OnchainClient) AVIV(ctx context.Context, asset string) (float64, error) {
	return c.LatestMetric(ctx, asset, "market/aviv")
}
