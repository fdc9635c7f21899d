package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"coinsight/internal/cache"
)

// Well-known FRED series ids.
const (
	SeriesFedFunds     = "DFF"
	SeriesCPI          = "CPIAUCSL"
	SeriesGDP          = "GDP"
	SeriesUnemployment = "UNRATE"
	SeriesTreasury10Y  = "DGS10"
)

// FallbackRiskFreeRate is used when every treasury-yield lookup fails.
const FallbackRiskFreeRate = 0.04

// MacroClient wraps a FRED-compatible macro-economic series API.
type MacroClient struct {
	baseURL string
	apiKey  string
	client  *resty.Client
	memory  *cache.TTLCache[[]Observation]
	logger  *zap.Logger
}

// Observation is one dated value in a macro series.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type macroResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"` // FRED returns "." for missing values
	} `json:"observations"`
}

func NewMacroClient(baseURL, apiKey string, ttl time.Duration, logger *zap.Logger) *MacroClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &MacroClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		memory:  cache.New[[]Observation](ttl),
		logger:  logger,
	}
}

// Series fetches the most recent observations of a series, oldest first.
// Macro series move slowly, so responses are cached for the client TTL.
// Missing values ('.') are skipped.
func (c *MacroClient) Series(ctx context.Context, seriesID string, limit int) ([]Observation, error) {
	key := cache.Key("macro", seriesID, strconv.Itoa(limit))
	if obs, ok := c.memory.Get(key); ok {
		return obs, nil
	}

	url := fmt.Sprintf("%s/fred/series/observations", c.baseURL)

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"series_id":  seriesID,
			"api_key":    c.apiKey,
			"file_type":  "json",
			"sort_order": "desc",
			"limit":      strconv.Itoa(limit),
		}).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: series %s request: %v", ErrDataFetch, seriesID, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: series %s returned HTTP %d", ErrDataFetch, seriesID, resp.StatusCode())
	}

	var mr macroResponse
	if err := json.Unmarshal(resp.Body(), &mr); err != nil {
		return nil, fmt.Errorf("%w: decoding series %s: %v", ErrDataFetch, seriesID, err)
	}

	obs := make([]Observation, 0, len(mr.Observations))
	for i := len(mr.Observations) - 1; i >= 0; i-- { // reverse to oldest-first
		o := mr.Observations[i]
		if o.Value == "." {
			continue
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		d, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			continue
		}
		obs = append(obs, Observation{Date: d, Value: v})
	}

	c.memory.Set(key, obs)
	return obs, nil
}

// Latest returns the newest observation of a series.
func (c *MacroClient) Latest(ctx context.Context, seriesID string) (Observation, error) {
	obs, err := c.Series(ctx, seriesID, 5)
	if err != nil {
		return Observation{}, err
	}
	if len(obs) == 0 {
		return Observation{}, fmt.Errorf("%w: series %s has no usable observations", ErrNotFound, seriesID)
	}
	return obs[len(obs)-1], nil
}

// RiskFreeRate returns the 10-year treasury yield as a fraction, falling back
// to the fed funds rate and finally to FallbackRiskFreeRate. The boolean
// reports whether the value came from live data.
func (c *MacroClient) RiskFreeRate(ctx context.Context) (float64, bool) {
	for _, series := range []string{SeriesTreasury10Y, SeriesFedFunds} {
		obs, err := c.Latest(ctx, series)
		if err == nil {
			return obs.Value / 100, true
		}
		c.logger.Warn("risk-free rate lookup failed",
			zap.String("series", series), zap.Error(err))
	}
	c.logger.Warn("using fallback risk-free rate",
		zap.Float64("rate", FallbackRiskFreeRate))
	return FallbackRiskFreeRate, false
}
