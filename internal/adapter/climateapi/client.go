// Package climateapi fetches climate data and world topology over HTTP.
package climateapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/couchcryptid/climate-map/internal/observability"
)

// maxErrorBody caps how much of a failed response is echoed into errors.
const maxErrorBody = 512

// Client talks to the climate data API. Every call is a single GET with no
// retry; a failure is returned and the caller decides how to degrade.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an API client for baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// GetJSON fetches path relative to the base URL and decodes the body into out.
// endpoint is the low-cardinality label used for metrics and logs.
func (c *Client) GetJSON(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.fetch(ctx, endpoint, u, out)
}

func (c *Client) fetch(ctx context.Context, endpoint, fullURL string, out any) error {
	start := time.Now()
	err := c.doRequest(ctx, fullURL, out)
	c.metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(endpoint, "error").Inc()
		c.logger.Warn("climate api request failed", "endpoint", endpoint, "error", err)
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	c.metrics.FetchRequests.WithLabelValues(endpoint, "success").Inc()
	return nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api error: status %d", e.Code)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// CountryMetadata returns the raw /api/countries_data payload.
func (c *Client) CountryMetadata(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.GetJSON(ctx, "countries_data", "/api/countries_data", nil, &raw); err != nil {
		return nil, err
	}
	return nullAsNoData(raw)
}

// MetricSeries returns the raw per-country, per-year payload for a metric.
func (c *Client) MetricSeries(ctx context.Context, metric string) (json.RawMessage, error) {
	var raw json.RawMessage
	q := url.Values{"metric": {metric}}
	if err := c.GetJSON(ctx, "wb_metric", "/api/wb/metric", q, &raw); err != nil {
		return nil, err
	}
	return nullAsNoData(raw)
}

// CountrySeries returns one country's yearly values for a metric. APIs
// without /api/wb/country answer 404; the series is then cut out of the
// full metric payload.
func (c *Client) CountrySeries(ctx context.Context, country, metric string) (domain.GlobalSeries, error) {
	var s domain.GlobalSeries
	q := url.Values{"country": {country}, "metric": {metric}}
	err := c.GetJSON(ctx, "wb_country", "/api/wb/country", q, &s)
	if IsNotFound(err) {
		return c.countrySeriesFromMetric(ctx, country, metric)
	}
	if err != nil {
		return domain.GlobalSeries{}, err
	}
	if err := s.Validate(); err != nil {
		return domain.GlobalSeries{}, fmt.Errorf("wb_country %s: %w", country, err)
	}
	return s, nil
}

func (c *Client) countrySeriesFromMetric(ctx context.Context, country, metric string) (domain.GlobalSeries, error) {
	raw, err := c.MetricSeries(ctx, metric)
	if err != nil {
		return domain.GlobalSeries{}, err
	}
	years, values, err := domain.CountrySeries(raw, country)
	if err != nil {
		return domain.GlobalSeries{}, err
	}
	s := domain.GlobalSeries{Years: make([]float64, len(years)), Values: values}
	for i, y := range years {
		s.Years[i] = float64(y)
	}
	return s, nil
}

// GlobalSeries returns a NASA global indicator such as "global-temperature".
func (c *Client) GlobalSeries(ctx context.Context, name string) (domain.GlobalSeries, error) {
	var s domain.GlobalSeries
	if err := c.GetJSON(ctx, "nasa", "/api/nasa/"+url.PathEscape(name), nil, &s); err != nil {
		return domain.GlobalSeries{}, err
	}
	if err := s.Validate(); err != nil {
		return domain.GlobalSeries{}, fmt.Errorf("nasa %s: %w", name, err)
	}
	return s, nil
}

// TopCountries returns up to limit records for a metric in API order.
func (c *Client) TopCountries(ctx context.Context, metric string, limit int) ([]domain.CountryValue, error) {
	var out []domain.CountryValue
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.GetJSON(ctx, "top", "/api/top/"+url.PathEscape(metric), q, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("top %s: %w", metric, domain.ErrNoData)
	}
	return out, nil
}

// Prediction returns the raw prediction payload for the next years years.
func (c *Client) Prediction(ctx context.Context, years int) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.GetJSON(ctx, "predict", "/api/predict/"+strconv.Itoa(years), nil, &raw); err != nil {
		return nil, err
	}
	return nullAsNoData(raw)
}

// Countries returns the country names the API knows about.
func (c *Client) Countries(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.GetJSON(ctx, "countries", "/api/countries", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MetricInfo is one entry of the /api/metrics catalog.
type MetricInfo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// MetricCatalog is the /api/metrics response.
type MetricCatalog struct {
	Metrics []MetricInfo `json:"metrics"`
	Default string       `json:"default"`
}

// Metrics returns the metric catalog advertised by the API.
func (c *Client) Metrics(ctx context.Context) (MetricCatalog, error) {
	var out MetricCatalog
	if err := c.GetJSON(ctx, "metrics", "/api/metrics", nil, &out); err != nil {
		return MetricCatalog{}, err
	}
	return out, nil
}

func nullAsNoData(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, domain.ErrNoData
	}
	return raw, nil
}
