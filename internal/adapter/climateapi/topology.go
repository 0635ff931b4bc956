package climateapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/climate-map/internal/geo"
	"github.com/couchcryptid/climate-map/internal/observability"
)

// maxTopologyBytes bounds the topology download.
const maxTopologyBytes = 64 << 20

// TopologyClient loads the world geometry from a local file or a URL.
type TopologyClient struct {
	url        string
	file       string
	object     string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewTopologyClient creates a topology source. A non-empty file takes
// precedence over the URL.
func NewTopologyClient(url, file, object string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *TopologyClient {
	return &TopologyClient{
		url:        url,
		file:       file,
		object:     object,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// WorldTopology returns the country features of the world map.
func (c *TopologyClient) WorldTopology(ctx context.Context) ([]geo.Feature, error) {
	data, err := c.read(ctx)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("topology", "error").Inc()
		return nil, fmt.Errorf("topology: %w", err)
	}

	features, err := geo.DecodeFeatures(data, c.object)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("topology", "error").Inc()
		return nil, err
	}
	c.metrics.FetchRequests.WithLabelValues("topology", "success").Inc()
	c.logger.Info("world topology loaded", "features", len(features))
	return features, nil
}

func (c *TopologyClient) read(ctx context.Context) ([]byte, error) {
	if c.file != "" {
		return os.ReadFile(c.file)
	}

	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.WithLabelValues("topology").Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxTopologyBytes))
}
