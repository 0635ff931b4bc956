package mapview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/couchcryptid/climate-map/internal/geo"
	"github.com/couchcryptid/climate-map/internal/observability"
)

// ErrUnknownTarget is returned when a hover target is not on the map.
var ErrUnknownTarget = errors.New("hover target not on map")

// DataSource provides the climate payloads the map is built from.
type DataSource interface {
	CountryMetadata(ctx context.Context) (json.RawMessage, error)
	MetricSeries(ctx context.Context, metric string) (json.RawMessage, error)
}

// TopologySource provides the world geometry.
type TopologySource interface {
	WorldTopology(ctx context.Context) ([]geo.Feature, error)
}

// Options configures a Controller.
type Options struct {
	Width             int
	Height            int
	DefaultMetric     string
	DefaultYear       int
	ResolverCacheSize int
}

// Controller owns the map state. All methods are safe for concurrent use.
type Controller struct {
	data    DataSource
	topo    TopologySource
	surface Surface
	metrics *observability.Metrics
	logger  *slog.Logger
	opts    Options

	// token is bumped by every fetch that replaces map data.
	token atomic.Uint64
	// reloads counts Load calls in flight; metric switches wait for them.
	reloads int

	mu         sync.Mutex
	state      MapState
	meta       *domain.MetadataStore
	series     *domain.MetricSeriesStore
	resolver   geo.CountryResolver
	shapes     []shape
	projection geo.Mercator
	frame      Frame
	seq        uint64

	drawMu    sync.Mutex
	drawnSeq  uint64
	topoMu    sync.Mutex
	topoReady bool
}

// NewController creates a controller in the Uninitialized phase. The
// default metric must exist in the catalog.
func NewController(data DataSource, topo TopologySource, surface Surface, opts Options, metrics *observability.Metrics, logger *slog.Logger) (*Controller, error) {
	metric, err := domain.LookupMetric(opts.DefaultMetric)
	if err != nil {
		return nil, err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid map size %dx%d", opts.Width, opts.Height)
	}

	c := &Controller{
		data:       data,
		topo:       topo,
		surface:    surface,
		metrics:    metrics,
		logger:     logger,
		opts:       opts,
		projection: geo.NewMercator(float64(opts.Width), float64(opts.Height)),
		state: MapState{
			Phase:     Uninitialized,
			Metric:    metric,
			Year:      opts.DefaultYear,
			Transform: Identity(),
		},
	}
	metrics.MapPhase.Set(float64(Uninitialized))
	return c, nil
}

// Load runs the initialization sequence: metadata, then the current metric's
// series, then topology and the first draw. A failed step logs the error and
// leaves the phase where it was; there is no automatic retry.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.reloads++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.reloads--
		c.mu.Unlock()
	}()

	tok := c.token.Add(1)

	raw, err := c.data.CountryMetadata(ctx)
	if err != nil {
		c.logger.Error("country metadata unavailable", "error", err)
		return fmt.Errorf("load metadata: %w", err)
	}
	meta, skipped, err := domain.ParseMetadata(raw)
	if err != nil {
		c.logger.Error("country metadata invalid", "error", err)
		return fmt.Errorf("load metadata: %w", err)
	}
	if skipped > 0 {
		c.logger.Warn("skipped malformed country records", "skipped", skipped)
	}

	c.mu.Lock()
	if !c.isLatest(tok) {
		c.mu.Unlock()
		return c.stale("load")
	}
	c.meta = meta
	c.series = nil
	c.resolver = geo.NewCachedResolver(geo.NewResolver(meta, c.logger), c.opts.ResolverCacheSize, c.metrics)
	c.setPhase(MetadataLoaded)
	metric := c.state.Metric
	c.mu.Unlock()

	c.logger.Info("country metadata loaded", "countries", meta.Len())

	return c.loadSeries(ctx, tok, meta, metric, TriggerLoad)
}

// SetMetric switches the map to another metric, refetching its series. The
// current year is kept when the new series has it, else the newest year is
// selected. It is refused while a metadata load is in flight.
func (c *Controller) SetMetric(ctx context.Context, key string) error {
	metric, err := domain.LookupMetric(key)
	if err != nil {
		return err
	}

	c.mu.Lock()
	meta := c.meta
	loading := c.reloads > 0
	c.mu.Unlock()
	if meta == nil || loading {
		return domain.ErrNotReady
	}

	tok := c.token.Add(1)
	return c.loadSeries(ctx, tok, meta, metric, TriggerMetric)
}

// loadSeries fetches and commits a metric series built against meta, then
// draws once topology is available.
func (c *Controller) loadSeries(ctx context.Context, tok uint64, meta *domain.MetadataStore, metric domain.Metric, trigger string) error {
	raw, err := c.data.MetricSeries(ctx, metric.Key)
	if err != nil {
		c.logger.Error("metric series unavailable", "metric", metric.Key, "error", err)
		return fmt.Errorf("load %s series: %w", metric.Key, err)
	}
	series, report, err := domain.ParseMetricSeries(metric, raw, meta)
	if err != nil {
		c.logger.Error("metric series invalid", "metric", metric.Key, "error", err)
		return fmt.Errorf("load %s series: %w", metric.Key, err)
	}
	c.logger.Info("metric series loaded",
		"metric", metric.Key,
		"countries", report.Countries,
		"values", report.Values,
		"unknown_countries", report.UnknownCountries,
		"skipped_values", report.SkippedValues,
	)

	topoErr := c.ensureTopology(ctx)

	c.mu.Lock()
	// A metadata reload also invalidates series built against the old snapshot.
	if !c.isLatest(tok) || c.meta != meta {
		c.mu.Unlock()
		return c.stale(trigger)
	}
	c.series = series
	c.state.Metric = metric
	c.state.Years = append([]int(nil), series.Years()...)
	if len(c.state.Years) == 0 {
		c.state.Years = []int{c.opts.DefaultYear}
	}
	current := c.state.Year
	if trigger == TriggerLoad {
		current = c.opts.DefaultYear
	}
	c.state.Year = selectYear(c.state.Years, current, c.opts.DefaultYear)
	c.setPhase(EmissionsLoaded)
	if topoErr != nil {
		c.mu.Unlock()
		return topoErr
	}
	return c.redrawLocked(ctx, trigger)
}

// ensureTopology fetches and projects the world geometry once.
func (c *Controller) ensureTopology(ctx context.Context) error {
	c.topoMu.Lock()
	defer c.topoMu.Unlock()
	if c.topoReady {
		return nil
	}

	features, err := c.topo.WorldTopology(ctx)
	if err != nil {
		c.logger.Error("world topology unavailable", "error", err)
		return fmt.Errorf("load topology: %w", err)
	}

	shapes := make([]shape, 0, len(features))
	for _, f := range features {
		rings := c.projection.Rings(f.Geometry)
		shapes = append(shapes, shape{feature: f, rings: rings, path: geo.PathData(rings)})
	}

	c.mu.Lock()
	c.shapes = shapes
	c.state.Features = len(shapes)
	c.mu.Unlock()
	c.topoReady = true
	return nil
}

// SetYear selects another year from the available years and redraws.
func (c *Controller) SetYear(ctx context.Context, year int) error {
	c.mu.Lock()
	if c.state.Phase != MapDrawn {
		c.mu.Unlock()
		return domain.ErrNotReady
	}
	if !containsYear(c.state.Years, year) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", domain.ErrUnknownYear, year)
	}
	c.state.Year = year
	return c.redrawLocked(ctx, TriggerYear)
}

// OnZoom applies a pan/zoom transform, clamped to the zoom extent, and
// resizes markers for it.
func (c *Controller) OnZoom(ctx context.Context, t ZoomTransform) error {
	c.mu.Lock()
	if c.state.Phase != MapDrawn {
		c.mu.Unlock()
		return domain.ErrNotReady
	}
	c.state.Transform = t.Clamp()
	return c.redrawLocked(ctx, TriggerZoom)
}

// Hover highlights a polygon or marker and returns its tooltip.
func (c *Controller) Hover(ctx context.Context, t Target) (Tooltip, error) {
	c.mu.Lock()
	if c.state.Phase != MapDrawn {
		c.mu.Unlock()
		return Tooltip{}, domain.ErrNotReady
	}
	tip := hoverTooltip(c.frame, c.meta, t)
	if tip == nil {
		c.mu.Unlock()
		return Tooltip{}, fmt.Errorf("%w: %+v", ErrUnknownTarget, t)
	}
	c.state.Hover = &t
	if err := c.redrawLocked(ctx, TriggerHover); err != nil {
		return Tooltip{}, err
	}
	return *tip, nil
}

// Leave clears the hover highlight and tooltip.
func (c *Controller) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Phase != MapDrawn {
		c.mu.Unlock()
		return domain.ErrNotReady
	}
	if c.state.Hover == nil {
		c.mu.Unlock()
		return nil
	}
	c.state.Hover = nil
	return c.redrawLocked(ctx, TriggerLeave)
}

// State returns a copy of the current state.
func (c *Controller) State() MapState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Years returns the selectable years, newest first.
func (c *Controller) Years() []int {
	return c.State().Years
}

// Frame returns the latest frame.
func (c *Controller) Frame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != MapDrawn {
		return Frame{}, domain.ErrNotReady
	}
	return c.frame, nil
}

// CheckReadiness reports ready once the map has been drawn.
func (c *Controller) CheckReadiness(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Phase != MapDrawn {
		return fmt.Errorf("%w: phase %s", domain.ErrNotReady, c.state.Phase)
	}
	return nil
}

// redrawLocked rebuilds the frame from the current state and draws it. It
// must be called with c.mu held and releases it before drawing.
func (c *Controller) redrawLocked(ctx context.Context, trigger string) error {
	c.seq++
	f := buildFrame(frameInput{
		width:      float64(c.opts.Width),
		height:     float64(c.opts.Height),
		metric:     c.state.Metric,
		year:       c.state.Year,
		transform:  c.state.Transform,
		meta:       c.meta,
		series:     c.series,
		shapes:     c.shapes,
		resolver:   c.resolver,
		projection: c.projection,
		hover:      c.state.Hover,
	})
	// The hovered marker or polygon may be gone after a year or metric change.
	if c.state.Hover != nil && f.Tooltip == nil {
		c.state.Hover = nil
	}
	f.Seq = c.seq
	f.Trigger = trigger
	f.RenderedAt = domain.Now()

	c.frame = f
	c.state.Range = f.Range
	c.state.Countries = len(f.Markers)
	c.state.Unresolved = f.Unresolved
	c.setPhase(MapDrawn)
	c.mu.Unlock()

	c.metrics.Redraws.WithLabelValues(trigger).Inc()
	c.metrics.UnresolvedFeatures.Set(float64(f.Unresolved))
	c.draw(ctx, f)
	return nil
}

// draw hands a frame to the surface unless a newer one was already drawn.
// Surface failures are logged; the map state is already committed.
func (c *Controller) draw(ctx context.Context, f Frame) {
	if c.surface == nil {
		return
	}
	c.drawMu.Lock()
	defer c.drawMu.Unlock()
	if f.Seq <= c.drawnSeq {
		return
	}
	c.drawnSeq = f.Seq
	if err := c.surface.Draw(ctx, f); err != nil {
		c.logger.Error("surface draw failed", "trigger", f.Trigger, "seq", f.Seq, "error", err)
	}
}

func (c *Controller) isLatest(tok uint64) bool {
	return c.token.Load() == tok
}

func (c *Controller) stale(op string) error {
	c.metrics.StaleResponses.WithLabelValues(op).Inc()
	c.logger.Debug("discarding stale response", "operation", op)
	return domain.ErrStaleResponse
}

func (c *Controller) setPhase(p Phase) {
	c.state.Phase = p
	c.metrics.MapPhase.Set(float64(p))
}
