package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/couchcryptid/airquality-dashboard/internal/observability"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
)

// DatasetSource returns the enriched dataset. Implementations may cache.
type DatasetSource interface {
	Load(ctx context.Context) (*domain.Dataset, error)
}

// ViewPublisher forwards rendered views to a downstream consumer.
type ViewPublisher interface {
	Publish(ctx context.Context, r Rendered) error
}

// Rendered is the output of one render pass, stamped for consumers that
// receive it out of band.
type Rendered struct {
	ID         string           `json:"id"`
	RenderedAt time.Time        `json:"rendered_at"`
	View       domain.ViewModel `json:"view"`
}

// Dashboard orchestrates load, render, and publish for each selection.
type Dashboard struct {
	source    DatasetSource
	publisher ViewPublisher
	constants domain.Constants
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Dashboard. Pass a nil publisher to disable view publishing.
func New(source DatasetSource, publisher ViewPublisher, constants domain.Constants, logger *slog.Logger, metrics *observability.Metrics) *Dashboard {
	d := &Dashboard{
		source:    source,
		publisher: publisher,
		constants: constants,
		logger:    logger,
		metrics:   metrics,
	}
	if publisher != nil {
		metrics.PublishEnabled.Set(1)
	}
	return d
}

// Constants returns the domain constants this dashboard renders against.
func (d *Dashboard) Constants() domain.Constants { return d.constants }

// CheckReadiness returns nil once a dataset has been loaded successfully.
func (d *Dashboard) CheckReadiness(_ context.Context) error {
	if !d.ready.Load() {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Warm loads the dataset once so the first render does not pay for parsing.
func (d *Dashboard) Warm(ctx context.Context) error {
	_, err := d.load(ctx)
	return err
}

// Run warms the dataset, retrying with exponential backoff until it loads or
// the context is cancelled.
func (d *Dashboard) Run(ctx context.Context) error {
	// Start at 200ms, double each retry, cap at 30s. Input files may appear
	// after the service starts.
	backoff := 200 * time.Millisecond
	maxBackoff := 30 * time.Second

	for {
		err := d.Warm(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		d.logger.Error("dataset warm-up failed", "error", err, "retry_in", backoff)
		if !sharedretry.SleepWithContext(ctx, backoff) {
			return nil
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
}

// Stations returns the station labels of the loaded dataset in first-seen order.
func (d *Dashboard) Stations(ctx context.Context) ([]string, error) {
	ds, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Stations(), nil
}

// DefaultSelection is PM2.5 over the configured year bounds and every station
// of the loaded dataset.
func (d *Dashboard) DefaultSelection(ctx context.Context) (domain.Selection, error) {
	stations, err := d.Stations(ctx)
	if err != nil {
		return domain.Selection{}, err
	}
	return domain.Selection{
		Pollutant: domain.PM25,
		YearLow:   d.constants.YearMin,
		YearHigh:  d.constants.YearMax,
		Stations:  stations,
	}, nil
}

// Render loads the dataset, computes the view for sel, and publishes the
// result when a publisher is configured. Publish failures are logged and
// counted but never fail the render.
func (d *Dashboard) Render(ctx context.Context, sel domain.Selection) (Rendered, error) {
	ds, err := d.load(ctx)
	if err != nil {
		d.metrics.Renders.WithLabelValues("error").Inc()
		return Rendered{}, err
	}

	start := time.Now()
	vm, err := domain.Render(*ds, sel, d.constants)
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrInvalidSelection) {
			outcome = "invalid"
		}
		d.metrics.Renders.WithLabelValues(outcome).Inc()
		return Rendered{}, err
	}
	d.metrics.RenderDuration.Observe(time.Since(start).Seconds())
	d.metrics.FilteredRecords.Observe(float64(vm.Records))
	d.metrics.Renders.WithLabelValues("success").Inc()

	out := Rendered{
		ID:         uuid.NewString(),
		RenderedAt: clock.Now().UTC(),
		View:       vm,
	}
	d.logger.Debug("view rendered",
		"id", out.ID,
		"pollutant", sel.Pollutant,
		"year_low", sel.YearLow,
		"year_high", sel.YearHigh,
		"stations", len(sel.Stations),
		"records", vm.Records,
	)

	d.publish(ctx, out)
	return out, nil
}

func (d *Dashboard) publish(ctx context.Context, r Rendered) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, r); err != nil {
		d.logger.Warn("publish view failed", "error", err, "id", r.ID)
		d.metrics.ViewsPublished.WithLabelValues("error").Inc()
		return
	}
	d.metrics.ViewsPublished.WithLabelValues("success").Inc()
}

func (d *Dashboard) load(ctx context.Context) (*domain.Dataset, error) {
	start := time.Now()
	ds, err := d.source.Load(ctx)
	if err != nil {
		d.metrics.DatasetLoads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	d.metrics.DatasetLoads.WithLabelValues("success").Inc()
	d.metrics.DatasetLoadDuration.Observe(time.Since(start).Seconds())
	d.metrics.DatasetRecords.Set(float64(ds.Len()))
	d.ready.Store(true)
	return ds, nil
}
