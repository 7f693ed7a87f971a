package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/couchcryptid/airquality-dashboard/internal/observability"
	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	ds    *domain.Dataset
	err   error
	mu    sync.Mutex
	calls int
}

func (m *mockSource) Load(_ context.Context) (*domain.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.ds, nil
}

type mockPublisher struct {
	err       error
	published []pipeline.Rendered
}

func (m *mockPublisher) Publish(_ context.Context, r pipeline.Rendered) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, r)
	return nil
}

func ptr(v float64) *float64 { return &v }

func record(station string, year, month, day, hour int, pm25 *float64) domain.Record {
	return domain.Record{
		Station:   station,
		Year:      year,
		Month:     month,
		Day:       day,
		Hour:      hour,
		Timestamp: time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC),
		PM25:      pm25,
	}
}

func fixture() *domain.Dataset {
	ds := domain.Enrich(domain.Dataset{Records: []domain.Record{
		record("Dongsi", 2014, 1, 6, 8, ptr(10)),
		record("Dongsi", 2014, 1, 11, 9, ptr(20)),
		record("Dongsi", 2015, 7, 1, 10, ptr(30)),
		record("Tiantan", 2016, 7, 2, 8, nil),
		record("Tiantan", 2017, 2, 1, 8, ptr(250)),
	}})
	return &ds
}

func newDashboard(src pipeline.DatasetSource, pub pipeline.ViewPublisher) (*pipeline.Dashboard, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return pipeline.New(src, pub, domain.DefaultConstants(), slog.Default(), metrics), metrics
}

func selection(stations ...string) domain.Selection {
	return domain.Selection{Pollutant: domain.PM25, YearLow: 2013, YearHigh: 2017, Stations: stations}
}

// --- tests ---

func TestDashboard_Render_HappyPath(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))
	pipeline.SetClock(fakeClock)
	t.Cleanup(func() { pipeline.SetClock(nil) })

	pub := &mockPublisher{}
	d, metrics := newDashboard(&mockSource{ds: fixture()}, pub)

	out, err := d.Render(context.Background(), selection("Dongsi"))
	require.NoError(t, err)

	_, err = uuid.Parse(out.ID)
	require.NoError(t, err)
	assert.True(t, fakeClock.Now().Equal(out.RenderedAt))
	assert.Equal(t, 3, out.View.Records)
	assert.Equal(t, 5, out.View.TotalRecords)

	require.Len(t, pub.published, 1)
	assert.Equal(t, out.ID, pub.published[0].ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Renders.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ViewsPublished.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PublishEnabled))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.DatasetRecords))
}

func TestDashboard_Render_DistinctIDs(t *testing.T) {
	d, _ := newDashboard(&mockSource{ds: fixture()}, nil)

	a, err := d.Render(context.Background(), selection("Dongsi"))
	require.NoError(t, err)
	b, err := d.Render(context.Background(), selection("Dongsi"))
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.View.StationAverages, b.View.StationAverages, "same inputs render the same view")
}

func TestDashboard_Render_InvalidSelection(t *testing.T) {
	d, metrics := newDashboard(&mockSource{ds: fixture()}, nil)

	sel := selection("Dongsi")
	sel.Pollutant = "PM1"
	_, err := d.Render(context.Background(), sel)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Renders.WithLabelValues("invalid")))
}

func TestDashboard_Render_EmptyViewIsNotAnError(t *testing.T) {
	d, _ := newDashboard(&mockSource{ds: fixture()}, nil)

	sel := selection("Dongsi")
	sel.YearLow, sel.YearHigh = 2017, 2013
	out, err := d.Render(context.Background(), sel)

	require.NoError(t, err)
	assert.True(t, out.View.Empty())
	assert.Empty(t, out.View.MapMarkers)
	assert.Nil(t, out.View.PeakHour)
}

func TestDashboard_Render_LoadError(t *testing.T) {
	loadErr := errors.New("disk gone")
	d, metrics := newDashboard(&mockSource{err: loadErr}, nil)

	_, err := d.Render(context.Background(), selection("Dongsi"))
	require.Error(t, err)
	assert.ErrorIs(t, err, loadErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Renders.WithLabelValues("error")))
	assert.Error(t, d.CheckReadiness(context.Background()))
}

func TestDashboard_Render_PublishFailureDoesNotFail(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	d, metrics := newDashboard(&mockSource{ds: fixture()}, pub)

	_, err := d.Render(context.Background(), selection("Dongsi"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ViewsPublished.WithLabelValues("error")))
}

func TestDashboard_Readiness(t *testing.T) {
	d, _ := newDashboard(&mockSource{ds: fixture()}, nil)

	require.Error(t, d.CheckReadiness(context.Background()))
	require.NoError(t, d.Warm(context.Background()))
	assert.NoError(t, d.CheckReadiness(context.Background()))
}

func TestDashboard_Run_StopsOnCancel(t *testing.T) {
	src := &mockSource{err: errors.New("missing")}
	d, _ := newDashboard(src, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, d.Run(ctx))
	assert.GreaterOrEqual(t, src.calls, 2, "warm-up is retried")
	assert.Error(t, d.CheckReadiness(context.Background()))
}

func TestDashboard_Run_ReturnsOnceWarm(t *testing.T) {
	d, _ := newDashboard(&mockSource{ds: fixture()}, nil)

	require.NoError(t, d.Run(context.Background()))
	assert.NoError(t, d.CheckReadiness(context.Background()))
}

func TestDashboard_DefaultSelection(t *testing.T) {
	d, _ := newDashboard(&mockSource{ds: fixture()}, nil)

	sel, err := d.DefaultSelection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PM25, sel.Pollutant)
	assert.Equal(t, 2013, sel.YearLow)
	assert.Equal(t, 2017, sel.YearHigh)
	assert.Equal(t, []string{"Dongsi", "Tiantan"}, sel.Stations)
}
