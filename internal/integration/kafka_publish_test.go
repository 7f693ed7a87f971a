//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/airquality-dashboard/internal/config"
	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/couchcryptid/airquality-dashboard/internal/observability"
	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testViewTopic = "test-views"

// TestPublishRenderedViews renders two selections through the dashboard with
// a real Kafka publisher and reads the views back from the topic.
func TestPublishRenderedViews(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testViewTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaViewTopic: testViewTopic,
		KafkaEnabled:   true,
	}
	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	metrics := observability.NewMetricsForTesting()
	d := pipeline.New(staticSource{ds: fixtureDataset()}, publisher, domain.DefaultConstants(), discardLogger(), metrics)

	first, err := d.Render(ctx, domain.Selection{
		Pollutant: domain.PM25, YearLow: 2013, YearHigh: 2017, Stations: []string{"Dongsi", "Tiantan"},
	})
	require.NoError(t, err)
	second, err := d.Render(ctx, domain.Selection{
		Pollutant: domain.PM25, YearLow: 2014, YearHigh: 2014, Stations: []string{"Dongsi"}, WeatherFactor: domain.TEMP,
	})
	require.NoError(t, err)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.ViewsPublished.WithLabelValues("success")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.ViewsPublished.WithLabelValues("error")), 0)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testViewTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	t.Cleanup(func() { _ = reader.Close() })

	for _, want := range []pipeline.Rendered{first, second} {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read view from topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, want.ID, string(msg.Key))
		assert.Equal(t, "PM2.5", headers["pollutant"])
		_, err = time.Parse(time.RFC3339, headers["rendered_at"])
		assert.NoError(t, err, "rendered_at should be valid RFC3339")

		var got pipeline.Rendered
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.View.Records, got.View.Records)
		assert.Equal(t, want.View.Selection, got.View.Selection)
		assert.Equal(t, want.View.StationAverages, got.View.StationAverages)
		assert.Empty(t, got.View.Trend, "trend series are not published")
	}
}

// TestPublishFailureDoesNotFailRender points the publisher at a closed port.
// The write gives up when ctx expires and the render still succeeds.
func TestPublishFailureDoesNotFailRender(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := &config.Config{
		KafkaBrokers:   []string{"127.0.0.1:1"},
		KafkaViewTopic: testViewTopic,
		KafkaEnabled:   true,
	}
	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	metrics := observability.NewMetricsForTesting()
	d := pipeline.New(staticSource{ds: fixtureDataset()}, publisher, domain.DefaultConstants(), discardLogger(), metrics)

	out, err := d.Render(ctx, domain.Selection{
		Pollutant: domain.PM25, YearLow: 2013, YearHigh: 2017, Stations: []string{"Dongsi"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.View.Records)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ViewsPublished.WithLabelValues("error")), 0)
}
