//go:build integration

package integration_test

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const kafkaImage = "confluentinc/confluent-local:7.5.0"

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, kafkaImage, tckafka.WithClusterID("airquality-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type staticSource struct {
	ds domain.Dataset
}

func (s staticSource) Load(context.Context) (*domain.Dataset, error) {
	return &s.ds, nil
}

func ptr(v float64) *float64 { return &v }

// fixtureDataset is two stations over two years, already enriched.
func fixtureDataset() domain.Dataset {
	rec := func(station string, year, month, day, hour int, pm25 float64) domain.Record {
		return domain.Record{
			Station:   station,
			Year:      year,
			Month:     month,
			Day:       day,
			Hour:      hour,
			Timestamp: time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC),
			PM25:      ptr(pm25),
			TEMP:      ptr(float64(month)),
		}
	}
	return domain.Enrich(domain.Dataset{Records: []domain.Record{
		rec("Dongsi", 2014, 1, 6, 8, 120),
		rec("Dongsi", 2014, 1, 6, 9, 80),
		rec("Tiantan", 2015, 4, 1, 12, 40),
	}})
}
