package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/airquality-dashboard/internal/config"
	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces rendered views to a Kafka topic.
// It implements pipeline.ViewPublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured view topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaViewTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		// Views are written one at a time.
		BatchSize:    1,
		BatchBytes:   maxMessageBytes,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes the summary of one rendered view and writes it to the topic.
func (p *Publisher) Publish(ctx context.Context, r pipeline.Rendered) error {
	msg, err := serializeToMessage(r)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish view %s: %w", r.ID, err)
	}
	p.logger.Debug("view published", "id", r.ID, "topic", p.writer.Topic, "bytes", len(msg.Value))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// maxMessageBytes matches the broker's default message.max.bytes.
const maxMessageBytes = 1 << 20

// viewSummary is the published form of a rendered view. The per-record trend
// series grows with the selection, so it stays on the HTTP surface.
type viewSummary struct {
	ID         string      `json:"id"`
	RenderedAt time.Time   `json:"rendered_at"`
	View       summaryBody `json:"view"`
}

type summaryBody struct {
	Selection    domain.Selection `json:"selection"`
	Headline     string           `json:"headline"`
	TotalRecords int              `json:"total_records"`
	Records      int              `json:"records"`

	Histogram []domain.HistogramBin `json:"histogram"`

	StationAverages []domain.StationAverage `json:"station_averages"`
	MapCenter       domain.Coordinate       `json:"map_center"`
	MapMarkers      []domain.MapMarker      `json:"map_markers"`

	HourlyStation string                 `json:"hourly_station,omitempty"`
	Hourly        []domain.HourlyAverage `json:"hourly"`
	PeakHour      *int                   `json:"peak_hour"`

	Yearly       []domain.YearlyAverage `json:"yearly"`
	PolicyEvents []domain.PolicyEvent   `json:"policy_events"`

	Workday     domain.WorkdayComparison    `json:"workday"`
	Correlation *domain.Correlation         `json:"correlation,omitempty"`
	Severity    domain.SeverityDistribution `json:"severity"`
	RFM         []domain.StationRFM         `json:"rfm"`
}

func summarize(r pipeline.Rendered) viewSummary {
	vm := r.View
	return viewSummary{
		ID:         r.ID,
		RenderedAt: r.RenderedAt,
		View: summaryBody{
			Selection:       vm.Selection,
			Headline:        vm.Headline,
			TotalRecords:    vm.TotalRecords,
			Records:         vm.Records,
			Histogram:       vm.Histogram,
			StationAverages: vm.StationAverages,
			MapCenter:       vm.MapCenter,
			MapMarkers:      vm.MapMarkers,
			HourlyStation:   vm.HourlyStation,
			Hourly:          vm.Hourly,
			PeakHour:        vm.PeakHour,
			Yearly:          vm.Yearly,
			PolicyEvents:    vm.PolicyEvents,
			Workday:         vm.Workday,
			Correlation:     vm.Correlation,
			Severity:        vm.Severity,
			RFM:             vm.RFM,
		},
	}
}

// serializeToMessage marshals the summary of a rendered view into a Kafka
// message keyed by its render ID.
func serializeToMessage(r pipeline.Rendered) (kafkago.Message, error) {
	data, err := json.Marshal(summarize(r))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize rendered view: %w", err)
	}
	if len(data) > maxMessageBytes {
		return kafkago.Message{}, fmt.Errorf("serialize rendered view %s: %d bytes exceeds %d", r.ID, len(data), maxMessageBytes)
	}
	return kafkago.Message{
		Key:   []byte(r.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "pollutant", Value: []byte(r.View.Selection.Pollutant)},
			{Key: "rendered_at", Value: []byte(r.RenderedAt.Format(time.RFC3339))},
		},
	}, nil
}
