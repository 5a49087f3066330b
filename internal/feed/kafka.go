package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"depthd/internal/infra/metrics"
)

// KafkaSource consumes the L3 event topic and feeds the applier. One
// source per instrument; partition ordering is the feed ordering the
// engine depends on, so the topic must be keyed by instrument.
type KafkaSource struct {
	reader  *kafka.Reader
	applier *Applier
	logger  zerolog.Logger
}

func NewKafkaSource(brokers []string, topic, group string, ap *Applier, logger zerolog.Logger) *KafkaSource {
	return &KafkaSource{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  group,
			MinBytes: 1,
			MaxBytes: 10 << 20,
			MaxWait:  250 * time.Millisecond,
		}),
		applier: ap,
		logger:  logger.With().Str("component", "kafka_source").Logger(),
	}
}

// Run consumes until the context is cancelled. Apply errors are already
// policy-handled by the applier, so they are logged and consumption
// continues; only transport failures end the loop.
func (s *KafkaSource) Run(ctx context.Context) error {
	for {
		raw, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var m Message
		if err := json.Unmarshal(raw.Value, &m); err != nil {
			metrics.FeedRejectedTotal.WithLabelValues("decode").Inc()
			s.logger.Warn().Err(err).Int64("offset", raw.Offset).Msg("undecodable feed message")
			continue
		}
		if err := s.applier.Apply(m); err != nil {
			s.logger.Debug().Err(err).Uint64("seq", m.Sequence).Str("type", m.Type).Msg("event not applied")
		}
	}
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
