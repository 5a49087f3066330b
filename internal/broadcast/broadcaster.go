// Package broadcast publishes touch updates to Kafka so downstream
// consumers (tickers, strategy processes) can follow the inside of the
// book without replaying the full L3 stream.
package broadcast

import (
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"depthd/internal/feed"
	"depthd/internal/infra/metrics"
)

type Broadcaster struct {
	producer sarama.SyncProducer
	topic    string
	logger   zerolog.Logger
}

func New(brokers []string, topic string, logger zerolog.Logger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("component", "broadcast").Logger(),
	}, nil
}

// Publish sends one touch update, keyed by instrument so each
// instrument's updates stay ordered within a partition. Failures are
// counted and logged but never propagate back into the apply path; a
// slow broker must not desync the book.
func (b *Broadcaster) Publish(u feed.TouchUpdate) {
	payload, err := json.Marshal(u)
	if err != nil {
		metrics.BroadcastErrorsTotal.Inc()
		b.logger.Error().Err(err).Msg("encode touch update")
		return
	}
	_, _, err = b.producer.SendMessage(&sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(u.Instrument),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		metrics.BroadcastErrorsTotal.Inc()
		b.logger.Warn().Err(err).Uint64("seq", u.Sequence).Msg("publish touch update")
		return
	}
	metrics.BroadcastPublishedTotal.Inc()
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
