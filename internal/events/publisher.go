// Package events publishes committed vote mutations to Kafka so downstream
// consumers (analytics, notifications) can follow the ledger.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Majkoo/PicturesApi/internal/config"
	"github.com/Majkoo/PicturesApi/internal/metrics"
	"github.com/Majkoo/PicturesApi/internal/model"
)

// Publisher hands vote events to a broker.
type Publisher interface {
	PublishVote(ctx context.Context, ev model.VoteEvent) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
	writeTimeout            = 2 * time.Second
)

// KafkaPublisher writes JSON vote events keyed by picture id, so all events for
// one picture land on one partition in commit order.
type KafkaPublisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// New returns a queued Kafka publisher, or a no-op publisher when no brokers
// are set.
func New(cfg config.KafkaConfig) Publisher {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		log.Info().Msg("kafka: no brokers configured, vote events disabled")
		return NoopPublisher{}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: writeTimeout,
	}
	log.Info().Strs("brokers", brokers).Str("topic", cfg.Topic).Msg("kafka: vote events enabled")
	return NewAsyncPublisher(newKafkaPublisher(w), defaultQueueSize)
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	settings := gobreaker.Settings{
		Name:        "kafka-vote-events",
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}
	return &KafkaPublisher{writer: w, breaker: gobreaker.NewCircuitBreaker[struct{}](settings)}
}

// PublishVote encodes and writes one event. While the breaker is open the
// event is dropped and gobreaker.ErrOpenState is returned.
func (p *KafkaPublisher) PublishVote(ctx context.Context, ev model.VoteEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode vote event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.PictureID.String()),
		Value: payload,
		Time:  ev.OccurredAt,
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	switch {
	case err == nil:
		metrics.EventsPublished.WithLabelValues("ok").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.EventsPublished.WithLabelValues("dropped").Inc()
	default:
		metrics.EventsPublished.WithLabelValues("error").Inc()
	}
	return err
}

// BreakerState reports the circuit breaker state: closed, half-open or open.
func (p *KafkaPublisher) BreakerState() string {
	return p.breaker.State().String()
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) PublishVote(context.Context, model.VoteEvent) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }
