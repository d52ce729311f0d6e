package publisher

import (
	"context"
	"log/slog"
	"time"

	r "github.com/gauravniet133/insta-canteen-connect/orders-service/internal/repository"
	"github.com/gauravniet133/insta-canteen-connect/pkg/events"
	"github.com/segmentio/kafka-go"
)

const (
	batchSize       = 100
	processedMaxAge = 24 * time.Hour
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller relays committed outbox rows to Kafka. Delivery is at least
// once: a row is marked only after the broker accepted it.
type OutboxPoller struct {
	timeout     time.Duration
	eventTick   time.Duration
	cleanupTick time.Duration
	repo        r.OutboxRepository
	writer      messageWriter
	log         *slog.Logger
}

func NewOutboxPoller(repo r.OutboxRepository, log *slog.Logger, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  events.TopicOrderEvents,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{
		timeout:     time.Second * 5,
		eventTick:   time.Second,
		cleanupTick: time.Hour,
		repo:        repo,
		writer:      w,
		log:         log,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	cleanupTicker := time.NewTicker(p.cleanupTick)
	defer eventTicker.Stop()
	defer cleanupTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-cleanupTicker.C:
			p.purgeProcessedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	pending, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range pending {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.log.ErrorContext(ctx, "failed to publish outbox event", "event_id", event.ID, "error", err)
			// keep order per aggregate: later rows wait for the next tick
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.ErrorContext(ctx, "failed to mark outbox event as processed", "event_id", event.ID, "error", err)
			continue
		}
	}
}

func (p *OutboxPoller) purgeProcessedEvents(ctx context.Context) {
	n, err := p.repo.DeleteProcessedBefore(ctx, time.Now().Add(-processedMaxAge))
	if err != nil {
		p.log.ErrorContext(ctx, "failed to purge processed outbox events", "error", err)
		return
	}
	if n > 0 {
		p.log.InfoContext(ctx, "purged processed outbox events", "count", n)
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateId), // order id, keeps one order's events on one partition
		Value: event.Payload,             // already JSON from database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
