package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/pkg/events"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// InstanceGroupID names a consumer group owned by this process alone. Every
// storefront replica holds its own sockets and must see every order event,
// so replicas never share a group.
func InstanceGroupID(prefix string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return prefix + "-" + host
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type publisher interface {
	Publish(e events.OrderEvent) int
}

// Consumer feeds the order change stream from Kafka into the hub.
type Consumer struct {
	hub     publisher
	reader  messageReader
	backoff time.Duration
	log     *slog.Logger
}

// NewConsumer reads the order topic as groupID, which should come from
// InstanceGroupID or be otherwise unique per replica.
func NewConsumer(hub *Hub, log *slog.Logger, groupID string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       events.TopicOrderEvents,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset, // only live changes matter to open sockets
		MaxBytes:    10e6,             // 10MB
	})
	return &Consumer{hub: hub, reader: reader, backoff: time.Second, log: log}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		c.log.Error("error reading order event", "error", err)
		select {
		case <-time.After(c.backoff):
		case <-ctx.Done():
		}
		return
	}

	var event events.OrderEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.log.Warn("error parsing order event", "offset", m.Offset, "error", err)
		return
	}
	if event.OrderID == "" {
		c.log.Warn("order event without order id", "offset", m.Offset)
		return
	}

	n := c.hub.Publish(event)
	c.log.Debug("order event fanned out", "order_id", event.OrderID, "type", event.Type, "subscribers", n)
}
