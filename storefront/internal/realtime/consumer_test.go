package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/pkg/events"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
)

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu       sync.Mutex
	messages []kafkaGo.Message
	errs     []error
	closed   bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return kafkaGo.Message{}, err
	}
	if len(f.messages) > 0 {
		m := f.messages[0]
		f.messages = f.messages[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkaGo.Message{}, ctx.Err()
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func message(t *testing.T, e events.OrderEvent) kafkaGo.Message {
	payload, err := json.Marshal(e)
	require.NoError(t, err)
	return kafkaGo.Message{Key: []byte(e.OrderID), Value: payload}
}

func newTestConsumer(hub *Hub, r messageReader) *Consumer {
	return &Consumer{hub: hub, reader: r, backoff: time.Millisecond, log: testLogger()}
}

func TestInstanceGroupID(t *testing.T) {
	host, err := os.Hostname()
	require.NoError(t, err)

	assert.Equal(t, "storefront-"+host, InstanceGroupID("storefront"))
	assert.NotEqual(t, "storefront", InstanceGroupID("storefront"))
}

func TestConsumer_PublishesToHub(t *testing.T) {
	hub := NewHub(4, testLogger())
	sub := hub.Subscribe(Filter{UserID: "user-1"})
	defer sub.Close()

	r := &fakeReader{messages: []kafkaGo.Message{
		message(t, statusChanged("o1", "user-1", "canteen-A", "confirmed")),
		message(t, statusChanged("o2", "user-2", "canteen-A", "confirmed")),
		message(t, statusChanged("o1", "user-1", "canteen-A", "preparing")),
	}}
	c := newTestConsumer(hub, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	var got []string
	for len(got) < 2 {
		select {
		case e := <-sub.Events():
			got = append(got, e.Status)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []string{"confirmed", "preparing"}, got)
}

func TestConsumer_SkipsBadPayloads(t *testing.T) {
	hub := NewHub(4, testLogger())
	sub := hub.Subscribe(Filter{UserID: "user-1"})
	defer sub.Close()

	r := &fakeReader{
		errs: []error{errors.New("broker gone")},
		messages: []kafkaGo.Message{
			{Value: []byte("not json")},
			message(t, events.OrderEvent{UserID: "user-1"}),
			message(t, statusChanged("o1", "user-1", "canteen-A", "ready")),
		},
	}
	c := newTestConsumer(hub, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	select {
	case e := <-sub.Events():
		assert.Equal(t, "o1", e.OrderID)
	case <-time.After(2 * time.Second):
		t.Fatal("valid event never arrived")
	}
	assert.Len(t, sub.Events(), 0)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	c := newTestConsumer(NewHub(1, testLogger()), &fakeReader{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	require.NoError(t, c.Close())
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestConsumer_ReadsFromKafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()
	createTopic(t, brokerAddr, events.TopicOrderEvents)

	hub := NewHub(4, testLogger())
	sub := hub.Subscribe(Filter{SellerID: "canteen-A"})
	defer sub.Close()

	c := NewConsumer(hub, testLogger(), InstanceGroupID("storefront"), brokerAddr)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	go c.Run(ctx)

	w := &kafkaGo.Writer{
		Addr:     kafkaGo.TCP(brokerAddr),
		Topic:    events.TopicOrderEvents,
		Balancer: &kafkaGo.Hash{},
	}
	defer w.Close()

	// The consumer starts at the newest offset, so keep writing until the
	// group has joined and one event comes through.
	event := statusChanged("order-123", "user-1", "canteen-A", "ready")
	for {
		require.NoError(t, w.WriteMessages(ctx, message(t, event)))
		select {
		case got := <-sub.Events():
			assert.Equal(t, "order-123", got.OrderID)
			assert.Equal(t, "ready", got.Status)
			return
		case <-time.After(time.Second):
		case <-ctx.Done():
			t.Fatal("event never reached the hub")
		}
	}
}

// Two replicas in separate groups must both see the same event; a shared
// group would split the partitions between them.
func TestConsumer_EveryReplicaSeesEveryEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()
	createTopic(t, brokerAddr, events.TopicOrderEvents)

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	var subs []*Subscription
	for _, group := range []string{"storefront-replica-a", "storefront-replica-b"} {
		hub := NewHub(16, testLogger())
		sub := hub.Subscribe(Filter{SellerID: "canteen-A"})
		defer sub.Close()
		subs = append(subs, sub)

		c := NewConsumer(hub, testLogger(), group, brokerAddr)
		defer c.Close()
		go c.Run(ctx)
	}

	w := &kafkaGo.Writer{
		Addr:     kafkaGo.TCP(brokerAddr),
		Topic:    events.TopicOrderEvents,
		Balancer: &kafkaGo.Hash{},
	}
	defer w.Close()

	seen := make([]bool, len(subs))
	event := statusChanged("order-456", "user-1", "canteen-A", "preparing")
	for !seen[0] || !seen[1] {
		require.NoError(t, w.WriteMessages(ctx, message(t, event)))
		deadline := time.After(time.Second)
	drain:
		for {
			select {
			case got := <-subs[0].Events():
				assert.Equal(t, "order-456", got.OrderID)
				seen[0] = true
			case got := <-subs[1].Events():
				assert.Equal(t, "order-456", got.OrderID)
				seen[1] = true
			case <-deadline:
				break drain
			case <-ctx.Done():
				t.Fatalf("event did not reach every replica: %v", seen)
			}
		}
	}
}
