package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gauravniet133/insta-canteen-connect/pkg/events"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/cart"
	"github.com/gauravniet133/insta-canteen-connect/storefront/internal/realtime"
	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	maxReadBytes = 512
)

type Subscriber interface {
	Subscribe(f realtime.Filter) *realtime.Subscription
}

type StreamHandler struct {
	hub          Subscriber
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	log          *slog.Logger
}

func NewStreamHandler(hub Subscriber, pingInterval time.Duration, log *slog.Logger) *StreamHandler {
	return &StreamHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		pingInterval: pingInterval,
		log:          log,
	}
}

const (
	MessageOrderCreated = "order_created"
	MessageOrderUpdate  = "order_update"
	MessageNotice       = "notice"
)

// StreamMessage is one frame on the order stream.
type StreamMessage struct {
	Type   string             `json:"type"`
	Event  *events.OrderEvent `json:"event,omitempty"`
	Notice *cart.Notice       `json:"notice,omitempty"`
}

func messageForEvent(e events.OrderEvent) StreamMessage {
	if e.Type == events.OrderCreated {
		return StreamMessage{Type: MessageOrderCreated, Event: &e}
	}
	msg := StreamMessage{Type: MessageOrderUpdate, Event: &e}
	if e.Status != e.OldStatus {
		msg.Notice = &cart.Notice{
			Title:       "Order Update",
			Description: events.StatusMessage(e.Status),
			Variant:     cart.VariantDefault,
		}
	}
	return msg
}

// GET /api/v1/orders/stream[?seller_id=]
// Customers get their own orders; a seller may also follow their canteen.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := requireUser(w, r)
	if !ok {
		return
	}

	filter := realtime.Filter{UserID: id.UserID}
	if sellerID := r.URL.Query().Get("seller_id"); sellerID != "" {
		if !id.IsSeller() || id.SellerID != sellerID {
			respondError(w, http.StatusForbidden, "forbidden", "not the owner of this canteen")
			return
		}
		filter.SellerID = sellerID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(filter)
	defer sub.Close()

	// The read side only watches for close frames and pongs.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxReadBytes)
		pongWait := 2 * h.pingInterval
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		var msg StreamMessage
		select {
		case <-closed:
			return
		case e, ok := <-sub.Events():
			if !ok {
				return
			}
			msg = messageForEvent(e)
		case n, ok := <-sub.Notices():
			if !ok {
				return
			}
			msg = StreamMessage{Type: MessageNotice, Notice: &n}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Debug("websocket write failed", "user_id", id.UserID, "error", err)
			return
		}
	}
}
