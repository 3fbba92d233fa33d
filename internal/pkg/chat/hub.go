package chat

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/internal/pkg/push"
)

// Inbound is one event forwarded from the core to a browser subscriber.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Registrar is the handler registration slice of the push client.
type Registrar interface {
	On(event string, h push.Handler)
}

// Hub fans chat events from the single core connection out to the browser
// relays. Subscribers are keyed by chat session id.
type Hub struct {
	mu    sync.Mutex
	subs  map[string][]chan Inbound
	admin []chan Inbound
}

// NewHub builds a hub and registers its routing on the push client.
func NewHub(reg Registrar) *Hub {
	h := &Hub{subs: make(map[string][]chan Inbound)}
	for _, event := range []string{push.EventReceiveMessage, push.EventTypingStatus, push.EventUserStatus, push.EventAdminNotification} {
		ev := event
		reg.On(ev, func(data json.RawMessage) {
			h.route(ev, data)
		})
	}
	return h
}

// Subscribe registers a browser relay for one session. The returned cancel
// removes the subscription; the channel is closed afterwards.
func (h *Hub) Subscribe(sessionID string) (<-chan Inbound, func()) {
	ch := make(chan Inbound, 16)

	h.mu.Lock()
	h.subs[sessionID] = append(h.subs[sessionID], ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		list := h.subs[sessionID]
		for i, sub := range list {
			if sub == ch {
				h.subs[sessionID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(h.subs[sessionID]) == 0 {
			delete(h.subs, sessionID)
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// SubscribeAdmin registers a relay that sees every chat event regardless of
// session, used by the admin console.
func (h *Hub) SubscribeAdmin() (<-chan Inbound, func()) {
	ch := make(chan Inbound, 16)

	h.mu.Lock()
	h.admin = append(h.admin, ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		for i, sub := range h.admin {
			if sub == ch {
				h.admin = append(h.admin[:i], h.admin[i+1:]...)
				break
			}
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

func (h *Hub) route(event string, data json.RawMessage) {
	var payload struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	// Sends stay under the lock so a cancelled subscriber can never be
	// closed while a send is in flight. They are non-blocking, a full
	// relay drops the event instead of stalling the hub.
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := append([]chan Inbound(nil), h.admin...)
	if payload.SessionID != "" {
		subs = append(subs, h.subs[payload.SessionID]...)
	}
	for _, ch := range subs {
		select {
		case ch <- Inbound{Event: event, Data: data}:
		default:
			log.Warnf("[Chat] Dropping %s for %s, relay too slow", event, payload.SessionID)
		}
	}
}
