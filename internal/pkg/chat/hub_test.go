package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grimstore/grimstore/internal/pkg/push"
)

type stubRegistrar struct {
	handlers map[string][]push.Handler
}

func newStubRegistrar() *stubRegistrar {
	return &stubRegistrar{handlers: make(map[string][]push.Handler)}
}

func (r *stubRegistrar) On(event string, h push.Handler) {
	r.handlers[event] = append(r.handlers[event], h)
}

func (r *stubRegistrar) deliver(t *testing.T, event string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	assert.NoError(t, err)
	for _, h := range r.handlers[event] {
		h(raw)
	}
}

func TestHubRoutesBySession(t *testing.T) {
	reg := newStubRegistrar()
	hub := NewHub(reg)

	chA, cancelA := hub.Subscribe("cs-a")
	defer cancelA()
	chB, cancelB := hub.Subscribe("cs-b")
	defer cancelB()

	reg.deliver(t, push.EventReceiveMessage, map[string]string{
		"sessionId": "cs-a",
		"content":   "Halo",
	})

	select {
	case in := <-chA:
		assert.Equal(t, push.EventReceiveMessage, in.Event)
	case <-time.After(time.Second):
		t.Fatal("subscriber A got nothing")
	}
	select {
	case in := <-chB:
		t.Fatalf("subscriber B should not receive: %+v", in)
	default:
	}
}

func TestHubDropsEventsWithoutSession(t *testing.T) {
	reg := newStubRegistrar()
	hub := NewHub(reg)

	ch, cancel := hub.Subscribe("cs-a")
	defer cancel()

	reg.deliver(t, push.EventTypingStatus, map[string]bool{"isTyping": true})
	select {
	case in := <-ch:
		t.Fatalf("unexpected delivery: %+v", in)
	default:
	}
}

func TestHubAdminSeesEverySession(t *testing.T) {
	reg := newStubRegistrar()
	hub := NewHub(reg)

	admin, cancel := hub.SubscribeAdmin()
	defer cancel()

	reg.deliver(t, push.EventReceiveMessage, map[string]string{"sessionId": "cs-a", "content": "one"})
	reg.deliver(t, push.EventAdminNotification, map[string]string{"type": "NEW_MESSAGE"})

	for i := 0; i < 2; i++ {
		select {
		case <-admin:
		case <-time.After(time.Second):
			t.Fatal("admin subscriber missed an event")
		}
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	reg := newStubRegistrar()
	hub := NewHub(reg)

	ch, cancel := hub.Subscribe("cs-a")
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Delivery after cancel must not panic or route anywhere.
	reg.deliver(t, push.EventReceiveMessage, map[string]string{"sessionId": "cs-a"})
}

func TestHubCancelDuringDelivery(t *testing.T) {
	reg := newStubRegistrar()
	hub := NewHub(reg)

	payload, err := json.Marshal(map[string]string{"sessionId": "cs-race", "content": "hi"})
	assert.NoError(t, err)

	// Cancelling a subscriber while events are in flight must never reach
	// a closed channel.
	for i := 0; i < 200; i++ {
		_, cancel := hub.Subscribe("cs-race")
		_, cancelAdmin := hub.SubscribeAdmin()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for j := 0; j < 20; j++ {
				hub.route(push.EventReceiveMessage, payload)
			}
		}()
		cancel()
		cancelAdmin()
		<-done
	}
}
