package orderwatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grimstore/grimstore/app/models"
	"github.com/grimstore/grimstore/internal/pkg/push"
)

type stubChannel struct {
	mu       sync.Mutex
	handlers map[string][]push.Handler
	joined   []string
	left     []string
}

func newStubChannel() *stubChannel {
	return &stubChannel{handlers: make(map[string][]push.Handler)}
}

func (c *stubChannel) On(event string, h push.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

func (c *stubChannel) JoinRoom(room string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined = append(c.joined, room)
	return nil
}

func (c *stubChannel) LeaveRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = append(c.left, room)
}

func (c *stubChannel) deliver(t *testing.T, event string, payload interface{}) {
	t.Helper()
	raw, err := json.Marshal(payload)
	assert.NoError(t, err)

	c.mu.Lock()
	handlers := append([]push.Handler(nil), c.handlers[event]...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(raw)
	}
}

func newTestManager(api CoreAPI, channel Channel) *Manager {
	m := NewManager(api, channel, ManagerConfig{PollInterval: time.Hour})
	m.Start()
	return m
}

func TestManagerWatchJoinsRoom(t *testing.T) {
	api := &stubAPI{status: models.ORDER_STATUS_PENDING}
	channel := newStubChannel()
	m := newTestManager(api, channel)
	defer m.Stop()

	w, err := m.Watch(context.Background(), "TRX-10")
	assert.NoError(t, err)
	assert.Equal(t, models.ORDER_STATUS_PENDING, w.Status())
	assert.Equal(t, []string{"TRX-10"}, channel.joined)
	assert.Equal(t, 1, m.ActiveCount())
}

func TestManagerWatchIsDeduplicated(t *testing.T) {
	api := &stubAPI{status: models.ORDER_STATUS_PENDING}
	channel := newStubChannel()
	m := newTestManager(api, channel)
	defer m.Stop()

	first, err := m.Watch(context.Background(), "TRX-11")
	assert.NoError(t, err)
	second, err := m.Watch(context.Background(), "TRX-11")
	assert.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, m.ActiveCount())
	assert.Len(t, channel.joined, 1)
}

func TestManagerRoutesPushUpdates(t *testing.T) {
	api := &stubAPI{status: models.ORDER_STATUS_PENDING}
	channel := newStubChannel()
	m := newTestManager(api, channel)
	defer m.Stop()

	w, err := m.Watch(context.Background(), "TRX-12")
	assert.NoError(t, err)

	channel.deliver(t, push.EventTransactionUpdate, map[string]string{
		"id":     "TRX-12",
		"status": models.ORDER_STATUS_PROCESSING,
	})
	assert.Equal(t, models.ORDER_STATUS_PROCESSING, w.Status())

	// Updates for transactions nobody watches are dropped.
	channel.deliver(t, push.EventTransactionUpdate, map[string]string{
		"id":     "TRX-UNKNOWN",
		"status": models.ORDER_STATUS_SUCCESS,
	})
	assert.Equal(t, models.ORDER_STATUS_PROCESSING, w.Status())
}

func TestManagerRoutesByInvoiceFallback(t *testing.T) {
	api := &stubAPI{status: models.ORDER_STATUS_PENDING}
	channel := newStubChannel()
	m := newTestManager(api, channel)
	defer m.Stop()

	w, err := m.Watch(context.Background(), "TRX-13")
	assert.NoError(t, err)

	channel.deliver(t, push.EventTransactionUpdate, map[string]string{
		"invoice": "TRX-13",
		"status":  models.ORDER_STATUS_PROCESSING,
	})
	assert.Equal(t, models.ORDER_STATUS_PROCESSING, w.Status())
}

func TestManagerReleasesTerminalWatcher(t *testing.T) {
	api := &stubAPI{status: models.ORDER_STATUS_PENDING}
	channel := newStubChannel()
	m := newTestManager(api, channel)
	defer m.Stop()

	w, err := m.Watch(context.Background(), "TRX-14")
	assert.NoError(t, err)

	channel.deliver(t, push.EventTransactionUpdate, map[string]string{
		"id":     "TRX-14",
		"status": models.ORDER_STATUS_SUCCESS,
	})
	w.Wait()

	assert.Equal(t, 0, m.ActiveCount())
	assert.Equal(t, []string{"TRX-14"}, channel.left)
	assert.Nil(t, m.Lookup("TRX-14"))
}

func TestManagerTerminalEntryIsNotTracked(t *testing.T) {
	api := &stubAPI{status: models.ORDER_STATUS_FAILED}
	channel := newStubChannel()
	m := newTestManager(api, channel)
	defer m.Stop()

	w, err := m.Watch(context.Background(), "TRX-15")
	assert.NoError(t, err)
	assert.True(t, w.Terminal())
	assert.Equal(t, 0, m.ActiveCount())
	assert.Empty(t, channel.joined)
}
