package orderwatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/internal/pkg/env"
	"github.com/grimstore/grimstore/internal/pkg/push"
)

// Channel is the slice of the push client the manager needs. Rooms are keyed
// by transaction id.
type Channel interface {
	On(event string, h push.Handler)
	JoinRoom(room string) error
	LeaveRoom(room string)
}

// ManagerConfig carries the optional knobs of a manager.
type ManagerConfig struct {
	PollInterval time.Duration
	Recorder     Recorder
}

// Manager owns the active watchers and routes push events to them.
type Manager struct {
	api      CoreAPI
	channel  Channel
	interval time.Duration
	recorder Recorder

	mu       sync.Mutex
	watchers map[string]*Watcher
	running  bool
}

var (
	manager     *Manager
	managerOnce sync.Once
)

// SetupManager initializes the global manager. The poll interval comes from
// ORDER_POLL_INTERVAL (seconds).
func SetupManager(api CoreAPI, channel Channel, recorder Recorder) *Manager {
	managerOnce.Do(func() {
		interval := time.Duration(env.GetEnvInt("ORDER_POLL_INTERVAL", 2)) * time.Second
		manager = NewManager(api, channel, ManagerConfig{
			PollInterval: interval,
			Recorder:     recorder,
		})
	})
	return manager
}

// GetManager returns the global manager, nil before SetupManager.
func GetManager() *Manager {
	return manager
}

// SetManager replaces the global manager for tests.
func SetManager(m *Manager) {
	manager = m
}

// NewManager builds a manager without touching the global one.
func NewManager(api CoreAPI, channel Channel, cfg ManagerConfig) *Manager {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Manager{
		api:      api,
		channel:  channel,
		interval: interval,
		recorder: cfg.Recorder,
		watchers: make(map[string]*Watcher),
	}
}

// Start registers the push routing. Watchers are created lazily by Watch.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.channel.On(push.EventTransactionUpdate, m.routeUpdate)
	log.Info("[OrderWatch] Manager started")
}

// Watch returns the watcher for a transaction, creating and starting one on
// first use. A transaction already in a terminal state gets a stopped
// watcher holding the final snapshot.
func (m *Manager) Watch(ctx context.Context, trxID string) (*Watcher, error) {
	m.mu.Lock()
	if w, ok := m.watchers[trxID]; ok {
		m.mu.Unlock()
		return w, nil
	}
	m.mu.Unlock()

	w := NewWatcher(trxID, m.api, Config{
		PollInterval: m.interval,
		Recorder:     m.recorder,
		OnStop:       m.release,
	})
	if err := w.Start(ctx); err != nil {
		return nil, err
	}

	if w.Terminal() {
		return w, nil
	}

	m.mu.Lock()
	if existing, ok := m.watchers[trxID]; ok {
		m.mu.Unlock()
		w.Stop()
		return existing, nil
	}
	m.watchers[trxID] = w
	m.mu.Unlock()

	if err := m.channel.JoinRoom(trxID); err != nil {
		// Polling still covers the transaction.
		log.Warnf("[OrderWatch] Push subscription for %s failed: %v", trxID, err)
	}
	return w, nil
}

// Lookup returns the active watcher without creating one.
func (m *Manager) Lookup(trxID string) *Watcher {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.watchers[trxID]
}

// ActiveCount reports the number of transactions currently tracked.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// Stop tears down all watchers and waits for their poll loops.
func (m *Manager) Stop() {
	m.mu.Lock()
	watchers := make([]*Watcher, 0, len(m.watchers))
	for _, w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.running = false
	m.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
	for _, w := range watchers {
		w.Wait()
	}
	log.Info("[OrderWatch] Manager stopped")
}

// release drops a finished watcher and leaves its push room.
func (m *Manager) release(trxID string) {
	m.mu.Lock()
	_, ok := m.watchers[trxID]
	delete(m.watchers, trxID)
	m.mu.Unlock()
	if ok {
		m.channel.LeaveRoom(trxID)
	}
}

func (m *Manager) routeUpdate(data json.RawMessage) {
	var payload struct {
		ID      string `json:"id"`
		Invoice string `json:"invoice"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Debugf("[OrderWatch] Dropping malformed update: %v", err)
		return
	}
	key := payload.ID
	if key == "" {
		key = payload.Invoice
	}

	m.mu.Lock()
	w := m.watchers[key]
	m.mu.Unlock()
	if w != nil {
		w.Deliver(payload.Status)
	}
}
