package orderwatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/app/models"
	"github.com/grimstore/grimstore/internal/pkg/commerce"
)

// ErrUnchanged is returned by Sync when the core reported the status the
// watcher already holds.
var ErrUnchanged = errors.New("orderwatch: status unchanged")

const (
	defaultPollInterval = 2 * time.Second
	pollTimeout         = 10 * time.Second
)

// CoreAPI is the slice of the commerce client a watcher needs.
type CoreAPI interface {
	CheckTransaction(ctx context.Context, id string) (*commerce.Transaction, error)
	CheckStatus(ctx context.Context, id string) (string, error)
}

// Observer is notified once per confirmed status transition.
type Observer func(trxID, status string)

// Recorder persists a confirmed status transition. The snapshot may be nil
// when the transition arrived over the push channel.
type Recorder func(trxID string, snapshot *commerce.Transaction, status string)

// Config carries the optional knobs of a watcher.
type Config struct {
	PollInterval time.Duration
	Recorder     Recorder
	OnStop       func(trxID string)
}

// Watcher tracks one transaction until it reaches a terminal status. Poll
// results, push events and manual syncs all funnel through the same reducer,
// so the order of arrival does not matter.
type Watcher struct {
	trxID    string
	api      CoreAPI
	interval time.Duration
	recorder Recorder
	onStop   func(trxID string)

	// dispatchMu serializes apply end to end so recorder and observer
	// calls happen in commit order. Never held by observers.
	dispatchMu sync.Mutex

	mu         sync.Mutex
	status     string
	snapshot   *commerce.Transaction
	observers  map[uint64]Observer
	observerID uint64
	stopped    bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// NewWatcher builds a watcher for one transaction id. Call Start to begin
// tracking.
func NewWatcher(trxID string, api CoreAPI, cfg Config) *Watcher {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Watcher{
		trxID:     trxID,
		api:       api,
		interval:  interval,
		recorder:  cfg.Recorder,
		onStop:    cfg.OnStop,
		status:    models.ORDER_STATUS_PENDING,
		observers: make(map[uint64]Observer),
		stopCh:    make(chan struct{}),
	}
}

// Start fetches the transaction once and begins polling unless the entry
// status is already terminal.
func (w *Watcher) Start(ctx context.Context) error {
	trx, err := w.api.CheckTransaction(ctx, w.trxID)
	if err != nil {
		return err
	}
	w.apply(trx, trx.Status)

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go w.pollLoop()
	return nil
}

// Subscribe registers an observer for future status transitions. The
// returned cancel removes it again, relays call it on teardown so a
// long-lived watcher does not accumulate dead closures.
func (w *Watcher) Subscribe(fn Observer) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.observerID
	w.observerID++
	w.observers[id] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.observers, id)
	}
}

// Status returns the last confirmed status.
func (w *Watcher) Status() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Snapshot returns the last transaction fetched from the core, nil before
// the first fetch completed.
func (w *Watcher) Snapshot() *commerce.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

// Terminal reports whether the watcher reached SUCCESS or FAILED.
func (w *Watcher) Terminal() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return models.IsTerminalStatus(w.status)
}

// Deliver feeds a status received over the push channel into the reducer.
func (w *Watcher) Deliver(status string) {
	w.apply(nil, status)
}

// Sync forces one immediate status fetch. It returns ErrUnchanged when the
// core confirmed the status the watcher already holds, so callers can tell
// a real refresh from a no-op.
func (w *Watcher) Sync(ctx context.Context) (string, error) {
	status, err := w.api.CheckStatus(ctx, w.trxID)
	if err != nil {
		return w.Status(), err
	}
	if !w.apply(nil, status) {
		return w.Status(), ErrUnchanged
	}
	return w.Status(), nil
}

// Stop ends tracking. Safe to call multiple times and from observers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.stopCh)
	onStop := w.onStop
	w.mu.Unlock()

	if onStop != nil {
		onStop(w.trxID)
	}
}

// Wait blocks until the poll loop exited. Must not be called from an
// observer.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

func (w *Watcher) pollLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
			status, err := w.api.CheckStatus(ctx, w.trxID)
			cancel()
			if err != nil {
				// Transient poll failures keep the last status, the
				// next tick retries.
				log.Debugf("[OrderWatch] Poll for %s failed: %v", w.trxID, err)
				continue
			}
			w.apply(nil, status)
		}
	}
}

// apply runs the reducer and, on a confirmed transition, persists it and
// notifies observers exactly once. A terminal transition stops the watcher.
// Racing deliveries serialize on dispatchMu, so a later commit can never
// record or notify before an earlier one.
func (w *Watcher) apply(trx *commerce.Transaction, incoming string) bool {
	w.dispatchMu.Lock()
	defer w.dispatchMu.Unlock()

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return false
	}
	next, changed := ApplyStatus(w.status, incoming)
	if trx != nil {
		w.snapshot = trx
	}
	if !changed {
		w.mu.Unlock()
		return false
	}
	w.status = next
	snapshot := w.snapshot
	observers := make([]Observer, 0, len(w.observers))
	for _, fn := range w.observers {
		observers = append(observers, fn)
	}
	w.mu.Unlock()

	if w.recorder != nil {
		w.recorder(w.trxID, snapshot, next)
	}
	for _, fn := range observers {
		fn(w.trxID, next)
	}
	if models.IsTerminalStatus(next) {
		log.Infof("[OrderWatch] Transaction %s reached %s", w.trxID, next)
		w.Stop()
	}
	return true
}
