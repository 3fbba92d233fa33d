package counter

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/app/repository"
	"github.com/grimstore/grimstore/internal/pkg/cache"
)

// Redis counter keys. Each maps to one StoreStats column when flushed.
const (
	KeyOrdersCreated  = "stats:orders_created"
	KeyOrdersSuccess  = "stats:orders_success"
	KeyOrdersFailed   = "stats:orders_failed"
	KeyChatMessages   = "stats:chat_messages"
	KeyDepositsAmount = "stats:deposits_amount"
)

// columns maps counter keys to StoreStats columns.
var columns = map[string]string{
	KeyOrdersCreated:  "orders_created",
	KeyOrdersSuccess:  "orders_success",
	KeyOrdersFailed:   "orders_failed",
	KeyChatMessages:   "chat_messages",
	KeyDepositsAmount: "deposits_amount",
}

const defaultFlushInterval = 1 * time.Minute

// Incr bumps a counter by one. Counting is best effort, a missing Redis
// client drops the increment.
func Incr(key string) {
	IncrBy(key, 1)
}

// IncrBy bumps a counter by n.
func IncrBy(key string, n int64) {
	client := cache.GetClient()
	if client == nil {
		return
	}
	if err := client.IncrBy(context.Background(), key, n).Err(); err != nil {
		log.Debugf("[Counter] Increment of %s failed: %v", key, err)
	}
}

// Flusher drains the Redis counters into the daily StoreStats row on an
// interval. One flusher runs per process.
type Flusher struct {
	repo     repository.StatsRepository
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewFlusher builds a flusher. A non-positive interval falls back to one
// minute.
func NewFlusher(repo repository.StatsRepository, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Flusher{
		repo:     repo,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the flush loop.
func (f *Flusher) Start() {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-f.stopCh:
				// Drain once more so counts survive a shutdown.
				f.Flush()
				return
			case <-ticker.C:
				f.Flush()
			}
		}
	}()
	log.Info("[Counter] Flusher started")
}

// Stop ends the loop after a final flush.
func (f *Flusher) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopCh)
	})
	f.wg.Wait()
}

// Flush moves the current counter values into today's StoreStats row.
// Counters read atomically via GETDEL, so concurrent increments are never
// lost, at worst they land in the next flush.
func (f *Flusher) Flush() {
	client := cache.GetClient()
	if client == nil {
		return
	}

	ctx := context.Background()
	delta := make(map[string]int64)
	for key, col := range columns {
		val, err := client.GetDel(ctx, key).Int64()
		if err != nil || val == 0 {
			continue
		}
		delta[col] = val
	}
	if len(delta) == 0 {
		return
	}

	if err := f.repo.AddToDay(time.Now().UTC(), delta); err != nil {
		log.Errorf("[Counter] Flush failed: %v", err)
		// Put the counts back so the next flush retries them.
		for col, val := range delta {
			for key, c := range columns {
				if c == col {
					IncrBy(key, val)
				}
			}
		}
	}
}
