package lookup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/internal/pkg/commerce"
)

// Input gates. Requests below these lengths never reach the core.
const (
	MinTargetIDLen = 4
	MinZoneIDLen   = 3

	defaultDebounce = 1000 * time.Millisecond
)

// ErrIncomplete is returned synchronously when the input does not pass the
// length gates yet.
var ErrIncomplete = errors.New("lookup: input incomplete")

// API is the slice of the commerce client the verifier needs.
type API interface {
	CheckID(ctx context.Context, gameCode, userID, zoneID string) (string, error)
}

// Query is one account to verify. ZoneID and ServerID stay empty for games
// that only take an account id; games with servers instead of zones fill
// ServerID, which takes the zone's place on the wire.
type Query struct {
	GameCode       string
	TargetID       string
	ZoneID         string
	ServerID       string
	RequiresZone   bool
	RequiresServer bool
}

// effectiveZone folds the server id into the zone slot for games that use
// servers instead of zones.
func (q Query) effectiveZone() string {
	if q.ZoneID != "" {
		return q.ZoneID
	}
	return q.ServerID
}

// Result is the outcome of one verification. Found and Username are set
// together; a rejected account has Found false and no error.
type Result struct {
	Query    Query
	Found    bool
	Username string
	Err      error
}

// Verifier coalesces a burst of input edits into a single core request.
// Each Submit arms a fresh timer and cancels the in-flight request of the
// previous one, so only the final state of a typing burst is verified.
type Verifier struct {
	api      API
	debounce time.Duration
	results  chan Result

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	seq     uint64
	latest  uint64
	stopped bool
	wg      sync.WaitGroup
}

// NewVerifier builds a verifier with the standard 1000ms debounce window.
func NewVerifier(api API) *Verifier {
	return NewVerifierWithDebounce(api, defaultDebounce)
}

// NewVerifierWithDebounce builds a verifier with an explicit window.
func NewVerifierWithDebounce(api API, debounce time.Duration) *Verifier {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Verifier{
		api:      api,
		debounce: debounce,
		results:  make(chan Result, 8),
	}
}

// Results delivers one Result per completed verification. Superseded
// submissions produce no result at all.
func (v *Verifier) Results() <-chan Result {
	return v.results
}

// Eligible reports whether a query passes the length gates.
func Eligible(q Query) bool {
	if len(q.TargetID) < MinTargetIDLen {
		return false
	}
	if q.RequiresZone && len(q.ZoneID) < MinZoneIDLen {
		return false
	}
	if q.RequiresServer && len(q.ServerID) < MinZoneIDLen {
		return false
	}
	return true
}

// Submit registers the current input state. Ineligible input returns
// ErrIncomplete immediately and disarms any pending verification, so a
// deletion mid-burst never fires a stale request.
func (v *Verifier) Submit(q Query) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stopped {
		return errors.New("lookup: verifier closed")
	}

	v.disarmLocked()
	if !Eligible(q) {
		return ErrIncomplete
	}

	v.seq++
	seq := v.seq
	v.timer = time.AfterFunc(v.debounce, func() {
		v.fire(seq, q)
	})
	return nil
}

// Verify runs one verification immediately, bypassing the debounce window.
// Used by the order placement path where the input is final.
func (v *Verifier) Verify(ctx context.Context, q Query) Result {
	if !Eligible(q) {
		return Result{Query: q, Err: ErrIncomplete}
	}
	return v.check(ctx, q)
}

// Close disarms pending work and waits for an in-flight request.
func (v *Verifier) Close() {
	v.mu.Lock()
	if v.stopped {
		v.mu.Unlock()
		return
	}
	v.stopped = true
	v.disarmLocked()
	v.mu.Unlock()
	v.wg.Wait()
}

// disarmLocked stops the pending timer and cancels the in-flight request.
func (v *Verifier) disarmLocked() {
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

func (v *Verifier) fire(seq uint64, q Query) {
	v.mu.Lock()
	if v.stopped || seq != v.seq {
		v.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel
	v.latest = seq
	v.wg.Add(1)
	v.mu.Unlock()

	go func() {
		defer v.wg.Done()
		defer cancel()
		res := v.check(ctx, q)
		if ctx.Err() != nil {
			// A newer submission superseded this one.
			return
		}

		v.mu.Lock()
		superseded := v.stopped || seq != v.seq
		v.mu.Unlock()
		if superseded {
			return
		}
		select {
		case v.results <- res:
		default:
			log.Warnf("[Lookup] Dropping result for %s, consumer too slow", q.TargetID)
		}
	}()
}

func (v *Verifier) check(ctx context.Context, q Query) Result {
	username, err := v.api.CheckID(ctx, q.GameCode, q.TargetID, q.effectiveZone())
	if err != nil {
		if errors.Is(err, commerce.ErrNotFound) {
			return Result{Query: q, Found: false}
		}
		return Result{Query: q, Err: err}
	}
	return Result{Query: q, Found: true, Username: username}
}
