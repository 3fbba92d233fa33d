package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"gorm.io/gorm"

	"github.com/grimstore/grimstore/app/models"
	"github.com/grimstore/grimstore/app/repository"
	"github.com/grimstore/grimstore/internal/pkg/commerce"
	"github.com/grimstore/grimstore/internal/pkg/session"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
)

// newCoreStub wires the package against an httptest core and returns its
// mux. The previous client is restored on cleanup.
func newCoreStub(t *testing.T) *http.ServeMux {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	previous := coreClient
	SetCoreClient(commerce.NewClient(srv.URL))
	t.Cleanup(func() {
		srv.Close()
		SetCoreClient(previous)
	})
	return mux
}

// respondData writes the core's success envelope.
func respondData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func respondFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// fakeOrderRepo is an in-memory OrderRefRepository.
type fakeOrderRepo struct {
	mu   sync.Mutex
	refs []models.OrderRef
}

func (f *fakeOrderRepo) Create(ref *models.OrderRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref.ID = uint(len(f.refs) + 1)
	f.refs = append(f.refs, *ref)
	return nil
}

func (f *fakeOrderRepo) GetByTrxID(trxID string) (*models.OrderRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.refs {
		if f.refs[i].TrxID == trxID {
			ref := f.refs[i]
			return &ref, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) GetByInvoice(invoice string) (*models.OrderRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.refs {
		if f.refs[i].Invoice == invoice {
			ref := f.refs[i]
			return &ref, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) ListByUserID(userID string, offset, limit int) ([]models.OrderRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OrderRef
	for _, ref := range f.refs {
		if ref.UserID == userID {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListByGuestContact(contact string, offset, limit int) ([]models.OrderRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.OrderRef
	for _, ref := range f.refs {
		if ref.GuestContact == contact {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) List(offset, limit int) ([]models.OrderRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderRef(nil), f.refs...), nil
}

func (f *fakeOrderRepo) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.refs)), nil
}

func (f *fakeOrderRepo) SearchByInvoice(query string, offset, limit int) ([]models.OrderRef, error) {
	return f.List(offset, limit)
}

func (f *fakeOrderRepo) RecordStatus(trxID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.refs {
		if f.refs[i].TrxID == trxID {
			f.refs[i].LastStatus = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) RecordSerialNumber(trxID, sn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.refs {
		if f.refs[i].TrxID == trxID {
			f.refs[i].SerialNumber = sn
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeOrderRepo) CountByStatusSince(status string, since time.Time) (int64, error) {
	return 0, nil
}

// fakeChatRepo is an in-memory ChatSessionRefRepository.
type fakeChatRepo struct {
	mu   sync.Mutex
	refs []models.ChatSessionRef
}

func (f *fakeChatRepo) Create(ref *models.ChatSessionRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref.ID = uint(len(f.refs) + 1)
	f.refs = append(f.refs, *ref)
	return nil
}

func (f *fakeChatRepo) GetBySessionID(sessionID string) (*models.ChatSessionRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.refs {
		if f.refs[i].SessionID == sessionID {
			ref := f.refs[i]
			return &ref, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeChatRepo) GetActiveByWebSessionKey(key string) (*models.ChatSessionRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.refs {
		if f.refs[i].WebSessionKey == key && f.refs[i].Active {
			ref := f.refs[i]
			return &ref, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeChatRepo) Close(sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.refs {
		if f.refs[i].SessionID == sessionID {
			f.refs[i].Active = false
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeChatRepo) ListActive(offset, limit int) ([]models.ChatSessionRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatSessionRef
	for _, ref := range f.refs {
		if ref.Active {
			out = append(out, ref)
		}
	}
	return out, nil
}

// fakeStatsRepo is an in-memory StatsRepository.
type fakeStatsRepo struct {
	mu   sync.Mutex
	rows map[string]*models.StoreStats
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{rows: make(map[string]*models.StoreStats)}
}

func (f *fakeStatsRepo) GetDay(day time.Time) (*models.StoreStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[day.Format("2006-01-02")]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakeStatsRepo) AddToDay(day time.Time, delta map[string]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := day.Format("2006-01-02")
	row, ok := f.rows[key]
	if !ok {
		row = &models.StoreStats{Day: day}
		f.rows[key] = row
	}
	row.OrdersCreated += delta["orders_created"]
	row.OrdersSuccess += delta["orders_success"]
	row.OrdersFailed += delta["orders_failed"]
	row.ChatMessages += delta["chat_messages"]
	row.DepositsAmount += delta["deposits_amount"]
	return nil
}

func (f *fakeStatsRepo) Range(from, to time.Time) ([]models.StoreStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StoreStats
	for _, row := range f.rows {
		out = append(out, *row)
	}
	return out, nil
}

// installFakeRepos swaps the global factory for in-memory repositories.
func installFakeRepos(t *testing.T) (*fakeOrderRepo, *fakeChatRepo) {
	t.Helper()

	orderRepo := &fakeOrderRepo{}
	chatRepo := &fakeChatRepo{}
	factory := repository.NewFactory(nil)
	repository.SetTestRepositories(factory, &repository.Repositories{
		Order: orderRepo,
		Chat:  chatRepo,
		Stats: newFakeStatsRepo(),
	})

	previous := repository.GetGlobalFactory()
	repository.SetGlobalFactory(factory)
	t.Cleanup(func() { repository.SetGlobalFactory(previous) })
	return orderRepo, chatRepo
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

// installMemorySession swaps the Redis session store for an in-memory one.
func installMemorySession(t *testing.T) {
	t.Helper()

	previous := session.GetSessionStore()
	session.SetSessionStore(fibersession.New(fibersession.Config{
		KeyLookup: "cookie:session_id",
	}))
	t.Cleanup(func() { session.SetSessionStore(previous) })
}

// newTestApp builds a fiber app with a fixed user context.
func newTestApp(userCtx usercontext.UserContext) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(usercontext.ContextKey, userCtx)
		c.Locals(usercontext.KeyFromProtected, userCtx.IsLoggedIn)
		c.Locals(usercontext.KeyIsAdmin, userCtx.IsAdmin)
		return c.Next()
	})
	return app
}
