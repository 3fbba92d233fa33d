package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/grimstore/grimstore/internal/pkg/env"
)

const defaultCoreAPIURL = "http://localhost:4000/api"

// ErrNotFound is returned when the core answers success:false for a lookup
// that is a plain miss rather than a fault (unknown game account, unknown
// voucher, missing transaction).
var ErrNotFound = errors.New("commerce: not found")

// APIError is an authoritative rejection from the core. Message carries the
// server's wording verbatim so callers can surface it unchanged.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("commerce: request failed with status %d", e.StatusCode)
}

// Client talks to the external commerce core. The core owns every entity the
// storefront displays; this client never caches and never retries, both are
// the caller's concern.
type Client struct {
	BaseURL string

	HTTPClient *http.Client
}

// envelope is the core's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	// Chat endpoints use dedicated top-level fields instead of data.
	SessionID string          `json:"sessionId"`
	Session   json.RawMessage `json:"session"`
	Sessions  json.RawMessage `json:"sessions"`
}

// NewClientFromEnv builds a client from CORE_API_URL.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(env.GetEnv("CORE_API_URL", defaultCoreAPIURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// NewClient builds a client against an explicit base URL; used by tests.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// do issues one request and decodes the envelope. A transport failure comes
// back as-is; a non-2xx or success:false comes back as *APIError with the
// server message verbatim.
func (c *Client) do(ctx context.Context, method, path, token string, body interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var out envelope
	if len(raw) > 0 {
		if uerr := json.Unmarshal(raw, &out); uerr != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, fmt.Errorf("commerce: malformed response for %s %s: %w", method, path, uerr)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: out.Message}
	}
	if !out.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: out.Message}
	}
	return &out, nil
}

func decodeData(res *envelope, out interface{}) error {
	if len(res.Data) == 0 {
		return errors.New("commerce: response carried no data")
	}
	return json.Unmarshal(res.Data, out)
}

// --- Auth ---

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var out AuthResult
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	res, err := c.do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	var out AuthResult
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the fresh profile for the given bearer token.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	res, err := c.do(ctx, http.MethodGet, "/auth/me", token, nil)
	if err != nil {
		return nil, err
	}
	var out User
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Catalog ---

func (c *Client) Products(ctx context.Context, categorySlug string) ([]Product, error) {
	q := url.Values{}
	q.Set("category", categorySlug)
	q.Set("includeVariations", "true")
	res, err := c.do(ctx, http.MethodGet, "/products?"+q.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var out []Product
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Category(ctx context.Context, slug string) (*CategoryConfig, error) {
	res, err := c.do(ctx, http.MethodGet, "/categories/"+url.PathEscape(slug), "", nil)
	if err != nil {
		return nil, err
	}
	var out CategoryConfig
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Orders ---

// CheckTransaction fetches the authoritative full transaction detail.
func (c *Client) CheckTransaction(ctx context.Context, id string) (*Transaction, error) {
	res, err := c.do(ctx, http.MethodGet, "/check/"+url.PathEscape(id), "", nil)
	if err != nil {
		return nil, notFoundOn404(err)
	}
	var out Transaction
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	if out.Status == "" {
		out.Status = StatusPending
	}
	return &out, nil
}

// CheckStatus triggers a fresh status re-check at the core and returns the
// resulting status value.
func (c *Client) CheckStatus(ctx context.Context, id string) (string, error) {
	res, err := c.do(ctx, http.MethodPost, "/check-status/"+url.PathEscape(id), "", nil)
	if err != nil {
		return "", notFoundOn404(err)
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := decodeData(res, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// CreateOrder submits a new top-up order and returns the created transaction
// with its payment instructions.
func (c *Client) CreateOrder(ctx context.Context, reqBody CreateOrderRequest) (*Transaction, error) {
	res, err := c.do(ctx, http.MethodPost, "/create", "", reqBody)
	if err != nil {
		return nil, err
	}
	var out Transaction
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	if out.Status == "" {
		out.Status = StatusPending
	}
	return &out, nil
}

// CheckVoucher validates a discount code against a base amount.
func (c *Client) CheckVoucher(ctx context.Context, code string, amount int64) (*VoucherQuote, error) {
	res, err := c.do(ctx, http.MethodPost, "/voucher/check", "", map[string]interface{}{
		"code":   code,
		"amount": amount,
	})
	if err != nil {
		return nil, err
	}
	var out VoucherQuote
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckID resolves a game account to its display name. A miss is ErrNotFound.
func (c *Client) CheckID(ctx context.Context, gameCode, userID, zoneID string) (string, error) {
	res, err := c.do(ctx, http.MethodPost, "/check-id", "", map[string]string{
		"gameCode": gameCode,
		"userId":   userID,
		"zoneId":   zoneID,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "", ErrNotFound
		}
		return "", err
	}
	var out NicknameResult
	if err := decodeData(res, &out); err != nil {
		return "", err
	}
	if out.Username == "" {
		out.Username = "Valid User"
	}
	return out.Username, nil
}

// History lists the authenticated user's transactions.
func (c *Client) History(ctx context.Context, token string) ([]Transaction, error) {
	res, err := c.do(ctx, http.MethodGet, "/history", token, nil)
	if err != nil {
		return nil, err
	}
	var out []Transaction
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Deposit creates a wallet top-up intent for the authenticated user.
func (c *Client) Deposit(ctx context.Context, token string, amount int64, paymentMethod string) (*DepositIntent, error) {
	res, err := c.do(ctx, http.MethodPost, "/deposit", token, map[string]interface{}{
		"amount":        amount,
		"paymentMethod": paymentMethod,
	})
	if err != nil {
		return nil, err
	}
	var out DepositIntent
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Chat ---

// StartUserChatSession opens a chat session for the authenticated user.
func (c *Client) StartUserChatSession(ctx context.Context, token string) (string, error) {
	res, err := c.do(ctx, http.MethodPost, "/chat/session/user", token, map[string]string{})
	if err != nil {
		return "", err
	}
	if res.SessionID == "" {
		return "", errors.New("commerce: chat session response carried no sessionId")
	}
	return res.SessionID, nil
}

// StartGuestChatSession opens a chat session for a guest.
func (c *Client) StartGuestChatSession(ctx context.Context, guestName, guestEmail string) (string, error) {
	res, err := c.do(ctx, http.MethodPost, "/chat/session/guest", "", map[string]string{
		"guestName":  guestName,
		"guestEmail": guestEmail,
	})
	if err != nil {
		return "", err
	}
	if res.SessionID == "" {
		return "", errors.New("commerce: chat session response carried no sessionId")
	}
	return res.SessionID, nil
}

// ChatSessionHistory fetches a session with its ordered messages.
func (c *Client) ChatSessionHistory(ctx context.Context, token, sessionID string) (*ChatSession, error) {
	res, err := c.do(ctx, http.MethodGet, "/chat/session/"+url.PathEscape(sessionID), token, nil)
	if err != nil {
		return nil, err
	}
	if len(res.Session) == 0 {
		return nil, errors.New("commerce: chat history response carried no session")
	}
	var out ChatSession
	if err := json.Unmarshal(res.Session, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminChatSessions lists the active support sessions for the admin
// console.
func (c *Client) AdminChatSessions(ctx context.Context, token string) ([]ChatSession, error) {
	res, err := c.do(ctx, http.MethodGet, "/chat/admin/sessions", token, nil)
	if err != nil {
		return nil, err
	}
	if len(res.Sessions) == 0 {
		return []ChatSession{}, nil
	}
	var out []ChatSession
	if err := json.Unmarshal(res.Sessions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EndChatSession closes a session at the core.
func (c *Client) EndChatSession(ctx context.Context, token, sessionID string) error {
	_, err := c.do(ctx, http.MethodPost, "/chat/session/end", token, map[string]string{
		"sessionId": sessionID,
	})
	return err
}

// --- Admin ---

func (c *Client) AdminTransactions(ctx context.Context, token string, page, limit int, search string) (*TransactionPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if search != "" {
		q.Set("search", search)
	}
	res, err := c.do(ctx, http.MethodGet, "/admin/transactions?"+q.Encode(), token, nil)
	if err != nil {
		return nil, err
	}
	var out TransactionPage
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminProducts(ctx context.Context, token string, limit int) (*ProductPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	res, err := c.do(ctx, http.MethodGet, "/admin/products?"+q.Encode(), token, nil)
	if err != nil {
		return nil, err
	}
	var out ProductPage
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminUpdateProduct(ctx context.Context, token, productID string, update ProductUpdate) (*Product, error) {
	res, err := c.do(ctx, http.MethodPut, "/admin/products/"+url.PathEscape(productID), token, update)
	if err != nil {
		return nil, err
	}
	var out Product
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminSyncProducts triggers a provider catalog sync and reports counts.
func (c *Client) AdminSyncProducts(ctx context.Context, token string) (*SyncResult, error) {
	res, err := c.do(ctx, http.MethodPost, "/admin/products/sync", token, nil)
	if err != nil {
		return nil, err
	}
	var out SyncResult
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminCategories(ctx context.Context, token string) ([]CategoryConfig, error) {
	res, err := c.do(ctx, http.MethodGet, "/admin/categories", token, nil)
	if err != nil {
		return nil, err
	}
	var out []CategoryConfig
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AdminCreateCategory(ctx context.Context, token string, cat CategoryConfig) (*CategoryConfig, error) {
	res, err := c.do(ctx, http.MethodPost, "/admin/categories", token, cat)
	if err != nil {
		return nil, err
	}
	var out CategoryConfig
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminUpdateCategory(ctx context.Context, token, slug string, cat CategoryConfig) (*CategoryConfig, error) {
	res, err := c.do(ctx, http.MethodPut, "/admin/categories/"+url.PathEscape(slug), token, cat)
	if err != nil {
		return nil, err
	}
	var out CategoryConfig
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminDeleteCategory(ctx context.Context, token, slug string) error {
	_, err := c.do(ctx, http.MethodDelete, "/admin/categories/"+url.PathEscape(slug), token, nil)
	return err
}

func (c *Client) AdminStats(ctx context.Context, token string) (*AdminStats, error) {
	res, err := c.do(ctx, http.MethodGet, "/admin/stats", token, nil)
	if err != nil {
		return nil, err
	}
	var out AdminStats
	if err := decodeData(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func notFoundOn404(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}
