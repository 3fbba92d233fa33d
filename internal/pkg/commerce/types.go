package commerce

import "time"

// Transaction status values as reported by the core. SUCCESS and FAILED are
// terminal.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusSuccess    = "SUCCESS"
	StatusFailed     = "FAILED"
)

// Transaction types.
const (
	TypeTopup   = "TOPUP"
	TypeDeposit = "DEPOSIT"
)

// User is the account profile owned by the commerce core.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// CategoryConfig describes a game category and which account fields an order
// for it must carry.
type CategoryConfig struct {
	ID               string `json:"id,omitempty"`
	Slug             string `json:"slug"`
	Name             string `json:"name"`
	Code             string `json:"code,omitempty"`
	RequiresZoneID   bool   `json:"requiresZoneId,omitempty"`
	RequiresServerID bool   `json:"requiresServerId,omitempty"`
}

// Product is a purchasable SKU within a category.
type Product struct {
	ID        string         `json:"id"`
	SKUCode   string         `json:"sku_code"`
	Name      string         `json:"name"`
	PriceSell int64          `json:"price_sell"`
	Group     string         `json:"group,omitempty"`
	Category  CategoryConfig `json:"category"`
	Margin    float64        `json:"margin,omitempty"`
	PriceBuy  int64          `json:"price_buy,omitempty"`
	Active    bool           `json:"active,omitempty"`
}

// ProductRef is the reduced product shape embedded in transactions.
type ProductRef struct {
	Name string `json:"name"`
}

// Transaction is the core-owned order record. The gateway never mutates it;
// it only re-checks the status.
type Transaction struct {
	ID             string      `json:"id"`
	Invoice        string      `json:"invoice"`
	Type           string      `json:"type,omitempty"`
	Product        *ProductRef `json:"product,omitempty"`
	ProductName    string      `json:"productName,omitempty"`
	Amount         int64       `json:"amount"`
	AdminFee       int64       `json:"adminFee,omitempty"`
	Status         string      `json:"status"`
	PaymentMethod  string      `json:"paymentMethod,omitempty"`
	PaymentChannel string      `json:"paymentChannel,omitempty"`
	PaymentNo      string      `json:"paymentNo,omitempty"`
	PaymentURL     string      `json:"paymentUrl,omitempty"`
	ExpiredHours   int         `json:"expired,omitempty"`
	SN             string      `json:"sn,omitempty"`
	TargetID       string      `json:"userId,omitempty"`
	ZoneID         string      `json:"zoneId,omitempty"`
	GuestContact   string      `json:"guestContact,omitempty"`
	CreatedAt      time.Time   `json:"createdAt,omitempty"`
}

// DisplayName returns the best available product label.
func (t *Transaction) DisplayName() string {
	if t.Product != nil && t.Product.Name != "" {
		return t.Product.Name
	}
	return t.ProductName
}

// CreateOrderRequest is the body of POST /create.
type CreateOrderRequest struct {
	ProductID      string `json:"productId"`
	UserID         string `json:"userId"`
	ZoneID         string `json:"zoneId,omitempty"`
	PaymentMethod  string `json:"paymentMethod"`
	PaymentChannel string `json:"paymentChannel,omitempty"`
	AuthUserID     string `json:"authUserId,omitempty"`
	GuestContact   string `json:"guestContact,omitempty"`
	VoucherCode    string `json:"voucherCode,omitempty"`
}

// VoucherQuote is the core's answer to POST /voucher/check.
type VoucherQuote struct {
	Discount   int64 `json:"discount"`
	FinalPrice int64 `json:"finalPrice"`
}

// NicknameResult is the core's answer to POST /check-id.
type NicknameResult struct {
	Username string `json:"username"`
}

// DepositIntent is the core's answer to POST /deposit.
type DepositIntent struct {
	Invoice    string `json:"invoice"`
	PaymentURL string `json:"paymentUrl,omitempty"`
	Amount     int64  `json:"amount"`
}

// AuthResult is the core's answer to login/register.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ChatMessage is a single support chat message. Messages within a session
// are append-only and ordered by creation time.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"` // USER or ADMIN
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead,omitempty"`
}

// ChatSession is a support chat session. IsActive flips true -> false
// exactly once; afterwards the core accepts no further messages.
type ChatSession struct {
	ID         string        `json:"id"`
	UserID     string        `json:"userId,omitempty"`
	GuestName  string        `json:"guestName,omitempty"`
	GuestEmail string        `json:"guestEmail,omitempty"`
	IsActive   bool          `json:"isActive"`
	Messages   []ChatMessage `json:"messages"`
}

// Pagination is the admin list paging envelope.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// TransactionPage is the admin transaction listing.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// ProductPage is the admin product listing.
type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// ProductUpdate carries the admin inline edit fields.
type ProductUpdate struct {
	PriceSell *int64   `json:"price_sell,omitempty"`
	Margin    *float64 `json:"margin,omitempty"`
	Active    *bool    `json:"active,omitempty"`
}

// SyncResult reports the outcome of a provider catalog sync.
type SyncResult struct {
	UpdatedCount int `json:"updatedCount"`
	CreatedCount int `json:"createdCount"`
}

// AdminStats is the admin dashboard summary from the core.
type AdminStats struct {
	TotalTransactions int64 `json:"totalTransactions"`
	TotalRevenue      int64 `json:"totalRevenue"`
	TotalUsers        int64 `json:"totalUsers"`
	PendingCount      int64 `json:"pendingCount"`
}
