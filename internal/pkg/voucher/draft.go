package voucher

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/grimstore/grimstore/internal/pkg/commerce"
)

// ErrNoProduct is returned when a voucher is applied before a product was
// selected.
var ErrNoProduct = errors.New("voucher: no product selected")

// ErrEmptyCode is returned when the submitted code is blank.
var ErrEmptyCode = errors.New("voucher: empty code")

// API is the slice of the commerce client the draft needs.
type API interface {
	CheckVoucher(ctx context.Context, code string, amount int64) (*commerce.VoucherQuote, error)
}

// Draft is the pricing state of an order being composed. A voucher is only
// valid against the product it was checked for, so changing the product
// discards it.
type Draft struct {
	api API

	mu       sync.Mutex
	product  *commerce.Product
	code     string
	discount int64
}

// NewDraft builds an empty draft.
func NewDraft(api API) *Draft {
	return &Draft{api: api}
}

// SelectProduct sets or replaces the product. Any applied voucher is
// dropped, its discount was quoted against the previous price.
func (d *Draft) SelectProduct(p *commerce.Product) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.product = p
	d.code = ""
	d.discount = 0
}

// Product returns the currently selected product, nil when none.
func (d *Draft) Product() *commerce.Product {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.product
}

// Apply checks a voucher code against the selected product's price and, on
// success, stores the discount. Codes are case-insensitive and submitted
// uppercased. A rejected code leaves the draft untouched.
func (d *Draft) Apply(ctx context.Context, code string) (*commerce.VoucherQuote, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrEmptyCode
	}

	d.mu.Lock()
	product := d.product
	d.mu.Unlock()
	if product == nil {
		return nil, ErrNoProduct
	}

	quote, err := d.api.CheckVoucher(ctx, code, product.PriceSell)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	// The product may have changed while the check was in flight. The
	// quote belongs to the old price, discard it.
	if d.product == nil || d.product.ID != product.ID {
		d.mu.Unlock()
		return nil, ErrNoProduct
	}
	d.code = code
	d.discount = quote.Discount
	d.mu.Unlock()

	return quote, nil
}

// Clear removes an applied voucher without touching the product.
func (d *Draft) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.code = ""
	d.discount = 0
}

// Code returns the applied voucher code, empty when none.
func (d *Draft) Code() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.code
}

// Discount returns the applied discount, zero when none.
func (d *Draft) Discount() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.discount
}

// Total returns the payable amount: the product price minus the applied
// discount, never below zero. A draft without a product totals zero.
func (d *Draft) Total() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.product == nil {
		return 0
	}
	total := d.product.PriceSell - d.discount
	if total < 0 {
		return 0
	}
	return total
}
