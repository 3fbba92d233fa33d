package voucher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grimstore/grimstore/internal/pkg/commerce"
)

type stubVoucherAPI struct {
	mu       sync.Mutex
	quotes   map[string]*commerce.VoucherQuote
	err      error
	lastCode string
	lastAmt  int64
}

func (s *stubVoucherAPI) CheckVoucher(ctx context.Context, code string, amount int64) (*commerce.VoucherQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCode = code
	s.lastAmt = amount
	if s.err != nil {
		return nil, s.err
	}
	quote, ok := s.quotes[code]
	if !ok {
		return nil, &commerce.APIError{StatusCode: 400, Message: "Voucher tidak ditemukan"}
	}
	return quote, nil
}

func diamonds100() *commerce.Product {
	return &commerce.Product{ID: "p-100", Name: "100 Diamonds", PriceSell: 25000}
}

func diamonds500() *commerce.Product {
	return &commerce.Product{ID: "p-500", Name: "500 Diamonds", PriceSell: 120000}
}

func TestApplyStoresDiscount(t *testing.T) {
	api := &stubVoucherAPI{quotes: map[string]*commerce.VoucherQuote{
		"DISC10": {Discount: 2500, FinalPrice: 22500},
	}}
	d := NewDraft(api)
	d.SelectProduct(diamonds100())

	quote, err := d.Apply(context.Background(), "disc10")
	assert.NoError(t, err)
	assert.Equal(t, int64(2500), quote.Discount)

	// The code is normalized to uppercase before the check.
	assert.Equal(t, "DISC10", api.lastCode)
	assert.Equal(t, int64(25000), api.lastAmt)

	assert.Equal(t, "DISC10", d.Code())
	assert.Equal(t, int64(2500), d.Discount())
	assert.Equal(t, int64(22500), d.Total())
}

func TestProductChangeResetsVoucher(t *testing.T) {
	api := &stubVoucherAPI{quotes: map[string]*commerce.VoucherQuote{
		"DISC10": {Discount: 2500, FinalPrice: 22500},
	}}
	d := NewDraft(api)
	d.SelectProduct(diamonds100())

	_, err := d.Apply(context.Background(), "DISC10")
	assert.NoError(t, err)
	assert.Equal(t, int64(22500), d.Total())

	d.SelectProduct(diamonds500())
	assert.Empty(t, d.Code())
	assert.Zero(t, d.Discount())
	assert.Equal(t, int64(120000), d.Total())
}

func TestRejectedCodeLeavesDraftUntouched(t *testing.T) {
	api := &stubVoucherAPI{quotes: map[string]*commerce.VoucherQuote{
		"DISC10": {Discount: 2500, FinalPrice: 22500},
	}}
	d := NewDraft(api)
	d.SelectProduct(diamonds100())

	_, err := d.Apply(context.Background(), "DISC10")
	assert.NoError(t, err)

	_, err = d.Apply(context.Background(), "NOPE")
	var apiErr *commerce.APIError
	assert.ErrorAs(t, err, &apiErr)

	// The previously applied voucher survives a failed second check.
	assert.Equal(t, "DISC10", d.Code())
	assert.Equal(t, int64(22500), d.Total())
}

func TestApplyWithoutProduct(t *testing.T) {
	d := NewDraft(&stubVoucherAPI{})
	_, err := d.Apply(context.Background(), "DISC10")
	assert.ErrorIs(t, err, ErrNoProduct)
}

func TestApplyEmptyCode(t *testing.T) {
	d := NewDraft(&stubVoucherAPI{})
	d.SelectProduct(diamonds100())
	_, err := d.Apply(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCode)
}

func TestClearKeepsProduct(t *testing.T) {
	api := &stubVoucherAPI{quotes: map[string]*commerce.VoucherQuote{
		"DISC10": {Discount: 2500, FinalPrice: 22500},
	}}
	d := NewDraft(api)
	d.SelectProduct(diamonds100())
	_, err := d.Apply(context.Background(), "DISC10")
	assert.NoError(t, err)

	d.Clear()
	assert.Empty(t, d.Code())
	assert.Equal(t, int64(25000), d.Total())
	assert.Equal(t, "p-100", d.Product().ID)
}

func TestTotalNeverNegative(t *testing.T) {
	api := &stubVoucherAPI{quotes: map[string]*commerce.VoucherQuote{
		"MEGA": {Discount: 999999, FinalPrice: 0},
	}}
	d := NewDraft(api)
	d.SelectProduct(diamonds100())
	_, err := d.Apply(context.Background(), "MEGA")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), d.Total())
}

func TestTotalWithoutProduct(t *testing.T) {
	d := NewDraft(&stubVoucherAPI{})
	assert.Zero(t, d.Total())
}

func TestApplyPropagatesTransportError(t *testing.T) {
	api := &stubVoucherAPI{err: errors.New("core unreachable")}
	d := NewDraft(api)
	d.SelectProduct(diamonds100())
	_, err := d.Apply(context.Background(), "DISC10")
	assert.Error(t, err)
	assert.Empty(t, d.Code())
}
