package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/app/models"
	"github.com/grimstore/grimstore/app/repository"
	"github.com/grimstore/grimstore/internal/pkg/commerce"
	"github.com/grimstore/grimstore/internal/pkg/metrics/counter"
	"github.com/grimstore/grimstore/internal/pkg/orderwatch"
	"github.com/grimstore/grimstore/internal/pkg/paychannels"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
)

// DepositMinAmount is the smallest balance top-up the core accepts.
const DepositMinAmount = 10000

type createOrderRequest struct {
	ProductID      string `json:"productId" validate:"required"`
	UserID         string `json:"userId" validate:"required,min=4"`
	ZoneID         string `json:"zoneId"`
	ServerID       string `json:"serverId"`
	PaymentMethod  string `json:"paymentMethod" validate:"required"`
	PaymentChannel string `json:"paymentChannel"`
	GuestContact   string `json:"guestContact"`
	VoucherCode    string `json:"voucherCode"`
}

// HandleAPICreateOrder places a top-up order at the core, mirrors it into
// the local ledger and starts watching its status.
func HandleAPICreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, validationMessage(err))
	}

	userCtx := usercontext.GetUserContext(c)

	if req.PaymentMethod == paychannels.MethodBalance {
		if !userCtx.IsLoggedIn {
			return jsonError(c, fiber.StatusUnauthorized, "balance payment requires login")
		}
	} else {
		channelCode := req.PaymentChannel
		if channelCode == "" {
			channelCode = req.PaymentMethod
		}
		if _, ok := paychannels.Find(channelCode); !ok {
			return jsonError(c, fiber.StatusUnprocessableEntity, "unknown payment channel")
		}
		req.PaymentChannel = channelCode
	}

	if !userCtx.IsLoggedIn && !guestContactValid(req.GuestContact) {
		return jsonError(c, fiber.StatusUnprocessableEntity, "guest contact must carry at least 9 digits")
	}

	// Games with servers instead of zones send serverId, the core only
	// knows the zone slot.
	zoneID := req.ZoneID
	if zoneID == "" {
		zoneID = req.ServerID
	}

	order := commerce.CreateOrderRequest{
		ProductID:      req.ProductID,
		UserID:         req.UserID,
		ZoneID:         zoneID,
		PaymentMethod:  req.PaymentMethod,
		PaymentChannel: req.PaymentChannel,
		AuthUserID:     userCtx.UserID,
		GuestContact:   req.GuestContact,
		VoucherCode:    strings.ToUpper(strings.TrimSpace(req.VoucherCode)),
	}

	trx, err := coreClient.CreateOrder(c.Context(), order)
	if err != nil {
		return coreError(c, err)
	}

	recordOrderRef(trx, &order, userCtx.UserID)
	counter.Incr(counter.KeyOrdersCreated)

	if m := orderwatch.GetManager(); m != nil {
		// The watcher outlives the request.
		if _, err := m.Watch(context.Background(), trx.ID); err != nil {
			log.Warnf("[Order] Watch of %s failed: %v", trx.ID, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    trx,
	})
}

// HandleAPIOrderDetail returns the transaction with the freshest status the
// gateway knows.
func HandleAPIOrderDetail(c *fiber.Ctx) error {
	trxID := c.Params("id")

	if m := orderwatch.GetManager(); m != nil {
		if w := m.Lookup(trxID); w != nil {
			if snapshot := w.Snapshot(); snapshot != nil {
				snapshot.Status = w.Status()
				return c.JSON(fiber.Map{
					"success": true,
					"data":    snapshot,
				})
			}
		}
	}

	trx, err := coreClient.CheckTransaction(c.Context(), trxID)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    trx,
	})
}

// HandleAPIOrderSync forces one immediate status re-check. The response
// tells the caller whether anything actually moved.
func HandleAPIOrderSync(c *fiber.Ctx) error {
	trxID := c.Params("id")

	m := orderwatch.GetManager()
	if m == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "watcher unavailable")
	}

	w := m.Lookup(trxID)
	if w == nil {
		var err error
		w, err = m.Watch(context.Background(), trxID)
		if err != nil {
			return coreError(c, err)
		}
	}

	status, err := w.Sync(c.Context())
	if errors.Is(err, orderwatch.ErrUnchanged) {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    fiber.Map{"status": status, "updated": false},
		})
	}
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"status": status, "updated": true},
	})
}

// HandleAPIHistory lists past orders. Logged-in users get their core
// history, guests look up by the contact they left on the order.
func HandleAPIHistory(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsLoggedIn {
		trxs, err := coreClient.History(c.Context(), userCtx.Token)
		if err != nil {
			return coreError(c, err)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data":    trxs,
		})
	}

	contact := c.Query("contact")
	if !guestContactValid(contact) {
		return jsonError(c, fiber.StatusUnprocessableEntity, "contact must carry at least 9 digits")
	}
	refs, err := repository.GetGlobalFactory().GetOrderRefRepository().ListByGuestContact(contact, 0, 50)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "ledger unavailable")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    refs,
	})
}

type depositRequest struct {
	Amount        int64  `json:"amount" validate:"required"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

// HandleAPIDeposit starts a balance top-up for the logged-in user.
func HandleAPIDeposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, validationMessage(err))
	}
	if req.Amount < DepositMinAmount {
		return jsonError(c, fiber.StatusUnprocessableEntity, "minimum deposit is 10000")
	}
	if ch, ok := paychannels.Find(req.PaymentMethod); !ok || req.Amount < ch.MinAmount {
		return jsonError(c, fiber.StatusUnprocessableEntity, "unknown payment channel")
	}

	userCtx := usercontext.GetUserContext(c)
	intent, err := coreClient.Deposit(c.Context(), userCtx.Token, req.Amount, req.PaymentMethod)
	if err != nil {
		return coreError(c, err)
	}

	ref := models.OrderRef{
		TrxID:         intent.Invoice,
		Invoice:       intent.Invoice,
		Type:          models.ORDER_TYPE_DEPOSIT,
		Amount:        intent.Amount,
		PaymentMethod: req.PaymentMethod,
		UserID:        userCtx.UserID,
		LastStatus:    models.ORDER_STATUS_PENDING,
	}
	if err := repository.GetGlobalFactory().GetOrderRefRepository().Create(&ref); err != nil {
		log.Warnf("[Order] Deposit ledger write failed: %v", err)
	}
	counter.IncrBy(counter.KeyDepositsAmount, intent.Amount)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    intent,
	})
}

// recordOrderRef mirrors a created transaction into the local ledger.
func recordOrderRef(trx *commerce.Transaction, order *commerce.CreateOrderRequest, userID string) {
	ref := models.OrderRef{
		TrxID:         trx.ID,
		Invoice:       trx.Invoice,
		Type:          models.ORDER_TYPE_TOPUP,
		ProductID:     order.ProductID,
		ProductName:   trx.DisplayName(),
		Amount:        trx.Amount,
		TargetID:      order.UserID,
		ZoneID:        order.ZoneID,
		PaymentMethod: order.PaymentMethod,
		PaymentCode:   trx.PaymentNo,
		VoucherCode:   order.VoucherCode,
		UserID:        userID,
		GuestContact:  order.GuestContact,
		LastStatus:    trx.Status,
	}
	if err := repository.GetGlobalFactory().GetOrderRefRepository().Create(&ref); err != nil {
		log.Warnf("[Order] Ledger write for %s failed: %v", trx.ID, err)
	}
}
