package controllers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/internal/pkg/cache"
	"github.com/grimstore/grimstore/internal/pkg/commerce"
	"github.com/grimstore/grimstore/internal/pkg/lookup"
	"github.com/grimstore/grimstore/internal/pkg/paychannels"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
	"github.com/grimstore/grimstore/internal/pkg/voucher"
)

// HandleAPIProducts lists the products of a category. Results are cached in
// Redis for a minute, the catalog changes rarely.
func HandleAPIProducts(c *fiber.Ctx) error {
	slug := c.Params("slug")

	if cached, err := cache.Get(cache.ProductsKey(slug)); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	products, err := coreClient.Products(c.Context(), slug)
	if err != nil {
		return coreError(c, err)
	}

	body, err := json.Marshal(fiber.Map{
		"success": true,
		"data":    products,
	})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "encoding error")
	}
	if err := cache.Set(cache.ProductsKey(slug), string(body), cache.CatalogTTL); err != nil {
		log.Debugf("[Storefront] Catalog cache write failed: %v", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// HandleAPICategory returns the category config, cached like the products.
func HandleAPICategory(c *fiber.Ctx) error {
	slug := c.Params("slug")

	if cached, err := cache.Get(cache.CategoryKey(slug)); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	category, err := coreClient.Category(c.Context(), slug)
	if err != nil {
		return coreError(c, err)
	}

	body, err := json.Marshal(fiber.Map{
		"success": true,
		"data":    category,
	})
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "encoding error")
	}
	if err := cache.Set(cache.CategoryKey(slug), string(body), cache.CatalogTTL); err != nil {
		log.Debugf("[Storefront] Category cache write failed: %v", err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// HandleAPIPaymentChannels returns the channels eligible for a total,
// grouped for the checkout. Balance is offered to logged-in users whose
// balance covers the total.
func HandleAPIPaymentChannels(c *fiber.Ctx) error {
	total := int64(c.QueryInt("total", 0))
	userCtx := usercontext.GetUserContext(c)

	balanceAvailable := userCtx.IsLoggedIn && total > 0 && userCtx.Balance >= total

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"groups":           paychannels.Grouped(total),
			"balanceAvailable": balanceAvailable,
		},
	})
}

type checkIDRequest struct {
	Category string `json:"category" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	ZoneID   string `json:"zoneId"`
	ServerID string `json:"serverId"`
}

// categoryConfig loads a category, serving from the Redis copy the catalog
// endpoint maintains when possible.
func categoryConfig(c *fiber.Ctx, slug string) (*commerce.CategoryConfig, error) {
	if cached, err := cache.Get(cache.CategoryKey(slug)); err == nil && cached != "" {
		var envelope struct {
			Data commerce.CategoryConfig `json:"data"`
		}
		if err := json.Unmarshal([]byte(cached), &envelope); err == nil && envelope.Data.Slug != "" {
			return &envelope.Data, nil
		}
	}
	return coreClient.Category(c.Context(), slug)
}

// HandleAPICheckID verifies a game account immediately. The debounced path
// for keystroke streams is the lookup websocket, this endpoint serves the
// final pre-order check. Which account fields the game needs comes from the
// category config, never from the browser.
func HandleAPICheckID(c *fiber.Ctx) error {
	var req checkIDRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, validationMessage(err))
	}

	cfg, err := categoryConfig(c, req.Category)
	if err != nil {
		return coreError(c, err)
	}

	q := lookup.Query{
		GameCode:       cfg.Code,
		TargetID:       req.UserID,
		ZoneID:         req.ZoneID,
		ServerID:       req.ServerID,
		RequiresZone:   cfg.RequiresZoneID,
		RequiresServer: cfg.RequiresServerID,
	}
	if !lookup.Eligible(q) {
		return jsonError(c, fiber.StatusUnprocessableEntity, "account id incomplete")
	}

	res := lookup.NewVerifier(coreClient).Verify(c.Context(), q)
	if res.Err != nil {
		return coreError(c, res.Err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"found":    res.Found,
			"username": res.Username,
		},
	})
}

type voucherCheckRequest struct {
	Code      string `json:"code" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	Category  string `json:"category" validate:"required"`
}

// HandleAPIVoucherCheck quotes a voucher against a product. The draft
// rebuild guarantees the discount is computed against the product's current
// price, not a price the browser claims.
func HandleAPIVoucherCheck(c *fiber.Ctx) error {
	var req voucherCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, validationMessage(err))
	}

	product, err := findProduct(c, req.Category, req.ProductID)
	if err != nil {
		return coreError(c, err)
	}
	if product == nil {
		return jsonError(c, fiber.StatusNotFound, "product not found")
	}

	draft := voucher.NewDraft(coreClient)
	draft.SelectProduct(product)
	quote, err := draft.Apply(c.Context(), req.Code)
	if err != nil {
		return coreError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"code":       draft.Code(),
			"discount":   quote.Discount,
			"finalPrice": draft.Total(),
		},
	})
}

// findProduct resolves a product inside its category listing.
func findProduct(c *fiber.Ctx, categorySlug, productID string) (*commerce.Product, error) {
	products, err := coreClient.Products(c.Context(), categorySlug)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == productID {
			return &products[i], nil
		}
	}
	return nil, nil
}
