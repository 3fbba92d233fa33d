package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/app/repository"
	"github.com/grimstore/grimstore/internal/pkg/commerce"
	"github.com/grimstore/grimstore/internal/pkg/metrics/counter"
	"github.com/grimstore/grimstore/internal/pkg/orderwatch"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
)

// HandleAPIAdminStats combines the core dashboard numbers with the
// gateway's own daily counters.
func HandleAPIAdminStats(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)

	stats, err := coreClient.AdminStats(c.Context(), token)
	if err != nil {
		return coreError(c, err)
	}

	days := c.QueryInt("days", 7)
	if days < 1 || days > 90 {
		days = 7
	}
	now := time.Now().UTC()
	local, err := repository.GetGlobalFactory().GetStatsRepository().Range(now.AddDate(0, 0, -(days-1)), now)
	if err != nil {
		log.Warnf("[Admin] Local stats range failed: %v", err)
	}

	activeWatchers := 0
	if m := orderwatch.GetManager(); m != nil {
		activeWatchers = m.ActiveCount()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"core":           stats,
			"gateway":        local,
			"activeWatchers": activeWatchers,
		},
	})
}

// HandleAPIAdminTransactions lists transactions with paging and an optional
// invoice search.
func HandleAPIAdminTransactions(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	result, err := coreClient.AdminTransactions(c.Context(), token, page, limit, c.Query("search"))
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// HandleAPIAdminProducts lists products for the price editor.
func HandleAPIAdminProducts(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	limit := c.QueryInt("limit", 500)

	result, err := coreClient.AdminProducts(c.Context(), token, limit)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// HandleAPIAdminProductUpdate edits one product's pricing or visibility.
func HandleAPIAdminProductUpdate(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	productID := c.Params("id")

	var update commerce.ProductUpdate
	if err := c.BodyParser(&update); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	product, err := coreClient.AdminUpdateProduct(c.Context(), token, productID, update)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    product,
	})
}

// HandleAPIAdminProductsSync pulls the fresh product list from the upstream
// supplier into the core.
func HandleAPIAdminProductsSync(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)

	result, err := coreClient.AdminSyncProducts(c.Context(), token)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    result,
	})
}

// HandleAPIAdminChatSessions lists the active support sessions.
func HandleAPIAdminChatSessions(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)

	sessions, err := coreClient.AdminChatSessions(c.Context(), token)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    sessions,
	})
}

// HandleAPIAdminChatHistory returns one session with its messages.
func HandleAPIAdminChatHistory(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	sessionID := c.Params("id")

	sess, err := coreClient.ChatSessionHistory(c.Context(), token, sessionID)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    sess,
	})
}

type adminReplyRequest struct {
	Content string `json:"content" validate:"required"`
}

// HandleAPIAdminChatReply sends an admin message into a session over the
// push channel.
func HandleAPIAdminChatReply(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	sessionID := c.Params("id")

	var req adminReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, validationMessage(err))
	}

	if err := chatService.Reply(token, sessionID, req.Content); err != nil {
		return jsonError(c, fiber.StatusBadGateway, "push channel unavailable")
	}
	counter.Incr(counter.KeyChatMessages)

	return c.JSON(fiber.Map{"success": true})
}

// HandleAPIAdminChatEnd closes a session on behalf of the support staff.
func HandleAPIAdminChatEnd(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	sessionID := c.Params("id")

	if err := chatService.End(c.Context(), token, sessionID); err != nil {
		return coreError(c, err)
	}
	if err := repository.GetGlobalFactory().GetChatSessionRefRepository().Close(sessionID); err != nil {
		log.Debugf("[Admin] Ledger close of %s failed: %v", sessionID, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// HandleAPIAdminCategories lists the game categories.
func HandleAPIAdminCategories(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)

	cats, err := coreClient.AdminCategories(c.Context(), token)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    cats,
	})
}

// HandleAPIAdminCategoryCreate adds a game category.
func HandleAPIAdminCategoryCreate(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)

	var cat commerce.CategoryConfig
	if err := c.BodyParser(&cat); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if cat.Slug == "" || cat.Name == "" {
		return jsonError(c, fiber.StatusUnprocessableEntity, "slug and name are required")
	}

	created, err := coreClient.AdminCreateCategory(c.Context(), token, cat)
	if err != nil {
		return coreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    created,
	})
}

// HandleAPIAdminCategoryUpdate edits a game category.
func HandleAPIAdminCategoryUpdate(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	slug := c.Params("slug")

	var cat commerce.CategoryConfig
	if err := c.BodyParser(&cat); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := coreClient.AdminUpdateCategory(c.Context(), token, slug, cat)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    updated,
	})
}

// HandleAPIAdminCategoryDelete removes a game category.
func HandleAPIAdminCategoryDelete(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	slug := c.Params("slug")

	if err := coreClient.AdminDeleteCategory(c.Context(), token, slug); err != nil {
		return coreError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
