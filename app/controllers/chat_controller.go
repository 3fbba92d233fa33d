package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/app/models"
	"github.com/grimstore/grimstore/app/repository"
	"github.com/grimstore/grimstore/internal/pkg/chat"
	"github.com/grimstore/grimstore/internal/pkg/session"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
)

type chatStartRequest struct {
	GuestName  string `json:"guestName"`
	GuestEmail string `json:"guestEmail"`
}

// HandleAPIChatStart resumes the chat session bound to the web session or
// starts a new one. Guests must introduce themselves, logged-in users are
// identified by their token.
func HandleAPIChatStart(c *fiber.Ctx) error {
	var req chatStartRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	userCtx := usercontext.GetUserContext(c)
	identity := chat.Identity{Token: userCtx.Token}
	if !userCtx.IsLoggedIn {
		if req.GuestName == "" || req.GuestEmail == "" {
			return jsonError(c, fiber.StatusUnprocessableEntity, "guest name and email are required")
		}
		if err := validate.Var(req.GuestEmail, "email"); err != nil {
			return jsonError(c, fiber.StatusUnprocessableEntity, "guestemail must be a valid email")
		}
		identity.GuestName = req.GuestName
		identity.GuestEmail = req.GuestEmail
	}

	storedID := session.ChatSessionID(c)
	if storedID == "" {
		// The binding may have been lost while the ledger still holds an
		// active session for this browser.
		if ref, err := repository.GetGlobalFactory().GetChatSessionRefRepository().GetActiveByWebSessionKey(session.WebKey(c)); err == nil && ref != nil {
			storedID = ref.SessionID
		}
	}
	chatSession, err := chatService.Ensure(c.Context(), identity, storedID)
	if err != nil {
		return coreError(c, err)
	}

	if chatSession.ID != storedID {
		if storedID != "" {
			// The stored session went stale at the core, close its ledger row.
			if err := repository.GetGlobalFactory().GetChatSessionRefRepository().Close(storedID); err != nil {
				log.Debugf("[Chat] Ledger close of %s failed: %v", storedID, err)
			}
		}
		if err := session.SaveChatSessionID(c, chatSession.ID); err != nil {
			log.Warnf("[Chat] Session binding failed: %v", err)
		}
		ref := models.ChatSessionRef{
			SessionID:     chatSession.ID,
			WebSessionKey: session.WebKey(c),
			UserID:        userCtx.UserID,
			GuestName:     identity.GuestName,
			GuestEmail:    identity.GuestEmail,
			Active:        true,
		}
		if err := repository.GetGlobalFactory().GetChatSessionRefRepository().Create(&ref); err != nil {
			log.Warnf("[Chat] Ledger write for %s failed: %v", chatSession.ID, err)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    chatSession,
	})
}

// HandleAPIChatEnd closes the bound chat session.
func HandleAPIChatEnd(c *fiber.Ctx) error {
	sessionID := session.ChatSessionID(c)
	if sessionID == "" {
		return jsonError(c, fiber.StatusNotFound, "no active chat session")
	}

	userCtx := usercontext.GetUserContext(c)
	if err := chatService.End(c.Context(), userCtx.Token, sessionID); err != nil {
		return coreError(c, err)
	}

	if err := repository.GetGlobalFactory().GetChatSessionRefRepository().Close(sessionID); err != nil {
		log.Debugf("[Chat] Ledger close of %s failed: %v", sessionID, err)
	}
	if err := session.ClearChatSessionID(c); err != nil {
		log.Warnf("[Chat] Session unbinding failed: %v", err)
	}

	return c.JSON(fiber.Map{"success": true})
}
