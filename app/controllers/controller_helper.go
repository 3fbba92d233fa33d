package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/grimstore/grimstore/internal/pkg/chat"
	"github.com/grimstore/grimstore/internal/pkg/commerce"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
)

// MinGuestContactDigits is the shortest phone number accepted on a guest
// order.
const MinGuestContactDigits = 9

var validate = validator.New()

// Wiring seams. main sets these once, tests swap them per case.
var (
	coreClient  *commerce.Client
	chatService *chat.Service
	chatHub     *chat.Hub
)

// SetCoreClient wires the commerce client used by all handlers.
func SetCoreClient(c *commerce.Client) {
	coreClient = c
}

// GetCoreClient returns the wired commerce client.
func GetCoreClient() *commerce.Client {
	return coreClient
}

// SetChatService wires the chat service and its relay hub.
func SetChatService(svc *chat.Service, hub *chat.Hub) {
	chatService = svc
	chatHub = hub
}

func isLoggedIn(c *fiber.Ctx) bool {
	return usercontext.IsLoggedIn(c)
}

// jsonError writes the storefront error envelope.
func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// coreError translates a commerce client failure into a response. Core
// rejections pass through with their original status and message, transport
// failures become a 502.
func coreError(c *fiber.Ctx, err error) error {
	if errors.Is(err, commerce.ErrNotFound) {
		return jsonError(c, fiber.StatusNotFound, "Not found")
	}
	var apiErr *commerce.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status < 400 || status > 599 {
			status = fiber.StatusBadGateway
		}
		return jsonError(c, status, apiErr.Message)
	}
	return jsonError(c, fiber.StatusBadGateway, "Upstream unavailable")
}

// guestContactValid accepts a phone number with at least nine digits,
// ignoring separators and a leading plus.
func guestContactValid(contact string) bool {
	digits := 0
	for _, r := range contact {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '.':
			// separator, ignore
		default:
			return false
		}
	}
	return digits >= MinGuestContactDigits
}

// validationMessage flattens the first validator error into a readable
// message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		switch verrs[0].Tag() {
		case "required":
			return field + " is required"
		case "email":
			return field + " must be a valid email"
		case "min":
			return field + " is too short"
		}
		return field + " is invalid"
	}
	return "invalid request"
}
