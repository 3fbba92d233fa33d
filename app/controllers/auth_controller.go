package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/grimstore/grimstore/internal/pkg/session"
	"github.com/grimstore/grimstore/internal/pkg/usercontext"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// HandleAPILogin authenticates against the core and binds the returned token
// to the caller's web session. The token itself is never sent to the
// browser.
func HandleAPILogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, validationMessage(err))
	}

	result, err := coreClient.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return coreError(c, err)
	}

	if err := session.SaveLogin(c, result.Token, &result.User); err != nil {
		log.Errorf("[Auth] Session save failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "session error")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result.User,
	})
}

// HandleAPIRegister creates an account at the core and logs the caller in.
func HandleAPIRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusUnprocessableEntity, validationMessage(err))
	}

	result, err := coreClient.Register(c.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return coreError(c, err)
	}

	if err := session.SaveLogin(c, result.Token, &result.User); err != nil {
		log.Errorf("[Auth] Session save failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "session error")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    result.User,
	})
}

// HandleAPIMe returns the fresh profile, balance included, and updates the
// session copy.
func HandleAPIMe(c *fiber.Ctx) error {
	token := usercontext.GetToken(c)
	user, err := coreClient.Me(c.Context(), token)
	if err != nil {
		return coreError(c, err)
	}

	if err := session.RefreshProfile(c, user); err != nil {
		log.Warnf("[Auth] Profile refresh failed: %v", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

// HandleAPILogout drops the web session.
func HandleAPILogout(c *fiber.Ctx) error {
	if err := session.Destroy(c); err != nil {
		log.Warnf("[Auth] Session destroy failed: %v", err)
	}
	return c.JSON(fiber.Map{"success": true})
}
