package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/grimstore/grimstore/app/controllers"
	"github.com/grimstore/grimstore/internal/pkg/middleware"
)

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// APIServer implements the storefront JSON API.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// RegisterHandlers mounts all v1 routes on the given group.
func RegisterHandlers(v1 fiber.Router, s *APIServer) {
	v1.Get("/ping", s.GetPing)

	// Auth
	v1.Post("/auth/login", s.PostLogin)
	v1.Post("/auth/register", s.PostRegister)
	v1.Get("/auth/me", middleware.RequireAuth, s.GetMe)
	v1.Post("/auth/logout", s.PostLogout)

	// Catalog
	v1.Get("/products/:slug", s.GetProducts)
	v1.Get("/categories/:slug", s.GetCategory)
	v1.Get("/payment-channels", s.GetPaymentChannels)

	// Pre-order checks
	v1.Post("/check-id", s.PostCheckID)
	v1.Post("/voucher/check", s.PostVoucherCheck)

	// Orders
	v1.Post("/orders", s.PostOrder)
	v1.Get("/orders/:id", s.GetOrder)
	v1.Post("/orders/:id/sync", s.PostOrderSync)
	v1.Get("/history", s.GetHistory)
	v1.Post("/deposit", middleware.RequireAuth, s.PostDeposit)

	// Chat
	v1.Post("/chat/session", s.PostChatSession)
	v1.Post("/chat/session/end", s.PostChatSessionEnd)

	// Admin console
	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/stats", s.GetAdminStats)
	admin.Get("/transactions", s.GetAdminTransactions)
	admin.Get("/products", s.GetAdminProducts)
	admin.Put("/products/:id", s.PutAdminProduct)
	admin.Post("/products/sync", s.PostAdminProductsSync)
	admin.Get("/chat/sessions", s.GetAdminChatSessions)
	admin.Get("/chat/sessions/:id", s.GetAdminChatSession)
	admin.Post("/chat/sessions/:id/reply", s.PostAdminChatReply)
	admin.Post("/chat/sessions/:id/end", s.PostAdminChatEnd)
	admin.Get("/categories", s.GetAdminCategories)
	admin.Post("/categories", s.PostAdminCategory)
	admin.Put("/categories/:slug", s.PutAdminCategory)
	admin.Delete("/categories/:slug", s.DeleteAdminCategory)
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (s *APIServer) PostLogin(c *fiber.Ctx) error {
	return controllers.HandleAPILogin(c)
}

func (s *APIServer) PostRegister(c *fiber.Ctx) error {
	return controllers.HandleAPIRegister(c)
}

func (s *APIServer) GetMe(c *fiber.Ctx) error {
	return controllers.HandleAPIMe(c)
}

func (s *APIServer) PostLogout(c *fiber.Ctx) error {
	return controllers.HandleAPILogout(c)
}

func (s *APIServer) GetProducts(c *fiber.Ctx) error {
	return controllers.HandleAPIProducts(c)
}

func (s *APIServer) GetCategory(c *fiber.Ctx) error {
	return controllers.HandleAPICategory(c)
}

func (s *APIServer) GetPaymentChannels(c *fiber.Ctx) error {
	return controllers.HandleAPIPaymentChannels(c)
}

func (s *APIServer) PostCheckID(c *fiber.Ctx) error {
	return controllers.HandleAPICheckID(c)
}

func (s *APIServer) PostVoucherCheck(c *fiber.Ctx) error {
	return controllers.HandleAPIVoucherCheck(c)
}

func (s *APIServer) PostOrder(c *fiber.Ctx) error {
	return controllers.HandleAPICreateOrder(c)
}

func (s *APIServer) GetOrder(c *fiber.Ctx) error {
	return controllers.HandleAPIOrderDetail(c)
}

func (s *APIServer) PostOrderSync(c *fiber.Ctx) error {
	return controllers.HandleAPIOrderSync(c)
}

func (s *APIServer) GetHistory(c *fiber.Ctx) error {
	return controllers.HandleAPIHistory(c)
}

func (s *APIServer) PostDeposit(c *fiber.Ctx) error {
	return controllers.HandleAPIDeposit(c)
}

func (s *APIServer) PostChatSession(c *fiber.Ctx) error {
	return controllers.HandleAPIChatStart(c)
}

func (s *APIServer) PostChatSessionEnd(c *fiber.Ctx) error {
	return controllers.HandleAPIChatEnd(c)
}

func (s *APIServer) GetAdminStats(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminStats(c)
}

func (s *APIServer) GetAdminTransactions(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminTransactions(c)
}

func (s *APIServer) GetAdminProducts(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminProducts(c)
}

func (s *APIServer) PutAdminProduct(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminProductUpdate(c)
}

func (s *APIServer) PostAdminProductsSync(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminProductsSync(c)
}

func (s *APIServer) GetAdminChatSessions(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminChatSessions(c)
}

func (s *APIServer) GetAdminChatSession(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminChatHistory(c)
}

func (s *APIServer) PostAdminChatReply(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminChatReply(c)
}

func (s *APIServer) PostAdminChatEnd(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminChatEnd(c)
}

func (s *APIServer) GetAdminCategories(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminCategories(c)
}

func (s *APIServer) PostAdminCategory(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminCategoryCreate(c)
}

func (s *APIServer) PutAdminCategory(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminCategoryUpdate(c)
}

func (s *APIServer) DeleteAdminCategory(c *fiber.Ctx) error {
	return controllers.HandleAPIAdminCategoryDelete(c)
}
