package handler

import (
	"go-pos-inventory/internal/middleware"
	"go-pos-inventory/internal/model"
	"go-pos-inventory/internal/service"
	"go-pos-inventory/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth      *AuthHandler
	Inventory *InventoryHandler
	Sale      *SaleHandler
	Dashboard *DashboardHandler
	Role      *RoleHandler
	// Report is optional; the archive endpoint is mounted only when set.
	Report      *ReportHandler
	AuthService service.AuthService
	Hub         *ws.Hub
}

// NewApp builds the fiber application with every /api/v1 route.
func NewApp(appName string, h Handlers, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: appName,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))
	app.Use(cors.New())

	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", h.Auth.Login)
	auth.Post("/change-password", h.Auth.ChangePassword)
	auth.Post("/validate-token", h.Auth.ValidateToken)
	auth.Post("/heartbeat", middleware.RequireAuth(h.AuthService), h.Auth.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(h.AuthService))

	inventory := protected.Group("/inventory")
	inventory.Get("/", middleware.RequirePrivilege(model.PrivInventoryView), h.Inventory.GetItems)
	inventory.Get("/alerts", middleware.RequirePrivilege(model.PrivInventoryView), h.Inventory.GetAlerts)
	inventory.Get("/:id", middleware.RequirePrivilege(model.PrivInventoryView), h.Inventory.GetItem)
	inventory.Post("/", middleware.RequirePrivilege(model.PrivInventoryCreate), h.Inventory.CreateItem)
	inventory.Put("/:id", middleware.RequirePrivilege(model.PrivInventoryUpdate), h.Inventory.UpdateItem)
	inventory.Delete("/:id", middleware.RequirePrivilege(model.PrivInventoryDelete), h.Inventory.DeleteItem)

	sales := protected.Group("/sales")
	sales.Post("/", middleware.RequirePrivilege(model.PrivSaleCreate), h.Sale.Checkout)
	sales.Get("/", middleware.RequirePrivilege(model.PrivSaleView), h.Sale.GetSales)
	sales.Get("/export", middleware.RequirePrivilege(model.PrivSaleExport), h.Sale.ExportSales)
	sales.Get("/:id", middleware.RequirePrivilege(model.PrivSaleView), h.Sale.GetSale)
	sales.Put("/:id", middleware.RequirePrivilege(model.PrivSaleEdit), h.Sale.EditSale)

	dashboard := protected.Group("/dashboard", middleware.RequirePrivilege(model.PrivDashboardView))
	dashboard.Get("/summary", h.Dashboard.GetSummary)
	dashboard.Get("/daily", h.Dashboard.GetDaily)

	if h.Report != nil {
		protected.Get("/reports/daily/:date", middleware.RequirePrivilege(model.PrivDashboardView), h.Report.GetDailyReport)
	}

	protected.Get("/roles", h.Role.GetRoles)
	protected.Get("/privileges", h.Role.GetPrivileges)

	if h.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return c.SendStatus(fiber.StatusUpgradeRequired)
		})
		app.Get("/ws", websocket.New(func(c *websocket.Conn) {
			if !h.Hub.Register(c) {
				_ = c.Close()
				return
			}
			defer h.Hub.Unregister(c)

			for {
				if _, _, err := c.ReadMessage(); err != nil {
					break
				}
			}
		}))
	}

	return app
}
