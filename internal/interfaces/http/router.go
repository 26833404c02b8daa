package http

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/procurement-api/internal/application/alerts"
	"github.com/jhoicas/procurement-api/internal/application/analytics"
	"github.com/jhoicas/procurement-api/internal/application/auth"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/procurement"
	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/internal/application/usecase"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/infrastructure/cache"
)

// RouterDeps dependencias para el router. Los campos opcionales en nil desactivan su ruta o middleware.
type RouterDeps struct {
	AuthUC        *auth.AuthUseCase
	UserUC        *usecase.UserUseCase
	CategoryUC    *usecase.CategoryUseCase
	ProductUC     *usecase.ProductUseCase
	WarehouseUC   *usecase.WarehouseUseCase
	SupplierUC    *usecase.SupplierUseCase
	Ledger        *inventory.LedgerUseCase
	Advisor       *inventory.ReorderAdvisor
	PurchaseOrder *purchasing.PurchaseOrderUseCase
	Documents     *purchasing.DocumentUseCase
	Orchestrator  *procurement.Orchestrator
	AlertUC       *alerts.UseCase
	DashboardUC   *analytics.DashboardUseCase
	JWTSecret     string

	// Opcionales
	Logger         *zerolog.Logger
	Idempotency    cache.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        HTTPRecorder
	MetricsPath    string
	MetricsHandler http.Handler
	ServiceName    string
	HealthChecks   map[string]HealthCheck
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Logger != nil {
		app.Use(RequestLogger(*deps.Logger))
	}
	if deps.Metrics != nil {
		app.Use(Metrics(deps.Metrics))
	}

	app.Get("/health", Health(deps.ServiceName, deps.HealthChecks))
	if deps.MetricsHandler != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(deps.MetricsHandler))
	}

	api := app.Group("/api")

	// Auth (público; register exige admin cuando ya hay usuarios)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC, deps.JWTSecret)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	if deps.Idempotency != nil {
		ttl := deps.IdempotencyTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		log := zerolog.Nop()
		if deps.Logger != nil {
			log = *deps.Logger
		}
		protected.Use(Idempotency(deps.Idempotency, ttl, log))
	}

	adminOnly := RequireRole(entity.RoleAdmin)
	writers := RequireRole(entity.RoleAdmin, entity.RoleManager)

	// Users (admin)
	users := protected.Group("/users", adminOnly)
	userHandler := NewUserHandler(deps.UserUC)
	users.Get("/", userHandler.List)
	users.Post("/", userHandler.Create)
	users.Get("/:id", userHandler.GetByID)
	users.Put("/:id", userHandler.Update)

	// Categories
	categories := protected.Group("/categories")
	categoryHandler := NewCategoryHandler(deps.CategoryUC)
	categories.Get("/", categoryHandler.List)
	categories.Post("/", writers, categoryHandler.Create)
	categories.Get("/:id", categoryHandler.GetByID)
	categories.Put("/:id", writers, categoryHandler.Update)
	categories.Delete("/:id", writers, categoryHandler.Delete)

	// Products
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC, deps.Ledger)
	products.Get("/", productHandler.List)
	products.Post("/", writers, productHandler.Create)
	products.Get("/low-stock", productHandler.LowStock)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", writers, productHandler.Update)
	products.Delete("/:id", writers, productHandler.Delete)

	// Warehouses
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Post("/", writers, warehouseHandler.Create)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", writers, warehouseHandler.Update)
	warehouses.Delete("/:id", writers, warehouseHandler.Delete)

	// Suppliers
	suppliers := protected.Group("/suppliers")
	supplierHandler := NewSupplierHandler(deps.SupplierUC)
	suppliers.Get("/", supplierHandler.List)
	suppliers.Post("/", writers, supplierHandler.Create)
	suppliers.Get("/:id", supplierHandler.GetByID)
	suppliers.Put("/:id", writers, supplierHandler.Update)
	suppliers.Delete("/:id", writers, supplierHandler.Delete)

	// Inventory ledger
	inv := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Ledger, deps.Advisor)
	inv.Get("/", inventoryHandler.List)
	inv.Post("/movements", inventoryHandler.ApplyMovement)
	inv.Get("/movements", inventoryHandler.ListMovements)
	inv.Post("/transfers", inventoryHandler.Transfer)
	inv.Post("/reservations", inventoryHandler.Reserve)
	inv.Post("/reservations/release", inventoryHandler.Release)
	inv.Get("/:productId/:warehouseId", inventoryHandler.GetRecord)
	inv.Get("/:productId/:warehouseId/reconcile", writers, inventoryHandler.Reconcile)

	protected.Get("/reorder/suggestions", inventoryHandler.Suggestions)

	// Purchase orders (los permisos por transición los evalúa el caso de uso)
	orders := protected.Group("/purchase-orders")
	poHandler := NewPurchaseOrderHandler(deps.PurchaseOrder, deps.Documents)
	orders.Get("/", poHandler.List)
	orders.Post("/", poHandler.Create)
	orders.Get("/counts", poHandler.Counts)
	orders.Get("/:id", poHandler.GetByID)
	orders.Put("/:id", poHandler.Update)
	orders.Delete("/:id", poHandler.Delete)
	orders.Patch("/:id/status", poHandler.UpdateStatus)
	orders.Post("/:id/receive", poHandler.Receive)
	orders.Post("/:id/close", poHandler.Close)
	orders.Get("/:id/pdf", poHandler.DownloadPDF)
	orders.Get("/:id/ubl", poHandler.DownloadUBL)

	// Procurement
	if deps.Orchestrator != nil {
		proc := protected.Group("/procurement", writers)
		procHandler := NewProcurementHandler(deps.Orchestrator)
		proc.Post("/run", procHandler.Run)
		proc.Post("/run/:productId/:warehouseId", procHandler.RunForProduct)
	}

	// Alerts
	if deps.AlertUC != nil {
		alertGroup := protected.Group("/alerts")
		alertHandler := NewAlertHandler(deps.AlertUC)
		alertGroup.Get("/", alertHandler.List)
		alertGroup.Get("/counts", alertHandler.Counts)
		alertGroup.Patch("/:id/status", alertHandler.UpdateStatus)
		alertGroup.Post("/scan", writers, alertHandler.Scan)
	}

	// Dashboard
	if deps.DashboardUC != nil {
		dashboardHandler := NewDashboardHandler(deps.DashboardUC)
		protected.Get("/dashboard/summary", dashboardHandler.GetSummary)
	}
}
