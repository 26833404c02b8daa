package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	_ "github.com/jhoicas/procurement-api/docs"
	"github.com/jhoicas/procurement-api/internal/application/alerts"
	"github.com/jhoicas/procurement-api/internal/application/analytics"
	"github.com/jhoicas/procurement-api/internal/application/auth"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/procurement"
	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/internal/application/usecase"
	"github.com/jhoicas/procurement-api/internal/infrastructure/cache"
	"github.com/jhoicas/procurement-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/procurement-api/internal/infrastructure/pdf"
	"github.com/jhoicas/procurement-api/internal/infrastructure/postgres"
	"github.com/jhoicas/procurement-api/internal/infrastructure/ubl"
	httpRouter "github.com/jhoicas/procurement-api/internal/interfaces/http"
	"github.com/jhoicas/procurement-api/pkg/config"
	"github.com/jhoicas/procurement-api/pkg/logger"
)

// @title                      Procurement API
// @version                    1.0
// @description                Inventario multi-bodega, órdenes de compra y reposición automática.
// @BasePath                   /
// @securityDefinitions.apikey Bearer
// @in                         header
// @name                       Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(pool, log); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	userRepo := postgres.NewUserRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	supplierRepo := postgres.NewSupplierRepository(pool)
	inventoryRepo := postgres.NewInventoryRecordRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	poRepo := postgres.NewPurchaseOrderRepository(pool)
	alertRepo := postgres.NewAlertRepository(pool)
	dashboardRepo := postgres.NewDashboardRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder(true)
	}

	// Las alertas se evalúan después de cada commit de saldo u OC.
	alertUC := alerts.NewUseCase(alertRepo, inventoryRepo, productRepo, poRepo, log.Component("alerts")).
		WithInsights(supplierRepo, movementRepo)
	ledger := inventory.NewLedgerUseCase(txRunner, productRepo, warehouseRepo, inventoryRepo, movementRepo).
		WithObserver(alertUC)
	advisor := inventory.NewReorderAdvisor(inventoryRepo, poRepo)
	poUC := purchasing.NewPurchaseOrderUseCase(txRunner, poRepo, ledger).
		WithObservers(alertUC, alertUC)
	orchestrator := procurement.NewOrchestrator(txRunner, advisor, poUC, cfg.Procurement.LeadTimeDays, log.Component("procurement")).
		WithObserver(alertUC)
	if recorder != nil {
		alertUC.WithRecorder(recorder)
		ledger.WithRecorder(recorder)
		poUC.WithRecorder(recorder)
		orchestrator.WithRecorder(recorder)
	}

	documents := purchasing.NewDocumentUseCase(
		poRepo, supplierRepo, warehouseRepo, productRepo,
		infrapdf.NewMarotoPDFGenerator(), ubl.NewOrderBuilder(cfg.Procurement.Currency),
	)
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	idempotency, err := cache.NewIdempotencyStore(ctx, cfg.Redis, log, cfg.App.Env != "production")
	if err != nil {
		log.Fatal().Err(err).Msg("almacén de idempotencia")
	}
	defer idempotency.Close()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Procurement API",
	}))

	httpLog := log.Component("http")
	deps := httpRouter.RouterDeps{
		AuthUC:         authUC,
		UserUC:         usecase.NewUserUseCase(userRepo),
		CategoryUC:     usecase.NewCategoryUseCase(categoryRepo),
		ProductUC:      usecase.NewProductUseCase(productRepo, categoryRepo),
		WarehouseUC:    usecase.NewWarehouseUseCase(warehouseRepo),
		SupplierUC:     usecase.NewSupplierUseCase(supplierRepo),
		Ledger:         ledger,
		Advisor:        advisor,
		PurchaseOrder:  poUC,
		Documents:      documents,
		Orchestrator:   orchestrator,
		AlertUC:        alertUC,
		DashboardUC:    analytics.NewDashboardUseCase(dashboardRepo, poRepo, alertRepo, advisor),
		JWTSecret:      cfg.JWT.Secret,
		Logger:         &httpLog,
		Idempotency:    idempotency,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		ServiceName:    cfg.App.Name,
		HealthChecks: map[string]httpRouter.HealthCheck{
			"database": pool.Ping,
		},
	}
	if recorder != nil {
		deps.Metrics = recorder
		deps.MetricsPath = cfg.Metrics.Path
		deps.MetricsHandler = recorder.Handler()
	}
	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
