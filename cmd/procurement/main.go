// procurement ejecuta el ciclo de compra automática y el barrido de alertas fuera de la API
// (cron, job de Kubernetes o proceso residente con -interval).
//
// Uso: go run ./cmd/procurement [-warehouse <id>] [-alerts=true] [-interval 1h]
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/procurement-api/internal/application/alerts"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/procurement"
	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/internal/domain/entity"
	"github.com/jhoicas/procurement-api/internal/infrastructure/postgres"
	"github.com/jhoicas/procurement-api/pkg/config"
	"github.com/jhoicas/procurement-api/pkg/logger"
)

func main() {
	warehouseID := flag.String("warehouse", "", "limitar el ciclo a una bodega")
	scanAlerts := flag.Bool("alerts", true, "barrer alertas después del ciclo")
	skipCycle := flag.Bool("alerts-only", false, "solo barrer alertas")
	interval := flag.Duration("interval", 0, "repetir cada intervalo; 0 ejecuta una vez")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	productRepo := postgres.NewProductRepository(pool)
	inventoryRepo := postgres.NewInventoryRecordRepository(pool)
	poRepo := postgres.NewPurchaseOrderRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	alertUC := alerts.NewUseCase(postgres.NewAlertRepository(pool), inventoryRepo, productRepo, poRepo, log.Component("alerts")).
		WithInsights(postgres.NewSupplierRepository(pool), movementRepo)
	ledger := inventory.NewLedgerUseCase(txRunner, productRepo, postgres.NewWarehouseRepository(pool),
		inventoryRepo, movementRepo).WithObserver(alertUC)
	orders := purchasing.NewPurchaseOrderUseCase(txRunner, poRepo, ledger).WithObservers(alertUC, alertUC)
	orchestrator := procurement.NewOrchestrator(txRunner, inventory.NewReorderAdvisor(inventoryRepo, poRepo), orders,
		cfg.Procurement.LeadTimeDays, log.Component("procurement")).WithObserver(alertUC)

	actor := purchasing.Actor{UserID: cfg.Procurement.CycleActorID, Role: entity.RoleManager}

	runOnce := func() {
		if !*skipCycle {
			report, err := orchestrator.RunCycle(ctx, actor, *warehouseID)
			if err != nil {
				log.Error().Err(err).Msg("ciclo de compras")
			} else {
				log.Info().
					Int("suggestions", report.Suggestions).
					Int("created", len(report.Created)).
					Int("appended", len(report.Appended)).
					Int("skipped", len(report.Skipped)).
					Int("failed", len(report.Failed)).
					Msg("ciclo de compras terminado")
			}
		}
		if *scanAlerts || *skipCycle {
			scan, err := alertUC.Scan(ctx)
			if err != nil {
				log.Error().Err(err).Msg("barrido de alertas")
				return
			}
			log.Info().
				Int("evaluated", scan.Evaluated).
				Int("raised", scan.Raised).
				Int("updated", scan.Updated).
				Int("resolved", scan.Resolved).
				Msg("barrido de alertas terminado")
		}
	}

	runOnce()
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("señal de apagado recibida")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
