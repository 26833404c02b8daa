// seed puebla la base con datos de demostración a través de los casos de uso.
//
// Uso: go run ./cmd/seed [-products 40] [-suppliers 5] [-warehouses 2] [-catalog productos.csv -latin1]
// Lee la misma configuración que la API (DATABASE_URL, DB_HOST, ...). Repetirlo no duplica datos.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/jhoicas/procurement-api/internal/application/auth"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/internal/application/seed"
	"github.com/jhoicas/procurement-api/internal/application/usecase"
	"github.com/jhoicas/procurement-api/internal/infrastructure/postgres"
	"github.com/jhoicas/procurement-api/pkg/config"
	"github.com/jhoicas/procurement-api/pkg/logger"
)

func main() {
	products := flag.Int("products", 40, "productos a generar (se ignora con -catalog)")
	suppliers := flag.Int("suppliers", 5, "proveedores")
	warehouses := flag.Int("warehouses", 2, "bodegas (máximo 4)")
	seedValue := flag.Uint64("seed", 0, "semilla de gofakeit; 0 aleatoria")
	catalogPath := flag.String("catalog", "", "CSV de productos: sku,name,category,unit,cost,reorder_point,reorder_quantity")
	latin1 := flag.Bool("latin1", false, "el CSV viene en ISO-8859-1")
	adminEmail := flag.String("admin-email", "admin@procurement.local", "email del administrador")
	adminPassword := flag.String("admin-password", "admin12345", "contraseña del administrador")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	opts := seed.Options{
		AdminEmail:    *adminEmail,
		AdminPassword: *adminPassword,
		Suppliers:     *suppliers,
		Products:      *products,
		Warehouses:    *warehouses,
		Seed:          *seedValue,
	}
	if *catalogPath != "" {
		f, err := os.Open(*catalogPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *catalogPath).Msg("abrir catálogo")
		}
		opts.Catalog, err = seed.ReadCatalog(f, *latin1)
		f.Close()
		if err != nil {
			log.Fatal().Err(err).Msg("leer catálogo")
		}
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.Migrate(pool, log); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	productRepo := postgres.NewProductRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	warehouseRepo := postgres.NewWarehouseRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	ledger := inventory.NewLedgerUseCase(txRunner, productRepo, warehouseRepo,
		postgres.NewInventoryRecordRepository(pool), postgres.NewStockMovementRepository(pool))

	seeder := seed.NewSeeder(
		auth.NewAuthUseCase(postgres.NewUserRepository(pool), auth.JWTConfig{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		}),
		usecase.NewCategoryUseCase(categoryRepo),
		usecase.NewWarehouseUseCase(warehouseRepo),
		usecase.NewSupplierUseCase(postgres.NewSupplierRepository(pool)),
		usecase.NewProductUseCase(productRepo, categoryRepo),
		ledger,
		purchasing.NewPurchaseOrderUseCase(txRunner, postgres.NewPurchaseOrderRepository(pool), ledger),
		log.Component("seed"),
	)

	report, err := seeder.Run(ctx, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("siembra")
	}
	log.Info().Interface("report", report).Msg("datos de demostración listos")
}
