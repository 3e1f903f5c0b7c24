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
	"github.com/jhoicas/stock-ledger-api/internal/application/catalog"
	"github.com/jhoicas/stock-ledger-api/internal/application/ledger"
	"github.com/jhoicas/stock-ledger-api/internal/application/reporting"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stock-ledger-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/stock-ledger-api/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger-api/pkg/config"
	"github.com/jhoicas/stock-ledger-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		txRunner     ledger.TxRunner
		movRepo      repository.MovementRepository
		stockRepo    repository.StockLevelRepository
		productRepo  repository.ProductRepository
		locationRepo repository.LocationRepository
	)
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()

		txRunner = postgres.NewTxRunner(pool)
		movRepo = postgres.NewMovementRepository(pool)
		stockRepo = postgres.NewStockLevelRepository(pool)
		productRepo = postgres.NewProductRepository(pool)
		locationRepo = postgres.NewLocationRepository(pool)
	} else {
		// Sin DB configurada: store en memoria (modo demo, el estado se pierde al apagar).
		log.Warn().Msg("sin PostgreSQL configurado, usando store en memoria")
		store := memory.NewStore()
		txRunner = store
		movRepo = store.Movements()
		stockRepo = store.StockLevels()
		productRepo = store.Products()
		locationRepo = store.Locations()
	}

	var reportCache reporting.ReportCache
	if cfg.Redis.Enabled() {
		cache, err := infraredis.NewReportCache(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer cache.Close()
		reportCache = cache
	}

	materializer := ledger.NewMaterializer(ledger.Policy{
		AllowNegativeStock: cfg.Inventory.AllowNegativeStock,
		MaxAttempts:        cfg.Inventory.ApplyMaxAttempts,
	})
	movementUC := ledger.NewMovementUseCase(txRunner, movRepo, stockRepo, productRepo, locationRepo, materializer, log)
	valuationUC := reporting.NewValuationUseCase(stockRepo, productRepo, reportCache)
	agingUC := reporting.NewAgingUseCase(movRepo, stockRepo, productRepo, reportCache)
	productUC := catalog.NewProductUseCase(productRepo)
	locationUC := catalog.NewLocationUseCase(locationRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		MovementUC:  movementUC,
		ValuationUC: valuationUC,
		AgingUC:     agingUC,
		ProductUC:   productUC,
		LocationUC:  locationUC,
		JWTSecret:   cfg.JWT.Secret,
	})

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
