package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger-api/internal/application/catalog"
	"github.com/jhoicas/stock-ledger-api/internal/application/ledger"
	"github.com/jhoicas/stock-ledger-api/internal/application/reporting"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	MovementUC  *ledger.MovementUseCase
	ValuationUC *reporting.ValuationUseCase
	AgingUC     *reporting.AgingUseCase
	ProductUC   *catalog.ProductUseCase
	LocationUC  *catalog.LocationUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Products (protegido)
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Post("/", productHandler.Create)
	products.Get("/", productHandler.List)
	products.Get("/:id", productHandler.GetByID)

	// Locations (protegido)
	locations := protected.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC)
	locations.Post("/", locationHandler.Create)
	locations.Get("/", locationHandler.List)
	locations.Get("/:id", locationHandler.GetByID)

	// Inventory ledger (protegido)
	invGroup := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.MovementUC)
	invGroup.Post("/movements", inventoryHandler.RegisterMovement)
	invGroup.Get("/movements", inventoryHandler.ListMovements)
	invGroup.Post("/adjustments", inventoryHandler.RegisterAdjustment)
	invGroup.Post("/adjustments/bulk", inventoryHandler.RegisterBulkAdjustment)
	invGroup.Post("/transfers", inventoryHandler.RegisterTransfer)
	invGroup.Post("/counts", inventoryHandler.RegisterCount)
	invGroup.Post("/reservations", inventoryHandler.Reserve)
	invGroup.Post("/reservations/release", inventoryHandler.Release)
	invGroup.Get("/levels", inventoryHandler.ListLevels)

	// Reports (protegido)
	reports := protected.Group("/reports")
	reportHandler := NewReportHandler(deps.ValuationUC, deps.AgingUC)
	reports.Get("/valuation", reportHandler.GetValuation)
	reports.Get("/aging", reportHandler.GetAging)
}
