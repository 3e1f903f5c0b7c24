package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del catálogo.
// Price es el precio de venta que usa el reporte de valoración; el costo
// promedio se mantiene por par producto×ubicación en StockLevel.
type Product struct {
	ID           string
	SKU          string // código único
	Name         string
	Description  string
	Price        decimal.Decimal // precio de venta
	ReorderPoint decimal.Decimal // umbral de stock bajo para reportes
	UnitMeasure  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
