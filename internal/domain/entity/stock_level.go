package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel es la fila materializada de stock actual por producto y ubicación.
// Es un fold sobre el ledger de movimientos, nunca una fuente de verdad propia:
// QuantityOnHand debe ser en todo instante la suma con signo de los movimientos
// del par (ProductID, LocationID). Version crece monótonamente y es la llave de
// la escritura optimista (compare-and-set).
type StockLevel struct {
	ProductID        string
	LocationID       string
	QuantityOnHand   decimal.Decimal
	QuantityReserved decimal.Decimal
	CostPerUnit      decimal.Decimal // costo promedio ponderado
	Version          int64
	LastMovementAt   time.Time
	UpdatedAt        time.Time
}

// QuantityAvailable devuelve lo disponible para comprometer (on hand - reservado).
func (s *StockLevel) QuantityAvailable() decimal.Decimal {
	return s.QuantityOnHand.Sub(s.QuantityReserved)
}

// NewStockLevel crea una fila en cero para el primer movimiento de un par.
func NewStockLevel(productID, locationID string) *StockLevel {
	return &StockLevel{
		ProductID:        productID,
		LocationID:       locationID,
		QuantityOnHand:   decimal.Zero,
		QuantityReserved: decimal.Zero,
		CostPerUnit:      decimal.Zero,
	}
}
