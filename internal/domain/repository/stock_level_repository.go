package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// DeltaApplication describe una aplicación atómica sobre una fila de stock:
// suma QuantityDelta y ReservedDelta a los valores actuales (acumular, nunca
// asignar) condicionada a que la versión de la fila siga siendo ExpectedVersion.
type DeltaApplication struct {
	ProductID       string
	LocationID      string
	QuantityDelta   decimal.Decimal
	ReservedDelta   decimal.Decimal
	NewCostPerUnit  *decimal.Decimal // nil = no cambiar el costo
	ExpectedVersion int64
	MovedAt         time.Time
}

// StockLevelRepository define el puerto de la vista materializada de stock.
// Solo el materializador escribe a través de él; el resto del sistema lee.
type StockLevelRepository interface {
	// Get devuelve la fila del par, o nil (sin error) si aún no existe.
	Get(ctx context.Context, productID, locationID string) (*entity.StockLevel, error)

	// Create inserta la fila inicial (versión 1). Devuelve domain.ErrVersionConflict
	// si otro escritor la creó primero; el caller debe releer y reintentar.
	Create(ctx context.Context, level *entity.StockLevel) error

	// ApplyDelta ejecuta el compare-and-set: acumula los deltas y sube la versión
	// solo si la versión actual coincide con ExpectedVersion. Devuelve la fila
	// resultante, o domain.ErrVersionConflict si otro escritor ganó la carrera.
	ApplyDelta(ctx context.Context, apply DeltaApplication) (*entity.StockLevel, error)

	// ListByLocation lista las filas de una ubicación (vacío = todas).
	ListByLocation(ctx context.Context, locationID string) ([]*entity.StockLevel, error)

	// ListByProduct lista las filas de un producto en todas las ubicaciones.
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error)
}
