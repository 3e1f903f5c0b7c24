package ledger

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// DefaultApplyMaxAttempts intentos de compare-and-set antes de rendirse con ErrContention.
const DefaultApplyMaxAttempts = 4

// Policy parametriza el materializador.
type Policy struct {
	// AllowNegativeStock permite que quantity_on_hand quede por debajo de cero.
	// Con false (el default), la operación completa se revierte: el movimiento
	// no queda anotado en el ledger.
	AllowNegativeStock bool
	// MaxAttempts acota los reintentos del compare-and-set ante escrituras
	// concurrentes sobre el mismo par producto×ubicación.
	MaxAttempts int
}

// Materializer es el único componente autorizado a mutar filas de StockLevel.
// Aplica cada movimiento como un delta acumulado atómico (nunca asignación de
// cantidad absoluta) condicionado a la versión de la fila, con reintentos y
// backoff ante conflicto.
type Materializer struct {
	policy Policy
}

// NewMaterializer construye el materializador con la política dada.
func NewMaterializer(policy Policy) *Materializer {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultApplyMaxAttempts
	}
	return &Materializer{policy: policy}
}

// Apply aplica un movimiento sobre la fila de stock de su par, creándola en
// cero si no existe. Tras retornar con éxito, la fila refleja exactamente un
// movimiento adicional: el compare-and-set por versión garantiza que dos
// escritores concurrentes sobre el mismo par se serialicen sin updates perdidos.
func (m *Materializer) Apply(ctx context.Context, stockRepo repository.StockLevelRepository, mov *entity.Movement) (*entity.StockLevel, error) {
	for attempt := 1; ; attempt++ {
		level, err := stockRepo.Get(ctx, mov.ProductID, mov.LocationID)
		if err != nil {
			return nil, err
		}
		updated, err := m.ApplyPinned(ctx, stockRepo, mov, level)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= m.policy.MaxAttempts {
			return nil, domain.ErrContention
		}
		if err := sleepBackoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

// ApplyPinned aplica el movimiento contra el snapshot de fila dado (nil = fila
// inexistente) sin reintentar: devuelve domain.ErrVersionConflict si otro
// escritor modificó la fila desde que se leyó el snapshot. Lo usa Apply en su
// loop de reintentos y el conteo físico, que debe recomputar su diferencia
// cuando el snapshot queda obsoleto.
func (m *Materializer) ApplyPinned(ctx context.Context, stockRepo repository.StockLevelRepository, mov *entity.Movement, level *entity.StockLevel) (*entity.StockLevel, error) {
	delta := mov.Delta()

	if level == nil {
		if delta.IsNegative() && !m.policy.AllowNegativeStock {
			return nil, domain.ErrNegativeStock
		}
		created := entity.NewStockLevel(mov.ProductID, mov.LocationID)
		created.QuantityOnHand = delta
		if mov.Increasing() && mov.UnitCost != nil {
			created.CostPerUnit = *mov.UnitCost
		}
		created.Version = 1
		created.LastMovementAt = mov.CreatedAt
		created.UpdatedAt = mov.CreatedAt
		if err := stockRepo.Create(ctx, created); err != nil {
			return nil, err
		}
		return created, nil
	}

	newQty := level.QuantityOnHand.Add(delta)
	if newQty.IsNegative() && !m.policy.AllowNegativeStock {
		return nil, domain.ErrNegativeStock
	}
	var newCost *decimal.Decimal
	if mov.Increasing() && mov.UnitCost != nil {
		c := ledger.WeightedAverageCost(level.QuantityOnHand, level.CostPerUnit, mov.Quantity, *mov.UnitCost)
		newCost = &c
	}
	return stockRepo.ApplyDelta(ctx, repository.DeltaApplication{
		ProductID:       mov.ProductID,
		LocationID:      mov.LocationID,
		QuantityDelta:   delta,
		NewCostPerUnit:  newCost,
		ExpectedVersion: level.Version,
		MovedAt:         mov.CreatedAt,
	})
}

// AdjustReservation suma delta a quantity_reserved del par, con las mismas
// garantías de serialización que Apply. La reserva resultante debe quedar
// entre cero y quantity_on_hand.
func (m *Materializer) AdjustReservation(ctx context.Context, stockRepo repository.StockLevelRepository, productID, locationID string, delta decimal.Decimal) (*entity.StockLevel, error) {
	for attempt := 1; ; attempt++ {
		level, err := stockRepo.Get(ctx, productID, locationID)
		if err != nil {
			return nil, err
		}
		if level == nil {
			return nil, domain.ErrNotFound
		}
		newReserved := level.QuantityReserved.Add(delta)
		if newReserved.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		if newReserved.GreaterThan(level.QuantityOnHand) {
			return nil, domain.ErrInsufficientStock
		}
		updated, err := stockRepo.ApplyDelta(ctx, repository.DeltaApplication{
			ProductID:       productID,
			LocationID:      locationID,
			QuantityDelta:   decimal.Zero,
			ReservedDelta:   delta,
			ExpectedVersion: level.Version,
			MovedAt:         time.Now(),
		})
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= m.policy.MaxAttempts {
			return nil, domain.ErrContention
		}
		if err := sleepBackoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

// sleepBackoff espera un backoff lineal con jitter antes del siguiente intento.
func sleepBackoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt)*5*time.Millisecond + time.Duration(rand.Int63n(int64(5*time.Millisecond)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
