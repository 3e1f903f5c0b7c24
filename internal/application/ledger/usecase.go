package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
	"github.com/jhoicas/stock-ledger-api/pkg/logger"
)

// MovementUseCase es el orquestador de escrituras del ledger: valida intenciones
// de movimiento, las expande en entradas del ledger y las aplica al stock a
// través del materializador, siempre append-then-apply dentro de una transacción.
type MovementUseCase struct {
	txRunner     TxRunner
	movRepo      repository.MovementRepository
	stockRepo    repository.StockLevelRepository
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	materializer *Materializer
	log          *logger.Logger
}

// NewMovementUseCase construye el orquestador. movRepo y stockRepo son los
// repositorios atados al pool (lecturas fuera de transacción); las escrituras
// pasan siempre por txRunner.
func NewMovementUseCase(
	txRunner TxRunner,
	movRepo repository.MovementRepository,
	stockRepo repository.StockLevelRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	materializer *Materializer,
	log *logger.Logger,
) *MovementUseCase {
	return &MovementUseCase{
		txRunner:     txRunner,
		movRepo:      movRepo,
		stockRepo:    stockRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		materializer: materializer,
		log:          log,
	}
}

// MovementInput intención de movimiento simple (recepción o venta).
// Reference es obligatoria: es la llave de idempotencia contra reenvíos.
type MovementInput struct {
	ProductID   string
	LocationID  string
	Type        entity.MovementType // in | out
	Quantity    decimal.Decimal
	UnitCost    *decimal.Decimal // obligatorio en entradas
	Reference   entity.Reference
	BatchNumber string
	ExpiryDate  *time.Time
	ActorID     string
}

// MovementResult movimiento anotado (o el previo, si la referencia ya existía)
// y la fila de stock resultante.
type MovementResult struct {
	Movement   *entity.Movement
	StockLevel *entity.StockLevel
	// Duplicate indica que la referencia ya estaba registrada y la llamada fue
	// un no-op: Movement es el movimiento previo y el stock no cambió.
	Duplicate bool
}

// RegisterMovement anota un movimiento in/out y lo aplica al stock.
// Reenviar la misma referencia devuelve el resultado previo sin doble conteo.
func (uc *MovementUseCase) RegisterMovement(ctx context.Context, input MovementInput) (*MovementResult, error) {
	if input.Type != entity.MovementTypeIn && input.Type != entity.MovementTypeOut {
		return nil, domain.ErrInvalidInput
	}
	if !input.Quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	if input.Reference.Type == "" || input.Reference.ID == "" {
		return nil, domain.ErrInvalidInput
	}
	if input.Type == entity.MovementTypeIn && (input.UnitCost == nil || input.UnitCost.IsNegative()) {
		return nil, domain.ErrInvalidInput
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.checkCatalog(ctx, input.ProductID, input.LocationID); err != nil {
		return nil, err
	}

	// Guardia de idempotencia: la misma (referencia, tipo) no cuenta dos veces.
	if prior, err := uc.priorForReference(ctx, input.Reference, input.Type); err != nil || prior != nil {
		return prior, err
	}

	mov := &entity.Movement{
		ID:          uuid.New().String(),
		ProductID:   input.ProductID,
		LocationID:  input.LocationID,
		Type:        input.Type,
		Direction:   input.Type.DirectionOf(),
		Quantity:    input.Quantity,
		UnitCost:    input.UnitCost,
		Reference:   input.Reference,
		BatchNumber: input.BatchNumber,
		ExpiryDate:  input.ExpiryDate,
		ActorID:     input.ActorID,
		CreatedAt:   time.Now(),
	}
	return uc.appendAndApply(ctx, mov)
}

// AdjustmentInput intención de ajuste manual con código de motivo.
type AdjustmentInput struct {
	ProductID   string
	LocationID  string
	Type        entity.MovementType // adjustment_in | adjustment_out
	Quantity    decimal.Decimal
	UnitCost    *decimal.Decimal
	Reason      string
	ReferenceID string // vacío = se genera
	ActorID     string
}

// RegisterAdjustment valida y aplica un ajuste simple. Falla sin estado parcial:
// si el materializador rechaza, el movimiento no queda anotado.
func (uc *MovementUseCase) RegisterAdjustment(ctx context.Context, input AdjustmentInput) (*MovementResult, error) {
	if input.Type != entity.MovementTypeAdjustmentIn && input.Type != entity.MovementTypeAdjustmentOut {
		return nil, domain.ErrInvalidInput
	}
	if !input.Quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	if !entity.ValidReason(input.Reason) {
		return nil, domain.ErrUnknownReason
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.checkCatalog(ctx, input.ProductID, input.LocationID); err != nil {
		return nil, err
	}

	ref := entity.Reference{Type: entity.ReferenceTypeAdjustment, ID: input.ReferenceID}
	if ref.ID == "" {
		ref.ID = uuid.New().String()
	} else if prior, err := uc.priorForReference(ctx, ref, input.Type); err != nil || prior != nil {
		return prior, err
	}

	mov := &entity.Movement{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		LocationID: input.LocationID,
		Type:      input.Type,
		Direction: input.Type.DirectionOf(),
		Quantity:  input.Quantity,
		UnitCost:  input.UnitCost,
		Reference: ref,
		Reason:    input.Reason,
		ActorID:   input.ActorID,
		CreatedAt: time.Now(),
	}
	return uc.appendAndApply(ctx, mov)
}

// CountInput intención de conteo físico: fija el stock en lo contado.
type CountInput struct {
	ProductID       string
	LocationID      string
	CountedQuantity decimal.Decimal
	ReferenceID     string // vacío = se genera
	ActorID         string
}

// RegisterCount anota un movimiento count por la diferencia entre lo contado y
// lo esperado. La diferencia se recomputa si otro escritor mueve el par entre
// la lectura y la aplicación (compare-and-set anclado a la versión leída).
// Si no hay diferencia no se anota movimiento.
func (uc *MovementUseCase) RegisterCount(ctx context.Context, input CountInput) (*MovementResult, error) {
	if input.CountedQuantity.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.checkCatalog(ctx, input.ProductID, input.LocationID); err != nil {
		return nil, err
	}
	ref := entity.Reference{Type: entity.ReferenceTypeCount, ID: input.ReferenceID}
	if ref.ID == "" {
		ref.ID = uuid.New().String()
	} else if prior, err := uc.priorForReference(ctx, ref, entity.MovementTypeCount); err != nil || prior != nil {
		return prior, err
	}

	for attempt := 1; ; attempt++ {
		var result *MovementResult
		err := uc.txRunner.Run(ctx, func(movRepo repository.MovementRepository, stockRepo repository.StockLevelRepository) error {
			level, err := stockRepo.Get(ctx, input.ProductID, input.LocationID)
			if err != nil {
				return err
			}
			expected := decimal.Zero
			if level != nil {
				expected = level.QuantityOnHand
			}
			diff := input.CountedQuantity.Sub(expected)
			if diff.IsZero() {
				result = &MovementResult{StockLevel: level}
				return nil
			}
			direction := 1
			if diff.IsNegative() {
				direction = -1
			}
			mov := &entity.Movement{
				ID:        uuid.New().String(),
				ProductID: input.ProductID,
				LocationID: input.LocationID,
				Type:      entity.MovementTypeCount,
				Direction: direction,
				Quantity:  diff.Abs(),
				Reference: ref,
				Reason:    entity.ReasonRecount,
				ActorID:   input.ActorID,
				CreatedAt: time.Now(),
			}
			if err := movRepo.Create(ctx, mov); err != nil {
				return err
			}
			updated, err := uc.materializer.ApplyPinned(ctx, stockRepo, mov, level)
			if err != nil {
				return err
			}
			result = &MovementResult{Movement: mov, StockLevel: updated}
			return nil
		})
		if err == nil {
			return result, nil
		}
		if errors.Is(err, domain.ErrDuplicateReference) {
			return uc.priorForReference(ctx, ref, entity.MovementTypeCount)
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= uc.materializer.policy.MaxAttempts {
			return nil, domain.ErrContention
		}
		if err := sleepBackoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

// Reserve compromete cantidad disponible del par (no genera movimiento: las
// reservas no cambian lo físico en bodega).
func (uc *MovementUseCase) Reserve(ctx context.Context, productID, locationID string, quantity decimal.Decimal) (*entity.StockLevel, error) {
	if !quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	return uc.materializer.AdjustReservation(ctx, uc.stockRepo, productID, locationID, quantity)
}

// Release libera cantidad reservada del par.
func (uc *MovementUseCase) Release(ctx context.Context, productID, locationID string, quantity decimal.Decimal) (*entity.StockLevel, error) {
	if !quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	return uc.materializer.AdjustReservation(ctx, uc.stockRepo, productID, locationID, quantity.Neg())
}

// appendAndApply anota el movimiento y lo aplica al stock en una sola
// transacción (append primero, apply después). Un duplicado de referencia
// detectado dentro de la transacción se resuelve como no-op con el resultado previo.
func (uc *MovementUseCase) appendAndApply(ctx context.Context, mov *entity.Movement) (*MovementResult, error) {
	var level *entity.StockLevel
	err := uc.txRunner.Run(ctx, func(movRepo repository.MovementRepository, stockRepo repository.StockLevelRepository) error {
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		updated, err := uc.materializer.Apply(ctx, stockRepo, mov)
		if err != nil {
			return err
		}
		level = updated
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			// Carrera entre el pre-chequeo y el insert: devolver el resultado previo.
			return uc.priorForReference(ctx, mov.Reference, mov.Type)
		}
		return nil, err
	}
	return &MovementResult{Movement: mov, StockLevel: level}, nil
}

// priorForReference devuelve el resultado no-op para una referencia ya usada,
// o nil si la referencia aún no existe.
func (uc *MovementUseCase) priorForReference(ctx context.Context, ref entity.Reference, movType entity.MovementType) (*MovementResult, error) {
	prior, err := uc.movRepo.GetByReference(ctx, ref.Type, ref.ID, movType)
	if err != nil || prior == nil {
		return nil, err
	}
	level, err := uc.stockRepo.Get(ctx, prior.ProductID, prior.LocationID)
	if err != nil {
		return nil, err
	}
	uc.log.Debug().
		Str("reference_type", ref.Type).
		Str("reference_id", ref.ID).
		Str("movement_type", string(movType)).
		Msg("referencia duplicada, respuesta idempotente")
	return &MovementResult{Movement: prior, StockLevel: level, Duplicate: true}, nil
}

// checkCatalog valida que el producto exista y, si se indica ubicación, que exista.
func (uc *MovementUseCase) checkCatalog(ctx context.Context, productID, locationID string) error {
	if productID == "" {
		return domain.ErrInvalidInput
	}
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}
	if locationID != "" {
		location, err := uc.locationRepo.GetByID(ctx, locationID)
		if err != nil {
			return err
		}
		if location == nil {
			return domain.ErrNotFound
		}
	}
	return nil
}
