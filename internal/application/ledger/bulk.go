package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// BulkAdjustmentLine una línea de un lote de ajustes.
type BulkAdjustmentLine struct {
	LineNo     int
	ProductID  string
	LocationID string
	Type       entity.MovementType // adjustment_in | adjustment_out
	Quantity   decimal.Decimal
	UnitCost   *decimal.Decimal
	Reason     string
}

// BulkLineResult resultado por línea del lote.
type BulkLineResult struct {
	LineNo     int
	Movement   *entity.Movement
	StockLevel *entity.StockLevel
	Error      string
}

// BulkAdjustmentResult política explícita de éxito parcial: las líneas ya
// aplicadas quedan firmes aunque otras fallen; el caller recibe el detalle
// completo en lugar de un fallo opaco.
type BulkAdjustmentResult struct {
	Reference string
	Applied   []BulkLineResult
	Failed    []BulkLineResult
}

// BulkAdjustmentInput lote ordenado de ajustes bajo una misma referencia.
type BulkAdjustmentInput struct {
	Reference string // vacío = se genera; cada línea usa "<referencia>#<línea>"
	Lines     []BulkAdjustmentLine
	ActorID   string
}

// RegisterBulkAdjustment pre-valida cada línea contra lecturas del stock actual
// y luego aplica las válidas en secuencia, cada una en su propia transacción.
// Las líneas inválidas se reportan en Failed sin bloquear al resto; un lote
// donde todas las líneas fallan la pre-validación no toca el ledger.
func (uc *MovementUseCase) RegisterBulkAdjustment(ctx context.Context, input BulkAdjustmentInput) (*BulkAdjustmentResult, error) {
	if len(input.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	batchRef := input.Reference
	if batchRef == "" {
		batchRef = uuid.New().String()
	}
	result := &BulkAdjustmentResult{Reference: batchRef}

	// Pre-validación de todas las líneas contra el stock actual (aún sin comprometer).
	pending := make([]BulkAdjustmentLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		if err := uc.validateBulkLine(ctx, line); err != nil {
			result.Failed = append(result.Failed, BulkLineResult{LineNo: line.LineNo, Error: err.Error()})
			continue
		}
		pending = append(pending, line)
	}
	if len(pending) == 0 {
		return result, nil
	}

	// Aplicación secuencial. Una falla tardía no revierte lo ya confirmado.
	for _, line := range pending {
		res, err := uc.RegisterAdjustment(ctx, AdjustmentInput{
			ProductID:   line.ProductID,
			LocationID:  line.LocationID,
			Type:        line.Type,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			Reason:      line.Reason,
			ReferenceID: fmt.Sprintf("%s#%d", batchRef, line.LineNo),
			ActorID:     input.ActorID,
		})
		if err != nil {
			result.Failed = append(result.Failed, BulkLineResult{LineNo: line.LineNo, Error: err.Error()})
			continue
		}
		result.Applied = append(result.Applied, BulkLineResult{
			LineNo:     line.LineNo,
			Movement:   res.Movement,
			StockLevel: res.StockLevel,
		})
	}
	return result, nil
}

// validateBulkLine valida una línea contra el estado actual: tipo y motivo
// válidos, cantidad positiva, producto/ubicación existentes y, para
// disminuciones, stock suficiente bajo la política vigente.
func (uc *MovementUseCase) validateBulkLine(ctx context.Context, line BulkAdjustmentLine) error {
	if line.Type != entity.MovementTypeAdjustmentIn && line.Type != entity.MovementTypeAdjustmentOut {
		return domain.ErrInvalidInput
	}
	if !line.Quantity.IsPositive() {
		return domain.ErrInvalidInput
	}
	if !entity.ValidReason(line.Reason) {
		return domain.ErrUnknownReason
	}
	if err := uc.checkCatalog(ctx, line.ProductID, line.LocationID); err != nil {
		return err
	}
	if line.Type == entity.MovementTypeAdjustmentOut && !uc.materializer.policy.AllowNegativeStock {
		level, err := uc.stockRepo.Get(ctx, line.ProductID, line.LocationID)
		if err != nil {
			return err
		}
		onHand := decimal.Zero
		if level != nil {
			onHand = level.QuantityOnHand
		}
		if onHand.LessThan(line.Quantity) {
			return domain.ErrNegativeStock
		}
	}
	return nil
}
