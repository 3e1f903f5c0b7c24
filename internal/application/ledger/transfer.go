package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// TransferState estados válidos de una transferencia. No hay otras transiciones:
// requested → source_debited → destination_credited (éxito)
// requested → source_debited → compensation_applied → failed
type TransferState string

const (
	TransferRequested           TransferState = "requested"
	TransferSourceDebited       TransferState = "source_debited"
	TransferDestinationCredited TransferState = "destination_credited"
	TransferCompensationApplied TransferState = "compensation_applied"
	TransferFailed              TransferState = "failed"
)

// TransferInput intención de transferencia entre dos ubicaciones.
type TransferInput struct {
	ProductID      string
	FromLocationID string
	ToLocationID   string
	Quantity       decimal.Decimal
	TransferID     string // vacío = se genera; reusarlo hace la operación idempotente
	ActorID        string
}

// TransferResult resultado de la transferencia, incluyendo el estado final y,
// en caso de falla, el movimiento de compensación que restauró el origen.
type TransferResult struct {
	TransferID       string
	State            TransferState
	OutMovement      *entity.Movement
	InMovement       *entity.Movement
	Compensation     *entity.Movement
	SourceLevel      *entity.StockLevel
	DestinationLevel *entity.StockLevel
}

// RegisterTransfer debita el origen y abona el destino bajo una misma referencia.
// Si el abono en destino falla después de que el débito quedó confirmado, emite
// un transfer_in compensatorio sobre el origen y reporta TransferFailedError con
// la referencia de la compensación: el origen nunca queda debitado sin un abono
// correspondiente en alguna parte.
func (uc *MovementUseCase) RegisterTransfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.FromLocationID == "" || input.ToLocationID == "" || input.FromLocationID == input.ToLocationID {
		return nil, domain.ErrInvalidInput
	}
	if !input.Quantity.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.checkCatalog(ctx, input.ProductID, input.FromLocationID); err != nil {
		return nil, err
	}
	if location, err := uc.locationRepo.GetByID(ctx, input.ToLocationID); err != nil {
		return nil, err
	} else if location == nil {
		return nil, domain.ErrNotFound
	}

	transferID := input.TransferID
	if transferID == "" {
		transferID = uuid.New().String()
	}
	ref := entity.Reference{Type: entity.ReferenceTypeTransfer, ID: transferID}
	result := &TransferResult{TransferID: transferID, State: TransferRequested}

	// Idempotencia: si el débito ya existe, la transferencia está en curso,
	// completa o fallida. Con ambos lados anotados se devuelve el resultado
	// previo; con compensación anotada la falla es terminal y se reporta de
	// nuevo; con solo el débito (proceso caído a mitad) se retoma el abono
	// en destino.
	priorOut, err := uc.movRepo.GetByReference(ctx, ref.Type, ref.ID, entity.MovementTypeTransferOut)
	if err != nil {
		return nil, err
	}
	if priorOut == nil {
		// Validación de disponibilidad en origen (reservas cuentan como no disponibles).
		source, err := uc.stockRepo.Get(ctx, input.ProductID, input.FromLocationID)
		if err != nil {
			return nil, err
		}
		if source == nil || source.QuantityAvailable().LessThan(input.Quantity) {
			return nil, domain.ErrInsufficientStock
		}

		outMov := uc.transferMovement(input, entity.MovementTypeTransferOut, input.FromLocationID, ref)
		outResult, err := uc.appendAndApply(ctx, outMov)
		if err != nil {
			return nil, err
		}
		result.OutMovement = outResult.Movement
		result.SourceLevel = outResult.StockLevel
	} else {
		result.OutMovement = priorOut
		if !input.Quantity.Equal(priorOut.Quantity) {
			// El abono debe emparejar exactamente el débito ya anotado bajo la
			// misma referencia.
			return nil, domain.ErrInvalidInput
		}
		priorComp, err := uc.movRepo.GetByReference(ctx, entity.ReferenceTypeTransferCompensation, ref.ID, entity.MovementTypeTransferIn)
		if err != nil {
			return nil, err
		}
		if priorComp != nil {
			// La transferencia ya falló y el origen fue compensado: el estado
			// fallido es terminal. El reenvío devuelve el resultado previo sin
			// abonar el destino.
			result.Compensation = priorComp
			result.State = TransferFailed
			result.SourceLevel, _ = uc.stockRepo.Get(ctx, input.ProductID, input.FromLocationID)
			return result, &domain.TransferFailedError{
				TransferID:      transferID,
				CompensationRef: priorComp.Reference.ID,
				Err:             domain.ErrDuplicateReference,
			}
		}
		priorIn, err := uc.movRepo.GetByReference(ctx, ref.Type, ref.ID, entity.MovementTypeTransferIn)
		if err != nil {
			return nil, err
		}
		if priorIn != nil {
			result.InMovement = priorIn
			result.State = TransferDestinationCredited
			result.SourceLevel, _ = uc.stockRepo.Get(ctx, input.ProductID, input.FromLocationID)
			result.DestinationLevel, _ = uc.stockRepo.Get(ctx, input.ProductID, input.ToLocationID)
			return result, nil
		}
	}
	result.State = TransferSourceDebited

	inMov := uc.transferMovement(input, entity.MovementTypeTransferIn, input.ToLocationID, ref)
	inResult, applyErr := uc.appendAndApply(ctx, inMov)
	if applyErr == nil {
		result.InMovement = inResult.Movement
		result.DestinationLevel = inResult.StockLevel
		result.State = TransferDestinationCredited
		if result.SourceLevel == nil {
			result.SourceLevel, _ = uc.stockRepo.Get(ctx, input.ProductID, input.FromLocationID)
		}
		return result, nil
	}

	// El destino falló con el origen ya debitado: compensar el origen.
	compRef := entity.Reference{Type: entity.ReferenceTypeTransferCompensation, ID: transferID}
	compMov := uc.transferMovement(input, entity.MovementTypeTransferIn, input.FromLocationID, compRef)
	compResult, compErr := uc.appendAndApply(ctx, compMov)
	if compErr != nil {
		// Débito colgante: no debería ocurrir (la compensación es una entrada y
		// solo puede fallar por contención agotada). Queda auditable en el ledger.
		uc.log.Error().
			Err(compErr).
			Str("transfer_id", transferID).
			Msg("compensación de transferencia fallida, origen debitado sin abono")
		return nil, fmt.Errorf("compensar transferencia %s: %w", transferID, compErr)
	}
	result.Compensation = compResult.Movement
	result.SourceLevel = compResult.StockLevel
	result.State = TransferFailed

	uc.log.Warn().
		Str("transfer_id", transferID).
		Str("compensation_id", compResult.Movement.ID).
		Msg("transferencia fallida en destino, origen compensado")

	return result, &domain.TransferFailedError{
		TransferID:      transferID,
		CompensationRef: compRef.ID,
		Err:             applyErr,
	}
}

func (uc *MovementUseCase) transferMovement(input TransferInput, movType entity.MovementType, locationID string, ref entity.Reference) *entity.Movement {
	return &entity.Movement{
		ID:         uuid.New().String(),
		ProductID:  input.ProductID,
		LocationID: locationID,
		Type:       movType,
		Direction:  movType.DirectionOf(),
		Quantity:   input.Quantity,
		Reference:  ref,
		Reason:     entity.ReasonTransfer,
		ActorID:    input.ActorID,
		CreatedAt:  time.Now(),
	}
}
