package ledger

import (
	"context"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// ListMovements consulta el ledger (orden ascendente de creación, reiniciable).
// Solo lectura: nunca dispara escrituras.
func (uc *MovementUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	return uc.movRepo.List(ctx, filter)
}

// GetLevel devuelve la fila de stock de un par, o nil si no existe aún.
func (uc *MovementUseCase) GetLevel(ctx context.Context, productID, locationID string) (*entity.StockLevel, error) {
	return uc.stockRepo.Get(ctx, productID, locationID)
}

// ListLevels lista las filas de stock de una ubicación (vacío = todas).
func (uc *MovementUseCase) ListLevels(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	return uc.stockRepo.ListByLocation(ctx, locationID)
}

// ListLevelsByProduct lista las filas de stock de un producto en todas las ubicaciones.
func (uc *MovementUseCase) ListLevelsByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error) {
	return uc.stockRepo.ListByProduct(ctx, productID)
}
