package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// MovementFilter acota una consulta del ledger. LocationID vacío no filtra por
// ubicación; From/To acotan por fecha de creación.
type MovementFilter struct {
	ProductID  string
	LocationID string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// MovementRepository define el puerto de persistencia del ledger de movimientos.
// El ledger es append-only: no hay Update ni Delete.
type MovementRepository interface {
	// Create persiste un movimiento. Devuelve domain.ErrDuplicateReference si ya
	// existe un movimiento con la misma (referencia.Type, referencia.ID, tipo):
	// es la guardia de idempotencia del ledger.
	Create(ctx context.Context, movement *entity.Movement) error

	// GetByReference busca el movimiento previo para una llave de idempotencia.
	// Devuelve nil (sin error) si no existe.
	GetByReference(ctx context.Context, refType, refID string, movementType entity.MovementType) (*entity.Movement, error)

	// List devuelve los movimientos que cumplen el filtro, en orden ascendente de
	// creación (el orden de replay del ledger). La consulta es reiniciable: no
	// mantiene estado de cursor.
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
}
