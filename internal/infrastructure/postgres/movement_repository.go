package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// MovementRepository implementación PostgreSQL del ledger de movimientos.
// La tabla inventory_movements es append-only: este repositorio solo hace
// INSERT y SELECT, nunca UPDATE ni DELETE.
type MovementRepository struct {
	db Querier
}

// NewMovementRepository construye el repositorio sobre un pool o una tx.
func NewMovementRepository(db Querier) *MovementRepository {
	return &MovementRepository{db: db}
}

var _ repository.MovementRepository = (*MovementRepository)(nil)

const movementColumns = `id, product_id, location_id, movement_type, direction, quantity,
		unit_cost, reference_type, reference_id, batch_number, expiry_date,
		reason, actor_id, created_at`

// Create persiste un movimiento. El índice único sobre (reference_type,
// reference_id, movement_type) es la guardia de idempotencia: la violación
// se traduce a domain.ErrDuplicateReference.
func (r *MovementRepository) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO inventory_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Exec(ctx, query,
		m.ID, m.ProductID, m.LocationID, string(m.Type), m.Direction, m.Quantity,
		m.UnitCost, m.Reference.Type, m.Reference.ID, m.BatchNumber, m.ExpiryDate,
		m.Reason, m.ActorID, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReference
		}
		return fmt.Errorf("insertar movimiento: %w", err)
	}
	return nil
}

// GetByReference busca el movimiento previo con la misma llave de idempotencia.
// Devuelve nil sin error si no existe.
func (r *MovementRepository) GetByReference(ctx context.Context, refType, refID string, movementType entity.MovementType) (*entity.Movement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM inventory_movements
		WHERE reference_type = $1 AND reference_id = $2 AND movement_type = $3`

	rows, err := r.db.Query(ctx, query, refType, refID, string(movementType))
	if err != nil {
		return nil, fmt.Errorf("consultar movimiento por referencia: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanMovement(rows)
}

// List devuelve los movimientos que cumplen el filtro en orden ascendente de
// creación, que es el orden de replay del ledger.
func (r *MovementRepository) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ProductID != "" {
		conds = append(conds, "product_id = "+arg(filter.ProductID))
	}
	if filter.LocationID != "" {
		conds = append(conds, "location_id = "+arg(filter.LocationID))
	}
	if filter.From != nil {
		conds = append(conds, "created_at >= "+arg(*filter.From))
	}
	if filter.To != nil {
		conds = append(conds, "created_at < "+arg(*filter.To))
	}

	query := "SELECT " + movementColumns + " FROM inventory_movements"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	defer rows.Close()

	var movements []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovement(row rowScanner) (*entity.Movement, error) {
	var m entity.Movement
	var movementType string
	err := row.Scan(
		&m.ID, &m.ProductID, &m.LocationID, &movementType, &m.Direction, &m.Quantity,
		&m.UnitCost, &m.Reference.Type, &m.Reference.ID, &m.BatchNumber, &m.ExpiryDate,
		&m.Reason, &m.ActorID, &m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("escanear movimiento: %w", err)
	}
	m.Type = entity.MovementType(movementType)
	return &m, nil
}
