package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// StockLevelRepository implementación PostgreSQL de la vista materializada de
// stock. Las escrituras son compare-and-set sobre la columna version; nunca se
// asigna una cantidad absoluta, siempre se acumula el delta en el UPDATE.
type StockLevelRepository struct {
	db Querier
}

// NewStockLevelRepository construye el repositorio sobre un pool o una tx.
func NewStockLevelRepository(db Querier) *StockLevelRepository {
	return &StockLevelRepository{db: db}
}

var _ repository.StockLevelRepository = (*StockLevelRepository)(nil)

const stockLevelColumns = `product_id, location_id, quantity_on_hand, quantity_reserved,
		cost_per_unit, version, last_movement_at, updated_at`

// Get devuelve la fila del par, o nil sin error si aún no existe.
func (r *StockLevelRepository) Get(ctx context.Context, productID, locationID string) (*entity.StockLevel, error) {
	query := `
		SELECT ` + stockLevelColumns + `
		FROM stock_levels
		WHERE product_id = $1 AND location_id = $2`

	row := r.db.QueryRow(ctx, query, productID, locationID)
	level, err := scanStockLevel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return level, err
}

// Create inserta la fila inicial con versión 1. Si otro escritor la creó
// primero el índice único dispara y se devuelve domain.ErrVersionConflict
// para que el caller relea y reintente.
func (r *StockLevelRepository) Create(ctx context.Context, level *entity.StockLevel) error {
	query := `
		INSERT INTO stock_levels (` + stockLevelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		level.ProductID, level.LocationID, level.QuantityOnHand, level.QuantityReserved,
		level.CostPerUnit, level.Version, level.LastMovementAt, level.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insertar nivel de stock: %w", err)
	}
	return nil
}

// ApplyDelta acumula los deltas y sube la versión en un solo UPDATE condicionado
// a la versión esperada. Cero filas afectadas significa que otro escritor ganó
// la carrera: domain.ErrVersionConflict.
func (r *StockLevelRepository) ApplyDelta(ctx context.Context, apply repository.DeltaApplication) (*entity.StockLevel, error) {
	query := `
		UPDATE stock_levels SET
			quantity_on_hand  = quantity_on_hand + $1,
			quantity_reserved = quantity_reserved + $2,
			cost_per_unit     = COALESCE($3, cost_per_unit),
			version           = version + 1,
			last_movement_at  = $4,
			updated_at        = NOW()
		WHERE product_id = $5 AND location_id = $6 AND version = $7
		RETURNING ` + stockLevelColumns

	row := r.db.QueryRow(ctx, query,
		apply.QuantityDelta, apply.ReservedDelta, apply.NewCostPerUnit,
		apply.MovedAt, apply.ProductID, apply.LocationID, apply.ExpectedVersion,
	)
	level, err := scanStockLevel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrVersionConflict
	}
	return level, err
}

// ListByLocation lista las filas de una ubicación; vacío lista todas.
func (r *StockLevelRepository) ListByLocation(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	query := "SELECT " + stockLevelColumns + " FROM stock_levels"
	var args []any
	if locationID != "" {
		query += " WHERE location_id = $1"
		args = append(args, locationID)
	}
	query += " ORDER BY product_id, location_id"
	return r.list(ctx, query, args...)
}

// ListByProduct lista las filas de un producto en todas las ubicaciones.
func (r *StockLevelRepository) ListByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error) {
	query := `
		SELECT ` + stockLevelColumns + `
		FROM stock_levels
		WHERE product_id = $1
		ORDER BY location_id`
	return r.list(ctx, query, productID)
}

func (r *StockLevelRepository) list(ctx context.Context, query string, args ...any) ([]*entity.StockLevel, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listar niveles de stock: %w", err)
	}
	defer rows.Close()

	var levels []*entity.StockLevel
	for rows.Next() {
		level, err := scanStockLevel(rows)
		if err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

func scanStockLevel(row rowScanner) (*entity.StockLevel, error) {
	var s entity.StockLevel
	err := row.Scan(
		&s.ProductID, &s.LocationID, &s.QuantityOnHand, &s.QuantityReserved,
		&s.CostPerUnit, &s.Version, &s.LastMovementAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("escanear nivel de stock: %w", err)
	}
	return &s, nil
}
