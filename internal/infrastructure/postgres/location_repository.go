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

// LocationRepository implementación PostgreSQL del catálogo de ubicaciones.
type LocationRepository struct {
	db Querier
}

// NewLocationRepository construye el repositorio.
func NewLocationRepository(db Querier) *LocationRepository {
	return &LocationRepository{db: db}
}

var _ repository.LocationRepository = (*LocationRepository)(nil)

const locationColumns = `id, name, address, created_at, updated_at`

// Create persiste una ubicación. Devuelve domain.ErrDuplicate si el nombre ya existe.
func (r *LocationRepository) Create(ctx context.Context, l *entity.Location) error {
	query := `
		INSERT INTO locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, l.ID, l.Name, l.Address, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insertar ubicación: %w", err)
	}
	return nil
}

// GetByID busca una ubicación por su ID. Devuelve domain.ErrNotFound si no existe.
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	query := "SELECT " + locationColumns + " FROM locations WHERE id = $1"
	row := r.db.QueryRow(ctx, query, id)

	var l entity.Location
	err := row.Scan(&l.ID, &l.Name, &l.Address, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("escanear ubicación: %w", err)
	}
	return &l, nil
}

// List devuelve todas las ubicaciones ordenadas por nombre.
func (r *LocationRepository) List(ctx context.Context, limit, offset int) ([]*entity.Location, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM locations
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listar ubicaciones: %w", err)
	}
	defer rows.Close()

	var locations []*entity.Location
	for rows.Next() {
		var l entity.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("escanear ubicación: %w", err)
		}
		locations = append(locations, &l)
	}
	return locations, rows.Err()
}
