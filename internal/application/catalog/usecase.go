// Package catalog contiene los casos de uso del catálogo de productos y
// ubicaciones. Es la cara administrativa del ledger: el motor de movimientos
// solo valida existencia contra estos registros.
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// ProductUseCase operaciones del catálogo de productos.
type ProductUseCase struct {
	repo repository.ProductRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo}
}

// Create registra un producto nuevo. SKU y nombre son obligatorios; el precio
// y el punto de reorden no pueden ser negativos.
func (uc *ProductUseCase) Create(ctx context.Context, p *entity.Product) (*entity.Product, error) {
	if p.SKU == "" || p.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	if p.Price.IsNegative() || p.ReorderPoint.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	p.ID = uuid.New().String()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID busca un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return uc.repo.GetByID(ctx, id)
}

// GetBySKU busca un producto por SKU.
func (uc *ProductUseCase) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return uc.repo.GetBySKU(ctx, sku)
}

// List devuelve una página del catálogo.
func (uc *ProductUseCase) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	return uc.repo.List(ctx, limit, offset)
}

// LocationUseCase operaciones del catálogo de bodegas/sucursales.
type LocationUseCase struct {
	repo repository.LocationRepository
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(repo repository.LocationRepository) *LocationUseCase {
	return &LocationUseCase{repo: repo}
}

// Create registra una ubicación nueva.
func (uc *LocationUseCase) Create(ctx context.Context, l *entity.Location) (*entity.Location, error) {
	if l.Name == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now()
	l.ID = uuid.New().String()
	l.CreatedAt = now
	l.UpdatedAt = now
	if err := uc.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// GetByID busca una ubicación por ID.
func (uc *LocationUseCase) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	return uc.repo.GetByID(ctx, id)
}

// List devuelve una página de ubicaciones.
func (uc *LocationUseCase) List(ctx context.Context, limit, offset int) ([]*entity.Location, error) {
	return uc.repo.List(ctx, limit, offset)
}
