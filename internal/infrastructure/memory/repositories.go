package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// movementRepo implementa el ledger sobre el store. Con locked toma el lock por
// operación (uso fuera de transacción); con journal anota el deshacer de cada
// escritura (uso dentro de Run).
type movementRepo struct {
	s       *Store
	locked  bool
	journal *journal
}

var _ repository.MovementRepository = (*movementRepo)(nil)

func (r *movementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if r.locked {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	key := refKey(m.Reference.Type, m.Reference.ID, m.Type)
	if _, exists := r.s.movByRef[key]; exists {
		return domain.ErrDuplicateReference
	}
	stored := cloneMovement(m)
	r.s.movements = append(r.s.movements, stored)
	r.s.movByRef[key] = stored
	r.journal.record(func(s *Store) {
		s.movements = s.movements[:len(s.movements)-1]
		delete(s.movByRef, key)
	})
	return nil
}

func (r *movementRepo) GetByReference(ctx context.Context, refType, refID string, movementType entity.MovementType) (*entity.Movement, error) {
	if r.locked {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	m, ok := r.s.movByRef[refKey(refType, refID, movementType)]
	if !ok {
		return nil, nil
	}
	return cloneMovement(m), nil
}

func (r *movementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.Movement, error) {
	if r.locked {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	var out []*entity.Movement
	for _, m := range r.s.movements {
		if filter.ProductID != "" && m.ProductID != filter.ProductID {
			continue
		}
		if filter.LocationID != "" && m.LocationID != filter.LocationID {
			continue
		}
		if filter.From != nil && m.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !m.CreatedAt.Before(*filter.To) {
			continue
		}
		out = append(out, cloneMovement(m))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// stockLevelRepo implementa la vista materializada sobre el store, con el mismo
// compare-and-set por versión que la implementación PostgreSQL.
type stockLevelRepo struct {
	s       *Store
	locked  bool
	journal *journal
}

var _ repository.StockLevelRepository = (*stockLevelRepo)(nil)

func (r *stockLevelRepo) Get(ctx context.Context, productID, locationID string) (*entity.StockLevel, error) {
	if r.locked {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	l, ok := r.s.levels[pairKey(productID, locationID)]
	if !ok {
		return nil, nil
	}
	return cloneLevel(l), nil
}

func (r *stockLevelRepo) Create(ctx context.Context, level *entity.StockLevel) error {
	if r.locked {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	key := pairKey(level.ProductID, level.LocationID)
	if _, exists := r.s.levels[key]; exists {
		return domain.ErrVersionConflict
	}
	r.s.levels[key] = cloneLevel(level)
	r.journal.record(func(s *Store) { delete(s.levels, key) })
	return nil
}

func (r *stockLevelRepo) ApplyDelta(ctx context.Context, apply repository.DeltaApplication) (*entity.StockLevel, error) {
	if r.locked {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	key := pairKey(apply.ProductID, apply.LocationID)
	current, ok := r.s.levels[key]
	if !ok || current.Version != apply.ExpectedVersion {
		return nil, domain.ErrVersionConflict
	}
	previous := cloneLevel(current)

	updated := cloneLevel(current)
	updated.QuantityOnHand = updated.QuantityOnHand.Add(apply.QuantityDelta)
	updated.QuantityReserved = updated.QuantityReserved.Add(apply.ReservedDelta)
	if apply.NewCostPerUnit != nil {
		updated.CostPerUnit = *apply.NewCostPerUnit
	}
	updated.Version++
	updated.LastMovementAt = apply.MovedAt
	updated.UpdatedAt = time.Now()

	r.s.levels[key] = updated
	r.journal.record(func(s *Store) { s.levels[key] = previous })
	return cloneLevel(updated), nil
}

func (r *stockLevelRepo) ListByLocation(ctx context.Context, locationID string) ([]*entity.StockLevel, error) {
	if r.locked {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	var out []*entity.StockLevel
	for _, l := range r.s.levels {
		if locationID != "" && l.LocationID != locationID {
			continue
		}
		out = append(out, cloneLevel(l))
	}
	sortLevels(out)
	return out, nil
}

func (r *stockLevelRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockLevel, error) {
	if r.locked {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	var out []*entity.StockLevel
	for _, l := range r.s.levels {
		if l.ProductID != productID {
			continue
		}
		out = append(out, cloneLevel(l))
	}
	sortLevels(out)
	return out, nil
}

func sortLevels(levels []*entity.StockLevel) {
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].ProductID != levels[j].ProductID {
			return levels[i].ProductID < levels[j].ProductID
		}
		return levels[i].LocationID < levels[j].LocationID
	})
}

// productRepo catálogo de productos en memoria.
type productRepo struct{ s *Store }

var _ repository.ProductRepository = (*productRepo)(nil)

func (r *productRepo) Create(ctx context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.products[p.ID]; exists {
		return domain.ErrDuplicate
	}
	if _, exists := r.s.skuIndex[p.SKU]; exists {
		return domain.ErrDuplicate
	}
	c := *p
	r.s.products[p.ID] = &c
	r.s.skuIndex[p.SKU] = p.ID
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *productRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.skuIndex[sku]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *r.s.products[id]
	return &c, nil
}

func (r *productRepo) List(ctx context.Context, limit, offset int) ([]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return paginate(out, limit, offset), nil
}

// locationRepo catálogo de ubicaciones en memoria.
type locationRepo struct{ s *Store }

var _ repository.LocationRepository = (*locationRepo)(nil)

func (r *locationRepo) Create(ctx context.Context, l *entity.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.locations[l.ID]; exists {
		return domain.ErrDuplicate
	}
	c := *l
	r.s.locations[l.ID] = &c
	return nil
}

func (r *locationRepo) GetByID(ctx context.Context, id string) (*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	l, ok := r.s.locations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *l
	return &c, nil
}

func (r *locationRepo) List(ctx context.Context, limit, offset int) ([]*entity.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Location, 0, len(r.s.locations))
	for _, l := range r.s.locations {
		c := *l
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
