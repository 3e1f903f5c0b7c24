// Package memory implementa los puertos de persistencia sobre mapas en memoria.
// Sirve para tests y para el modo demo (sin PostgreSQL configurado). Las
// transacciones se serializan con un mutex global y un journal de deshacer:
// si el callback falla, los movimientos anotados y los deltas aplicados dentro
// de la transacción se revierten.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger-api/internal/application/ledger"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

var _ ledger.TxRunner = (*Store)(nil)

// Store contiene el estado completo del ledger en memoria.
type Store struct {
	mu sync.RWMutex

	movements []*entity.Movement
	movByRef  map[string]*entity.Movement // (refType, refID, movType) -> movimiento
	levels    map[string]*entity.StockLevel
	products  map[string]*entity.Product
	skuIndex  map[string]string // sku -> product id
	locations map[string]*entity.Location
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		movByRef:  make(map[string]*entity.Movement),
		levels:    make(map[string]*entity.StockLevel),
		products:  make(map[string]*entity.Product),
		skuIndex:  make(map[string]string),
		locations: make(map[string]*entity.Location),
	}
}

func refKey(refType, refID string, movType entity.MovementType) string {
	return refType + "\x00" + refID + "\x00" + string(movType)
}

func pairKey(productID, locationID string) string {
	return productID + "\x00" + locationID
}

// Movements devuelve el repositorio del ledger atado al store (con locking propio).
func (s *Store) Movements() repository.MovementRepository { return &movementRepo{s: s, locked: true} }

// StockLevels devuelve el repositorio de niveles atado al store (con locking propio).
func (s *Store) StockLevels() repository.StockLevelRepository {
	return &stockLevelRepo{s: s, locked: true}
}

// Products devuelve el repositorio del catálogo de productos.
func (s *Store) Products() repository.ProductRepository { return &productRepo{s: s} }

// Locations devuelve el repositorio del catálogo de ubicaciones.
func (s *Store) Locations() repository.LocationRepository { return &locationRepo{s: s} }

// Run ejecuta fn como una transacción: toma el lock global, entrega repositorios
// sin locking propio y, si fn falla, revierte en orden inverso todo lo que la
// transacción escribió. Equivale al Begin/Commit/Rollback del runner PostgreSQL.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	stockRepo repository.StockLevelRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	j := &journal{}
	err := fn(&movementRepo{s: s, journal: j}, &stockLevelRepo{s: s, journal: j})
	if err != nil {
		j.revert(s)
		return err
	}
	return nil
}

// journal acumula las operaciones de deshacer de una transacción en curso.
type journal struct {
	undo []func(s *Store)
}

func (j *journal) record(fn func(s *Store)) {
	if j != nil {
		j.undo = append(j.undo, fn)
	}
}

func (j *journal) revert(s *Store) {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i](s)
	}
}

func cloneMovement(m *entity.Movement) *entity.Movement {
	c := *m
	if m.UnitCost != nil {
		uc := *m.UnitCost
		c.UnitCost = &uc
	}
	if m.ExpiryDate != nil {
		ed := *m.ExpiryDate
		c.ExpiryDate = &ed
	}
	return &c
}

func cloneLevel(l *entity.StockLevel) *entity.StockLevel {
	c := *l
	return &c
}
