package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// Clases de antigüedad de un lote.
const (
	AgeClassFresh   = "fresh"
	AgeClassAging   = "aging"
	AgeClassOld     = "old"
	AgeClassExpired = "expired"
)

// Umbrales por defecto en días para clasificar lotes por antigüedad.
const (
	DefaultFreshDays = 30
	DefaultAgingDays = 90
)

// Batch es el estado derivado de un lote: cuánto se recibió, cuánto queda
// después de descontar consumos, y desde cuándo está en bodega.
// No se persiste; se reconstruye plegando el ledger.
type Batch struct {
	ProductID     string
	LocationID    string
	BatchNumber   string
	FirstReceived time.Time
	ExpiryDate    *time.Time
	Received      decimal.Decimal
	Remaining     decimal.Decimal
}

// AgeDays devuelve la antigüedad del lote en días completos respecto a now.
func (b *Batch) AgeDays(now time.Time) int {
	return int(now.Sub(b.FirstReceived).Hours() / 24)
}

// Classify clasifica el lote: la fecha de expiración tiene precedencia sobre
// los umbrales por edad.
func (b *Batch) Classify(now time.Time, freshDays, agingDays int) string {
	if b.ExpiryDate != nil && !b.ExpiryDate.After(now) {
		return AgeClassExpired
	}
	age := b.AgeDays(now)
	switch {
	case age < freshDays:
		return AgeClassFresh
	case age < agingDays:
		return AgeClassAging
	default:
		return AgeClassOld
	}
}

// FoldBatches reconstruye los lotes de un par producto×ubicación a partir de sus
// movimientos en orden ascendente de creación.
//
// Política de asignación de consumos (decidida aquí, el origen no la definía):
// FIFO. Los movimientos que disminuyen stock drenan los lotes en orden de primera
// recepción, sin importar el número de lote del movimiento de salida. Cada entrada
// sin número de lote forma su propio lote implícito con BatchNumber vacío, de modo
// que conserva la fecha de su recepción.
func FoldBatches(movements []*entity.Movement) []*Batch {
	byNumber := make(map[string]*Batch)
	var order []*Batch

	for _, m := range movements {
		if m.Increasing() {
			var b *Batch
			if m.BatchNumber != "" {
				b = byNumber[m.BatchNumber]
			}
			if b == nil {
				b = &Batch{
					ProductID:     m.ProductID,
					LocationID:    m.LocationID,
					BatchNumber:   m.BatchNumber,
					FirstReceived: m.CreatedAt,
					ExpiryDate:    m.ExpiryDate,
					Received:      decimal.Zero,
					Remaining:     decimal.Zero,
				}
				if m.BatchNumber != "" {
					byNumber[m.BatchNumber] = b
				}
				order = append(order, b)
			}
			if m.ExpiryDate != nil {
				b.ExpiryDate = m.ExpiryDate
			}
			b.Received = b.Received.Add(m.Quantity)
			b.Remaining = b.Remaining.Add(m.Quantity)
			continue
		}
		drainFIFO(order, m.Quantity)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].FirstReceived.Before(order[j].FirstReceived)
	})
	return order
}

// drainFIFO descuenta qty de los lotes con saldo, del más antiguo al más nuevo.
// Si el consumo excede lo recibido (stock negativo permitido por política), el
// excedente se descarta: ningún lote queda con saldo negativo.
func drainFIFO(batches []*Batch, qty decimal.Decimal) {
	sorted := make([]*Batch, len(batches))
	copy(sorted, batches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FirstReceived.Before(sorted[j].FirstReceived)
	})
	remaining := qty
	for _, b := range sorted {
		if remaining.LessThanOrEqual(decimal.Zero) {
			return
		}
		if b.Remaining.LessThanOrEqual(decimal.Zero) {
			continue
		}
		take := decimal.Min(b.Remaining, remaining)
		b.Remaining = b.Remaining.Sub(take)
		remaining = remaining.Sub(take)
	}
}
