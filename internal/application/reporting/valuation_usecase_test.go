package reporting_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/stock-ledger-api/internal/application/reporting"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedLevel inserta una fila de stock directamente (los reportes leen la vista
// materializada, no necesitan pasar por el orquestador).
func seedLevel(t *testing.T, store *memory.Store, productID, locationID string, qty, cost string) {
	t.Helper()
	now := time.Now()
	require.NoError(t, store.StockLevels().Create(context.Background(), &entity.StockLevel{
		ProductID:        productID,
		LocationID:       locationID,
		QuantityOnHand:   d(qty),
		QuantityReserved: decimal.Zero,
		CostPerUnit:      d(cost),
		Version:          1,
		LastMovementAt:   now,
		UpdatedAt:        now,
	}))
}

func seedProduct(t *testing.T, store *memory.Store, id, sku, price, reorder string) {
	t.Helper()
	require.NoError(t, store.Products().Create(context.Background(), &entity.Product{
		ID:           id,
		SKU:          sku,
		Name:         "Producto " + sku,
		Price:        d(price),
		ReorderPoint: d(reorder),
	}))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests GetValuation
// ──────────────────────────────────────────────────────────────────────────────

// 20 unidades a costo $3.00 con precio de venta $5.00:
// valor a costo 60, valor retail 100, ganancia 40, margen 40%.
func TestGetValuation_CalculosBasicos(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "SKU-001", "5.00", "0")
	seedLevel(t, store, "p1", "l1", "20", "3.00")

	uc := reporting.NewValuationUseCase(store.StockLevels(), store.Products(), nil)
	report, err := uc.GetValuation(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	row := report.Rows[0]
	assert.True(t, d("60").Equal(row.StockValue), "stock_value esperado 60, obtenido %s", row.StockValue)
	assert.True(t, d("100").Equal(row.RetailValue))
	assert.True(t, d("40").Equal(row.PotentialProfit))
	assert.True(t, d("40").Equal(row.MarginPercentage), "margen esperado 40%%, obtenido %s", row.MarginPercentage)

	assert.True(t, d("60").Equal(report.TotalStockValue))
	assert.True(t, d("100").Equal(report.TotalRetail))
	assert.True(t, d("40").Equal(report.TotalProfit))
}

// Precio de venta en cero: margen 0, sin división por cero.
func TestGetValuation_RetailCero_MargenCero(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "SKU-001", "0", "0")
	seedLevel(t, store, "p1", "l1", "10", "2.00")

	uc := reporting.NewValuationUseCase(store.StockLevels(), store.Products(), nil)
	report, err := uc.GetValuation(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	assert.True(t, report.Rows[0].MarginPercentage.IsZero())
}

// Conteos de stock bajo y agotado: bajo = por debajo del punto de reorden,
// agotado = exactamente cero.
func TestGetValuation_ConteosBajoYAgotado(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "SKU-001", "5.00", "10")
	seedProduct(t, store, "p2", "SKU-002", "5.00", "10")
	seedProduct(t, store, "p3", "SKU-003", "5.00", "10")
	seedLevel(t, store, "p1", "l1", "3", "1.00")  // bajo
	seedLevel(t, store, "p2", "l1", "0", "1.00")  // agotado
	seedLevel(t, store, "p3", "l1", "50", "1.00") // sano

	uc := reporting.NewValuationUseCase(store.StockLevels(), store.Products(), nil)
	report, err := uc.GetValuation(context.Background(), "l1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.LowStockCount)
	assert.Equal(t, 1, report.OutOfStockCount)
	assert.Len(t, report.Rows, 3)
}

// Filtro por ubicación: solo las filas de la ubicación pedida.
func TestGetValuation_FiltroPorUbicacion(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "SKU-001", "5.00", "0")
	seedLevel(t, store, "p1", "l1", "10", "1.00")
	seedLevel(t, store, "p1", "l2", "4", "1.00")

	uc := reporting.NewValuationUseCase(store.StockLevels(), store.Products(), nil)
	report, err := uc.GetValuation(context.Background(), "l2")
	require.NoError(t, err)

	require.Len(t, report.Rows, 1)
	assert.Equal(t, "l2", report.Rows[0].LocationID)
	assert.True(t, d("4").Equal(report.Rows[0].QuantityOnHand))
}

// ──────────────────────────────────────────────────────────────────────────────
// Caché de snapshots
// ──────────────────────────────────────────────────────────────────────────────

// fakeCache implementa ReportCache en memoria para verificar el uso de la caché.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
	sets int
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string][]byte)} }

func (c *fakeCache) Get(ctx context.Context, key string, v any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, v)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.sets++
	return nil
}

// El segundo pedido del mismo reporte se sirve desde la caché.
func TestGetValuation_SegundaConsultaDesdeCache(t *testing.T) {
	store := memory.NewStore()
	seedProduct(t, store, "p1", "SKU-001", "5.00", "0")
	seedLevel(t, store, "p1", "l1", "10", "2.00")

	cache := newFakeCache()
	uc := reporting.NewValuationUseCase(store.StockLevels(), store.Products(), cache)

	first, err := uc.GetValuation(context.Background(), "l1")
	require.NoError(t, err)
	second, err := uc.GetValuation(context.Background(), "l1")
	require.NoError(t, err)

	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, cache.hits)
	assert.True(t, first.TotalStockValue.Equal(second.TotalStockValue))
}
