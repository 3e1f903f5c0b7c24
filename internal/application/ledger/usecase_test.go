package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/stock-ledger-api/internal/application/ledger"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testProductID  = "00000000-0000-0000-0000-0000000000a1"
	testLocationID = "00000000-0000-0000-0000-0000000000b1"
	testLocation2  = "00000000-0000-0000-0000-0000000000b2"
	testActorID    = "00000000-0000-0000-0000-0000000000c1"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

type fixture struct {
	store *memory.Store
	uc    *ledger.MovementUseCase
}

// newFixture construye el caso de uso sobre el store en memoria con un producto
// y dos ubicaciones ya registrados.
func newFixture(t *testing.T, policy ledger.Policy) *fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID:    testProductID,
		SKU:   "SKU-001",
		Name:  "Café molido 500g",
		Price: d("5.00"),
	}))
	require.NoError(t, store.Locations().Create(ctx, &entity.Location{ID: testLocationID, Name: "Bodega Central"}))
	require.NoError(t, store.Locations().Create(ctx, &entity.Location{ID: testLocation2, Name: "Sucursal Norte"}))

	log := logger.New(logger.Config{Env: "production", Level: "error"})
	uc := ledger.NewMovementUseCase(
		store, store.Movements(), store.StockLevels(),
		store.Products(), store.Locations(),
		ledger.NewMaterializer(policy), log,
	)
	return &fixture{store: store, uc: uc}
}

// entradaDe registra una entrada simple con referencia única.
func (f *fixture) entradaDe(t *testing.T, qty, cost, refID string) *ledger.MovementResult {
	t.Helper()
	res, err := f.uc.RegisterMovement(context.Background(), ledger.MovementInput{
		ProductID:  testProductID,
		LocationID: testLocationID,
		Type:       entity.MovementTypeIn,
		Quantity:   d(qty),
		UnitCost:   dp(cost),
		Reference:  entity.Reference{Type: entity.ReferenceTypePurchaseOrder, ID: refID},
		ActorID:    testActorID,
	})
	require.NoError(t, err)
	return res
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RegisterMovement
// ──────────────────────────────────────────────────────────────────────────────

// La primera entrada crea la fila de stock con versión 1 y el costo de la entrada.
func TestRegisterMovement_PrimeraEntradaCreaNivel(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	res := f.entradaDe(t, "10", "2.50", "po-001")

	require.NotNil(t, res.StockLevel)
	assert.True(t, d("10").Equal(res.StockLevel.QuantityOnHand))
	assert.True(t, d("2.50").Equal(res.StockLevel.CostPerUnit))
	assert.Equal(t, int64(1), res.StockLevel.Version)
	assert.False(t, res.Duplicate)
}

// Reenviar la misma referencia es un no-op: devuelve el movimiento previo y el
// stock no cambia (sin doble conteo).
func TestRegisterMovement_ReferenciaDuplicada_NoOp(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	primero := f.entradaDe(t, "10", "2.50", "po-001")
	segundo := f.entradaDe(t, "10", "2.50", "po-001")

	assert.True(t, segundo.Duplicate, "el reenvío debe marcarse como duplicado")
	assert.Equal(t, primero.Movement.ID, segundo.Movement.ID, "debe devolver el movimiento previo")
	assert.True(t, d("10").Equal(segundo.StockLevel.QuantityOnHand), "el stock no debe contarse dos veces")
}

// Una salida que dejaría el stock en negativo se rechaza completa: el nivel no
// cambia y el movimiento no queda anotado en el ledger.
func TestRegisterMovement_SalidaInsuficiente_RevierteTodo(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	f.entradaDe(t, "5", "2.00", "po-001")

	_, err := f.uc.RegisterMovement(context.Background(), ledger.MovementInput{
		ProductID:  testProductID,
		LocationID: testLocationID,
		Type:       entity.MovementTypeOut,
		Quantity:   d("8"),
		Reference:  entity.Reference{Type: entity.ReferenceTypeSale, ID: "sale-001"},
		ActorID:    testActorID,
	})
	require.ErrorIs(t, err, domain.ErrNegativeStock)

	level, err := f.uc.GetLevel(context.Background(), testProductID, testLocationID)
	require.NoError(t, err)
	assert.True(t, d("5").Equal(level.QuantityOnHand), "el nivel debe quedar intacto")

	movs, err := f.uc.ListMovements(context.Background(), repository.MovementFilter{ProductID: testProductID})
	require.NoError(t, err)
	require.Len(t, movs, 1, "la salida rechazada no debe quedar en el ledger")
	assert.Equal(t, entity.MovementTypeIn, movs[0].Type)
}

// Con la política de stock negativo habilitada la misma salida pasa.
func TestRegisterMovement_StockNegativoPermitidoPorPolitica(t *testing.T) {
	f := newFixture(t, ledger.Policy{AllowNegativeStock: true})
	f.entradaDe(t, "5", "2.00", "po-001")

	res, err := f.uc.RegisterMovement(context.Background(), ledger.MovementInput{
		ProductID:  testProductID,
		LocationID: testLocationID,
		Type:       entity.MovementTypeOut,
		Quantity:   d("8"),
		Reference:  entity.Reference{Type: entity.ReferenceTypeSale, ID: "sale-001"},
		ActorID:    testActorID,
	})
	require.NoError(t, err)
	assert.True(t, d("-3").Equal(res.StockLevel.QuantityOnHand))
}

// Validaciones de entrada: tipo fuera del conjunto, cantidad no positiva,
// referencia vacía y entrada sin costo unitario.
func TestRegisterMovement_Validaciones(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()

	base := ledger.MovementInput{
		ProductID:  testProductID,
		LocationID: testLocationID,
		Type:       entity.MovementTypeIn,
		Quantity:   d("1"),
		UnitCost:   dp("1.00"),
		Reference:  entity.Reference{Type: entity.ReferenceTypePurchaseOrder, ID: "po-x"},
	}

	tipoInvalido := base
	tipoInvalido.Type = entity.MovementTypeAdjustmentIn // no es in/out
	_, err := f.uc.RegisterMovement(ctx, tipoInvalido)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	cantidadCero := base
	cantidadCero.Quantity = decimal.Zero
	_, err = f.uc.RegisterMovement(ctx, cantidadCero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	sinReferencia := base
	sinReferencia.Reference = entity.Reference{}
	_, err = f.uc.RegisterMovement(ctx, sinReferencia)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	entradaSinCosto := base
	entradaSinCosto.UnitCost = nil
	_, err = f.uc.RegisterMovement(ctx, entradaSinCosto)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegisterMovement_ProductoInexistente(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	_, err := f.uc.RegisterMovement(context.Background(), ledger.MovementInput{
		ProductID:  "no-existe",
		LocationID: testLocationID,
		Type:       entity.MovementTypeIn,
		Quantity:   d("1"),
		UnitCost:   dp("1.00"),
		Reference:  entity.Reference{Type: entity.ReferenceTypePurchaseOrder, ID: "po-x"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Dos entradas a costos distintos producen el costo promedio ponderado.
func TestRegisterMovement_CostoPromedioPonderado(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	f.entradaDe(t, "10", "2.00", "po-001")
	res := f.entradaDe(t, "10", "4.00", "po-002")

	assert.True(t, d("3").Equal(res.StockLevel.CostPerUnit),
		"esperado costo 3.00, obtenido %s", res.StockLevel.CostPerUnit)
}

// Las salidas no cambian el costo promedio.
func TestRegisterMovement_SalidaNoCambiaCosto(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	f.entradaDe(t, "10", "2.00", "po-001")

	res, err := f.uc.RegisterMovement(context.Background(), ledger.MovementInput{
		ProductID:  testProductID,
		LocationID: testLocationID,
		Type:       entity.MovementTypeOut,
		Quantity:   d("4"),
		Reference:  entity.Reference{Type: entity.ReferenceTypeSale, ID: "sale-001"},
	})
	require.NoError(t, err)
	assert.True(t, d("2.00").Equal(res.StockLevel.CostPerUnit))
	assert.True(t, d("6").Equal(res.StockLevel.QuantityOnHand))
}

// Invariante del fold: el stock materializado es siempre la suma con signo de
// los movimientos del par.
func TestLedger_FoldConsistenteConElNivel(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()

	f.entradaDe(t, "10", "2.00", "po-001")
	f.entradaDe(t, "7", "3.00", "po-002")
	_, err := f.uc.RegisterMovement(ctx, ledger.MovementInput{
		ProductID:  testProductID,
		LocationID: testLocationID,
		Type:       entity.MovementTypeOut,
		Quantity:   d("5"),
		Reference:  entity.Reference{Type: entity.ReferenceTypeSale, ID: "sale-001"},
	})
	require.NoError(t, err)

	movs, err := f.uc.ListMovements(ctx, repository.MovementFilter{ProductID: testProductID, LocationID: testLocationID})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, m := range movs {
		sum = sum.Add(m.Delta())
	}
	level, err := f.uc.GetLevel(ctx, testProductID, testLocationID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(level.QuantityOnHand),
		"fold del ledger (%s) debe igualar el nivel materializado (%s)", sum, level.QuantityOnHand)
}

// 100 escritores concurrentes de +1 sobre el mismo par: sin updates perdidos,
// el nivel termina exactamente en 100 y el ledger con 100 movimientos.
func TestRegisterMovement_ConcurrenciaSinUpdatesPerdidos(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.uc.RegisterMovement(ctx, ledger.MovementInput{
				ProductID:  testProductID,
				LocationID: testLocationID,
				Type:       entity.MovementTypeIn,
				Quantity:   d("1"),
				UnitCost:   dp("1.00"),
				Reference:  entity.Reference{Type: entity.ReferenceTypePurchaseOrder, ID: fmt.Sprintf("po-%03d", i)},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	level, err := f.uc.GetLevel(ctx, testProductID, testLocationID)
	require.NoError(t, err)
	assert.True(t, d("100").Equal(level.QuantityOnHand),
		"esperado 100, obtenido %s", level.QuantityOnHand)

	movs, err := f.uc.ListMovements(ctx, repository.MovementFilter{ProductID: testProductID})
	require.NoError(t, err)
	assert.Len(t, movs, n)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RegisterAdjustment
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterAdjustment_MotivoDesconocido(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	_, err := f.uc.RegisterAdjustment(context.Background(), ledger.AdjustmentInput{
		ProductID:  testProductID,
		LocationID: testLocationID,
		Type:       entity.MovementTypeAdjustmentOut,
		Quantity:   d("1"),
		Reason:     "se me cayó", // fuera de la enumeración
	})
	assert.ErrorIs(t, err, domain.ErrUnknownReason)
}

func TestRegisterAdjustment_AjustePositivoYNegativo(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()
	f.entradaDe(t, "10", "2.00", "po-001")

	res, err := f.uc.RegisterAdjustment(ctx, ledger.AdjustmentInput{
		ProductID:  testProductID,
		LocationID: testLocationID,
		Type:       entity.MovementTypeAdjustmentIn,
		Quantity:   d("2"),
		Reason:     entity.ReasonFound,
		ActorID:    testActorID,
	})
	require.NoError(t, err)
	assert.True(t, d("12").Equal(res.StockLevel.QuantityOnHand))

	res, err = f.uc.RegisterAdjustment(ctx, ledger.AdjustmentInput{
		ProductID:  testProductID,
		LocationID: testLocationID,
		Type:       entity.MovementTypeAdjustmentOut,
		Quantity:   d("3"),
		Reason:     entity.ReasonDamage,
		ActorID:    testActorID,
	})
	require.NoError(t, err)
	assert.True(t, d("9").Equal(res.StockLevel.QuantityOnHand))
}

// Reenviar la misma referencia de ajuste es idempotente.
func TestRegisterAdjustment_ReferenciaIdempotente(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()
	f.entradaDe(t, "10", "2.00", "po-001")

	in := ledger.AdjustmentInput{
		ProductID:   testProductID,
		LocationID:  testLocationID,
		Type:        entity.MovementTypeAdjustmentOut,
		Quantity:    d("2"),
		Reason:      entity.ReasonTheft,
		ReferenceID: "adj-001",
	}
	primero, err := f.uc.RegisterAdjustment(ctx, in)
	require.NoError(t, err)
	segundo, err := f.uc.RegisterAdjustment(ctx, in)
	require.NoError(t, err)

	assert.True(t, segundo.Duplicate)
	assert.Equal(t, primero.Movement.ID, segundo.Movement.ID)
	assert.True(t, d("8").Equal(segundo.StockLevel.QuantityOnHand))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests RegisterCount
// ──────────────────────────────────────────────────────────────────────────────

// Conteo por encima de lo esperado: movimiento count con dirección positiva.
func TestRegisterCount_DiferenciaPositiva(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	f.entradaDe(t, "10", "2.00", "po-001")

	res, err := f.uc.RegisterCount(context.Background(), ledger.CountInput{
		ProductID:       testProductID,
		LocationID:      testLocationID,
		CountedQuantity: d("13"),
		ActorID:         testActorID,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Movement)
	assert.Equal(t, entity.MovementTypeCount, res.Movement.Type)
	assert.Equal(t, 1, res.Movement.Direction)
	assert.True(t, d("3").Equal(res.Movement.Quantity))
	assert.True(t, d("13").Equal(res.StockLevel.QuantityOnHand))
}

// Conteo por debajo de lo esperado: dirección negativa, cantidad absoluta.
func TestRegisterCount_DiferenciaNegativa(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	f.entradaDe(t, "10", "2.00", "po-001")

	res, err := f.uc.RegisterCount(context.Background(), ledger.CountInput{
		ProductID:       testProductID,
		LocationID:      testLocationID,
		CountedQuantity: d("7"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Movement)
	assert.Equal(t, -1, res.Movement.Direction)
	assert.True(t, d("3").Equal(res.Movement.Quantity), "la cantidad del ledger es siempre positiva")
	assert.True(t, d("7").Equal(res.StockLevel.QuantityOnHand))
}

// Conteo que coincide con lo esperado: no se anota movimiento.
func TestRegisterCount_SinDiferenciaNoAnota(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	f.entradaDe(t, "10", "2.00", "po-001")

	res, err := f.uc.RegisterCount(context.Background(), ledger.CountInput{
		ProductID:       testProductID,
		LocationID:      testLocationID,
		CountedQuantity: d("10"),
	})
	require.NoError(t, err)
	assert.Nil(t, res.Movement, "sin diferencia no debe anotarse movimiento")

	movs, err := f.uc.ListMovements(context.Background(), repository.MovementFilter{ProductID: testProductID})
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}

func TestRegisterCount_CantidadNegativaInvalida(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	_, err := f.uc.RegisterCount(context.Background(), ledger.CountInput{
		ProductID:       testProductID,
		LocationID:      testLocationID,
		CountedQuantity: d("-1"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests Reserve / Release
// ──────────────────────────────────────────────────────────────────────────────

func TestReserve_YRelease(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()
	f.entradaDe(t, "10", "2.00", "po-001")

	level, err := f.uc.Reserve(ctx, testProductID, testLocationID, d("4"))
	require.NoError(t, err)
	assert.True(t, d("4").Equal(level.QuantityReserved))
	assert.True(t, d("6").Equal(level.QuantityAvailable()))

	// Reservar más de lo disponible falla.
	_, err = f.uc.Reserve(ctx, testProductID, testLocationID, d("7"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	level, err = f.uc.Release(ctx, testProductID, testLocationID, d("4"))
	require.NoError(t, err)
	assert.True(t, level.QuantityReserved.IsZero())

	// Liberar por debajo de cero es inválido.
	_, err = f.uc.Release(ctx, testProductID, testLocationID, d("1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Las reservas descuentan disponibilidad para transferencias.
func TestReserve_BloqueaTransferencia(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()
	f.entradaDe(t, "10", "2.00", "po-001")

	_, err := f.uc.Reserve(ctx, testProductID, testLocationID, d("8"))
	require.NoError(t, err)

	_, err = f.uc.RegisterTransfer(ctx, ledger.TransferInput{
		ProductID:      testProductID,
		FromLocationID: testLocationID,
		ToLocationID:   testLocation2,
		Quantity:       d("5"),
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock,
		"lo reservado no debe estar disponible para transferir")
}
