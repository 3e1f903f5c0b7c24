package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/stock-ledger-api/internal/application/ledger"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests RegisterBulkAdjustment — éxito parcial explícito
// ──────────────────────────────────────────────────────────────────────────────

// Lote de tres líneas con la segunda inválida: las líneas 1 y 3 se aplican,
// la 2 se reporta en Failed y el resto del lote no se bloquea.
func TestRegisterBulkAdjustment_ExitoParcial(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()
	f.entradaDe(t, "10", "2.00", "po-001")

	res, err := f.uc.RegisterBulkAdjustment(ctx, ledger.BulkAdjustmentInput{
		Reference: "lote-001",
		ActorID:   testActorID,
		Lines: []ledger.BulkAdjustmentLine{
			{LineNo: 1, ProductID: testProductID, LocationID: testLocationID, Type: entity.MovementTypeAdjustmentIn, Quantity: d("2"), Reason: entity.ReasonFound},
			{LineNo: 2, ProductID: testProductID, LocationID: testLocationID, Type: entity.MovementTypeAdjustmentOut, Quantity: d("1"), Reason: "motivo-inventado"},
			{LineNo: 3, ProductID: testProductID, LocationID: testLocationID, Type: entity.MovementTypeAdjustmentOut, Quantity: d("3"), Reason: entity.ReasonDamage},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Applied, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 2, res.Failed[0].LineNo)
	assert.Contains(t, res.Failed[0].Error, domain.ErrUnknownReason.Error())

	// Cada línea aplicada lleva su referencia derivada del lote.
	assert.Equal(t, "lote-001#1", res.Applied[0].Movement.Reference.ID)
	assert.Equal(t, "lote-001#3", res.Applied[1].Movement.Reference.ID)

	level, err := f.uc.GetLevel(ctx, testProductID, testLocationID)
	require.NoError(t, err)
	assert.True(t, d("9").Equal(level.QuantityOnHand), "10 + 2 - 3 = 9, obtenido %s", level.QuantityOnHand)
}

// Una disminución mayor al stock actual falla la pre-validación sin tocar el ledger.
func TestRegisterBulkAdjustment_DisminucionInsuficientePreValidada(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()
	f.entradaDe(t, "5", "2.00", "po-001")

	res, err := f.uc.RegisterBulkAdjustment(ctx, ledger.BulkAdjustmentInput{
		Lines: []ledger.BulkAdjustmentLine{
			{LineNo: 1, ProductID: testProductID, LocationID: testLocationID, Type: entity.MovementTypeAdjustmentOut, Quantity: d("8"), Reason: entity.ReasonLoss},
		},
	})
	require.NoError(t, err)

	require.Empty(t, res.Applied)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed[0].Error, domain.ErrNegativeStock.Error())

	movs, err := f.uc.ListMovements(ctx, repository.MovementFilter{ProductID: testProductID})
	require.NoError(t, err)
	assert.Len(t, movs, 1, "el lote completamente fallido no debe tocar el ledger")
}

// Lote vacío es inválido.
func TestRegisterBulkAdjustment_SinLineas(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	_, err := f.uc.RegisterBulkAdjustment(context.Background(), ledger.BulkAdjustmentInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Reenviar el lote completo es idempotente por línea: cada línea conserva su
// referencia y el reenvío no vuelve a contar.
func TestRegisterBulkAdjustment_ReenvioIdempotentePorLinea(t *testing.T) {
	f := newFixture(t, ledger.Policy{})
	ctx := context.Background()
	f.entradaDe(t, "10", "2.00", "po-001")

	in := ledger.BulkAdjustmentInput{
		Reference: "lote-002",
		Lines: []ledger.BulkAdjustmentLine{
			{LineNo: 1, ProductID: testProductID, LocationID: testLocationID, Type: entity.MovementTypeAdjustmentOut, Quantity: d("2"), Reason: entity.ReasonDamage},
		},
	}
	_, err := f.uc.RegisterBulkAdjustment(ctx, in)
	require.NoError(t, err)
	res, err := f.uc.RegisterBulkAdjustment(ctx, in)
	require.NoError(t, err)

	require.Len(t, res.Applied, 1)
	level, err := f.uc.GetLevel(ctx, testProductID, testLocationID)
	require.NoError(t, err)
	assert.True(t, d("8").Equal(level.QuantityOnHand), "el reenvío no debe descontar dos veces")
}
