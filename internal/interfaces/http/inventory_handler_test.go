package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger-api/internal/application/catalog"
	"github.com/jhoicas/stock-ledger-api/internal/application/ledger"
	"github.com/jhoicas/stock-ledger-api/internal/application/reporting"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/stock-ledger-api/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger-api/pkg/jwt"
	"github.com/jhoicas/stock-ledger-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testActorID   = "00000000-0000-0000-0000-000000000001"
	testIssuer    = "stock-ledger-test"
	testExpMin    = 60
)

type testEnv struct {
	app        *fiber.App
	store      *memory.Store
	productID  string
	locationID string
	location2  string
}

// buildTestEnv levanta la API completa sobre el store en memoria con un
// producto y dos ubicaciones sembrados.
func buildTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	env := &testEnv{
		store:      store,
		productID:  "00000000-0000-0000-0000-0000000000a1",
		locationID: "00000000-0000-0000-0000-0000000000b1",
		location2:  "00000000-0000-0000-0000-0000000000b2",
	}
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID:    env.productID,
		SKU:   "SKU-001",
		Name:  "Café molido 500g",
		Price: decimal.RequireFromString("5.00"),
	}))
	require.NoError(t, store.Locations().Create(ctx, &entity.Location{ID: env.locationID, Name: "Bodega Central"}))
	require.NoError(t, store.Locations().Create(ctx, &entity.Location{ID: env.location2, Name: "Sucursal Norte"}))

	log := logger.New(logger.Config{Env: "production", Level: "error"})
	materializer := ledger.NewMaterializer(ledger.Policy{})
	movementUC := ledger.NewMovementUseCase(
		store, store.Movements(), store.StockLevels(),
		store.Products(), store.Locations(), materializer, log,
	)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		MovementUC:  movementUC,
		ValuationUC: reporting.NewValuationUseCase(store.StockLevels(), store.Products(), nil),
		AgingUC:     reporting.NewAgingUseCase(store.Movements(), store.StockLevels(), store.Products(), nil),
		ProductUC:   catalog.NewProductUseCase(store.Products()),
		LocationUC:  catalog.NewLocationUseCase(store.Locations()),
		JWTSecret:   testJWTSecret,
	})
	env.app = app
	return env
}

func bearerToken(t *testing.T) string {
	t.Helper()
	tok, err := jwt.Generate(testJWTSecret, testActorID, "bodeguero", testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

// doJSON lanza una petición con cuerpo JSON y el token dado.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any, authHeader string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de autenticación
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_SinToken_Retorna401(t *testing.T) {
	env := buildTestEnv(t)
	resp := doJSON(t, env.app, http.MethodGet, "/api/inventory/levels", nil, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_TokenInvalido_Retorna401(t *testing.T) {
	env := buildTestEnv(t)
	resp := doJSON(t, env.app, http.MethodGet, "/api/inventory/levels", nil, "Bearer token.invalido")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de movimientos
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterMovement_Entrada201(t *testing.T) {
	env := buildTestEnv(t)
	tok := bearerToken(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/inventory/movements", fiber.Map{
		"product_id":     env.productID,
		"location_id":    env.locationID,
		"type":           "in",
		"quantity":       "10",
		"unit_cost":      "2.50",
		"reference_type": "purchase_order",
		"reference_id":   "po-001",
	}, tok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Movement struct {
			Type    string `json:"type"`
			ActorID string `json:"actor_id"`
		} `json:"movement"`
		StockLevel struct {
			QuantityOnHand string `json:"quantity_on_hand"`
		} `json:"stock_level"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "in", body.Movement.Type)
	assert.Equal(t, testActorID, body.Movement.ActorID, "el actor del token debe quedar anotado en el movimiento")
	assert.Equal(t, "10", body.StockLevel.QuantityOnHand)
}

// Reenviar la misma referencia responde 200 con duplicate:true.
func TestRegisterMovement_Reenvio200Duplicado(t *testing.T) {
	env := buildTestEnv(t)
	tok := bearerToken(t)
	payload := fiber.Map{
		"product_id":     env.productID,
		"location_id":    env.locationID,
		"type":           "in",
		"quantity":       "10",
		"unit_cost":      "2.50",
		"reference_type": "purchase_order",
		"reference_id":   "po-001",
	}

	resp := doJSON(t, env.app, http.MethodPost, "/api/inventory/movements", payload, tok)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, env.app, http.MethodPost, "/api/inventory/movements", payload, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Duplicate bool `json:"duplicate"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Duplicate)
}

func TestRegisterMovement_Validacion400(t *testing.T) {
	env := buildTestEnv(t)
	resp := doJSON(t, env.app, http.MethodPost, "/api/inventory/movements", fiber.Map{
		"product_id":     env.productID,
		"type":           "teleport", // tipo fuera del conjunto
		"quantity":       "1",
		"reference_type": "purchase_order",
		"reference_id":   "po-x",
	}, bearerToken(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterMovement_SalidaInsuficiente409(t *testing.T) {
	env := buildTestEnv(t)
	resp := doJSON(t, env.app, http.MethodPost, "/api/inventory/movements", fiber.Map{
		"product_id":     env.productID,
		"location_id":    env.locationID,
		"type":           "out",
		"quantity":       "5",
		"reference_type": "sale",
		"reference_id":   "sale-001",
	}, bearerToken(t))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "NEGATIVE_STOCK", body.Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de ajustes y transferencias vía API
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterAdjustment_MotivoDesconocido400(t *testing.T) {
	env := buildTestEnv(t)
	resp := doJSON(t, env.app, http.MethodPost, "/api/inventory/adjustments", fiber.Map{
		"product_id":  env.productID,
		"location_id": env.locationID,
		"type":        "adjustment_out",
		"quantity":    "1",
		"reason":      "motivo-inventado",
	}, bearerToken(t))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "UNKNOWN_REASON", body.Code)
}

func TestRegisterTransfer_Flujo201(t *testing.T) {
	env := buildTestEnv(t)
	tok := bearerToken(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/inventory/movements", fiber.Map{
		"product_id":     env.productID,
		"location_id":    env.locationID,
		"type":           "in",
		"quantity":       "10",
		"unit_cost":      "2.00",
		"reference_type": "purchase_order",
		"reference_id":   "po-001",
	}, tok)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, env.app, http.MethodPost, "/api/inventory/transfers", fiber.Map{
		"product_id":       env.productID,
		"from_location_id": env.locationID,
		"to_location_id":   env.location2,
		"quantity":         "4",
	}, tok)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		State       string `json:"state"`
		SourceLevel struct {
			QuantityOnHand string `json:"quantity_on_hand"`
		} `json:"source_level"`
		DestinationLevel struct {
			QuantityOnHand string `json:"quantity_on_hand"`
		} `json:"destination_level"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "destination_credited", body.State)
	assert.Equal(t, "6", body.SourceLevel.QuantityOnHand)
	assert.Equal(t, "4", body.DestinationLevel.QuantityOnHand)
}

func TestRegisterTransfer_Insuficiente409(t *testing.T) {
	env := buildTestEnv(t)
	resp := doJSON(t, env.app, http.MethodPost, "/api/inventory/transfers", fiber.Map{
		"product_id":       env.productID,
		"from_location_id": env.locationID,
		"to_location_id":   env.location2,
		"quantity":         "4",
	}, bearerToken(t))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de reportes vía API
// ──────────────────────────────────────────────────────────────────────────────

func TestGetValuation_200(t *testing.T) {
	env := buildTestEnv(t)
	tok := bearerToken(t)

	resp := doJSON(t, env.app, http.MethodPost, "/api/inventory/movements", fiber.Map{
		"product_id":     env.productID,
		"location_id":    env.locationID,
		"type":           "in",
		"quantity":       "20",
		"unit_cost":      "3.00",
		"reference_type": "purchase_order",
		"reference_id":   "po-001",
	}, tok)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, env.app, http.MethodGet, "/api/reports/valuation?location_id="+env.locationID, nil, tok)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		TotalStockValue string `json:"total_stock_value"`
		TotalRetail     string `json:"total_retail_value"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "60", body.TotalStockValue)
	assert.Equal(t, "100", body.TotalRetail)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de catálogo vía API
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateProduct_201YDuplicado409(t *testing.T) {
	env := buildTestEnv(t)
	tok := bearerToken(t)
	payload := fiber.Map{
		"sku":   "SKU-NEW",
		"name":  "Azúcar 1kg",
		"price": "1.20",
	}

	resp := doJSON(t, env.app, http.MethodPost, "/api/products", payload, tok)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Mismo SKU otra vez: duplicado.
	resp = doJSON(t, env.app, http.MethodPost, "/api/products", payload, tok)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
