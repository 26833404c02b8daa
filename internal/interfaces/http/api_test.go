package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/internal/application/alerts"
	"github.com/jhoicas/procurement-api/internal/application/analytics"
	"github.com/jhoicas/procurement-api/internal/application/auth"
	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/application/inventory"
	"github.com/jhoicas/procurement-api/internal/application/procurement"
	"github.com/jhoicas/procurement-api/internal/application/purchasing"
	"github.com/jhoicas/procurement-api/internal/application/usecase"
	"github.com/jhoicas/procurement-api/internal/infrastructure/cache"
	"github.com/jhoicas/procurement-api/internal/infrastructure/memory"
	"github.com/jhoicas/procurement-api/internal/infrastructure/metrics"
	"github.com/jhoicas/procurement-api/internal/infrastructure/pdf"
	"github.com/jhoicas/procurement-api/internal/infrastructure/ubl"
	apphttp "github.com/jhoicas/procurement-api/internal/interfaces/http"
)

// ──────────────────────────────────────────────────────────────────────────────
// Servidor de prueba sobre el almacén en memoria
// ──────────────────────────────────────────────────────────────────────────────

type server struct {
	app     *fiber.App
	store   *memory.Store
	metrics *metrics.Recorder
}

func newServer(t *testing.T) *server {
	t.Helper()
	store := memory.NewStore()
	txRunner := memory.NewTxRunner(store)
	rec := metrics.NewRecorder(false)

	ledger := inventory.NewLedgerUseCase(txRunner, store.Products(), store.Warehouses(), store.Inventory(), store.Movements()).
		WithRecorder(rec)
	advisor := inventory.NewReorderAdvisor(store.Inventory(), store.PurchaseOrders())
	orders := purchasing.NewPurchaseOrderUseCase(txRunner, store.PurchaseOrders(), ledger).WithRecorder(rec)
	docs := purchasing.NewDocumentUseCase(store.PurchaseOrders(), store.Suppliers(), store.Warehouses(), store.Products(),
		pdf.NewMarotoPDFGenerator(), ubl.NewOrderBuilder("COP"))
	alertUC := alerts.NewUseCase(store.Alerts(), store.Inventory(), store.Products(), store.PurchaseOrders(), zerolog.Nop()).
		WithInsights(store.Suppliers(), store.Movements())

	idem := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = idem.Close() })

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:         auth.NewAuthUseCase(store.Users(), auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: 60, Issuer: testIssuer}),
		UserUC:         usecase.NewUserUseCase(store.Users()),
		CategoryUC:     usecase.NewCategoryUseCase(store.Categories()),
		ProductUC:      usecase.NewProductUseCase(store.Products(), store.Categories()),
		WarehouseUC:    usecase.NewWarehouseUseCase(store.Warehouses()),
		SupplierUC:     usecase.NewSupplierUseCase(store.Suppliers()),
		Ledger:         ledger,
		Advisor:        advisor,
		PurchaseOrder:  orders,
		Documents:      docs,
		Orchestrator:   procurement.NewOrchestrator(txRunner, advisor, orders, 7, zerolog.Nop()),
		AlertUC:        alertUC,
		DashboardUC:    analytics.NewDashboardUseCase(store.Dashboard(), store.PurchaseOrders(), store.Alerts(), advisor),
		JWTSecret:      testJWTSecret,
		Idempotency:    idem,
		Metrics:        rec,
		MetricsHandler: rec.Handler(),
		ServiceName:    "procurement-api-test",
	})
	return &server{app: app, store: store, metrics: rec}
}

type call struct {
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

func (s *server) do(t *testing.T, c call) (int, []byte, http.Header) {
	t.Helper()
	var reader io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, reader)
	if c.body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out, resp.Header
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// login registra (si hace falta) y autentica; devuelve el token.
func (s *server) login(t *testing.T, email string) string {
	t.Helper()
	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: dto.LoginRequest{Email: email, Password: "clave-segura-123"}})
	require.Equal(t, http.StatusOK, status, string(raw))
	return decode[dto.LoginResponse](t, raw).Token
}

func (s *server) bootstrapAdmin(t *testing.T) string {
	t.Helper()
	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: dto.RegisterRequest{
		Email: "admin@empresa.com", Password: "clave-segura-123", Name: "Admin",
	}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	assert.Equal(t, "admin", decode[dto.UserResponse](t, raw).Role)
	return s.login(t, "admin@empresa.com")
}

func (s *server) createStaff(t *testing.T, adminToken string) string {
	t.Helper()
	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/users", token: adminToken, body: dto.CreateUserRequest{
		Email: "staff@empresa.com", Password: "clave-segura-123", Name: "Staff", Role: "staff",
	}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	return s.login(t, "staff@empresa.com")
}

type catalog struct {
	productID, warehouseID, supplierID string
}

func (s *server) seedCatalog(t *testing.T, token string) catalog {
	t.Helper()
	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/products", token: token, body: dto.CreateProductRequest{
		SKU: "TORN-01", Name: "Tornillo", ReorderPoint: 10, ReorderQuantity: 50,
	}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	product := decode[dto.ProductResponse](t, raw)

	status, raw, _ = s.do(t, call{method: http.MethodPost, path: "/api/warehouses", token: token, body: dto.CreateWarehouseRequest{Code: "BOG", Name: "Bogotá"}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	wh := decode[dto.WarehouseResponse](t, raw)

	status, raw, _ = s.do(t, call{method: http.MethodPost, path: "/api/suppliers", token: token, body: dto.CreateSupplierRequest{Code: "ACME", Name: "ACME S.A.S."}})
	require.Equal(t, http.StatusCreated, status, string(raw))
	sup := decode[dto.SupplierResponse](t, raw)

	return catalog{productID: product.ID, warehouseID: wh.ID, supplierID: sup.ID}
}

func (cat catalog) order(qty int64) dto.CreatePurchaseOrderRequest {
	return dto.CreatePurchaseOrderRequest{
		SupplierID: cat.supplierID, WarehouseID: cat.warehouseID,
		Items: []dto.PurchaseOrderItemRequest{{ProductID: cat.productID, QuantityOrdered: qty, UnitPrice: decimal.RequireFromString("2.50")}},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Auth y RBAC
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_RegistroCerradoTrasElPrimerUsuario(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)

	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/auth/register", body: dto.RegisterRequest{
		Email: "intruso@empresa.com", Password: "clave-segura-123",
	}})
	assert.Equal(t, http.StatusForbidden, status, string(raw))

	status, _, _ = s.do(t, call{method: http.MethodPost, path: "/api/auth/register", token: admin, body: dto.RegisterRequest{
		Email: "nuevo@empresa.com", Password: "clave-segura-123",
	}})
	assert.Equal(t, http.StatusCreated, status)
}

func TestAPI_LoginConClaveIncorrecta_401(t *testing.T) {
	s := newServer(t)
	s.bootstrapAdmin(t)

	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: dto.LoginRequest{Email: "admin@empresa.com", Password: "otra-clave"}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", decode[dto.ErrorResponse](t, raw).Code)

	status, _, _ = s.do(t, call{method: http.MethodPost, path: "/api/auth/login", body: dto.LoginRequest{Email: "nadie@empresa.com", Password: "x"}})
	assert.Equal(t, http.StatusUnauthorized, status, "no se revela si el usuario existe")
}

func TestAPI_StaffNoEscribeCatalogoNiUsuarios(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)
	staff := s.createStaff(t, admin)

	status, _, _ := s.do(t, call{method: http.MethodPost, path: "/api/products", token: staff, body: dto.CreateProductRequest{SKU: "X", Name: "X"}})
	assert.Equal(t, http.StatusForbidden, status)

	status, _, _ = s.do(t, call{method: http.MethodGet, path: "/api/users", token: staff})
	assert.Equal(t, http.StatusForbidden, status)

	status, _, _ = s.do(t, call{method: http.MethodGet, path: "/api/products", token: staff})
	assert.Equal(t, http.StatusOK, status, "lectura permitida")

	status, _, _ = s.do(t, call{method: http.MethodGet, path: "/api/products"})
	assert.Equal(t, http.StatusUnauthorized, status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación y mapeo de errores
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_ValidacionDevuelveDetallePorCampo(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)

	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/products", token: admin, body: map[string]any{"name": "Sin SKU", "reorder_point": -1}})
	require.Equal(t, http.StatusBadRequest, status)
	resp := decode[dto.ErrorResponse](t, raw)
	assert.Equal(t, "VALIDATION", resp.Code)

	fields := map[string]string{}
	for _, d := range resp.Details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "campo requerido", fields["sku"])
	assert.Contains(t, fields, "reorder_point")
}

func TestAPI_CuerpoMalformado_400(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)

	req := httptest.NewRequest(http.MethodPost, "/api/warehouses", strings.NewReader("{no es json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+admin)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ErroresDeDominio(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)
	cat := s.seedCatalog(t, admin)

	status, raw, _ := s.do(t, call{method: http.MethodGet, path: "/api/products/no-existe", token: admin})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, raw).Code)

	status, raw, _ = s.do(t, call{method: http.MethodPost, path: "/api/products", token: admin, body: dto.CreateProductRequest{SKU: "TORN-01", Name: "Duplicado"}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DUPLICATE", decode[dto.ErrorResponse](t, raw).Code)

	status, raw, _ = s.do(t, call{method: http.MethodPost, path: "/api/inventory/movements", token: admin, body: dto.ApplyMovementRequest{
		ProductID: cat.productID, WarehouseID: cat.warehouseID, Type: "OUT", Quantity: 5,
	}})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, raw).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventario
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_MovimientoConReferenciaRepetida_EsNoOp(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)
	cat := s.seedCatalog(t, admin)

	in := dto.ApplyMovementRequest{
		ProductID: cat.productID, WarehouseID: cat.warehouseID, Type: "IN", Quantity: 30,
		ReferenceType: "MANUAL", ReferenceID: "conteo-1",
	}
	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/inventory/movements", token: admin, body: in})
	require.Equal(t, http.StatusCreated, status, string(raw))
	first := decode[dto.MovementResultResponse](t, raw)
	assert.False(t, first.Duplicate)
	assert.Equal(t, int64(30), first.Record.QuantityOnHand)

	status, raw, _ = s.do(t, call{method: http.MethodPost, path: "/api/inventory/movements", token: admin, body: in})
	require.Equal(t, http.StatusOK, status)
	again := decode[dto.MovementResultResponse](t, raw)
	assert.True(t, again.Duplicate)
	assert.Equal(t, int64(30), again.Record.QuantityOnHand)

	status, raw, _ = s.do(t, call{method: http.MethodGet, path: "/api/inventory/" + cat.productID + "/" + cat.warehouseID + "/reconcile", token: admin})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[dto.ReconcileResponse](t, raw).Consistent)

	status, raw, _ = s.do(t, call{method: http.MethodGet, path: "/api/inventory/movements?from=ayer", token: admin})
	assert.Equal(t, http.StatusBadRequest, status, string(raw))
}

func TestAPI_SugerenciasYStockBajo(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)
	cat := s.seedCatalog(t, admin)

	status, _, _ := s.do(t, call{method: http.MethodPost, path: "/api/inventory/movements", token: admin, body: dto.ApplyMovementRequest{
		ProductID: cat.productID, WarehouseID: cat.warehouseID, Type: "IN", Quantity: 8,
	}})
	require.Equal(t, http.StatusCreated, status)

	status, raw, _ := s.do(t, call{method: http.MethodGet, path: "/api/reorder/suggestions?warehouse_id=" + cat.warehouseID, token: admin})
	require.Equal(t, http.StatusOK, status)
	list := decode[dto.ReorderSuggestionListResponse](t, raw)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(50), list.Items[0].SuggestedQuantity)
	assert.Nil(t, list.Items[0].UnitPrice, "sin historial de compras")

	status, raw, _ = s.do(t, call{method: http.MethodGet, path: "/api/products/low-stock", token: admin})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]dto.StockPositionResponse](t, raw), 1)
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo de una orden de compra
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_FlujoOrdenDeCompra(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)
	cat := s.seedCatalog(t, admin)

	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/purchase-orders", token: admin, body: cat.order(100)})
	require.Equal(t, http.StatusCreated, status, string(raw))
	po := decode[dto.PurchaseOrderResponse](t, raw)
	assert.Equal(t, "DRAFT", po.Status)
	assert.True(t, decimal.RequireFromString("250").Equal(po.TotalAmount))
	assert.Regexp(t, `^PO-\d{8}-\d{3}$`, po.PONumber)
	base := "/api/purchase-orders/" + po.ID

	status, raw, _ = s.do(t, call{method: http.MethodGet, path: base + "/ubl", token: admin})
	assert.Equal(t, http.StatusConflict, status, "un DRAFT no se exporta")
	assert.Equal(t, "INVALID_TRANSITION", decode[dto.ErrorResponse](t, raw).Code)

	for _, next := range []string{"SUBMITTED", "APPROVED", "ORDERED"} {
		status, raw, _ = s.do(t, call{method: http.MethodPatch, path: base + "/status", token: admin, body: dto.UpdatePurchaseOrderStatusRequest{Status: next}})
		require.Equal(t, http.StatusOK, status, string(raw))
		assert.Equal(t, next, decode[dto.PurchaseOrderResponse](t, raw).Status)
	}

	status, _, _ = s.do(t, call{method: http.MethodPatch, path: base + "/status", token: admin, body: dto.UpdatePurchaseOrderStatusRequest{Status: "FULLY_RECEIVED"}})
	assert.Equal(t, http.StatusConflict, status, "FULLY_RECEIVED solo lo produce la recepción")

	receive := func(qty int64) (int, []byte) {
		st, body, _ := s.do(t, call{method: http.MethodPost, path: base + "/receive", token: admin, body: dto.ReceivePurchaseOrderRequest{
			ReceivedItems: []dto.ReceiveItemRequest{{ItemID: po.Items[0].ID, QuantityReceived: qty}},
		}})
		return st, body
	}

	status, raw = receive(40)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "PARTIALLY_RECEIVED", decode[dto.PurchaseOrderResponse](t, raw).Status)

	status, raw, _ = s.do(t, call{method: http.MethodGet, path: "/api/inventory/" + cat.productID + "/" + cat.warehouseID, token: admin})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(40), decode[dto.InventoryRecordResponse](t, raw).QuantityOnHand)

	status, raw = receive(70)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "OVER_RECEIPT", decode[dto.ErrorResponse](t, raw).Code)

	status, raw = receive(60)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "FULLY_RECEIVED", decode[dto.PurchaseOrderResponse](t, raw).Status)

	status, body, headers := s.do(t, call{method: http.MethodGet, path: base + "/ubl", token: admin})
	require.Equal(t, http.StatusOK, status)
	assert.Regexp(t, `^[0-9a-f]{64}$`, headers.Get(apphttp.HeaderDocumentDigest))
	assert.Contains(t, string(body), po.PONumber)
	valid, err := ubl.VerifyDigest(body, headers.Get(apphttp.HeaderDocumentDigest))
	require.NoError(t, err)
	assert.True(t, valid)

	status, body, headers = s.do(t, call{method: http.MethodGet, path: base + "/pdf", token: admin})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/pdf", headers.Get(fiber.HeaderContentType))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	status, raw, _ = s.do(t, call{method: http.MethodPost, path: base + "/close", token: admin})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "CLOSED", decode[dto.PurchaseOrderResponse](t, raw).Status)

	status, raw, _ = s.do(t, call{method: http.MethodGet, path: "/api/purchase-orders/counts", token: admin})
	require.Equal(t, http.StatusOK, status)
	counts := decode[dto.PurchaseOrderCountsResponse](t, raw)
	assert.Equal(t, 1, counts.ByStatus["CLOSED"])
}

func TestAPI_StaffNoPuedeEnviarOrden(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)
	staff := s.createStaff(t, admin)
	cat := s.seedCatalog(t, admin)

	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/purchase-orders", token: staff, body: cat.order(10)})
	require.Equal(t, http.StatusCreated, status, string(raw))
	po := decode[dto.PurchaseOrderResponse](t, raw)

	status, raw, _ = s.do(t, call{method: http.MethodPatch, path: "/api/purchase-orders/" + po.ID + "/status", token: staff, body: dto.UpdatePurchaseOrderStatusRequest{Status: "SUBMITTED"}})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", decode[dto.ErrorResponse](t, raw).Code)
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotency-Key
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_IdempotencyKeyRepetida_409Reintentable(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)
	cat := s.seedCatalog(t, admin)
	headers := map[string]string{apphttp.HeaderIdempotencyKey: "crear-oc-1"}

	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/purchase-orders", token: admin, body: cat.order(10), headers: headers})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, raw, _ = s.do(t, call{method: http.MethodPost, path: "/api/purchase-orders", token: admin, body: cat.order(10), headers: headers})
	assert.Equal(t, http.StatusConflict, status)
	resp := decode[dto.ErrorResponse](t, raw)
	assert.Equal(t, "DUPLICATE_REQUEST", resp.Code)
	assert.True(t, resp.Retryable)

	status, raw, _ = s.do(t, call{method: http.MethodGet, path: "/api/purchase-orders", token: admin})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[dto.PurchaseOrderListResponse](t, raw).Items, 1, "la repetición no crea otra OC")
}

func TestAPI_IdempotencyKeySeLiberaSiLaPeticionFalla(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)
	headers := map[string]string{apphttp.HeaderIdempotencyKey: "bodega-1"}

	status, _, _ := s.do(t, call{method: http.MethodPost, path: "/api/warehouses", token: admin, body: map[string]any{"code": "SUR"}, headers: headers})
	require.Equal(t, http.StatusBadRequest, status)

	status, raw, _ := s.do(t, call{method: http.MethodPost, path: "/api/warehouses", token: admin, body: dto.CreateWarehouseRequest{Code: "SUR", Name: "Sur"}, headers: headers})
	assert.Equal(t, http.StatusCreated, status, string(raw))
}

func TestAPI_IdempotencyKeyPorUsuario(t *testing.T) {
	s := newServer(t)
	admin := s.bootstrapAdmin(t)
	staff := s.createStaff(t, admin)
	cat := s.seedCatalog(t, admin)
	headers := map[string]string{apphttp.HeaderIdempotencyKey: "misma-clave"}

	status, _, _ := s.do(t, call{method: http.MethodPost, path: "/api/purchase-orders", token: admin, body: cat.order(1), headers: headers})
	require.Equal(t, http.StatusCreated, status)
	status, _, _ = s.do(t, call{method: http.MethodPost, path: "/api/purchase-orders", token: staff, body: cat.order(1), headers: headers})
	assert.Equal(t, http.StatusCreated, status, "la clave se aísla por usuario")
}

// ──────────────────────────────────────────────────────────────────────────────
// Health y métricas
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_HealthYMetricas(t *testing.T) {
	s := newServer(t)

	status, raw, _ := s.do(t, call{method: http.MethodGet, path: "/health"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", decode[map[string]any](t, raw)["status"])

	status, raw, _ = s.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `procurement_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestHealth_DependenciaCaida_503(t *testing.T) {
	app := fiber.New()
	app.Get("/health", apphttp.Health("svc", map[string]apphttp.HealthCheck{
		"database": func(_ context.Context) error { return errors.New("sin conexión") },
	}))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
