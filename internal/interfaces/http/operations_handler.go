package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/procurement-api/internal/application/alerts"
	"github.com/jhoicas/procurement-api/internal/application/analytics"
	"github.com/jhoicas/procurement-api/internal/application/dto"
	"github.com/jhoicas/procurement-api/internal/application/procurement"
	"github.com/jhoicas/procurement-api/internal/domain/repository"
)

// ProcurementHandler dispara ciclos de compra automática.
type ProcurementHandler struct {
	orchestrator *procurement.Orchestrator
}

// NewProcurementHandler construye el handler.
func NewProcurementHandler(o *procurement.Orchestrator) *ProcurementHandler {
	return &ProcurementHandler{orchestrator: o}
}

// Run godoc
// @Summary      Ejecutar un ciclo de compras
// @Description  Convierte las sugerencias de reposición en OC (nuevas o agregadas a un DRAFT abierto) y las envía.
// @Tags         procurement
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RunProcurementRequest  false  "Bodega opcional"
// @Success      200   {object}  dto.CycleReportDTO
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/procurement/run [post]
func (h *ProcurementHandler) Run(c *fiber.Ctx) error {
	var in dto.RunProcurementRequest
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &in); err != nil {
			return respondError(c, err)
		}
	}
	if in.WarehouseID == "" {
		in.WarehouseID = c.Query("warehouse_id")
	}
	out, err := h.orchestrator.RunCycle(c.Context(), actorFrom(c), in.WarehouseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// RunForProduct godoc
// @Summary      Ejecutar el ciclo para un producto
// @Tags         procurement
// @Security     Bearer
// @Produce      json
// @Param        productId    path  string  true  "Producto"
// @Param        warehouseId  path  string  true  "Bodega"
// @Success      200  {object}  dto.CycleReportDTO
// @Router       /api/procurement/run/{productId}/{warehouseId} [post]
func (h *ProcurementHandler) RunForProduct(c *fiber.Ctx) error {
	out, err := h.orchestrator.RunForProduct(c.Context(), actorFrom(c), c.Params("productId"), c.Params("warehouseId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// AlertHandler consulta y gestión de alertas.
type AlertHandler struct {
	uc *alerts.UseCase
}

// NewAlertHandler construye el handler.
func NewAlertHandler(uc *alerts.UseCase) *AlertHandler {
	return &AlertHandler{uc: uc}
}

// List godoc
// @Summary      Listar alertas
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Param        alert_type      query  string  false  "Tipo"
// @Param        severity        query  string  false  "Severidad"
// @Param        priority        query  string  false  "Prioridad"
// @Param        status          query  string  false  "Estado"
// @Param        reference_type  query  string  false  "Tipo de referencia"
// @Param        reference_id    query  string  false  "Referencia"
// @Param        limit           query  int     false  "Límite"  default(20)
// @Param        offset          query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.AlertListResponse
// @Router       /api/alerts [get]
func (h *AlertHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	filter := repository.AlertFilter{
		AlertType:     c.Query("alert_type"),
		Severity:      c.Query("severity"),
		Priority:      c.Query("priority"),
		Status:        c.Query("status"),
		ReferenceType: c.Query("reference_type"),
		ReferenceID:   c.Query("reference_id"),
	}
	out, err := h.uc.List(c.Context(), filter, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Counts godoc
// @Summary      Conteo de alertas
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.AlertCountsResponse
// @Router       /api/alerts/counts [get]
func (h *AlertHandler) Counts(c *fiber.Ctx) error {
	out, err := h.uc.Counts(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// UpdateStatus godoc
// @Summary      Cambiar estado de una alerta
// @Tags         alerts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true  "ID de la alerta"
// @Param        body  body  dto.UpdateAlertStatusRequest  true  "Nuevo estado"
// @Success      200   {object}  dto.AlertResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/alerts/{id}/status [patch]
func (h *AlertHandler) UpdateStatus(c *fiber.Ctx) error {
	var in dto.UpdateAlertStatusRequest
	if err := bindJSON(c, &in); err != nil {
		return respondError(c, err)
	}
	out, err := h.uc.UpdateStatus(c.Context(), GetUserID(c), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Scan godoc
// @Summary      Evaluar todas las condiciones de alerta
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.AlertScanResponse
// @Router       /api/alerts/scan [post]
func (h *AlertHandler) Scan(c *fiber.Ctx) error {
	out, err := h.uc.Scan(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// DashboardHandler maneja los endpoints del módulo de Dashboard.
type DashboardHandler struct {
	uc *analytics.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *analytics.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary godoc
// @Summary      Resumen operativo
// @Description  Stock bajo y agotado, OC abiertas y vencidas, alertas activas y sugerencias pendientes.
// @Tags         dashboard
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.DashboardSummaryDTO
// @Router       /api/dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.uc.GetSummary(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// HealthCheck comprobación de una dependencia (base de datos, redis).
type HealthCheck func(ctx context.Context) error

// Health godoc
// @Summary      Estado del servicio
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      503  {object}  map[string]any
// @Router       /health [get]
func Health(service string, checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		status, code := "ok", fiber.StatusOK
		results := make(fiber.Map, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status, code = "degraded", fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		return c.Status(code).JSON(fiber.Map{"status": status, "service": service, "checks": results})
	}
}
