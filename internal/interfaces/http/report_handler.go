package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger-api/internal/application/reporting"
)

// ReportHandler maneja las peticiones HTTP de reportes (protegido).
// Los reportes son snapshots derivados: se regeneran bajo demanda y pueden
// servirse desde caché con unos minutos de antigüedad.
type ReportHandler struct {
	valuation *reporting.ValuationUseCase
	aging     *reporting.AgingUseCase
}

// NewReportHandler construye el handler.
func NewReportHandler(valuation *reporting.ValuationUseCase, aging *reporting.AgingUseCase) *ReportHandler {
	return &ReportHandler{valuation: valuation, aging: aging}
}

// GetValuation godoc
// @Summary      Reporte de valoración de inventario
// @Description  Valor a costo, valor a precio de venta y margen potencial por
//
//	par producto×ubicación, con agregados y conteos de stock bajo/agotado.
//
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "Filtrar por ubicación. Vacío = todas."
// @Success      200  {object}  dto.ValuationReportDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/reports/valuation [get]
func (h *ReportHandler) GetValuation(c *fiber.Ctx) error {
	report, err := h.valuation.GetValuation(c.Context(), c.Query("location_id"))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(report)
}

// GetAging godoc
// @Summary      Reporte de antigüedad de lotes
// @Description  Pliega el ledger por par, asigna consumos a lotes FIFO y
//
//	clasifica cada lote con saldo: fresh, aging, old o expired.
//
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  string  false  "Filtrar por ubicación. Vacío = todas."
// @Success      200  {object}  dto.AgingReportDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/reports/aging [get]
func (h *ReportHandler) GetAging(c *fiber.Ctx) error {
	report, err := h.aging.GetAging(c.Context(), c.Query("location_id"))
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(report)
}
