package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/application/ledger"
	"github.com/jhoicas/stock-ledger-api/internal/domain"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

// InventoryHandler maneja las peticiones HTTP del ledger de inventario (protegido).
type InventoryHandler struct {
	uc *ledger.MovementUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *ledger.MovementUseCase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

// mapDomainError traduce errores de dominio a estatus HTTP. Las fallas de
// transferencia con compensación aplicada llevan la referencia del movimiento
// compensatorio en el cuerpo.
func mapDomainError(c *fiber.Ctx, err error) error {
	var transferErr *domain.TransferFailedError
	if errors.As(err, &transferErr) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:            "TRANSFER_FAILED",
			Message:         "abono en destino fallido, origen compensado",
			CompensationRef: transferErr.CompensationRef,
		})
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrUnknownReason):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "UNKNOWN_REASON", Message: "código de motivo desconocido"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "producto o ubicación no encontrado"})
	case errors.Is(err, domain.ErrNegativeStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NEGATIVE_STOCK", Message: "la operación dejaría el stock en negativo"})
	case errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente"})
	case errors.Is(err, domain.ErrContention), errors.Is(err, domain.ErrVersionConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONTENTION", Message: "demasiadas escrituras concurrentes, reintente"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "recurso duplicado"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func movementResponse(res *ledger.MovementResult) dto.MovementResponse {
	return dto.MovementResponse{
		Movement:   dto.NewMovementDTO(res.Movement),
		StockLevel: dto.NewStockLevelDTO(res.StockLevel),
		Duplicate:  res.Duplicate,
	}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario (entrada/salida)
// @Description  Anota un movimiento in/out en el ledger y actualiza el stock.
//
//	Reenviar la misma referencia devuelve el resultado previo sin doble conteo.
//
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, type (in|out), quantity, unit_cost (entradas), reference_type, reference_id"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.uc.RegisterMovement(c.Context(), ledger.MovementInput{
		ProductID:   in.ProductID,
		LocationID:  in.LocationID,
		Type:        entity.MovementType(in.Type),
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		Reference:   entity.Reference{Type: in.ReferenceType, ID: in.ReferenceID},
		BatchNumber: in.BatchNumber,
		ExpiryDate:  in.ExpiryDate,
		ActorID:     GetActorID(c),
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	status := fiber.StatusCreated
	if res.Duplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(movementResponse(res))
}

// RegisterAdjustment godoc
// @Summary      Registrar ajuste manual de stock
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "product_id, type (adjustment_in|adjustment_out), quantity, reason"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) RegisterAdjustment(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.uc.RegisterAdjustment(c.Context(), ledger.AdjustmentInput{
		ProductID:   in.ProductID,
		LocationID:  in.LocationID,
		Type:        entity.MovementType(in.Type),
		Quantity:    in.Quantity,
		UnitCost:    in.UnitCost,
		Reason:      in.Reason,
		ReferenceID: in.ReferenceID,
		ActorID:     GetActorID(c),
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	status := fiber.StatusCreated
	if res.Duplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(movementResponse(res))
}

// RegisterBulkAdjustment godoc
// @Summary      Registrar lote de ajustes con éxito parcial
// @Description  Pre-valida cada línea y aplica las válidas en secuencia. Las
//
//	líneas aplicadas quedan firmes aunque otras fallen; la respuesta
//	detalla aplicadas y fallidas.
//
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkAdjustmentRequest  true  "lines con line_no, product_id, type, quantity, reason"
// @Success      200   {object}  dto.BulkAdjustmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments/bulk [post]
func (h *InventoryHandler) RegisterBulkAdjustment(c *fiber.Ctx) error {
	var in dto.BulkAdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lines := make([]ledger.BulkAdjustmentLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, ledger.BulkAdjustmentLine{
			LineNo:     l.LineNo,
			ProductID:  l.ProductID,
			LocationID: l.LocationID,
			Type:       entity.MovementType(l.Type),
			Quantity:   l.Quantity,
			UnitCost:   l.UnitCost,
			Reason:     l.Reason,
		})
	}
	res, err := h.uc.RegisterBulkAdjustment(c.Context(), ledger.BulkAdjustmentInput{
		Reference: in.Reference,
		Lines:     lines,
		ActorID:   GetActorID(c),
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	out := dto.BulkAdjustmentResponse{Reference: res.Reference}
	for _, a := range res.Applied {
		out.Applied = append(out.Applied, dto.BulkLineResultDTO{
			LineNo:     a.LineNo,
			MovementID: a.Movement.ID,
			StockLevel: dto.NewStockLevelDTO(a.StockLevel),
		})
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, dto.BulkLineResultDTO{LineNo: f.LineNo, Error: f.Error})
	}
	return c.JSON(out)
}

// RegisterTransfer godoc
// @Summary      Transferir stock entre ubicaciones
// @Description  Debita el origen y abona el destino bajo una misma referencia.
//
//	Si el abono falla con el origen ya debitado, se compensa el origen
//	y se responde 409 con compensation_ref.
//
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "product_id, from_location_id, to_location_id, quantity, transfer_id (opcional, idempotencia)"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *InventoryHandler) RegisterTransfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.uc.RegisterTransfer(c.Context(), ledger.TransferInput{
		ProductID:      in.ProductID,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Quantity:       in.Quantity,
		TransferID:     in.TransferID,
		ActorID:        GetActorID(c),
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(transferResponse(res))
}

func transferResponse(res *ledger.TransferResult) dto.TransferResponse {
	out := dto.TransferResponse{
		TransferID:       res.TransferID,
		State:            string(res.State),
		SourceLevel:      dto.NewStockLevelDTO(res.SourceLevel),
		DestinationLevel: dto.NewStockLevelDTO(res.DestinationLevel),
	}
	if res.OutMovement != nil {
		out.OutMovementID = res.OutMovement.ID
	}
	if res.InMovement != nil {
		out.InMovementID = res.InMovement.ID
	}
	if res.Compensation != nil {
		out.CompensationID = res.Compensation.ID
	}
	return out
}

// RegisterCount godoc
// @Summary      Registrar conteo físico
// @Description  Anota un movimiento count por la diferencia entre lo contado y
//
//	lo esperado. Sin diferencia no se anota movimiento.
//
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CountRequest  true  "product_id, counted_quantity"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/counts [post]
func (h *InventoryHandler) RegisterCount(c *fiber.Ctx) error {
	var in dto.CountRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.uc.RegisterCount(c.Context(), ledger.CountInput{
		ProductID:       in.ProductID,
		LocationID:      in.LocationID,
		CountedQuantity: in.CountedQuantity,
		ReferenceID:     in.ReferenceID,
		ActorID:         GetActorID(c),
	})
	if err != nil {
		return mapDomainError(c, err)
	}
	status := fiber.StatusCreated
	if res.Movement == nil || res.Duplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(movementResponse(res))
}

// Reserve godoc
// @Summary      Reservar stock disponible
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "product_id, quantity"
// @Success      200   {object}  dto.StockLevelDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations [post]
func (h *InventoryHandler) Reserve(c *fiber.Ctx) error {
	var in dto.ReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	level, err := h.uc.Reserve(c.Context(), in.ProductID, in.LocationID, in.Quantity)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(dto.NewStockLevelDTO(level))
}

// Release godoc
// @Summary      Liberar stock reservado
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReservationRequest  true  "product_id, quantity"
// @Success      200   {object}  dto.StockLevelDTO
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/reservations/release [post]
func (h *InventoryHandler) Release(c *fiber.Ctx) error {
	var in dto.ReservationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	level, err := h.uc.Release(c.Context(), in.ProductID, in.LocationID, in.Quantity)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(dto.NewStockLevelDTO(level))
}

// ListLevels godoc
// @Summary      Consultar niveles de stock
// @Description  Con product_id y location_id devuelve el par exacto; con solo
//
//	product_id las filas del producto; si no, las de la ubicación
//	(location_id vacío = todas).
//
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  string  false  "Filtrar por producto"
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Success      200  {array}   dto.StockLevelDTO
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/inventory/levels [get]
func (h *InventoryHandler) ListLevels(c *fiber.Ctx) error {
	productID := c.Query("product_id")
	locationID := c.Query("location_id")

	if productID != "" && locationID != "" {
		level, err := h.uc.GetLevel(c.Context(), productID, locationID)
		if err != nil {
			return mapDomainError(c, err)
		}
		if level == nil {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "sin stock registrado para el par"})
		}
		return c.JSON(dto.NewStockLevelDTO(level))
	}

	var levels []*entity.StockLevel
	var err error
	if productID != "" {
		levels, err = h.uc.ListLevelsByProduct(c.Context(), productID)
	} else {
		levels, err = h.uc.ListLevels(c.Context(), locationID)
	}
	if err != nil {
		return mapDomainError(c, err)
	}
	out := make([]*dto.StockLevelDTO, 0, len(levels))
	for _, l := range levels {
		out = append(out, dto.NewStockLevelDTO(l))
	}
	return c.JSON(fiber.Map{"total": len(out), "levels": out})
}

// ListMovements godoc
// @Summary      Consultar el ledger de movimientos
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  string  false  "Filtrar por producto"
// @Param        location_id  query  string  false  "Filtrar por ubicación"
// @Param        from         query  string  false  "Desde (RFC3339)"
// @Param        to           query  string  false  "Hasta (RFC3339, exclusivo)"
// @Param        limit        query  int     false  "Máximo de filas (default 50, tope 500)"
// @Param        offset       query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.MovementDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()

	filter := repository.MovementFilter{
		ProductID:  c.Query("product_id"),
		LocationID: c.Query("location_id"),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "from inválido (RFC3339)"})
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "to inválido (RFC3339)"})
		}
		filter.To = &t
	}

	movements, err := h.uc.ListMovements(c.Context(), filter)
	if err != nil {
		return mapDomainError(c, err)
	}
	out := make([]*dto.MovementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, dto.NewMovementDTO(m))
	}
	return c.JSON(fiber.Map{"total": len(out), "movements": out})
}
