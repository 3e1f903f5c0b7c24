package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// ReferenceType/ReferenceID son obligatorios: llave de idempotencia contra reenvíos.
type RegisterMovementRequest struct {
	ProductID     string           `json:"product_id"`
	LocationID    string           `json:"location_id,omitempty"`
	Type          string           `json:"type"` // in | out
	Quantity      decimal.Decimal  `json:"quantity"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	ReferenceType string           `json:"reference_type"`
	ReferenceID   string           `json:"reference_id"`
	BatchNumber   string           `json:"batch_number,omitempty"`
	ExpiryDate    *time.Time       `json:"expiry_date,omitempty"`
}

// AdjustmentRequest body para POST /api/inventory/adjustments.
type AdjustmentRequest struct {
	ProductID   string           `json:"product_id"`
	LocationID  string           `json:"location_id,omitempty"`
	Type        string           `json:"type"` // adjustment_in | adjustment_out
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason      string           `json:"reason"`
	ReferenceID string           `json:"reference_id,omitempty"`
}

// BulkAdjustmentRequest body para POST /api/inventory/adjustments/bulk.
type BulkAdjustmentRequest struct {
	Reference string                  `json:"reference,omitempty"`
	Lines     []BulkAdjustmentLineDTO `json:"lines"`
}

// BulkAdjustmentLineDTO una línea del lote.
type BulkAdjustmentLineDTO struct {
	LineNo     int              `json:"line_no"`
	ProductID  string           `json:"product_id"`
	LocationID string           `json:"location_id,omitempty"`
	Type       string           `json:"type"`
	Quantity   decimal.Decimal  `json:"quantity"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason     string           `json:"reason"`
}

// BulkLineResultDTO resultado por línea (éxito parcial explícito).
type BulkLineResultDTO struct {
	LineNo     int            `json:"line_no"`
	MovementID string         `json:"movement_id,omitempty"`
	StockLevel *StockLevelDTO `json:"stock_level,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// BulkAdjustmentResponse respuesta del lote: líneas aplicadas y fallidas.
type BulkAdjustmentResponse struct {
	Reference string              `json:"reference"`
	Applied   []BulkLineResultDTO `json:"applied"`
	Failed    []BulkLineResultDTO `json:"failed"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ProductID      string          `json:"product_id"`
	FromLocationID string          `json:"from_location_id"`
	ToLocationID   string          `json:"to_location_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	TransferID     string          `json:"transfer_id,omitempty"`
}

// TransferResponse respuesta de transferencia con su estado final.
type TransferResponse struct {
	TransferID       string         `json:"transfer_id"`
	State            string         `json:"state"`
	OutMovementID    string         `json:"out_movement_id,omitempty"`
	InMovementID     string         `json:"in_movement_id,omitempty"`
	CompensationID   string         `json:"compensation_id,omitempty"`
	SourceLevel      *StockLevelDTO `json:"source_level,omitempty"`
	DestinationLevel *StockLevelDTO `json:"destination_level,omitempty"`
}

// CountRequest body para POST /api/inventory/counts.
type CountRequest struct {
	ProductID       string          `json:"product_id"`
	LocationID      string          `json:"location_id,omitempty"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
	ReferenceID     string          `json:"reference_id,omitempty"`
}

// ReservationRequest body para POST /api/inventory/reservations y su liberación.
type ReservationRequest struct {
	ProductID  string          `json:"product_id"`
	LocationID string          `json:"location_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// MovementResponse respuesta de registro de movimiento/ajuste/conteo.
type MovementResponse struct {
	Movement   *MovementDTO   `json:"movement,omitempty"`
	StockLevel *StockLevelDTO `json:"stock_level,omitempty"`
	Duplicate  bool           `json:"duplicate,omitempty"`
}

// MovementDTO proyección JSON de una entrada del ledger.
type MovementDTO struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	LocationID    string           `json:"location_id,omitempty"`
	Type          string           `json:"type"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Delta         decimal.Decimal  `json:"delta"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	ReferenceType string           `json:"reference_type"`
	ReferenceID   string           `json:"reference_id"`
	BatchNumber   string           `json:"batch_number,omitempty"`
	ExpiryDate    *time.Time       `json:"expiry_date,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	ActorID       string           `json:"actor_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// StockLevelDTO proyección JSON de la fila materializada de stock.
type StockLevelDTO struct {
	ProductID         string          `json:"product_id"`
	LocationID        string          `json:"location_id,omitempty"`
	QuantityOnHand    decimal.Decimal `json:"quantity_on_hand"`
	QuantityReserved  decimal.Decimal `json:"quantity_reserved"`
	QuantityAvailable decimal.Decimal `json:"quantity_available"`
	CostPerUnit       decimal.Decimal `json:"cost_per_unit"`
	LastMovementAt    time.Time       `json:"last_movement_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewMovementDTO mapea la entidad a su proyección JSON.
func NewMovementDTO(m *entity.Movement) *MovementDTO {
	if m == nil {
		return nil
	}
	return &MovementDTO{
		ID:            m.ID,
		ProductID:     m.ProductID,
		LocationID:    m.LocationID,
		Type:          string(m.Type),
		Quantity:      m.Quantity,
		Delta:         m.Delta(),
		UnitCost:      m.UnitCost,
		ReferenceType: m.Reference.Type,
		ReferenceID:   m.Reference.ID,
		BatchNumber:   m.BatchNumber,
		ExpiryDate:    m.ExpiryDate,
		Reason:        m.Reason,
		ActorID:       m.ActorID,
		CreatedAt:     m.CreatedAt,
	}
}

// NewStockLevelDTO mapea la entidad a su proyección JSON.
func NewStockLevelDTO(s *entity.StockLevel) *StockLevelDTO {
	if s == nil {
		return nil
	}
	return &StockLevelDTO{
		ProductID:         s.ProductID,
		LocationID:        s.LocationID,
		QuantityOnHand:    s.QuantityOnHand,
		QuantityReserved:  s.QuantityReserved,
		QuantityAvailable: s.QuantityAvailable(),
		CostPerUnit:       s.CostPerUnit,
		LastMovementAt:    s.LastMovementAt,
		UpdatedAt:         s.UpdatedAt,
	}
}
