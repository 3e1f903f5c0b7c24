package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuationRowDTO valoración de un par producto×ubicación.
type ValuationRowDTO struct {
	ProductID        string          `json:"product_id"`
	SKU              string          `json:"sku"`
	ProductName      string          `json:"product_name"`
	LocationID       string          `json:"location_id,omitempty"`
	QuantityOnHand   decimal.Decimal `json:"quantity_on_hand"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit"`
	SellingPrice     decimal.Decimal `json:"selling_price"`
	StockValue       decimal.Decimal `json:"stock_value"`       // qty * costo
	RetailValue      decimal.Decimal `json:"retail_value"`      // qty * precio
	PotentialProfit  decimal.Decimal `json:"potential_profit"`  // retail - stock
	MarginPercentage decimal.Decimal `json:"margin_percentage"` // 0 si retail es 0
}

// ValuationReportDTO snapshot derivado de valoración; se regenera bajo demanda,
// no tiene ciclo de vida propio.
type ValuationReportDTO struct {
	GeneratedAt     time.Time         `json:"generated_at"`
	LocationID      string            `json:"location_id,omitempty"`
	Rows            []ValuationRowDTO `json:"rows"`
	TotalStockValue decimal.Decimal   `json:"total_stock_value"`
	TotalRetail     decimal.Decimal   `json:"total_retail_value"`
	TotalProfit     decimal.Decimal   `json:"total_potential_profit"`
	LowStockCount   int               `json:"low_stock_count"`
	OutOfStockCount int               `json:"out_of_stock_count"`
}

// AgingBatchDTO estado derivado de un lote para el reporte de antigüedad.
type AgingBatchDTO struct {
	ProductID     string          `json:"product_id"`
	SKU           string          `json:"sku"`
	LocationID    string          `json:"location_id,omitempty"`
	BatchNumber   string          `json:"batch_number,omitempty"`
	FirstReceived time.Time       `json:"first_received"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	AgeDays       int             `json:"age_days"`
	Received      decimal.Decimal `json:"received"`
	Remaining     decimal.Decimal `json:"remaining"`
	Class         string          `json:"class"` // fresh | aging | old | expired
}

// AgingReportDTO reporte de antigüedad de lotes con saldo.
type AgingReportDTO struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	LocationID   string          `json:"location_id,omitempty"`
	Batches      []AgingBatchDTO `json:"batches"`
	FreshCount   int             `json:"fresh_count"`
	AgingCount   int             `json:"aging_count"`
	OldCount     int             `json:"old_count"`
	ExpiredCount int             `json:"expired_count"`
}
