package reporting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

const valuationCacheTTL = 5 * time.Minute

var oneHundred = decimal.NewFromInt(100)

// ValuationUseCase genera el snapshot de valoración de inventario:
// valor a costo, valor a precio de venta y margen potencial por par
// producto×ubicación, con agregados y conteos de stock bajo/agotado.
// Los conteos salen de las filas de StockLevel actuales, no del ledger.
type ValuationUseCase struct {
	stockRepo   repository.StockLevelRepository
	productRepo repository.ProductRepository
	cache       ReportCache // opcional; nil = sin caché
}

// NewValuationUseCase construye el caso de uso. cache puede ser nil.
func NewValuationUseCase(stockRepo repository.StockLevelRepository, productRepo repository.ProductRepository, cache ReportCache) *ValuationUseCase {
	return &ValuationUseCase{stockRepo: stockRepo, productRepo: productRepo, cache: cache}
}

// GetValuation arma el reporte para una ubicación (vacío = todas).
func (uc *ValuationUseCase) GetValuation(ctx context.Context, locationID string) (*dto.ValuationReportDTO, error) {
	cacheKey := "report:valuation:" + locationID
	if uc.cache != nil {
		var cached dto.ValuationReportDTO
		if ok, err := uc.cache.Get(ctx, cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	levels, err := uc.stockRepo.ListByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	products, err := uc.productIndex(ctx)
	if err != nil {
		return nil, err
	}

	report := &dto.ValuationReportDTO{
		GeneratedAt:     time.Now(),
		LocationID:      locationID,
		TotalStockValue: decimal.Zero,
		TotalRetail:     decimal.Zero,
		TotalProfit:     decimal.Zero,
	}
	for _, level := range levels {
		product := products[level.ProductID]
		row := valuationRow(level, product)
		report.Rows = append(report.Rows, row)
		report.TotalStockValue = report.TotalStockValue.Add(row.StockValue)
		report.TotalRetail = report.TotalRetail.Add(row.RetailValue)
		report.TotalProfit = report.TotalProfit.Add(row.PotentialProfit)
		if level.QuantityOnHand.IsZero() {
			report.OutOfStockCount++
		} else if product != nil && product.ReorderPoint.IsPositive() && level.QuantityOnHand.LessThan(product.ReorderPoint) {
			report.LowStockCount++
		}
	}

	if uc.cache != nil {
		_ = uc.cache.Set(ctx, cacheKey, report, valuationCacheTTL)
	}
	return report, nil
}

// valuationRow calcula la fila: stock_value = qty*costo, retail = qty*precio,
// margen = ganancia/retail*100 (0 cuando retail es 0, sin división por cero).
func valuationRow(level *entity.StockLevel, product *entity.Product) dto.ValuationRowDTO {
	price := decimal.Zero
	sku, name := "", ""
	if product != nil {
		price = product.Price
		sku = product.SKU
		name = product.Name
	}
	stockValue := level.QuantityOnHand.Mul(level.CostPerUnit)
	retailValue := level.QuantityOnHand.Mul(price)
	profit := retailValue.Sub(stockValue)
	margin := decimal.Zero
	if !retailValue.IsZero() {
		margin = profit.Div(retailValue).Mul(oneHundred)
	}
	return dto.ValuationRowDTO{
		ProductID:        level.ProductID,
		SKU:              sku,
		ProductName:      name,
		LocationID:       level.LocationID,
		QuantityOnHand:   level.QuantityOnHand,
		CostPerUnit:      level.CostPerUnit,
		SellingPrice:     price,
		StockValue:       stockValue,
		RetailValue:      retailValue,
		PotentialProfit:  profit,
		MarginPercentage: margin,
	}
}

// productIndex carga el catálogo completo en memoria indexado por ID.
func (uc *ValuationUseCase) productIndex(ctx context.Context) (map[string]*entity.Product, error) {
	idx := make(map[string]*entity.Product)
	const page = 500
	for offset := 0; ; offset += page {
		products, err := uc.productRepo.List(ctx, page, offset)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			idx[p.ID] = p
		}
		if len(products) < page {
			return idx, nil
		}
	}
}
