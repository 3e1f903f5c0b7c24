package reporting

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger-api/internal/application/dto"
	"github.com/jhoicas/stock-ledger-api/internal/domain/entity"
	"github.com/jhoicas/stock-ledger-api/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger-api/internal/domain/repository"
)

const agingCacheTTL = 5 * time.Minute

// AgingUseCase genera el reporte de antigüedad de lotes: pliega el historial de
// movimientos por (producto, ubicación), asigna consumos a lotes en orden FIFO
// y clasifica cada lote con saldo por edad o expiración.
type AgingUseCase struct {
	movRepo     repository.MovementRepository
	stockRepo   repository.StockLevelRepository
	productRepo repository.ProductRepository
	cache       ReportCache // opcional; nil = sin caché

	// Umbrales en días; cero = defaults (30/90).
	FreshDays int
	AgingDays int
}

// NewAgingUseCase construye el caso de uso. cache puede ser nil.
func NewAgingUseCase(
	movRepo repository.MovementRepository,
	stockRepo repository.StockLevelRepository,
	productRepo repository.ProductRepository,
	cache ReportCache,
) *AgingUseCase {
	return &AgingUseCase{
		movRepo:     movRepo,
		stockRepo:   stockRepo,
		productRepo: productRepo,
		cache:       cache,
		FreshDays:   ledger.DefaultFreshDays,
		AgingDays:   ledger.DefaultAgingDays,
	}
}

// GetAging arma el reporte para una ubicación (vacío = todas). Solo incluye
// lotes con saldo positivo.
func (uc *AgingUseCase) GetAging(ctx context.Context, locationID string) (*dto.AgingReportDTO, error) {
	cacheKey := "report:aging:" + locationID
	if uc.cache != nil {
		var cached dto.AgingReportDTO
		if ok, err := uc.cache.Get(ctx, cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	levels, err := uc.stockRepo.ListByLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	report := &dto.AgingReportDTO{GeneratedAt: now, LocationID: locationID}

	for _, level := range levels {
		movements, err := uc.movRepo.List(ctx, repository.MovementFilter{
			ProductID:  level.ProductID,
			LocationID: level.LocationID,
		})
		if err != nil {
			return nil, err
		}
		// El filtro con ubicación vacía no discrimina: el pool global exige
		// igualdad exacta para no absorber movimientos ubicados del producto.
		if level.LocationID == "" {
			movements = withLocation(movements, "")
		}
		sku := uc.skuFor(ctx, level.ProductID)
		for _, batch := range ledger.FoldBatches(movements) {
			if !batch.Remaining.IsPositive() {
				continue
			}
			class := batch.Classify(now, uc.FreshDays, uc.AgingDays)
			report.Batches = append(report.Batches, dto.AgingBatchDTO{
				ProductID:     batch.ProductID,
				SKU:           sku,
				LocationID:    batch.LocationID,
				BatchNumber:   batch.BatchNumber,
				FirstReceived: batch.FirstReceived,
				ExpiryDate:    batch.ExpiryDate,
				AgeDays:       batch.AgeDays(now),
				Received:      batch.Received,
				Remaining:     batch.Remaining,
				Class:         class,
			})
			switch class {
			case ledger.AgeClassFresh:
				report.FreshCount++
			case ledger.AgeClassAging:
				report.AgingCount++
			case ledger.AgeClassOld:
				report.OldCount++
			case ledger.AgeClassExpired:
				report.ExpiredCount++
			}
		}
	}

	if uc.cache != nil {
		_ = uc.cache.Set(ctx, cacheKey, report, agingCacheTTL)
	}
	return report, nil
}

func withLocation(movements []*entity.Movement, locationID string) []*entity.Movement {
	filtered := make([]*entity.Movement, 0, len(movements))
	for _, m := range movements {
		if m.LocationID == locationID {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func (uc *AgingUseCase) skuFor(ctx context.Context, productID string) string {
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil || product == nil {
		return ""
	}
	return product.SKU
}
