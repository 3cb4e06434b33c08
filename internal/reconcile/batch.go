package reconcile

import (
	"context"
	"fmt"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// PriceUpdateRecord is one entry of the price-update batch protocol consumed
// from upstream callers.
type PriceUpdateRecord struct {
	Brand     string             `json:"brand" binding:"required"`
	Vehicle   string             `json:"vehicle" binding:"required"`
	ModelYear string             `json:"model_year,omitempty"`
	Variant   string             `json:"variant" binding:"required"`
	MotorType string             `json:"motor_type,omitempty"`
	Prices    domain.PriceFields `json:"prices"`
}

// PriceUpdateResult reports the outcome for one batch record.
type PriceUpdateResult struct {
	Brand   string `json:"brand"`
	Vehicle string `json:"vehicle"`
	Variant string `json:"variant"`
	Success bool   `json:"success"`
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

// BatchSummary aggregates a price-update batch response.
type BatchSummary struct {
	Total     int                 `json:"total"`
	Success   int                 `json:"success"`
	Updated   int                 `json:"updated"`
	Unchanged int                 `json:"unchanged"`
	Errors    int                 `json:"errors"`
	Results   []PriceUpdateResult `json:"results"`
}

// ApplyPriceBatch applies the price protocol to each record independently.
// Records referencing unknown brands, vehicles, or variants fail that record
// only; the batch always completes.
func (e *Engine) ApplyPriceBatch(ctx context.Context, records []PriceUpdateRecord) *BatchSummary {
	summary := &BatchSummary{Total: len(records)}

	for i := range records {
		rec := &records[i]

		result := PriceUpdateResult{
			Brand:   rec.Brand,
			Vehicle: rec.Vehicle,
			Variant: rec.Variant,
		}

		updated, err := e.applyPriceRecord(ctx, rec)
		switch {
		case err != nil:
			result.Error = err.Error()
			summary.Errors++

			e.log.Warn("price update record failed",
				logger.String("brand", rec.Brand),
				logger.String("vehicle", rec.Vehicle),
				logger.String("variant", rec.Variant),
				logger.Error(err),
			)
		case updated:
			result.Success = true
			result.Updated = true
			summary.Success++
			summary.Updated++
		default:
			result.Success = true
			summary.Success++
			summary.Unchanged++
		}

		summary.Results = append(summary.Results, result)
	}

	return summary
}

// applyPriceRecord resolves one record's variant by natural key and applies
// the price protocol. Returns whether a new price row was written.
func (e *Engine) applyPriceRecord(ctx context.Context, rec *PriceUpdateRecord) (bool, error) {
	brand, err := e.catalog.FindBrand(ctx, rec.Brand)
	if err != nil {
		return false, fmt.Errorf("find brand: %w", err)
	}
	if brand == nil {
		return false, fmt.Errorf("unknown brand %q", rec.Brand)
	}

	vehicle, err := e.catalog.FindVehicle(ctx, brand.ID, rec.Vehicle, rec.ModelYear)
	if err != nil {
		return false, fmt.Errorf("find vehicle: %w", err)
	}
	if vehicle == nil {
		return false, fmt.Errorf("unknown vehicle %q", rec.Vehicle)
	}

	motorType := NormalizeMotorType(rec.MotorType)
	drivetrain := InferDrivetrain(rec.Variant)

	variant, err := e.catalog.FindVariant(ctx, vehicle.ID, rec.Variant, motorType, drivetrain)
	if err != nil {
		return false, fmt.Errorf("find variant: %w", err)
	}
	if variant == nil {
		return false, fmt.Errorf("unknown variant %q", rec.Variant)
	}

	var scratch Summary
	if err := e.reconcilePrice(ctx, variant.ID, &rec.Prices, &scratch); err != nil {
		return false, err
	}

	return scratch.PriceChanges > 0, nil
}
