// Package reconcile diffs extracted entities against the persisted catalog
// and maintains the effective-dated price ledger.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// Catalog is the only mutation surface for durable state. Find methods
// return (nil, nil) when no row matches. FindCurrentPrice returns
// domain.ErrLedgerCorrupt when a variant has more than one current row.
// SupersedePrice must apply expire-old + insert-new atomically per variant.
type Catalog interface {
	FindBrand(ctx context.Context, name string) (*domain.Brand, error)
	UpsertBrand(ctx context.Context, name string) (int64, error)

	FindVehicle(ctx context.Context, brandID int64, name, modelYear string) (*domain.Vehicle, error)
	InsertVehicle(ctx context.Context, v *domain.Vehicle) (int64, error)
	UpdateVehicle(ctx context.Context, v *domain.Vehicle) error

	FindVariant(ctx context.Context, vehicleID int64, name string, motorType, drivetrain *string) (*domain.VehicleVariant, error)
	InsertVariant(ctx context.Context, v *domain.VehicleVariant) (int64, error)
	UpdateVariant(ctx context.Context, v *domain.VehicleVariant) error

	FindCurrentPrice(ctx context.Context, variantID int64) (*domain.PriceRecord, error)
	SupersedePrice(ctx context.Context, variantID int64, expireID *int64, rec *domain.PriceRecord) error
}

// EntityError records one entity's reconciliation failure. Failures are
// isolated: the remaining entities are still reconciled.
type EntityError struct {
	Entity string `json:"entity"`
	Error  string `json:"error"`
}

// Summary reports what a reconciliation pass changed. Success is true only
// when the error list is empty; partial counts are always reported.
type Summary struct {
	Success      bool          `json:"success"`
	Created      int           `json:"created"`
	Updated      int           `json:"updated"`
	Unchanged    int           `json:"unchanged"`
	PriceChanges int           `json:"price_changes"`
	Skipped      int           `json:"skipped"`
	Errors       []EntityError `json:"errors,omitempty"`
}

// Engine reconciles extracted entities against the catalog.
type Engine struct {
	catalog Catalog
	log     logger.Logger
	now     func() time.Time
}

// New creates a reconciliation engine.
func New(catalog Catalog, log logger.Logger) *Engine {
	return &Engine{
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
}

// Reconcile applies every vehicle entity to the catalog independently.
// Campaign entities carry no catalog rows and are counted as skipped.
func (e *Engine) Reconcile(ctx context.Context, entities []domain.ExtractedEntity) *Summary {
	summary := &Summary{}

	for i := range entities {
		entity := &entities[i]

		if entity.Vehicle == nil {
			summary.Skipped++
			continue
		}

		if err := e.reconcileVehicle(ctx, entity, summary); err != nil {
			summary.Errors = append(summary.Errors, EntityError{
				Entity: fmt.Sprintf("%s %s", entity.Vehicle.Brand, entity.Vehicle.Name),
				Error:  err.Error(),
			})
		}
	}

	summary.Success = len(summary.Errors) == 0

	e.log.Info("reconciliation completed",
		logger.Int("created", summary.Created),
		logger.Int("updated", summary.Updated),
		logger.Int("unchanged", summary.Unchanged),
		logger.Int("price_changes", summary.PriceChanges),
		logger.Int("errors", len(summary.Errors)),
	)

	return summary
}

// reconcileVehicle resolves brand and vehicle identity, updates descriptive
// fields, and reconciles every variant.
func (e *Engine) reconcileVehicle(
	ctx context.Context,
	entity *domain.ExtractedEntity,
	summary *Summary,
) error {
	data := entity.Vehicle

	brandID, err := e.catalog.UpsertBrand(ctx, data.Brand)
	if err != nil {
		return fmt.Errorf("upsert brand %q: %w", data.Brand, err)
	}

	vehicle, err := e.catalog.FindVehicle(ctx, brandID, data.Name, data.ModelYear)
	if err != nil {
		return fmt.Errorf("find vehicle %q: %w", data.Name, err)
	}

	if vehicle == nil {
		vehicle = &domain.Vehicle{
			BrandID:    brandID,
			Name:       data.Name,
			ModelYear:  data.ModelYear,
			Category:   string(entity.Category),
			MotorSpecs: data.MotorSpecs,
			Dimensions: data.Dimensions,
			CargoSpecs: data.CargoSpecs,
			SourceURL:  entity.SourceURL,
		}

		id, insertErr := e.catalog.InsertVehicle(ctx, vehicle)
		if insertErr != nil {
			return fmt.Errorf("insert vehicle %q: %w", data.Name, insertErr)
		}

		vehicle.ID = id
		summary.Created++
	} else {
		vehicle.MotorSpecs = data.MotorSpecs
		vehicle.Dimensions = data.Dimensions
		vehicle.CargoSpecs = data.CargoSpecs
		vehicle.SourceURL = entity.SourceURL

		if updateErr := e.catalog.UpdateVehicle(ctx, vehicle); updateErr != nil {
			return fmt.Errorf("update vehicle %q: %w", data.Name, updateErr)
		}

		summary.Updated++
	}

	for i := range data.Variants {
		if variantErr := e.reconcileVariant(ctx, vehicle.ID, &data.Variants[i], summary); variantErr != nil {
			return fmt.Errorf("variant %q: %w", data.Variants[i].Name, variantErr)
		}
	}

	return nil
}

// reconcileVariant resolves the variant by natural key and reconciles its
// price row. Drivetrain missing from the extraction is inferred from the
// variant name.
func (e *Engine) reconcileVariant(
	ctx context.Context,
	vehicleID int64,
	data *domain.VariantData,
	summary *Summary,
) error {
	motorType := NormalizeMotorType(data.MotorType)

	drivetrain := NormalizeDrivetrain(data.Drivetrain)
	if drivetrain == nil {
		drivetrain = InferDrivetrain(data.Name)
	}

	variant, err := e.catalog.FindVariant(ctx, vehicleID, data.Name, motorType, drivetrain)
	if err != nil {
		return fmt.Errorf("find variant: %w", err)
	}

	if variant == nil {
		variant = &domain.VehicleVariant{
			VehicleID:  vehicleID,
			Name:       data.Name,
			MotorType:  motorType,
			Drivetrain: drivetrain,
		}
		if data.Transmission != "" {
			variant.Transmission = &data.Transmission
		}

		id, insertErr := e.catalog.InsertVariant(ctx, variant)
		if insertErr != nil {
			return fmt.Errorf("insert variant: %w", insertErr)
		}

		variant.ID = id
	} else if data.Transmission != "" {
		variant.Transmission = &data.Transmission

		if updateErr := e.catalog.UpdateVariant(ctx, variant); updateErr != nil {
			return fmt.Errorf("update variant: %w", updateErr)
		}
	}

	return e.reconcilePrice(ctx, variant.ID, &data.Prices, summary)
}

// reconcilePrice applies the SCD-2 price protocol for one variant: when a
// tracked field changed, expire the current row and insert a new one in a
// single atomic step; otherwise report unchanged and write nothing.
func (e *Engine) reconcilePrice(
	ctx context.Context,
	variantID int64,
	prices *domain.PriceFields,
	summary *Summary,
) error {
	current, err := e.catalog.FindCurrentPrice(ctx, variantID)
	if err != nil {
		// Includes domain.ErrLedgerCorrupt: fatal for this variant.
		return fmt.Errorf("find current price: %w", err)
	}

	if current != nil && !priceChanged(current, prices) {
		summary.Unchanged++
		return nil
	}

	rec := &domain.PriceRecord{
		VariantID:       variantID,
		Pris:            prices.Pris,
		OldPris:         prices.OldPris,
		Privatleasing:   prices.Privatleasing,
		Foretagsleasing: prices.Foretagsleasing,
		BillanPerMan:    prices.BillanPerMan,
		IsCampaign:      prices.OldPris != nil,
		EffectiveFrom:   e.now(),
	}

	var expireID *int64
	if current != nil {
		expireID = &current.ID
	}

	if err := e.catalog.SupersedePrice(ctx, variantID, expireID, rec); err != nil {
		return fmt.Errorf("supersede price: %w", err)
	}

	summary.PriceChanges++

	return nil
}

// priceChanged compares the tracked price fields. Only pris and
// privatleasing trigger a new version; the other fields are carried onto new
// rows but do not supersede by themselves.
func priceChanged(current *domain.PriceRecord, next *domain.PriceFields) bool {
	return !intPtrEqual(current.Pris, next.Pris) ||
		!intPtrEqual(current.Privatleasing, next.Privatleasing)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
