package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
)

// ErrPriceConflict is returned when the expire step of a price supersede
// affects no rows: a concurrent run already expired the row we read.
var ErrPriceConflict = errors.New("current price row already expired by a concurrent run")

// CatalogRepository implements the reconciliation engine's catalog surface
// over PostgreSQL.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindBrand looks a brand up by name. Returns (nil, nil) when absent.
func (r *CatalogRepository) FindBrand(ctx context.Context, name string) (*domain.Brand, error) {
	query := `SELECT id, name, created_at, updated_at FROM brands WHERE name = $1`

	var brand domain.Brand
	err := r.db.GetContext(ctx, &brand, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select brand: %w", err)
	}

	return &brand, nil
}

// UpsertBrand inserts the brand if missing and returns its id either way.
func (r *CatalogRepository) UpsertBrand(ctx context.Context, name string) (int64, error) {
	query := `
		INSERT INTO brands (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET updated_at = NOW()
		RETURNING id
	`

	var id int64
	if err := r.db.GetContext(ctx, &id, query, name); err != nil {
		return 0, fmt.Errorf("upsert brand: %w", err)
	}

	return id, nil
}

// vehicleColumns lists the columns selected for vehicles.
const vehicleColumns = `id, brand_id, name, model_year, category, motor_specs,
	dimensions, cargo_specs, source_url, created_at, updated_at`

// FindVehicle looks a vehicle up by its natural key (brand, name, model
// year). Returns (nil, nil) when absent.
func (r *CatalogRepository) FindVehicle(
	ctx context.Context,
	brandID int64,
	name, modelYear string,
) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + `
		FROM vehicles
		WHERE brand_id = $1 AND name = $2 AND model_year = $3`

	var vehicle domain.Vehicle
	err := r.db.GetContext(ctx, &vehicle, query, brandID, name, modelYear)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select vehicle: %w", err)
	}

	return &vehicle, nil
}

// InsertVehicle inserts a new vehicle and returns its id.
func (r *CatalogRepository) InsertVehicle(ctx context.Context, v *domain.Vehicle) (int64, error) {
	query := `
		INSERT INTO vehicles (brand_id, name, model_year, category, motor_specs, dimensions, cargo_specs, source_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.GetContext(ctx, &id, query,
		v.BrandID, v.Name, v.ModelYear, v.Category,
		v.MotorSpecs, v.Dimensions, v.CargoSpecs, v.SourceURL,
	)
	if err != nil {
		return 0, fmt.Errorf("insert vehicle: %w", err)
	}

	return id, nil
}

// UpdateVehicle updates a vehicle's mutable descriptive fields in place.
func (r *CatalogRepository) UpdateVehicle(ctx context.Context, v *domain.Vehicle) error {
	query := `
		UPDATE vehicles
		SET motor_specs = $1,
			dimensions = $2,
			cargo_specs = $3,
			source_url = $4,
			updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		v.MotorSpecs, v.Dimensions, v.CargoSpecs, v.SourceURL, v.ID)

	return execRequireRows(result, err, fmt.Errorf("vehicle not found: %d", v.ID))
}

// FindVariant looks a variant up by its natural key. NULL motor type and
// drivetrain compare as equal via IS NOT DISTINCT FROM. Returns (nil, nil)
// when absent.
func (r *CatalogRepository) FindVariant(
	ctx context.Context,
	vehicleID int64,
	name string,
	motorType, drivetrain *string,
) (*domain.VehicleVariant, error) {
	query := `
		SELECT id, vehicle_id, name, motor_type, drivetrain, transmission, created_at, updated_at
		FROM vehicle_variants
		WHERE vehicle_id = $1
		  AND name = $2
		  AND motor_type IS NOT DISTINCT FROM $3
		  AND drivetrain IS NOT DISTINCT FROM $4
	`

	var variant domain.VehicleVariant
	err := r.db.GetContext(ctx, &variant, query, vehicleID, name, motorType, drivetrain)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select variant: %w", err)
	}

	return &variant, nil
}

// InsertVariant inserts a new variant and returns its id.
func (r *CatalogRepository) InsertVariant(ctx context.Context, v *domain.VehicleVariant) (int64, error) {
	query := `
		INSERT INTO vehicle_variants (vehicle_id, name, motor_type, drivetrain, transmission)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.GetContext(ctx, &id, query,
		v.VehicleID, v.Name, v.MotorType, v.Drivetrain, v.Transmission)
	if err != nil {
		return 0, fmt.Errorf("insert variant: %w", err)
	}

	return id, nil
}

// UpdateVariant updates a variant's mutable fields in place.
func (r *CatalogRepository) UpdateVariant(ctx context.Context, v *domain.VehicleVariant) error {
	query := `
		UPDATE vehicle_variants
		SET transmission = $1,
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.db.ExecContext(ctx, query, v.Transmission, v.ID)

	return execRequireRows(result, err, fmt.Errorf("variant not found: %d", v.ID))
}

// priceColumns lists the columns selected for price rows.
const priceColumns = `id, variant_id, pris, old_pris, privatleasing,
	foretagsleasing, billan_per_man, is_campaign, effective_from, effective_until`

// FindCurrentPrice returns the variant's single current price row, (nil, nil)
// when the variant has no price yet, or domain.ErrLedgerCorrupt when more
// than one current row exists.
func (r *CatalogRepository) FindCurrentPrice(ctx context.Context, variantID int64) (*domain.PriceRecord, error) {
	query := `SELECT ` + priceColumns + `
		FROM vehicle_prices
		WHERE variant_id = $1 AND effective_until IS NULL`

	var rows []domain.PriceRecord
	if err := r.db.SelectContext(ctx, &rows, query, variantID); err != nil {
		return nil, fmt.Errorf("select current price: %w", err)
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		return nil, fmt.Errorf("variant %d has %d current rows: %w",
			variantID, len(rows), domain.ErrLedgerCorrupt)
	}
}

// SupersedePrice atomically expires the old current row (when expireID is
// set) and inserts the new current row. The expire step requires the row to
// still be current, so two concurrent runs cannot both supersede the same
// row: the loser fails with ErrPriceConflict and no new row is written.
func (r *CatalogRepository) SupersedePrice(
	ctx context.Context,
	variantID int64,
	expireID *int64,
	rec *domain.PriceRecord,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin supersede transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if expireID != nil {
		expireQuery := `
			UPDATE vehicle_prices
			SET effective_until = $1
			WHERE id = $2 AND effective_until IS NULL
		`

		result, execErr := tx.ExecContext(ctx, expireQuery, rec.EffectiveFrom, *expireID)
		if rowsErr := execRequireRows(result, execErr, ErrPriceConflict); rowsErr != nil {
			return fmt.Errorf("expire price row %d: %w", *expireID, rowsErr)
		}
	}

	insertQuery := `
		INSERT INTO vehicle_prices
			(variant_id, pris, old_pris, privatleasing, foretagsleasing, billan_per_man, is_campaign, effective_from)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.ExecContext(ctx, insertQuery,
		variantID, rec.Pris, rec.OldPris, rec.Privatleasing,
		rec.Foretagsleasing, rec.BillanPerMan, rec.IsCampaign, rec.EffectiveFrom,
	)
	if err != nil {
		return fmt.Errorf("insert price row: %w", err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit supersede transaction: %w", commitErr)
	}

	return nil
}

// PriceHistory returns a variant's full price ledger, newest first.
func (r *CatalogRepository) PriceHistory(ctx context.Context, variantID int64) ([]domain.PriceRecord, error) {
	query := `SELECT ` + priceColumns + `
		FROM vehicle_prices
		WHERE variant_id = $1
		ORDER BY effective_from DESC`

	var rows []domain.PriceRecord
	if err := r.db.SelectContext(ctx, &rows, query, variantID); err != nil {
		return nil, fmt.Errorf("select price history: %w", err)
	}

	return rows, nil
}
