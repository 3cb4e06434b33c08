package domain

import (
	"errors"
	"time"
)

// ErrLedgerCorrupt reports that a variant has more than one current price
// row. This indicates ledger corruption, not a transient condition, and is
// surfaced loudly: reconciliation fails for that variant.
var ErrLedgerCorrupt = errors.New("price ledger corrupt: multiple current rows for variant")

// Brand is a vehicle make in the durable catalog.
type Brand struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Vehicle is a model in the durable catalog.
// Natural key: (brand_id, name, model_year).
type Vehicle struct {
	ID         int64     `db:"id" json:"id"`
	BrandID    int64     `db:"brand_id" json:"brand_id"`
	Name       string    `db:"name" json:"name"`
	ModelYear  string    `db:"model_year" json:"model_year"`
	Category   string    `db:"category" json:"category"`
	MotorSpecs string    `db:"motor_specs" json:"motor_specs,omitempty"`
	Dimensions string    `db:"dimensions" json:"dimensions,omitempty"`
	CargoSpecs string    `db:"cargo_specs" json:"cargo_specs,omitempty"`
	SourceURL  string    `db:"source_url" json:"source_url,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// VehicleVariant is a trim level of a vehicle.
// Natural key: (vehicle_id, name, motor_type, drivetrain).
type VehicleVariant struct {
	ID           int64     `db:"id" json:"id"`
	VehicleID    int64     `db:"vehicle_id" json:"vehicle_id"`
	Name         string    `db:"name" json:"name"`
	MotorType    *string   `db:"motor_type" json:"motor_type,omitempty"`
	Drivetrain   *string   `db:"drivetrain" json:"drivetrain,omitempty"`
	Transmission *string   `db:"transmission" json:"transmission,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// PriceRecord is one effective-dated row of the price ledger. Rows are
// append-only: superseding a price expires the old row (EffectiveUntil set)
// and inserts a new current row. At most one row per variant has
// EffectiveUntil == nil.
type PriceRecord struct {
	ID              int64      `db:"id" json:"id"`
	VariantID       int64      `db:"variant_id" json:"variant_id"`
	Pris            *int       `db:"pris" json:"pris,omitempty"`
	OldPris         *int       `db:"old_pris" json:"old_pris,omitempty"`
	Privatleasing   *int       `db:"privatleasing" json:"privatleasing,omitempty"`
	Foretagsleasing *int       `db:"foretagsleasing" json:"foretagsleasing,omitempty"`
	BillanPerMan    *int       `db:"billan_per_man" json:"billan_per_man,omitempty"`
	IsCampaign      bool       `db:"is_campaign" json:"is_campaign"`
	EffectiveFrom   time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveUntil  *time.Time `db:"effective_until" json:"effective_until,omitempty"`
}

// Current reports whether this row is the variant's present-day price.
func (p *PriceRecord) Current() bool {
	return p.EffectiveUntil == nil
}
