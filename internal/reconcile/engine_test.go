package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// fakeCatalog is an in-memory Catalog implementation for engine tests.
type fakeCatalog struct {
	brands   map[string]int64
	vehicles map[string]*domain.Vehicle
	variants map[string]*domain.VehicleVariant
	prices   []*domain.PriceRecord
	nextID   int64

	failUpsertBrand  error
	currentPriceErr  error
	supersedeCalls   int
	supersedeExpired []*int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		brands:   make(map[string]int64),
		vehicles: make(map[string]*domain.Vehicle),
		variants: make(map[string]*domain.VehicleVariant),
	}
}

func (f *fakeCatalog) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeCatalog) FindBrand(_ context.Context, name string) (*domain.Brand, error) {
	id, ok := f.brands[name]
	if !ok {
		return nil, nil
	}
	return &domain.Brand{ID: id, Name: name}, nil
}

func (f *fakeCatalog) UpsertBrand(_ context.Context, name string) (int64, error) {
	if f.failUpsertBrand != nil {
		return 0, f.failUpsertBrand
	}
	if id, ok := f.brands[name]; ok {
		return id, nil
	}
	id := f.id()
	f.brands[name] = id
	return id, nil
}

func vehicleKey(brandID int64, name, modelYear string) string {
	return name + "|" + modelYear + "|" + string(rune(brandID))
}

func (f *fakeCatalog) FindVehicle(_ context.Context, brandID int64, name, modelYear string) (*domain.Vehicle, error) {
	v, ok := f.vehicles[vehicleKey(brandID, name, modelYear)]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (f *fakeCatalog) InsertVehicle(_ context.Context, v *domain.Vehicle) (int64, error) {
	v.ID = f.id()
	f.vehicles[vehicleKey(v.BrandID, v.Name, v.ModelYear)] = v
	return v.ID, nil
}

func (f *fakeCatalog) UpdateVehicle(_ context.Context, v *domain.Vehicle) error {
	f.vehicles[vehicleKey(v.BrandID, v.Name, v.ModelYear)] = v
	return nil
}

func ptrStr(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func variantKey(vehicleID int64, name string, motorType, drivetrain *string) string {
	return name + "|" + ptrStr(motorType) + "|" + ptrStr(drivetrain) + "|" + string(rune(vehicleID))
}

func (f *fakeCatalog) FindVariant(
	_ context.Context,
	vehicleID int64,
	name string,
	motorType, drivetrain *string,
) (*domain.VehicleVariant, error) {
	v, ok := f.variants[variantKey(vehicleID, name, motorType, drivetrain)]
	if !ok {
		return nil, nil
	}
	return v, nil
}

func (f *fakeCatalog) InsertVariant(_ context.Context, v *domain.VehicleVariant) (int64, error) {
	v.ID = f.id()
	f.variants[variantKey(v.VehicleID, v.Name, v.MotorType, v.Drivetrain)] = v
	return v.ID, nil
}

func (f *fakeCatalog) UpdateVariant(_ context.Context, v *domain.VehicleVariant) error {
	return nil
}

func (f *fakeCatalog) FindCurrentPrice(_ context.Context, variantID int64) (*domain.PriceRecord, error) {
	if f.currentPriceErr != nil {
		return nil, f.currentPriceErr
	}
	for _, p := range f.prices {
		if p.VariantID == variantID && p.EffectiveUntil == nil {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeCatalog) SupersedePrice(_ context.Context, variantID int64, expireID *int64, rec *domain.PriceRecord) error {
	f.supersedeCalls++
	f.supersedeExpired = append(f.supersedeExpired, expireID)

	if expireID != nil {
		for _, p := range f.prices {
			if p.ID == *expireID {
				until := rec.EffectiveFrom
				p.EffectiveUntil = &until
			}
		}
	}

	stored := *rec
	stored.ID = f.id()
	stored.VariantID = variantID
	f.prices = append(f.prices, &stored)

	return nil
}

// currentRowCount counts current rows for a variant; the ledger invariant
// requires it to stay <= 1.
func (f *fakeCatalog) currentRowCount(variantID int64) int {
	n := 0
	for _, p := range f.prices {
		if p.VariantID == variantID && p.EffectiveUntil == nil {
			n++
		}
	}
	return n
}

func intPtr(v int) *int { return &v }

func vitaraEntity(pris int, oldPris *int) domain.ExtractedEntity {
	return domain.ExtractedEntity{
		Category:  domain.CategoryCars,
		SourceURL: "https://example.se/suzuki/vitara",
		Vehicle: &domain.VehicleData{
			Brand: "Suzuki",
			Name:  "Vitara",
			Variants: []domain.VariantData{
				{
					Name:      "Vitara ALLGRIP Select",
					MotorType: "Mildhybrid",
					Prices: domain.PriceFields{
						Pris:    intPtr(pris),
						OldPris: oldPris,
					},
				},
			},
		},
	}
}

func TestReconcile_CreatesVehicleVariantAndPrice(t *testing.T) {
	catalog := newFakeCatalog()
	engine := New(catalog, logger.NewNop())

	summary := engine.Reconcile(context.Background(), []domain.ExtractedEntity{
		vitaraEntity(459900, nil),
	})

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.PriceChanges)
	assert.Empty(t, summary.Errors)

	// Drivetrain inferred from the variant name; motor type normalized.
	require.Len(t, catalog.variants, 1)
	for _, v := range catalog.variants {
		require.NotNil(t, v.Drivetrain)
		assert.Equal(t, "4WD", *v.Drivetrain)
		require.NotNil(t, v.MotorType)
		assert.Equal(t, "MHEV", *v.MotorType)
		assert.Equal(t, 1, catalog.currentRowCount(v.ID))
	}
}

func TestReconcile_UnchangedPriceWritesNothing(t *testing.T) {
	catalog := newFakeCatalog()
	engine := New(catalog, logger.NewNop())
	ctx := context.Background()

	first := engine.Reconcile(ctx, []domain.ExtractedEntity{vitaraEntity(459900, nil)})
	require.Equal(t, 1, first.PriceChanges)

	// Reconciling the same price again is idempotent: no new row, reported
	// as unchanged, not as an error.
	second := engine.Reconcile(ctx, []domain.ExtractedEntity{vitaraEntity(459900, nil)})

	assert.True(t, second.Success)
	assert.Equal(t, 0, second.PriceChanges)
	assert.Equal(t, 1, second.Unchanged)
	assert.Equal(t, 1, catalog.supersedeCalls)
	assert.Len(t, catalog.prices, 1)
}

func TestReconcile_ChangedPriceSupersedesCurrentRow(t *testing.T) {
	catalog := newFakeCatalog()
	engine := New(catalog, logger.NewNop())
	ctx := context.Background()

	engine.Reconcile(ctx, []domain.ExtractedEntity{vitaraEntity(459900, nil)})

	summary := engine.Reconcile(ctx, []domain.ExtractedEntity{
		vitaraEntity(449900, intPtr(459900)),
	})

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.PriceChanges)

	require.Len(t, catalog.prices, 2)
	require.Len(t, catalog.supersedeExpired, 2)
	assert.Nil(t, catalog.supersedeExpired[0])
	assert.NotNil(t, catalog.supersedeExpired[1])

	// Old row expired, exactly one current row remains.
	expired := catalog.prices[0]
	current := catalog.prices[1]
	assert.NotNil(t, expired.EffectiveUntil)
	assert.Nil(t, current.EffectiveUntil)
	assert.Equal(t, 449900, *current.Pris)

	// A supplied old_pris marks the new row as a campaign price.
	assert.True(t, current.IsCampaign)

	for _, v := range catalog.variants {
		assert.Equal(t, 1, catalog.currentRowCount(v.ID))
	}
}

func TestReconcile_LeasingChangeTriggersNewVersion(t *testing.T) {
	catalog := newFakeCatalog()
	engine := New(catalog, logger.NewNop())
	ctx := context.Background()

	entity := vitaraEntity(459900, nil)
	entity.Vehicle.Variants[0].Prices.Privatleasing = intPtr(4995)
	engine.Reconcile(ctx, []domain.ExtractedEntity{entity})

	changed := vitaraEntity(459900, nil)
	changed.Vehicle.Variants[0].Prices.Privatleasing = intPtr(4595)

	summary := engine.Reconcile(ctx, []domain.ExtractedEntity{changed})

	assert.Equal(t, 1, summary.PriceChanges)
	assert.Len(t, catalog.prices, 2)
}

func TestReconcile_SecondaryFieldsDoNotTriggerNewVersion(t *testing.T) {
	catalog := newFakeCatalog()
	engine := New(catalog, logger.NewNop())
	ctx := context.Background()

	entity := vitaraEntity(459900, nil)
	entity.Vehicle.Variants[0].Prices.Foretagsleasing = intPtr(3995)
	engine.Reconcile(ctx, []domain.ExtractedEntity{entity})

	// Only pris and privatleasing are tracked for change detection.
	changed := vitaraEntity(459900, nil)
	changed.Vehicle.Variants[0].Prices.Foretagsleasing = intPtr(4295)

	summary := engine.Reconcile(ctx, []domain.ExtractedEntity{changed})

	assert.Equal(t, 0, summary.PriceChanges)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Len(t, catalog.prices, 1)
}

func TestReconcile_EntityFailureIsIsolated(t *testing.T) {
	catalog := newFakeCatalog()
	engine := New(catalog, logger.NewNop())

	broken := vitaraEntity(459900, nil)
	healthy := domain.ExtractedEntity{
		Category: domain.CategoryCars,
		Vehicle: &domain.VehicleData{
			Brand: "Toyota",
			Name:  "Yaris",
			Variants: []domain.VariantData{
				{Name: "Active", Prices: domain.PriceFields{Pris: intPtr(259900)}},
			},
		},
	}

	// First entity fails at brand upsert; the second must still reconcile.
	catalog.failUpsertBrand = errors.New("constraint violation")

	summary := engine.Reconcile(context.Background(), []domain.ExtractedEntity{broken})
	assert.False(t, summary.Success)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Error, "constraint violation")

	catalog.failUpsertBrand = nil

	summary = engine.Reconcile(context.Background(), []domain.ExtractedEntity{broken, healthy})
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.Created)
}

func TestReconcile_LedgerCorruptionIsFatalForVariant(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.currentPriceErr = domain.ErrLedgerCorrupt
	engine := New(catalog, logger.NewNop())

	summary := engine.Reconcile(context.Background(), []domain.ExtractedEntity{
		vitaraEntity(459900, nil),
	})

	assert.False(t, summary.Success)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0].Error, "ledger corrupt")
	assert.Equal(t, 0, catalog.supersedeCalls)
}

func TestReconcile_CampaignEntitiesAreSkipped(t *testing.T) {
	catalog := newFakeCatalog()
	engine := New(catalog, logger.NewNop())

	summary := engine.Reconcile(context.Background(), []domain.ExtractedEntity{
		{
			Category: domain.CategoryCampaign,
			Campaign: &domain.CampaignData{Title: "Privatleasingkampanj"},
		},
	})

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Created)
}

func TestReconcile_UpdatesExistingVehicleInPlace(t *testing.T) {
	catalog := newFakeCatalog()
	engine := New(catalog, logger.NewNop())
	ctx := context.Background()

	engine.Reconcile(ctx, []domain.ExtractedEntity{vitaraEntity(459900, nil)})

	updated := vitaraEntity(459900, nil)
	updated.Vehicle.MotorSpecs = "1.5L mildhybrid 116 hk"

	summary := engine.Reconcile(ctx, []domain.ExtractedEntity{updated})

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Created)

	for _, v := range catalog.vehicles {
		assert.Equal(t, "1.5L mildhybrid 116 hk", v.MotorSpecs)
	}
}

func TestEngineUsesInjectedClock(t *testing.T) {
	catalog := newFakeCatalog()
	engine := New(catalog, logger.NewNop())

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	engine.Reconcile(context.Background(), []domain.ExtractedEntity{vitaraEntity(459900, nil)})

	require.Len(t, catalog.prices, 1)
	assert.Equal(t, fixed, catalog.prices[0].EffectiveFrom)
}
