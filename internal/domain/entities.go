package domain

// ContentCategory is the classification of a canonical document.
type ContentCategory string

const (
	// CategoryAutoDetect asks the extraction capability to classify the
	// content itself instead of short-circuiting on a caller hint.
	CategoryAutoDetect ContentCategory = "auto-detect"
	// CategoryCampaign is promotional campaign content.
	CategoryCampaign ContentCategory = "campaign"
	// CategoryCars is passenger vehicle content.
	CategoryCars ContentCategory = "cars"
	// CategoryTransport is light commercial vehicle content.
	CategoryTransport ContentCategory = "transportbilar"
)

// KnownCategory reports whether c is a category the pipeline can extract.
// auto-detect is a hint, not a category an entity may carry.
func KnownCategory(c ContentCategory) bool {
	switch c {
	case CategoryCampaign, CategoryCars, CategoryTransport:
		return true
	default:
		return false
	}
}

// VerificationState tracks the fact-check outcome for an extracted entity.
type VerificationState string

const (
	// VerificationUnverified means the fact-check pass has not run yet.
	VerificationUnverified VerificationState = "unverified"
	// VerificationVerified means every checked claim was corroborated.
	VerificationVerified VerificationState = "verified"
	// VerificationFlagged means at least one claim could not be corroborated.
	// Flagged entities are still returned; the caller decides persistence.
	VerificationFlagged VerificationState = "flagged"
)

// Claim is a numeric or factual statement extracted from the document,
// paired with the source excerpt that supports it so the fact-check pass
// can corroborate it independently.
type Claim struct {
	Field         string `json:"field"`
	Value         string `json:"value"`
	SourceExcerpt string `json:"source_excerpt"`
	Corroborated  bool   `json:"corroborated"`
}

// PriceFields carries the tracked commercial figures for a variant, in SEK.
// Pointers distinguish "not stated" from zero.
type PriceFields struct {
	Pris            *int `json:"pris,omitempty"`
	OldPris         *int `json:"old_pris,omitempty"`
	Privatleasing   *int `json:"privatleasing,omitempty"`
	Foretagsleasing *int `json:"foretagsleasing,omitempty"`
	BillanPerMan    *int `json:"billan_per_man,omitempty"`
}

// VariantData is one extracted trim level of a vehicle.
type VariantData struct {
	Name         string      `json:"name"`
	MotorType    string      `json:"motor_type,omitempty"`
	Drivetrain   string      `json:"drivetrain,omitempty"`
	Transmission string      `json:"transmission,omitempty"`
	Equipment    []string    `json:"equipment,omitempty"`
	Prices       PriceFields `json:"prices"`
}

// VehicleData is a passenger or transport vehicle extracted from content.
type VehicleData struct {
	Brand      string        `json:"brand"`
	Name       string        `json:"name"`
	ModelYear  string        `json:"model_year,omitempty"`
	MotorSpecs string        `json:"motor_specs,omitempty"`
	Dimensions string        `json:"dimensions,omitempty"`
	CargoSpecs string        `json:"cargo_specs,omitempty"`
	Variants   []VariantData `json:"variants"`
}

// CampaignData is a promotional campaign extracted from content.
type CampaignData struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ValidFrom   string   `json:"valid_from,omitempty"`
	ValidUntil  string   `json:"valid_until,omitempty"`
	Models      []string `json:"models,omitempty"`
	Terms       string   `json:"terms,omitempty"`
}

// ExtractedEntity is the tagged union produced by the extraction classifier.
// Exactly one of Campaign or Vehicle is set, keyed by Category:
// campaign → Campaign, cars/transportbilar → Vehicle.
type ExtractedEntity struct {
	Category     ContentCategory   `json:"category"`
	SourceURL    string            `json:"source_url"`
	Campaign     *CampaignData     `json:"campaign,omitempty"`
	Vehicle      *VehicleData      `json:"vehicle,omitempty"`
	Claims       []Claim           `json:"claims,omitempty"`
	Verification VerificationState `json:"verification"`
}
