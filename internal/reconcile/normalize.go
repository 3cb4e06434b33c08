package reconcile

import "strings"

// drivetrainTokens is the fixed vocabulary matched against variant display
// names.
var drivetrainTokens = []struct {
	token      string
	normalized string
}{
	{"4X4", "4X4"},
	{"4WD", "4WD"},
	{"AWD", "AWD"},
	{"2WD", "2WD"},
	{"FWD", "FWD"},
	{"RWD", "RWD"},
	{"ALLGRIP", "4WD"},
}

// InferDrivetrain derives a drivetrain from a variant display name by token
// matching; the first token of the name that matches the vocabulary wins.
// Suzuki's ALLGRIP marketing name normalizes to 4WD. Names without any known
// token yield nil, which is not an error.
func InferDrivetrain(variantName string) *string {
	upper := strings.ToUpper(variantName)
	fields := strings.FieldsFunc(upper, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == ','
	})

	for _, field := range fields {
		for _, dt := range drivetrainTokens {
			if field == dt.token {
				normalized := dt.normalized
				return &normalized
			}
		}
	}

	return nil
}

// NormalizeDrivetrain normalizes an explicitly stated drivetrain value
// against the same vocabulary used for name inference. Unknown values pass
// through uppercased; empty input yields nil so the caller can fall back to
// name inference.
func NormalizeDrivetrain(drivetrain string) *string {
	trimmed := strings.TrimSpace(drivetrain)
	if trimmed == "" {
		return nil
	}

	upper := strings.ToUpper(trimmed)
	for _, dt := range drivetrainTokens {
		if upper == dt.token {
			normalized := dt.normalized
			return &normalized
		}
	}

	return &upper
}

// motorTypeVocabulary maps marketing fuel-type names to ledger codes.
var motorTypeVocabulary = map[string]string{
	"EL":             "EL",
	"ELECTRIC":       "EL",
	"ELBIL":          "EL",
	"BENSIN":         "B",
	"PETROL":         "B",
	"DIESEL":         "D",
	"HYBRID":         "HEV",
	"MILDHYBRID":     "MHEV",
	"MILD HYBRID":    "MHEV",
	"LADDHYBRID":     "PHEV",
	"PLUG-IN HYBRID": "PHEV",
	"PLUGIN HYBRID":  "PHEV",
}

// NormalizeMotorType maps a fuel-type name to its ledger code. Unknown values
// pass through uppercased rather than failing; empty input yields nil.
func NormalizeMotorType(motorType string) *string {
	trimmed := strings.TrimSpace(motorType)
	if trimmed == "" {
		return nil
	}

	upper := strings.ToUpper(trimmed)
	if code, ok := motorTypeVocabulary[upper]; ok {
		return &code
	}

	return &upper
}
