package interaction

import (
	"fmt"
	"strings"
)

// Severity classifies the clinical impact of an interaction.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityMinor
	SeverityModerate
	SeverityMajor
)

// ParseSeverity maps a severity label to a Severity. Unrecognized labels are
// SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return SeverityMajor
	case "moderate":
		return SeverityModerate
	case "minor":
		return SeverityMinor
	default:
		return SeverityUnknown
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityMajor:
		return "Major"
	case SeverityModerate:
		return "Moderate"
	case SeverityMinor:
		return "Minor"
	default:
		return "Unknown"
	}
}

// Description is a human-readable explanation of the severity level.
func (s Severity) Description() string {
	switch s {
	case SeverityMajor:
		return "Potentially life-threatening or causing permanent damage"
	case SeverityModerate:
		return "May cause significant clinical consequences"
	case SeverityMinor:
		return "Limited clinical significance"
	default:
		return "Clinical significance unknown"
	}
}

// Color is the display color used for the severity badge.
func (s Severity) Color() string {
	switch s {
	case SeverityMajor:
		return "red"
	case SeverityModerate:
		return "orange"
	case SeverityMinor:
		return "yellow"
	default:
		return "gray"
	}
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	*s = ParseSeverity(string(b))
	return nil
}

// EvidenceLevel grades the literature support for an interaction.
type EvidenceLevel int

const (
	EvidenceUnknown EvidenceLevel = iota
	EvidenceSuspected
	EvidenceProbable
	EvidenceEstablished
)

func ParseEvidenceLevel(s string) EvidenceLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "established":
		return EvidenceEstablished
	case "probable":
		return EvidenceProbable
	case "suspected":
		return EvidenceSuspected
	default:
		return EvidenceUnknown
	}
}

func (e EvidenceLevel) String() string {
	switch e {
	case EvidenceEstablished:
		return "Established"
	case EvidenceProbable:
		return "Probable"
	case EvidenceSuspected:
		return "Suspected"
	default:
		return "Unknown"
	}
}

func (e EvidenceLevel) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *EvidenceLevel) UnmarshalText(b []byte) error {
	*e = ParseEvidenceLevel(string(b))
	return nil
}

// Category is a therapeutic drug class.
type Category string

const (
	CategoryCardiovascular    Category = "Cardiovascular"
	CategoryNeurological      Category = "Neurological"
	CategoryEndocrine         Category = "Endocrine"
	CategoryGastrointestinal  Category = "Gastrointestinal"
	CategoryRespiratory       Category = "Respiratory"
	CategoryInfectiousDisease Category = "Infectious Disease"
	CategoryPainManagement    Category = "Pain Management"
	CategoryMentalHealth      Category = "Mental Health"
	CategoryOncology          Category = "Oncology"
	CategoryImmunology        Category = "Immunology"
	CategoryOther             Category = "Other"
)

// Categories lists every drug category in display order.
func Categories() []Category {
	return []Category{
		CategoryCardiovascular,
		CategoryNeurological,
		CategoryEndocrine,
		CategoryGastrointestinal,
		CategoryRespiratory,
		CategoryInfectiousDisease,
		CategoryPainManagement,
		CategoryMentalHealth,
		CategoryOncology,
		CategoryImmunology,
		CategoryOther,
	}
}

// ParseCategory matches a category label case-insensitively. Unrecognized
// labels are CategoryOther.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range Categories() {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return CategoryOther
}

func (c *Category) UnmarshalText(b []byte) error {
	*c = ParseCategory(string(b))
	return nil
}

// Drug is a catalog entry that interactions reference by ID.
type Drug struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	GenericName       string   `json:"genericName"`
	BrandNames        []string `json:"brandNames"`
	Category          Category `json:"category"`
	ActiveIngredients []string `json:"activeIngredients"`
	Mechanism         string   `json:"mechanism,omitempty"`
	CommonUses        []string `json:"commonUses,omitempty"`
	FDAApproved       bool     `json:"fdaApproved"`
}

// Interaction describes a clinically relevant effect of taking two drugs
// together. The pair is unordered.
type Interaction struct {
	ID                       string        `json:"id"`
	Drug1ID                  string        `json:"drug1Id"`
	Drug2ID                  string        `json:"drug2Id"`
	Drug1Name                string        `json:"drug1Name"`
	Drug2Name                string        `json:"drug2Name"`
	Severity                 Severity      `json:"severity"`
	Mechanism                string        `json:"mechanism"`
	Description              string        `json:"description"`
	ClinicalEffect           string        `json:"clinicalEffect"`
	ManagementRecommendation string        `json:"managementRecommendation"`
	EvidenceLevel            EvidenceLevel `json:"evidenceLevel"`
	Sources                  []string      `json:"sources"`
	LastUpdated              string        `json:"lastUpdated"`
}

// Database is the serialized catalog shape: {drugs, interactions}.
type Database struct {
	Version      string        `json:"version,omitempty"`
	Drugs        []Drug        `json:"drugs"`
	Interactions []Interaction `json:"interactions"`
}

// ValidationResult reports referential integrity problems in a catalog.
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidationError is returned when a catalog fails validation.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "invalid drug catalog: " + e.Errors[0]
	}
	return fmt.Sprintf("invalid drug catalog: %d violations (first: %s)", len(e.Errors), e.Errors[0])
}

func (e *ValidationError) Violations() []string { return e.Errors }

// CheckResult is the outcome of checking a medication list.
type CheckResult struct {
	Drugs        []string      `json:"drugs"`
	Unresolved   []string      `json:"unresolved"`
	Interactions []Interaction `json:"interactions"`
	Highest      Severity      `json:"highestSeverity"`
}
