package icd10

import (
	"fmt"
	"strings"
	"time"
)

// Code represents an ICD-10-CM diagnosis code.
type Code struct {
	Code             string   `db:"code" json:"code"`
	Description      string   `db:"description" json:"description"`
	ShortDescription string   `db:"short_description" json:"shortDescription,omitempty"`
	Category         string   `db:"category" json:"category"`
	CategoryCode     string   `db:"category_code" json:"categoryCode"`
	Synonyms         []string `db:"synonyms" json:"synonyms,omitempty"`
}

// Category groups codes under a chapter or block range.
type Category struct {
	Code  string `db:"code" json:"code"`
	Title string `db:"title" json:"title"`
	Range string `db:"range_label" json:"range"`
}

// Metadata describes a serialized code database.
type Metadata struct {
	Version         string    `json:"version"`
	TotalCodes      int       `json:"totalCodes"`
	TotalCategories int       `json:"totalCategories"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// Database is the serialized catalog shape: {metadata, categories, codes}.
type Database struct {
	Metadata   Metadata   `json:"metadata"`
	Categories []Category `json:"categories"`
	Codes      []Code     `json:"codes"`
}

// ValidationError lists every integrity violation found in a database.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "invalid code database: " + e.Errors[0]
	}
	return fmt.Sprintf("invalid code database: %d violations (first: %s)", len(e.Errors), e.Errors[0])
}

func (e *ValidationError) Violations() []string { return e.Errors }

// AdvancedQuery filters codes by text, category and code range.
type AdvancedQuery struct {
	Term      string `query:"term"`
	Category  string `query:"category"`
	CodeRange string `query:"range"`
	Limit     int    `query:"limit"`
}

// SuggestStage reports which suggestion stage produced a result.
type SuggestStage string

const (
	StageNone   SuggestStage = "none"
	StageDirect SuggestStage = "direct"
	StageToken  SuggestStage = "token"
)

// Suggestion is the result of Suggest.
type Suggestion struct {
	Codes []Code       `json:"codes"`
	Stage SuggestStage `json:"stage"`
}

// Result caps.
const (
	SearchLimit   = 50
	SuggestLimit  = 5
	RelatedLimit  = 10
	CategoryLimit = 100
)

// SystemICD10 is the FHIR code system URI for ICD-10-CM.
const SystemICD10 = "http://hl7.org/fhir/sid/icd-10-cm"

// chapterRanges maps the leading one or two characters of a category code
// to its ICD-10 chapter range.
var chapterRanges = map[string]string{
	"A": "A00-B99", "B": "A00-B99",
	"C": "C00-D49", "D0": "C00-D49", "D1": "C00-D49", "D2": "C00-D49", "D3": "C00-D49", "D4": "C00-D49",
	"D5": "D50-D89", "D6": "D50-D89", "D7": "D50-D89", "D8": "D50-D89",
	"E": "E00-E89",
	"F": "F01-F99",
	"G": "G00-G99",
	"H0": "H00-H59", "H1": "H00-H59", "H2": "H00-H59", "H3": "H00-H59", "H4": "H00-H59", "H5": "H00-H59",
	"H6": "H60-H95", "H7": "H60-H95", "H8": "H60-H95", "H9": "H60-H95",
	"I": "I00-I99",
	"J": "J00-J99",
	"K": "K00-K95",
	"L": "L00-L99",
	"M": "M00-M99",
	"N": "N00-N99",
	"O": "O00-O9A",
	"P": "P00-P96",
	"Q": "Q00-Q99",
	"R": "R00-R99",
	"S": "S00-T88", "T": "S00-T88",
	"V": "V00-Y99", "W": "V00-Y99", "X": "V00-Y99", "Y": "V00-Y99",
	"Z": "Z00-Z99",
}

// ChapterRange returns the chapter range label for a category code, or
// "Unknown".
func ChapterRange(categoryCode string) string {
	c := strings.ToUpper(strings.TrimSpace(categoryCode))
	if c == "" {
		return "Unknown"
	}
	if len(c) >= 2 {
		if r, ok := chapterRanges[c[:2]]; ok {
			return r
		}
	}
	if r, ok := chapterRanges[c[:1]]; ok {
		return r
	}
	return "Unknown"
}
