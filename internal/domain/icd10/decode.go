package icd10

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Decode parses a serialized code database and builds a validated catalog.
// Two shapes are accepted: the {metadata, categories, codes} object, and a
// bare array of codes from which categories are derived.
func Decode(data []byte) (*Catalog, error) {
	db, err := ParseDatabase(data)
	if err != nil {
		return nil, err
	}
	return NewCatalog(db, false)
}

// ParseDatabase parses either accepted shape into a Database without
// validating references.
func ParseDatabase(data []byte) (*Database, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty code database")
	}

	if trimmed[0] == '[' {
		var codes []Code
		if err := json.Unmarshal(trimmed, &codes); err != nil {
			return nil, fmt.Errorf("parse code array: %w", err)
		}
		return DatabaseFromCodes(codes, ""), nil
	}

	var db Database
	if err := json.Unmarshal(trimmed, &db); err != nil {
		return nil, fmt.Errorf("parse code database: %w", err)
	}
	if len(db.Categories) == 0 && len(db.Codes) > 0 {
		db.Categories = DeriveCategories(db.Codes)
	}
	return &db, nil
}

// DatabaseFromCodes wraps a code list in a Database, deriving its categories
// and metadata.
func DatabaseFromCodes(codes []Code, version string) *Database {
	cats := DeriveCategories(codes)
	return &Database{
		Metadata: Metadata{
			Version:         version,
			TotalCodes:      len(codes),
			TotalCategories: len(cats),
			GeneratedAt:     time.Now().UTC(),
		},
		Categories: cats,
		Codes:      codes,
	}
}

// DeriveCategories returns one category per distinct categoryCode, in order
// of first appearance.
func DeriveCategories(codes []Code) []Category {
	seen := make(map[string]struct{})
	var cats []Category
	for _, c := range codes {
		if c.CategoryCode == "" {
			continue
		}
		if _, ok := seen[c.CategoryCode]; ok {
			continue
		}
		seen[c.CategoryCode] = struct{}{}
		cats = append(cats, Category{
			Code:  c.CategoryCode,
			Title: c.Category,
			Range: ChapterRange(c.CategoryCode),
		})
	}
	return cats
}
