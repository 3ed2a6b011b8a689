package icd10

import (
	"fmt"
	"strings"
)

// Catalog is an immutable, indexed snapshot of a code database. All query
// methods are safe for concurrent use.
type Catalog struct {
	meta       Metadata
	codes      []Code
	categories []Category
	degraded   bool

	byCode       map[string]int
	byCompact    map[string]int
	byCategory   map[string][]int
	categoryByID map[string]int

	compact    []string
	lowerDesc  []string
	lowerShort []string
}

// NewCatalog validates db and builds its indexes. Codes must be non-empty
// and unique, and every categoryCode must resolve to a category unless
// degraded is set. All violations are reported in a *ValidationError.
func NewCatalog(db *Database, degraded bool) (*Catalog, error) {
	if db == nil || len(db.Codes) == 0 {
		return nil, &ValidationError{Errors: []string{"database contains no codes"}}
	}

	c := &Catalog{
		meta:         db.Metadata,
		codes:        db.Codes,
		categories:   db.Categories,
		degraded:     degraded,
		byCode:       make(map[string]int, len(db.Codes)),
		byCompact:    make(map[string]int, len(db.Codes)),
		byCategory:   make(map[string][]int),
		categoryByID: make(map[string]int, len(db.Categories)),
		compact:      make([]string, len(db.Codes)),
		lowerDesc:    make([]string, len(db.Codes)),
		lowerShort:   make([]string, len(db.Codes)),
	}

	var violations []string
	for i, cat := range db.Categories {
		if cat.Code == "" {
			violations = append(violations, fmt.Sprintf("category %d has an empty code", i))
			continue
		}
		if _, dup := c.categoryByID[cat.Code]; dup {
			violations = append(violations, fmt.Sprintf("duplicate category %q", cat.Code))
			continue
		}
		c.categoryByID[cat.Code] = i
	}

	for i, code := range db.Codes {
		if code.Code == "" {
			violations = append(violations, fmt.Sprintf("code %d has an empty identifier", i))
			continue
		}
		if _, dup := c.byCode[code.Code]; dup {
			violations = append(violations, fmt.Sprintf("duplicate code %q", code.Code))
			continue
		}
		if !degraded {
			if _, ok := c.categoryByID[code.CategoryCode]; !ok {
				violations = append(violations, fmt.Sprintf("code %q references unknown category %q", code.Code, code.CategoryCode))
			}
		}

		c.byCode[code.Code] = i
		c.compact[i] = compactCode(code.Code)
		if _, ok := c.byCompact[c.compact[i]]; !ok {
			c.byCompact[c.compact[i]] = i
		}
		c.byCategory[code.CategoryCode] = append(c.byCategory[code.CategoryCode], i)
		c.lowerDesc[i] = strings.ToLower(code.Description)
		c.lowerShort[i] = strings.ToLower(code.ShortDescription)
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Errors: violations}
	}

	if c.meta.TotalCodes == 0 {
		c.meta.TotalCodes = len(c.codes)
	}
	if c.meta.TotalCategories == 0 {
		c.meta.TotalCategories = len(c.categories)
	}
	return c, nil
}

// Len returns the number of codes in the catalog.
func (c *Catalog) Len() int { return len(c.codes) }

// Degraded reports whether the catalog was built from the fallback dataset.
func (c *Catalog) Degraded() bool { return c.degraded }

// Metadata returns the database metadata.
func (c *Catalog) Metadata() Metadata { return c.meta }

// Categories returns all categories in catalog order.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Codes returns all codes in catalog order.
func (c *Catalog) Codes() []Code {
	out := make([]Code, len(c.codes))
	copy(out, c.codes)
	return out
}

// compactCode upper-cases a code and removes its dot: "j06.9" -> "J069".
func compactCode(code string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(code)), ".", "")
}
