package interaction

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog is an immutable, indexed snapshot of a drug database. All query
// methods are safe for concurrent use.
type Catalog struct {
	version      string
	drugs        []Drug
	interactions []Interaction

	byID    map[string]int
	byAlias map[string]int
	byPair  map[pairKey][]int
	byDrug  map[string][]int
}

type pairKey struct{ a, b string }

func newPairKey(x, y string) pairKey {
	if y < x {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// Index builds the lookup indexes for db without validating it. Use
// ValidateCatalog to check referential integrity.
func Index(db *Database) *Catalog {
	if db == nil {
		db = &Database{}
	}
	c := &Catalog{
		version:      db.Version,
		drugs:        db.Drugs,
		interactions: db.Interactions,
		byID:         make(map[string]int, len(db.Drugs)),
		byAlias:      make(map[string]int, len(db.Drugs)*3),
		byPair:       make(map[pairKey][]int, len(db.Interactions)),
		byDrug:       make(map[string][]int),
	}

	for i, d := range db.Drugs {
		if d.ID == "" {
			continue
		}
		if _, dup := c.byID[d.ID]; dup {
			continue
		}
		c.byID[d.ID] = i
		c.addAlias(d.ID, i)
		c.addAlias(d.Name, i)
		c.addAlias(d.GenericName, i)
		for _, b := range d.BrandNames {
			c.addAlias(b, i)
		}
	}

	for i, ix := range db.Interactions {
		k := newPairKey(ix.Drug1ID, ix.Drug2ID)
		c.byPair[k] = append(c.byPair[k], i)
		c.byDrug[ix.Drug1ID] = append(c.byDrug[ix.Drug1ID], i)
		if ix.Drug2ID != ix.Drug1ID {
			c.byDrug[ix.Drug2ID] = append(c.byDrug[ix.Drug2ID], i)
		}
	}
	return c
}

// addAlias registers a lower-cased lookup name. The first drug to claim an
// alias keeps it.
func (c *Catalog) addAlias(name string, i int) {
	key := normalizeName(name)
	if key == "" {
		return
	}
	if _, ok := c.byAlias[key]; !ok {
		c.byAlias[key] = i
	}
}

// NewCatalog indexes db and rejects it unless it has at least one drug and
// passes ValidateCatalog.
func NewCatalog(db *Database) (*Catalog, error) {
	if db == nil || len(db.Drugs) == 0 {
		return nil, &ValidationError{Errors: []string{"database contains no drugs"}}
	}
	c := Index(db)
	if res := c.ValidateCatalog(); !res.IsValid {
		return nil, &ValidationError{Errors: res.Errors}
	}
	return c, nil
}

// ValidateCatalog checks that drug ids are present and unique and that every
// interaction references existing drugs.
func (c *Catalog) ValidateCatalog() ValidationResult {
	errs := []string{}

	seen := make(map[string]struct{}, len(c.drugs))
	for i, d := range c.drugs {
		if d.ID == "" {
			errs = append(errs, fmt.Sprintf("Drug at index %d has an empty id", i))
			continue
		}
		if _, dup := seen[d.ID]; dup {
			errs = append(errs, fmt.Sprintf("Drug %s: duplicate id", d.ID))
			continue
		}
		seen[d.ID] = struct{}{}
	}

	for _, ix := range c.interactions {
		if _, ok := c.byID[ix.Drug1ID]; !ok {
			errs = append(errs, fmt.Sprintf("Interaction %s: drug1Id '%s' not found", ix.ID, ix.Drug1ID))
		}
		if _, ok := c.byID[ix.Drug2ID]; !ok {
			errs = append(errs, fmt.Sprintf("Interaction %s: drug2Id '%s' not found", ix.ID, ix.Drug2ID))
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// Version returns the dataset version, if the source provided one.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of drugs in the catalog.
func (c *Catalog) Len() int { return len(c.drugs) }

// InteractionCount returns the number of interactions in the catalog.
func (c *Catalog) InteractionCount() int { return len(c.interactions) }

// Drugs returns all drugs in catalog order.
func (c *Catalog) Drugs() []Drug {
	out := make([]Drug, len(c.drugs))
	copy(out, c.drugs)
	return out
}

// Interactions returns all interactions in catalog order.
func (c *Catalog) Interactions() []Interaction {
	out := make([]Interaction, len(c.interactions))
	copy(out, c.interactions)
	return out
}

// Database returns the serialized form of the catalog.
func (c *Catalog) Database() *Database {
	return &Database{Version: c.version, Drugs: c.Drugs(), Interactions: c.Interactions()}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (c *Catalog) resolve(identifier string) (int, bool) {
	i, ok := c.byAlias[normalizeName(identifier)]
	return i, ok
}

// GetDrug resolves an id, name, generic name or brand name,
// case-insensitively.
func (c *Catalog) GetDrug(identifier string) (Drug, bool) {
	i, ok := c.resolve(identifier)
	if !ok {
		return Drug{}, false
	}
	return c.drugs[i], true
}

// FindPair returns the interaction between two drugs, in either order.
func (c *Catalog) FindPair(a, b string) (Interaction, bool) {
	ia, ok := c.resolve(a)
	if !ok {
		return Interaction{}, false
	}
	ib, ok := c.resolve(b)
	if !ok {
		return Interaction{}, false
	}
	idx := c.byPair[newPairKey(c.drugs[ia].ID, c.drugs[ib].ID)]
	if len(idx) == 0 {
		return Interaction{}, false
	}
	return c.interactions[idx[0]], true
}

// FindAll checks every unordered pair of names (i<j, in input order) and
// returns the interactions found.
func (c *Catalog) FindAll(names []string) []Interaction {
	out := []Interaction{}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if ix, ok := c.FindPair(names[i], names[j]); ok {
				out = append(out, ix)
			}
		}
	}
	return out
}

// Check resolves a medication list and reports every interaction among the
// resolved drugs, most severe first. Names that resolve to the same drug are
// checked once.
func (c *Catalog) Check(names []string) CheckResult {
	res := CheckResult{Drugs: []string{}, Unresolved: []string{}}

	seen := make(map[string]struct{}, len(names))
	var ids []string
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		d, ok := c.GetDrug(n)
		if !ok {
			res.Unresolved = append(res.Unresolved, n)
			continue
		}
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		ids = append(ids, d.ID)
		res.Drugs = append(res.Drugs, d.Name)
	}

	res.Interactions = c.FindAll(ids)
	sort.SliceStable(res.Interactions, func(i, j int) bool {
		return res.Interactions[i].Severity > res.Interactions[j].Severity
	})
	for _, ix := range res.Interactions {
		if ix.Severity > res.Highest {
			res.Highest = ix.Severity
		}
	}
	return res
}

// InteractionsFor returns every interaction involving the drug, in catalog
// order.
func (c *Catalog) InteractionsFor(identifier string) []Interaction {
	out := []Interaction{}
	i, ok := c.resolve(identifier)
	if !ok {
		return out
	}
	for _, idx := range c.byDrug[c.drugs[i].ID] {
		out = append(out, c.interactions[idx])
	}
	return out
}

// SearchDrugs matches term as a case-insensitive substring of the name,
// generic name, brand names or active ingredients.
func (c *Catalog) SearchDrugs(term string) []Drug {
	out := []Drug{}
	q := normalizeName(term)
	if q == "" {
		return out
	}
	for _, d := range c.drugs {
		if drugMatches(d, q) {
			out = append(out, d)
		}
	}
	return out
}

func drugMatches(d Drug, q string) bool {
	if strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.GenericName), q) {
		return true
	}
	for _, b := range d.BrandNames {
		if strings.Contains(strings.ToLower(b), q) {
			return true
		}
	}
	for _, a := range d.ActiveIngredients {
		if strings.Contains(strings.ToLower(a), q) {
			return true
		}
	}
	return false
}

// DrugsByCategory returns the drugs in a category, matched
// case-insensitively.
func (c *Catalog) DrugsByCategory(category string) []Drug {
	out := []Drug{}
	for _, d := range c.drugs {
		if strings.EqualFold(string(d.Category), strings.TrimSpace(category)) {
			out = append(out, d)
		}
	}
	return out
}

// CategoryCount is a category with the number of catalog drugs in it.
type CategoryCount struct {
	Category Category `json:"category"`
	Drugs    int      `json:"drugs"`
}

// Categories lists every category that has at least one drug, in display
// order.
func (c *Catalog) Categories() []CategoryCount {
	counts := make(map[Category]int)
	for _, d := range c.drugs {
		counts[d.Category]++
	}
	out := []CategoryCount{}
	for _, cat := range Categories() {
		if n := counts[cat]; n > 0 {
			out = append(out, CategoryCount{Category: cat, Drugs: n})
		}
	}
	return out
}
