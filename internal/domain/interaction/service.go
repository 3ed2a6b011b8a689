package interaction

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cdss/refdata/internal/platform/catalog"
)

// NewLoader creates a catalog loader for the drug database. A nil fetch
// makes the curated embedded dataset the primary catalog.
func NewLoader(fetch func(ctx context.Context) (*Catalog, error), source string, opts catalog.Options, logger zerolog.Logger) *catalog.Loader[*Catalog] {
	return catalog.NewLoader(catalog.Config[*Catalog]{
		Name:     "drugs",
		Source:   source,
		Fetch:    fetch,
		Fallback: CuratedCatalog,
		Count:    func(c *Catalog) int { return c.Len() },
		Options:  opts,
		Logger:   logger,

		EmbeddedIsPrimary: true,
	})
}

// SourceFetch adapts a byte source into a loader fetch function.
func SourceFetch(src catalog.Source) func(ctx context.Context) (*Catalog, error) {
	return catalog.FromSource(src, Decode)
}

// Service answers drug and interaction queries over the loaded catalog.
type Service struct {
	loader *catalog.Loader[*Catalog]
}

func NewService(loader *catalog.Loader[*Catalog]) *Service {
	return &Service{loader: loader}
}

// Catalog returns the loaded catalog, loading it if necessary.
func (s *Service) Catalog(ctx context.Context) *Catalog {
	return s.loader.Load(ctx).Data
}

func (s *Service) Status() catalog.Status {
	return s.loader.Status()
}

func (s *Service) FindPair(ctx context.Context, a, b string) (Interaction, bool) {
	return s.Catalog(ctx).FindPair(a, b)
}

func (s *Service) FindAll(ctx context.Context, names []string) []Interaction {
	return s.Catalog(ctx).FindAll(names)
}

func (s *Service) Check(ctx context.Context, names []string) CheckResult {
	return s.Catalog(ctx).Check(names)
}

func (s *Service) ValidateCatalog(ctx context.Context) ValidationResult {
	return s.Catalog(ctx).ValidateCatalog()
}

func (s *Service) GetDrug(ctx context.Context, identifier string) (Drug, bool) {
	return s.Catalog(ctx).GetDrug(identifier)
}

func (s *Service) SearchDrugs(ctx context.Context, term string) []Drug {
	return s.Catalog(ctx).SearchDrugs(term)
}

func (s *Service) InteractionsFor(ctx context.Context, identifier string) []Interaction {
	return s.Catalog(ctx).InteractionsFor(identifier)
}

func (s *Service) DrugsByCategory(ctx context.Context, category string) []Drug {
	return s.Catalog(ctx).DrugsByCategory(category)
}

func (s *Service) Categories(ctx context.Context) []CategoryCount {
	return s.Catalog(ctx).Categories()
}
