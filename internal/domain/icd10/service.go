package icd10

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cdss/refdata/internal/platform/catalog"
)

// NewLoader creates a catalog loader for ICD-10 codes. A nil fetch serves
// the embedded fallback set, reported as ModeFallback.
func NewLoader(fetch func(ctx context.Context) (*Catalog, error), source string, opts catalog.Options, logger zerolog.Logger) *catalog.Loader[*Catalog] {
	return catalog.NewLoader(catalog.Config[*Catalog]{
		Name:     "icd10",
		Source:   source,
		Fetch:    fetch,
		Fallback: FallbackCatalog,
		Count:    func(c *Catalog) int { return c.Len() },
		Options:  opts,
		Logger:   logger,
	})
}

// SourceFetch adapts a byte source into a loader fetch function.
func SourceFetch(src catalog.Source) func(ctx context.Context) (*Catalog, error) {
	return catalog.FromSource(src, Decode)
}

// Service provides ICD-10 lookups over the loaded catalog. Each call waits
// for the first load to finish.
type Service struct {
	loader *catalog.Loader[*Catalog]
}

// NewService creates a new ICD-10 service.
func NewService(loader *catalog.Loader[*Catalog]) *Service {
	return &Service{loader: loader}
}

// Catalog returns the loaded catalog, loading it if necessary.
func (s *Service) Catalog(ctx context.Context) *Catalog {
	return s.loader.Load(ctx).Data
}

// Status reports the loader state.
func (s *Service) Status() catalog.Status {
	return s.loader.Status()
}

func (s *Service) GetByCode(ctx context.Context, code string) (Code, bool) {
	return s.Catalog(ctx).GetByCode(code)
}

func (s *Service) SearchByDescription(ctx context.Context, term string) []Code {
	return s.Catalog(ctx).SearchByDescription(term)
}

func (s *Service) SuggestCodes(ctx context.Context, text string) []Code {
	return s.Catalog(ctx).SuggestCodes(text)
}

func (s *Service) Suggest(ctx context.Context, text string) Suggestion {
	return s.Catalog(ctx).Suggest(text)
}

func (s *Service) GetRelatedCodes(ctx context.Context, code string) []Code {
	return s.Catalog(ctx).GetRelatedCodes(code)
}

func (s *Service) GetCategoryForCode(ctx context.Context, code string) (Category, bool) {
	return s.Catalog(ctx).GetCategoryForCode(code)
}

func (s *Service) GetByCategory(ctx context.Context, category string) []Code {
	return s.Catalog(ctx).GetByCategory(category)
}

func (s *Service) CategoryCodes(ctx context.Context, category string) []Code {
	return s.Catalog(ctx).CategoryCodes(category)
}

func (s *Service) Categories(ctx context.Context) []Category {
	return s.Catalog(ctx).Categories()
}

func (s *Service) Metadata(ctx context.Context) Metadata {
	return s.Catalog(ctx).Metadata()
}

func (s *Service) AdvancedSearch(ctx context.Context, q AdvancedQuery) []Code {
	return s.Catalog(ctx).AdvancedSearch(q)
}

// -- FHIR Operations --

// LookupRequest represents a FHIR CodeSystem $lookup request.
type LookupRequest struct {
	System string `json:"system"`
	Code   string `json:"code"`
}

// LookupResponse represents a FHIR CodeSystem $lookup response.
type LookupResponse struct {
	ResourceType string            `json:"resourceType"`
	Parameter    []LookupParameter `json:"parameter"`
}

// LookupParameter is a name/value pair in a FHIR Parameters resource.
type LookupParameter struct {
	Name        string `json:"name"`
	ValueString string `json:"valueString,omitempty"`
	ValueCode   string `json:"valueCode,omitempty"`
}

// ValidateCodeRequest represents a FHIR CodeSystem $validate-code request.
type ValidateCodeRequest struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

// ValidateCodeResponse represents a FHIR CodeSystem $validate-code response.
type ValidateCodeResponse struct {
	ResourceType string                  `json:"resourceType"`
	Parameter    []ValidateCodeParameter `json:"parameter"`
}

// ValidateCodeParameter is a name/value pair in a validate-code response.
type ValidateCodeParameter struct {
	Name         string `json:"name"`
	ValueBoolean *bool  `json:"valueBoolean,omitempty"`
	ValueString  string `json:"valueString,omitempty"`
}

// ErrCodeNotFound is returned by Lookup for a code absent from the catalog.
var ErrCodeNotFound = errors.New("code not found")

// Lookup implements the FHIR CodeSystem $lookup operation for ICD-10-CM.
func (s *Service) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	if req.System == "" {
		return nil, fmt.Errorf("system is required")
	}
	if req.Code == "" {
		return nil, fmt.Errorf("code is required")
	}
	if req.System != SystemICD10 {
		return nil, fmt.Errorf("unsupported code system: %s", req.System)
	}

	c, ok := s.GetByCode(ctx, req.Code)
	if !ok {
		return nil, fmt.Errorf("%w in ICD-10: %s", ErrCodeNotFound, req.Code)
	}

	params := []LookupParameter{
		{Name: "name", ValueString: "ICD-10-CM"},
		{Name: "version", ValueString: s.Metadata(ctx).Version},
		{Name: "code", ValueCode: c.Code},
		{Name: "display", ValueString: c.Description},
	}
	if c.CategoryCode != "" {
		params = append(params, LookupParameter{Name: "parent", ValueCode: c.CategoryCode})
	}
	return &LookupResponse{ResourceType: "Parameters", Parameter: params}, nil
}

// ValidateCode implements the FHIR CodeSystem $validate-code operation for
// ICD-10-CM. A display that differs from the catalog description still
// validates the code but adds a message.
func (s *Service) ValidateCode(ctx context.Context, req *ValidateCodeRequest) (*ValidateCodeResponse, error) {
	if req.System == "" {
		return nil, fmt.Errorf("system is required")
	}
	if req.Code == "" {
		return nil, fmt.Errorf("code is required")
	}
	if req.System != SystemICD10 {
		return nil, fmt.Errorf("unsupported code system: %s", req.System)
	}

	c, found := s.Catalog(ctx).byExactOrBase(req.Code)
	result := found
	params := []ValidateCodeParameter{
		{Name: "result", ValueBoolean: &result},
	}
	switch {
	case !found:
		params = append(params, ValidateCodeParameter{Name: "message", ValueString: fmt.Sprintf("code '%s' not found in system '%s'", req.Code, req.System)})
	case req.Display != "" && req.Display != c.Description && req.Display != c.ShortDescription:
		params = append(params,
			ValidateCodeParameter{Name: "display", ValueString: c.Description},
			ValidateCodeParameter{Name: "message", ValueString: fmt.Sprintf("display '%s' does not match '%s'", req.Display, c.Description)},
		)
	default:
		params = append(params, ValidateCodeParameter{Name: "display", ValueString: c.Description})
	}

	return &ValidateCodeResponse{ResourceType: "Parameters", Parameter: params}, nil
}
