package icd10

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/cdss/refdata/internal/platform/fhir"
	"github.com/cdss/refdata/pkg/pagination"
)

// Handler provides REST endpoints for ICD-10 lookups.
type Handler struct {
	svc *Service
}

// NewHandler creates a new ICD-10 handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers ICD-10 routes on the API and FHIR groups.
func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	g := api.Group("/icd10")
	g.GET("/status", h.GetStatus)
	g.GET("/codes/:code", h.GetCode)
	g.GET("/codes/:code/related", h.GetRelated)
	g.GET("/codes/:code/category", h.GetCategory)
	g.GET("/search", h.Search)
	g.GET("/suggest", h.Suggest)
	g.GET("/categories", h.ListCategories)
	g.GET("/categories/:category/codes", h.ListCategoryCodes)
	g.GET("/advanced", h.AdvancedSearch)

	fhirGroup.POST("/CodeSystem/$lookup", h.FHIRLookup)
	fhirGroup.POST("/CodeSystem/$validate-code", h.FHIRValidateCode)
}

func pathParam(c echo.Context, name string) string {
	v := c.Param(name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// GetStatus handles GET /api/v1/icd10/status
func (h *Handler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Status())
}

// GetCode handles GET /api/v1/icd10/codes/:code
func (h *Handler) GetCode(c echo.Context) error {
	code, ok := h.svc.GetByCode(c.Request().Context(), pathParam(c, "code"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "code not found")
	}
	return c.JSON(http.StatusOK, code)
}

// GetRelated handles GET /api/v1/icd10/codes/:code/related
func (h *Handler) GetRelated(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.GetRelatedCodes(c.Request().Context(), pathParam(c, "code")))
}

// GetCategory handles GET /api/v1/icd10/codes/:code/category
func (h *Handler) GetCategory(c echo.Context) error {
	cat, ok := h.svc.GetCategoryForCode(c.Request().Context(), pathParam(c, "code"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}
	return c.JSON(http.StatusOK, cat)
}

// Search handles GET /api/v1/icd10/search?q=...
func (h *Handler) Search(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	return c.JSON(http.StatusOK, h.svc.SearchByDescription(c.Request().Context(), query))
}

// Suggest handles GET /api/v1/icd10/suggest?text=...
func (h *Handler) Suggest(c echo.Context) error {
	text := c.QueryParam("text")
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'text' is required")
	}
	return c.JSON(http.StatusOK, h.svc.Suggest(c.Request().Context(), text))
}

// ListCategories handles GET /api/v1/icd10/categories
func (h *Handler) ListCategories(c echo.Context) error {
	cats := h.svc.Categories(c.Request().Context())
	return c.JSON(http.StatusOK, pagination.NewResponse(cats, pagination.FromContext(c)))
}

// ListCategoryCodes handles GET /api/v1/icd10/categories/:category/codes.
// The whole category is paged; each page is capped by the pagination limit.
func (h *Handler) ListCategoryCodes(c echo.Context) error {
	codes := h.svc.CategoryCodes(c.Request().Context(), pathParam(c, "category"))
	return c.JSON(http.StatusOK, pagination.NewResponse(codes, pagination.FromContext(c)))
}

// AdvancedSearch handles GET /api/v1/icd10/advanced?term=&category=&range=&limit=
func (h *Handler) AdvancedSearch(c echo.Context) error {
	var q AdvancedQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")
	}
	if q.Term == "" && q.Category == "" && q.CodeRange == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one of 'term', 'category' or 'range' is required")
	}
	q.Limit = pagination.FromContextWithLimits(c, SearchLimit, CategoryLimit).Limit
	return c.JSON(http.StatusOK, h.svc.AdvancedSearch(c.Request().Context(), q))
}

// FHIRLookup handles POST /fhir/CodeSystem/$lookup
func (h *Handler) FHIRLookup(c echo.Context) error {
	var req LookupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	resp, err := h.svc.Lookup(c.Request().Context(), &req)
	if errors.Is(err, ErrCodeNotFound) {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("ICD-10-CM", req.Code))
	}
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome([]string{err.Error()}))
	}
	return c.JSON(http.StatusOK, resp)
}

// FHIRValidateCode handles POST /fhir/CodeSystem/$validate-code
func (h *Handler) FHIRValidateCode(c echo.Context) error {
	var req ValidateCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	resp, err := h.svc.ValidateCode(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome([]string{err.Error()}))
	}
	return c.JSON(http.StatusOK, resp)
}
