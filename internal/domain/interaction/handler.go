package interaction

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cdss/refdata/pkg/pagination"
)

// Handler provides REST endpoints for drug and interaction lookups.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers drug and interaction routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	drugs := api.Group("/drugs")
	drugs.GET("", h.ListDrugs)
	drugs.GET("/categories", h.ListCategories)
	drugs.GET("/:id", h.GetDrug)
	drugs.GET("/:id/interactions", h.GetDrugInteractions)

	ix := api.Group("/interactions")
	ix.GET("/pair", h.GetPair)
	ix.GET("/check", h.Check)
	ix.GET("/validate", h.Validate)
	ix.GET("/status", h.GetStatus)
}

// PairResponse wraps the result of a pair lookup. Interaction is null when
// the drugs are not known to interact.
type PairResponse struct {
	Drugs       []string     `json:"drugs"`
	Interaction *Interaction `json:"interaction"`
}

func pathParam(c echo.Context, name string) string {
	v := c.Param(name)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

// ListDrugs handles GET /api/v1/drugs?q=&category=
func (h *Handler) ListDrugs(c echo.Context) error {
	ctx := c.Request().Context()
	var drugs []Drug
	switch {
	case c.QueryParam("q") != "":
		drugs = h.svc.SearchDrugs(ctx, c.QueryParam("q"))
	case c.QueryParam("category") != "":
		drugs = h.svc.DrugsByCategory(ctx, c.QueryParam("category"))
	default:
		drugs = h.svc.Catalog(ctx).Drugs()
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(drugs, pagination.FromContext(c)))
}

// ListCategories handles GET /api/v1/drugs/categories
func (h *Handler) ListCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Categories(c.Request().Context()))
}

// GetDrug handles GET /api/v1/drugs/:id
func (h *Handler) GetDrug(c echo.Context) error {
	d, ok := h.svc.GetDrug(c.Request().Context(), pathParam(c, "id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "drug not found")
	}
	return c.JSON(http.StatusOK, d)
}

// GetDrugInteractions handles GET /api/v1/drugs/:id/interactions
func (h *Handler) GetDrugInteractions(c echo.Context) error {
	ctx := c.Request().Context()
	id := pathParam(c, "id")
	if _, ok := h.svc.GetDrug(ctx, id); !ok {
		return echo.NewHTTPError(http.StatusNotFound, "drug not found")
	}
	return c.JSON(http.StatusOK, h.svc.InteractionsFor(ctx, id))
}

// GetPair handles GET /api/v1/interactions/pair?a=&b=
func (h *Handler) GetPair(c echo.Context) error {
	a, b := c.QueryParam("a"), c.QueryParam("b")
	if a == "" || b == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameters 'a' and 'b' are required")
	}
	resp := PairResponse{Drugs: []string{a, b}}
	if ix, ok := h.svc.FindPair(c.Request().Context(), a, b); ok {
		resp.Interaction = &ix
	}
	return c.JSON(http.StatusOK, resp)
}

// Check handles GET /api/v1/interactions/check?drug=..&drug=.. or
// ?drugs=a,b,c
func (h *Handler) Check(c echo.Context) error {
	names := drugNames(c)
	if len(names) < 2 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least two drugs are required")
	}
	return c.JSON(http.StatusOK, h.svc.Check(c.Request().Context(), names))
}

func drugNames(c echo.Context) []string {
	var names []string
	for _, n := range c.QueryParams()["drug"] {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	for _, n := range strings.Split(c.QueryParam("drugs"), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// Validate handles GET /api/v1/interactions/validate
func (h *Handler) Validate(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ValidateCatalog(c.Request().Context()))
}

// GetStatus handles GET /api/v1/interactions/status
func (h *Handler) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Status())
}
