package handlers

import (
	"errors"
	"log"
	"net/http"

	"techmart/internal/catalog"
	"techmart/internal/common"
	"techmart/internal/services"

	"github.com/labstack/echo/v4"
)

// StorefrontHandlers serves the public product listing
type StorefrontHandlers struct {
	storefront services.StorefrontService
}

// NewStorefrontHandlers creates a new storefront handlers instance
func NewStorefrontHandlers(storefront services.StorefrontService) *StorefrontHandlers {
	return &StorefrontHandlers{storefront: storefront}
}

// RegisterRoutes mounts the storefront endpoints on a versioned group
func (h *StorefrontHandlers) RegisterRoutes(g *echo.Group) {
	store := g.Group("/store")
	store.GET("/products", h.ListProducts)
	store.GET("/products/:id", h.GetProduct)
	store.GET("/products/:id/related", h.RelatedProducts)
	store.GET("/filters", h.GetFilters)
}

// ListProducts handles GET /store/products
func (h *StorefrontHandlers) ListProducts(c echo.Context) error {
	filters, err := parseFilterState(c)
	if err != nil {
		return sendParamError(c, err)
	}

	page, err := common.ParseIntParam(c.QueryParam("page"), "page", 1)
	if err != nil {
		return sendParamError(c, err)
	}

	result, err := h.storefront.Browse(c.Request().Context(), filters, page, c.QueryParam("state"))
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidFilter) {
			return common.SendValidationError(c, "filters", err.Error())
		}
		log.Printf("ERROR: Failed to browse products: %v", err)
		return common.SendServerError(c, "Failed to list products")
	}

	return c.JSON(http.StatusOK, result)
}

// GetProduct handles GET /store/products/:id, accepting an id or a slug
func (h *StorefrontHandlers) GetProduct(c echo.Context) error {
	product, err := h.storefront.GetProduct(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return common.SendNotFoundError(c, "Product")
		}
		log.Printf("ERROR: Failed to get product %s: %v", c.Param("id"), err)
		return common.SendServerError(c, "Failed to get product")
	}
	return c.JSON(http.StatusOK, product)
}

// RelatedProducts handles GET /store/products/:id/related
func (h *StorefrontHandlers) RelatedProducts(c echo.Context) error {
	limit, err := common.ParseIntParam(c.QueryParam("limit"), "limit", 0)
	if err != nil {
		return sendParamError(c, err)
	}
	if limit < 0 {
		return common.SendValidationError(c, "limit", "must not be negative")
	}

	related, err := h.storefront.Related(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return common.SendNotFoundError(c, "Product")
		}
		log.Printf("ERROR: Failed to rank related products for %s: %v", c.Param("id"), err)
		return common.SendServerError(c, "Failed to get related products")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": related,
		"count":    len(related),
	})
}

// GetFilters handles GET /store/filters
func (h *StorefrontHandlers) GetFilters(c echo.Context) error {
	meta, err := h.storefront.FilterMetadata(c.Request().Context())
	if err != nil {
		log.Printf("ERROR: Failed to build filter metadata: %v", err)
		return common.SendServerError(c, "Failed to get filters")
	}
	return c.JSON(http.StatusOK, meta)
}

func parseFilterState(c echo.Context) (catalog.FilterState, error) {
	fs := catalog.DefaultFilterState()

	minPrice, err := common.ParseFloatParam(c.QueryParam("min_price"), "min_price", catalog.DefaultMinPrice)
	if err != nil {
		return fs, err
	}
	maxPrice, err := common.ParseFloatParam(c.QueryParam("max_price"), "max_price", catalog.DefaultMaxPrice)
	if err != nil {
		return fs, err
	}
	rating, err := common.ParseFloatParam(c.QueryParam("rating"), "rating", 0)
	if err != nil {
		return fs, err
	}

	fs = fs.WithSearch(c.QueryParam("q")).
		WithPriceRange(minPrice, maxPrice).
		WithRating(rating).
		WithTags(common.SplitList(c.QueryParams()["tags"])...)
	if sortBy := c.QueryParam("sort_by"); sortBy != "" {
		fs = fs.WithSort(catalog.SortKey(sortBy))
	}
	if category := c.QueryParam("category"); category != "" {
		fs = fs.WithCategory(category)
	}
	if brand := c.QueryParam("brand"); brand != "" {
		fs = fs.WithBrand(brand)
	}
	return fs, nil
}

func sendParamError(c echo.Context, err error) error {
	var pe *common.ParamError
	if errors.As(err, &pe) {
		return common.SendValidationError(c, pe.Field, pe.Message)
	}
	return common.SendClientError(c, err.Error())
}
