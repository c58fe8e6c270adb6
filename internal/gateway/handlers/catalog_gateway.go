package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cataloghandler "gastro-system/internal/services/catalog/handler"
)

type CatalogHTTPHandler struct {
	catalog *cataloghandler.CatalogHandler
}

func NewCatalogHTTPHandler(catalog *cataloghandler.CatalogHandler) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{catalog: catalog}
}

func (s *CatalogHTTPHandler) CreateIngredient(c *gin.Context) {
	var req cataloghandler.IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ingredient, err := s.catalog.CreateIngredient(c.Request.Context(), req)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, ingredient)
}

type updateIngredientBody struct {
	cataloghandler.IngredientRequest
	IsActive *bool `json:"isActive"`
}

func (s *CatalogHTTPHandler) UpdateIngredient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body updateIngredientBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ingredient, err := s.catalog.UpdateIngredient(c.Request.Context(), id, body.IngredientRequest, body.IsActive)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, ingredient)
}

func (s *CatalogHTTPHandler) GetIngredient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ingredient, err := s.catalog.GetIngredient(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, ingredient)
}

func (s *CatalogHTTPHandler) ListIngredients(c *gin.Context) {
	ingredients, err := s.catalog.ListIngredients(c.Request.Context(),
		c.Query("search"), parseBoolQuery(c, "include_inactive"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, ingredients)
}

func (s *CatalogHTTPHandler) DeleteIngredient(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.catalog.DeleteIngredient(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"deleted": id})
}

func (s *CatalogHTTPHandler) CreateLocation(c *gin.Context) {
	var req cataloghandler.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	location, err := s.catalog.CreateLocation(c.Request.Context(), req)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, location)
}

func (s *CatalogHTTPHandler) GetLocation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	location, err := s.catalog.GetLocation(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, location)
}

func (s *CatalogHTTPHandler) ListLocations(c *gin.Context) {
	locations, err := s.catalog.ListLocations(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, locations)
}

func (s *CatalogHTTPHandler) CreateSupplier(c *gin.Context) {
	var req cataloghandler.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	supplier, err := s.catalog.CreateSupplier(c.Request.Context(), req)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, supplier)
}

func (s *CatalogHTTPHandler) GetSupplier(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	supplier, err := s.catalog.GetSupplier(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, supplier)
}

func (s *CatalogHTTPHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := s.catalog.ListSuppliers(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, suppliers)
}
