package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	stockhandler "gastro-system/internal/services/stock/handler"
)

type StockHTTPHandler struct {
	stock *stockhandler.StockHandler
}

func NewStockHTTPHandler(stock *stockhandler.StockHandler) *StockHTTPHandler {
	return &StockHTTPHandler{stock: stock}
}

func (s *StockHTTPHandler) AddHolding(c *gin.Context) {
	var req stockhandler.AddHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	holding, err := s.stock.AddHolding(c.Request.Context(), req, userIDFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, holding)
}

type quantityBody struct {
	Quantity decimal.Decimal `json:"quantity"`
}

func (s *StockHTTPHandler) SetHoldingQuantity(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body quantityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	holding, err := s.stock.SetHoldingQuantity(c.Request.Context(), id, body.Quantity, userIDFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, holding)
}

type deltaBody struct {
	Delta decimal.Decimal `json:"delta"`
}

func (s *StockHTTPHandler) AdjustHoldingQuantity(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body deltaBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	holding, err := s.stock.AdjustHoldingQuantity(c.Request.Context(), id, body.Delta, userIDFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, holding)
}

func (s *StockHTTPHandler) DeleteHolding(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.stock.DeleteHolding(c.Request.Context(), id, userIDFrom(c)); err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"deleted": id})
}

func (s *StockHTTPHandler) ListHoldings(c *gin.Context) {
	holdings, err := s.stock.ListHoldings(c.Request.Context(),
		parseInt64Query(c, "ingredient_id"), parseInt64Query(c, "location_id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, holdings)
}

func (s *StockHTTPHandler) AggregateByIngredient(c *gin.Context) {
	rows, err := s.stock.AggregateByIngredient(c.Request.Context(), parseInt64Query(c, "location_id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, rows)
}

func (s *StockHTTPHandler) ListLowStock(c *gin.Context) {
	rows, err := s.stock.ListLowStock(c.Request.Context(), parseInt64Query(c, "location_id"))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, rows)
}

func (s *StockHTTPHandler) ListMovements(c *gin.Context) {
	page, pageSize := parsePagination(c)
	req := stockhandler.ListMovementsRequest{
		IngredientID: parseInt64Query(c, "ingredient_id"),
		LocationID:   parseInt64Query(c, "location_id"),
		MovementType: parseStringQuery(c, "movement_type"),
		StartDate:    c.Query("start_date"),
		EndDate:      c.Query("end_date"),
		Page:         page,
		PageSize:     pageSize,
	}

	movements, total, err := s.stock.ListMovements(c.Request.Context(), req)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"movements": movements, "total": total})
}
