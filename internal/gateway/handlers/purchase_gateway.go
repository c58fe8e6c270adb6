package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	purchasehandler "gastro-system/internal/services/purchase/handler"
)

type PurchaseHTTPHandler struct {
	purchase *purchasehandler.PurchaseHandler
}

func NewPurchaseHTTPHandler(purchase *purchasehandler.PurchaseHandler) *PurchaseHTTPHandler {
	return &PurchaseHTTPHandler{purchase: purchase}
}

func (s *PurchaseHTTPHandler) CreateOrder(c *gin.Context) {
	var req purchasehandler.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := s.purchase.CreateOrder(c.Request.Context(), req, userIDFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, order)
}

func (s *PurchaseHTTPHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := s.purchase.GetOrder(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, order)
}

func (s *PurchaseHTTPHandler) ListOrders(c *gin.Context) {
	page, pageSize := parsePagination(c)
	orders, total, err := s.purchase.ListOrders(c.Request.Context(),
		parseStringQuery(c, "status"), parseInt64Query(c, "supplier_id"), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"orders": orders, "total": total})
}

func (s *PurchaseHTTPHandler) Submit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := s.purchase.Submit(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, order)
}

func (s *PurchaseHTTPHandler) Approve(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := s.purchase.Approve(c.Request.Context(), id, userIDFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, order)
}

func (s *PurchaseHTTPHandler) Receive(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req purchasehandler.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	order, err := s.purchase.ReceiveItems(c.Request.Context(), id, req, userIDFrom(c))
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, order)
}

func (s *PurchaseHTTPHandler) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := s.purchase.Cancel(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, order)
}
