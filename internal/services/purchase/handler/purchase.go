package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/database/models"
	stockhandler "gastro-system/internal/services/stock/handler"
)

type PurchaseHandler struct {
	db    *gorm.DB
	stock *stockhandler.StockHandler
}

func NewPurchaseHandler(db *gorm.DB, stock *stockhandler.StockHandler) *PurchaseHandler {
	return &PurchaseHandler{
		db:    db,
		stock: stock,
	}
}

type OrderItemRequest struct {
	IngredientID    int64           `json:"ingredientId"`
	OrderedQuantity decimal.Decimal `json:"orderedQuantity"`
	UnitCost        decimal.Decimal `json:"unitCost"`
}

type CreateOrderRequest struct {
	SupplierID int64              `json:"supplierId"`
	LocationID int64              `json:"locationId"`
	Notes      *string            `json:"notes"`
	Items      []OrderItemRequest `json:"items"`
}

func (s *PurchaseHandler) CreateOrder(ctx context.Context, req CreateOrderRequest, actorID int64) (*models.PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("purchase order needs at least one item")
	}
	for _, item := range req.Items {
		if !item.OrderedQuantity.IsPositive() {
			return nil, apperrors.Validation("ordered quantity for ingredient %d must be greater than 0", item.IngredientID)
		}
		if item.UnitCost.IsNegative() {
			return nil, apperrors.Validation("unit cost for ingredient %d must not be negative", item.IngredientID)
		}
	}

	var supplier models.Supplier
	if err := s.db.First(&supplier, req.SupplierID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("supplier %d not found", req.SupplierID)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}

	var location models.Location
	if err := s.db.First(&location, req.LocationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("location %d not found", req.LocationID)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}

	for _, item := range req.Items {
		var ingredient models.Ingredient
		if err := s.db.First(&ingredient, item.IngredientID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.NotFound("ingredient %d not found", item.IngredientID)
			}
			return nil, apperrors.Internal("database error: %v", err)
		}
	}

	now := time.Now()
	order := models.PurchaseOrder{
		OrderNumber: fmt.Sprintf("PO-%s-%06d", now.Format("20060102"), now.UnixNano()%1000000),
		SupplierID:  req.SupplierID,
		LocationID:  req.LocationID,
		Status:      models.OrderDraft,
		Notes:       req.Notes,
		CreatedBy:   actorID,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, models.PurchaseOrderItem{
			IngredientID:     item.IngredientID,
			OrderedQuantity:  item.OrderedQuantity,
			ReceivedQuantity: decimal.Zero,
			UnitCost:         item.UnitCost,
		})
	}

	if err := s.db.Create(&order).Error; err != nil {
		return nil, apperrors.Internal("error creating purchase order: %v", err)
	}
	return s.GetOrder(ctx, order.ID)
}

func (s *PurchaseHandler) GetOrder(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.db.Preload("Supplier").Preload("Location").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Ingredient").
		First(&order, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("purchase order %d not found", id)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}
	return &order, nil
}

func (s *PurchaseHandler) ListOrders(ctx context.Context, status *string, supplierID *int64, page, pageSize int) ([]models.PurchaseOrder, int64, error) {
	query := s.db.Model(&models.PurchaseOrder{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if supplierID != nil {
		query = query.Where("supplier_id = ?", *supplierID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("database error: %v", err)
	}

	if pageSize <= 0 {
		pageSize = 20
	}
	if page <= 0 {
		page = 1
	}

	var orders []models.PurchaseOrder
	err := query.Preload("Supplier").Preload("Items").
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, 0, apperrors.Internal("database error: %v", err)
	}
	return orders, total, nil
}

func (s *PurchaseHandler) Submit(ctx context.Context, orderID int64) (*models.PurchaseOrder, error) {
	return s.transition(ctx, orderID, []string{models.OrderDraft}, models.OrderSubmitted, nil)
}

func (s *PurchaseHandler) Approve(ctx context.Context, orderID int64, approverID int64) (*models.PurchaseOrder, error) {
	now := time.Now()
	extra := map[string]interface{}{
		"approved_by": approverID,
		"approved_at": now,
	}
	return s.transition(ctx, orderID, []string{models.OrderDraft, models.OrderSubmitted}, models.OrderApproved, extra)
}

func (s *PurchaseHandler) Cancel(ctx context.Context, orderID int64) (*models.PurchaseOrder, error) {
	from := []string{models.OrderDraft, models.OrderSubmitted, models.OrderApproved, models.OrderPartiallyReceived}
	return s.transition(ctx, orderID, from, models.OrderCancelled, nil)
}

func (s *PurchaseHandler) transition(ctx context.Context, orderID int64, from []string, to string, extra map[string]interface{}) (*models.PurchaseOrder, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Terminal() {
		return nil, apperrors.Conflict("purchase order %s is already %s", order.OrderNumber, order.Status)
	}

	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}

	result := s.db.Model(&models.PurchaseOrder{}).
		Where("id = ? AND status IN ?", orderID, from).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Internal("error updating purchase order: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("purchase order %s is %s and cannot become %s", order.OrderNumber, order.Status, to)
	}
	return s.GetOrder(ctx, orderID)
}

type ReceiveLineRequest struct {
	ItemID   int64           `json:"itemId"`
	Quantity decimal.Decimal `json:"quantity"`
}

type ReceiveRequest struct {
	Lines []ReceiveLineRequest `json:"lines"`
}

// ReceiveItems books received quantities against order lines and creates one
// stock batch per line at the order's location, all in a single transaction.
// The order flips to PARTIALLY_RECEIVED or RECEIVED depending on whether
// every line is now fully received.
func (s *PurchaseHandler) ReceiveItems(ctx context.Context, orderID int64, req ReceiveRequest, actorID int64) (*models.PurchaseOrder, error) {
	if len(req.Lines) == 0 {
		return nil, apperrors.Validation("nothing to receive")
	}
	for _, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			return nil, apperrors.Validation("received quantity for item %d must be greater than 0", line.ItemID)
		}
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderApproved && order.Status != models.OrderPartiallyReceived {
		return nil, apperrors.Conflict("purchase order %s is %s, receiving requires an approved order", order.OrderNumber, order.Status)
	}

	items := make(map[int64]*models.PurchaseOrderItem, len(order.Items))
	for i := range order.Items {
		items[order.Items[i].ID] = &order.Items[i]
	}
	for _, line := range req.Lines {
		if _, ok := items[line.ItemID]; !ok {
			return nil, apperrors.NotFound("item %d does not belong to purchase order %s", line.ItemID, order.OrderNumber)
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, line := range req.Lines {
			item := items[line.ItemID]
			// Increment inside the UPDATE with the over-receipt check in the
			// WHERE clause, so a concurrent receipt against the same line
			// cannot push received past ordered.
			result := tx.Model(&models.PurchaseOrderItem{}).
				Where("id = ? AND received_quantity + ? <= ordered_quantity", item.ID, line.Quantity).
				Update("received_quantity", gorm.Expr("received_quantity + ?", line.Quantity))
			if result.Error != nil {
				return apperrors.Internal("error updating order item: %v", result.Error)
			}
			if result.RowsAffected == 0 {
				return apperrors.Validation(
					"item %d: receiving %s exceeds outstanding quantity",
					line.ItemID, line.Quantity.String())
			}

			unitCost := item.UnitCost
			if _, err := stockhandler.AddReceivedHolding(tx, item.IngredientID, order.LocationID,
				line.Quantity, &unitCost, order.ID, actorID); err != nil {
				return err
			}
		}

		var current []models.PurchaseOrderItem
		if err := tx.Where("purchase_order_id = ?", orderID).Find(&current).Error; err != nil {
			return apperrors.Internal("error reading order items: %v", err)
		}
		allReceived := true
		for _, item := range current {
			if item.ReceivedQuantity.LessThan(item.OrderedQuantity) {
				allReceived = false
				break
			}
		}
		newStatus := models.OrderPartiallyReceived
		if allReceived {
			newStatus = models.OrderReceived
		}

		result := tx.Model(&models.PurchaseOrder{}).
			Where("id = ? AND status IN ?", orderID,
				[]string{models.OrderApproved, models.OrderPartiallyReceived}).
			Update("status", newStatus)
		if result.Error != nil {
			return apperrors.Internal("error updating purchase order: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("purchase order %s changed state concurrently", order.OrderNumber)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stock.InvalidateStockCaches(ctx, order.LocationID)
	return s.GetOrder(ctx, orderID)
}
