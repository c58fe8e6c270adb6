package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/database/models"
)

const (
	STOCK_AGGREGATE_CACHE_PREFIX = "stock:aggregate:"
	CACHE_TTL_SHORT              = 5 * time.Minute
)

type StockHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewStockHandler(db *gorm.DB, redisClient *redis.Client) *StockHandler {
	return &StockHandler{
		db:    db,
		redis: redisClient,
	}
}

// InvalidateStockCaches drops the aggregate cache for the given locations and
// for the all-locations view. Safe to call without a cache client.
func (s *StockHandler) InvalidateStockCaches(ctx context.Context, locationIDs ...int64) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, STOCK_AGGREGATE_CACHE_PREFIX+"all")
	for _, id := range locationIDs {
		_ = s.redis.Del(ctx, fmt.Sprintf("%s%d", STOCK_AGGREGATE_CACHE_PREFIX, id))
	}
}

type AddHoldingRequest struct {
	IngredientID int64            `json:"ingredientId"`
	LocationID   int64            `json:"locationId"`
	Quantity     decimal.Decimal  `json:"quantity"`
	PurchaseDate *time.Time       `json:"purchaseDate"`
	ExpiryDate   *time.Time       `json:"expiryDate"`
	UnitCost     *decimal.Decimal `json:"unitCost"`
	Notes        *string          `json:"notes"`
}

// AddHolding creates a new batch row. Existing batches of the same ingredient
// at the same location are never merged so expiry tracking stays per-lot.
func (s *StockHandler) AddHolding(ctx context.Context, req AddHoldingRequest, actorID int64) (*models.StockHolding, error) {
	if !req.Quantity.IsPositive() {
		return nil, apperrors.Validation("quantity must be greater than 0")
	}

	var ingredient models.Ingredient
	if err := s.db.First(&ingredient, req.IngredientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("ingredient %d not found", req.IngredientID)
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

	holding := models.StockHolding{
		IngredientID: req.IngredientID,
		LocationID:   req.LocationID,
		Quantity:     req.Quantity,
		PurchaseDate: req.PurchaseDate,
		ExpiryDate:   req.ExpiryDate,
		UnitCost:     req.UnitCost,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&holding).Error; err != nil {
			return apperrors.Internal("error creating stock holding: %v", err)
		}
		movement := models.StockMovement{
			IngredientID:  req.IngredientID,
			LocationID:    req.LocationID,
			MovementType:  models.MovementReceipt,
			Quantity:      req.Quantity,
			ReferenceType: models.ReferenceManual,
			ReferenceID:   &holding.ID,
			Notes:         req.Notes,
			CreatedBy:     actorID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return apperrors.Internal("error creating stock movement: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateStockCaches(ctx, req.LocationID)
	return &holding, nil
}

// SetHoldingQuantity overwrites a batch quantity, recording the delta as a
// correction movement.
func (s *StockHandler) SetHoldingQuantity(ctx context.Context, holdingID int64, newQuantity decimal.Decimal, actorID int64) (*models.StockHolding, error) {
	if newQuantity.IsNegative() {
		return nil, apperrors.Validation("quantity must not be negative")
	}

	var holding models.StockHolding
	if err := s.db.First(&holding, holdingID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("stock holding %d not found", holdingID)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}

	delta := newQuantity.Sub(holding.Quantity)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Guarded on the quantity we read so the recorded delta stays honest
		// when another writer got there first.
		result := tx.Model(&models.StockHolding{}).
			Where("id = ? AND quantity = ?", holdingID, holding.Quantity).
			Update("quantity", newQuantity)
		if result.Error != nil {
			return apperrors.Internal("error updating stock holding: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("stock holding %d was modified concurrently", holdingID)
		}
		movement := models.StockMovement{
			IngredientID:  holding.IngredientID,
			LocationID:    holding.LocationID,
			MovementType:  models.MovementCorrection,
			Quantity:      delta,
			ReferenceType: models.ReferenceManual,
			ReferenceID:   &holding.ID,
			CreatedBy:     actorID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return apperrors.Internal("error creating stock movement: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	holding.Quantity = newQuantity
	s.InvalidateStockCaches(ctx, holding.LocationID)
	return &holding, nil
}

// AdjustHoldingQuantity adds delta (positive or negative) to a batch. The
// arithmetic and the non-negativity check both run inside the UPDATE, so two
// concurrent adjustments can never overdraw the batch; a result below zero
// is rejected and the holding is left untouched.
func (s *StockHandler) AdjustHoldingQuantity(ctx context.Context, holdingID int64, delta decimal.Decimal, actorID int64) (*models.StockHolding, error) {
	var holding models.StockHolding
	if err := s.db.First(&holding, holdingID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("stock holding %d not found", holdingID)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.StockHolding{}).
			Where("id = ? AND quantity + ? >= 0", holdingID, delta).
			Update("quantity", gorm.Expr("quantity + ?", delta))
		if result.Error != nil {
			return apperrors.Internal("error updating stock holding: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.Validation(
				"adjustment would result in negative stock: delta %s", delta.String())
		}
		movement := models.StockMovement{
			IngredientID:  holding.IngredientID,
			LocationID:    holding.LocationID,
			MovementType:  models.MovementAdjustment,
			Quantity:      delta,
			ReferenceType: models.ReferenceManual,
			ReferenceID:   &holding.ID,
			CreatedBy:     actorID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return apperrors.Internal("error creating stock movement: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.First(&holding, holdingID).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	s.InvalidateStockCaches(ctx, holding.LocationID)
	return &holding, nil
}

// DeleteHolding removes a batch entirely. Used for corrections, not
// consumption; the audit trail records the removed quantity.
func (s *StockHandler) DeleteHolding(ctx context.Context, holdingID int64, actorID int64) error {
	var holding models.StockHolding
	if err := s.db.First(&holding, holdingID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.NotFound("stock holding %d not found", holdingID)
		}
		return apperrors.Internal("database error: %v", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.StockHolding{}, holdingID).Error; err != nil {
			return apperrors.Internal("error deleting stock holding: %v", err)
		}
		movement := models.StockMovement{
			IngredientID:  holding.IngredientID,
			LocationID:    holding.LocationID,
			MovementType:  models.MovementCorrection,
			Quantity:      holding.Quantity.Neg(),
			ReferenceType: models.ReferenceManual,
			ReferenceID:   &holding.ID,
			CreatedBy:     actorID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return apperrors.Internal("error creating stock movement: %v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.InvalidateStockCaches(ctx, holding.LocationID)
	return nil
}

func (s *StockHandler) ListHoldings(ctx context.Context, ingredientID, locationID *int64) ([]models.StockHolding, error) {
	query := s.db.Preload("Ingredient").Preload("Location").Order("id")
	if ingredientID != nil {
		query = query.Where("ingredient_id = ?", *ingredientID)
	}
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}

	var holdings []models.StockHolding
	if err := query.Find(&holdings).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	return holdings, nil
}

// IngredientStock is one row of the aggregate view: total on-hand quantity
// of an ingredient plus its value at the catalog cost.
type IngredientStock struct {
	IngredientID  int64           `json:"ingredientId"`
	Name          string          `json:"name"`
	UnitOfMeasure string          `json:"unitOfMeasure"`
	IsPrepared    bool            `json:"isPrepared"`
	Quantity      decimal.Decimal `json:"quantity"`
	CostPerUnit   decimal.Decimal `json:"costPerUnit"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	ReorderLevel  decimal.Decimal `json:"reorderLevel"`
}

// AggregateByIngredient sums holdings per ingredient, optionally scoped to a
// location. Pure read; results are cached briefly.
func (s *StockHandler) AggregateByIngredient(ctx context.Context, locationID *int64) ([]IngredientStock, error) {
	cacheKey := STOCK_AGGREGATE_CACHE_PREFIX + "all"
	if locationID != nil {
		cacheKey = fmt.Sprintf("%s%d", STOCK_AGGREGATE_CACHE_PREFIX, *locationID)
	}
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var result []IngredientStock
			if json.Unmarshal([]byte(cached), &result) == nil {
				return result, nil
			}
		}
	}

	var ingredients []models.Ingredient
	if err := s.db.Order("id").Find(&ingredients).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}

	query := s.db.Model(&models.StockHolding{})
	if locationID != nil {
		query = query.Where("location_id = ?", *locationID)
	}
	var holdings []models.StockHolding
	if err := query.Find(&holdings).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}

	totals := make(map[int64]decimal.Decimal, len(ingredients))
	for _, h := range holdings {
		totals[h.IngredientID] = totals[h.IngredientID].Add(h.Quantity)
	}

	result := make([]IngredientStock, 0, len(ingredients))
	for _, ing := range ingredients {
		qty := totals[ing.ID]
		result = append(result, IngredientStock{
			IngredientID:  ing.ID,
			Name:          ing.Name,
			UnitOfMeasure: ing.UnitOfMeasure,
			IsPrepared:    ing.IsPrepared,
			Quantity:      qty,
			CostPerUnit:   ing.CostPerUnit,
			TotalValue:    qty.Mul(ing.CostPerUnit),
			ReorderLevel:  ing.ReorderLevel,
		})
	}

	if s.redis != nil {
		if payload, err := json.Marshal(result); err == nil {
			_ = s.redis.Set(ctx, cacheKey, payload, CACHE_TTL_SHORT)
		}
	}
	return result, nil
}

// ListLowStock reports ingredients whose aggregate quantity has fallen below
// their reorder level.
func (s *StockHandler) ListLowStock(ctx context.Context, locationID *int64) ([]IngredientStock, error) {
	aggregate, err := s.AggregateByIngredient(ctx, locationID)
	if err != nil {
		return nil, err
	}

	var low []IngredientStock
	for _, row := range aggregate {
		if row.ReorderLevel.IsPositive() && row.Quantity.LessThan(row.ReorderLevel) {
			low = append(low, row)
		}
	}
	return low, nil
}

type ListMovementsRequest struct {
	IngredientID *int64
	LocationID   *int64
	MovementType *string
	StartDate    string
	EndDate      string
	Page         int
	PageSize     int
}

func (s *StockHandler) ListMovements(ctx context.Context, req ListMovementsRequest) ([]models.StockMovement, int64, error) {
	query := s.db.Model(&models.StockMovement{})

	if req.IngredientID != nil {
		query = query.Where("ingredient_id = ?", *req.IngredientID)
	}
	if req.LocationID != nil {
		query = query.Where("location_id = ?", *req.LocationID)
	}
	if req.MovementType != nil {
		query = query.Where("movement_type = ?", *req.MovementType)
	}
	if req.StartDate != "" {
		if startDate, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			query = query.Where("created_at >= ?", startDate)
		}
	}
	if req.EndDate != "" {
		if endDate, err := time.Parse("2006-01-02", req.EndDate); err == nil {
			query = query.Where("created_at < ?", endDate.Add(24*time.Hour))
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count stock movements: %v", err)
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	var movements []models.StockMovement
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&movements).Error; err != nil {
		return nil, 0, apperrors.Internal("database error: %v", err)
	}
	return movements, total, nil
}
