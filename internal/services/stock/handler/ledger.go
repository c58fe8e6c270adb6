package handler

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/database/models"
)

var nowFunc = time.Now

// Transaction-scoped ledger operations. These run inside a caller-owned
// gorm transaction so a multi-ingredient consumption plus the produced
// output commit or roll back as one unit.

// AvailableAtLocation sums the batches of an ingredient at a location.
func AvailableAtLocation(tx *gorm.DB, ingredientID, locationID int64) (decimal.Decimal, error) {
	var holdings []models.StockHolding
	if err := tx.Where("ingredient_id = ? AND location_id = ?", ingredientID, locationID).
		Find(&holdings).Error; err != nil {
		return decimal.Zero, apperrors.Internal("database error: %v", err)
	}

	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.Quantity)
	}
	return total, nil
}

// ConsumeOldestFirst deducts required quantity across an ingredient's batches
// at a location, draining soonest-expiry batches first (undated batches
// last, ties broken by purchase date then id). Emptied batches are kept at
// zero quantity rather than deleted so their history survives. Fails with
// InsufficientStockError before touching any row when the total on hand is
// short.
func ConsumeOldestFirst(tx *gorm.DB, ingredientID, locationID int64, required decimal.Decimal, referenceType string, referenceID, actorID int64) error {
	if !required.IsPositive() {
		return nil
	}

	var holdings []models.StockHolding
	if err := tx.Where("ingredient_id = ? AND location_id = ?", ingredientID, locationID).
		Order("(expiry_date IS NULL), expiry_date, purchase_date, id").
		Find(&holdings).Error; err != nil {
		return apperrors.Internal("database error: %v", err)
	}

	available := decimal.Zero
	for _, h := range holdings {
		available = available.Add(h.Quantity)
	}
	if available.LessThan(required) {
		return apperrors.InsufficientStock(
			"insufficient stock for ingredient %d at location %d: need %s, have %s",
			ingredientID, locationID, required.String(), available.String())
	}

	remaining := required
	for _, h := range holdings {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(h.Quantity, remaining)
		if !take.IsPositive() {
			continue
		}
		// Atomic decrement guarded against the live quantity, not the one we
		// read above; a concurrent consumer shrinking this batch makes the
		// guard fail and rolls the whole consumption back.
		result := tx.Model(&models.StockHolding{}).
			Where("id = ? AND quantity >= ?", h.ID, take).
			Update("quantity", gorm.Expr("quantity - ?", take))
		if result.Error != nil {
			return apperrors.Internal("error updating stock holding: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("stock holding %d was consumed concurrently", h.ID)
		}
		remaining = remaining.Sub(take)
	}

	movement := models.StockMovement{
		IngredientID:  ingredientID,
		LocationID:    locationID,
		MovementType:  models.MovementConsume,
		Quantity:      required.Neg(),
		ReferenceType: referenceType,
		ReferenceID:   &referenceID,
		CreatedBy:     actorID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return apperrors.Internal("error creating stock movement: %v", err)
	}
	return nil
}

// AddProducedHolding records output of a prep run as a fresh batch.
func AddProducedHolding(tx *gorm.DB, ingredientID, locationID int64, quantity decimal.Decimal, referenceID, actorID int64) (*models.StockHolding, error) {
	holding := models.StockHolding{
		IngredientID: ingredientID,
		LocationID:   locationID,
		Quantity:     quantity,
	}
	if err := tx.Create(&holding).Error; err != nil {
		return nil, apperrors.Internal("error creating stock holding: %v", err)
	}

	movement := models.StockMovement{
		IngredientID:  ingredientID,
		LocationID:    locationID,
		MovementType:  models.MovementProduce,
		Quantity:      quantity,
		ReferenceType: models.ReferencePrepTask,
		ReferenceID:   &referenceID,
		CreatedBy:     actorID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, apperrors.Internal("error creating stock movement: %v", err)
	}
	return &holding, nil
}

// AddReceivedHolding records goods received against a purchase order as a
// fresh batch at the receiving location.
func AddReceivedHolding(tx *gorm.DB, ingredientID, locationID int64, quantity decimal.Decimal, unitCost *decimal.Decimal, orderID, actorID int64) (*models.StockHolding, error) {
	now := nowFunc()
	holding := models.StockHolding{
		IngredientID: ingredientID,
		LocationID:   locationID,
		Quantity:     quantity,
		PurchaseDate: &now,
		UnitCost:     unitCost,
	}
	if err := tx.Create(&holding).Error; err != nil {
		return nil, apperrors.Internal("error creating stock holding: %v", err)
	}

	movement := models.StockMovement{
		IngredientID:  ingredientID,
		LocationID:    locationID,
		MovementType:  models.MovementReceipt,
		Quantity:      quantity,
		ReferenceType: models.ReferencePurchaseOrder,
		ReferenceID:   &orderID,
		CreatedBy:     actorID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, apperrors.Internal("error creating stock movement: %v", err)
	}
	return &holding, nil
}
