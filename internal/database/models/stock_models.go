package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockHolding is one batch of an ingredient at a location. Batches of the
// same ingredient are never merged so expiry dates stay per-lot.
type StockHolding struct {
	ID           int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	IngredientID int64            `gorm:"not null;index" json:"ingredientId"`
	LocationID   int64            `gorm:"not null;index" json:"locationId"`
	Quantity     decimal.Decimal  `gorm:"type:decimal(14,4);not null" json:"quantity"`
	PurchaseDate *time.Time       `json:"purchaseDate,omitempty"`
	ExpiryDate   *time.Time       `json:"expiryDate,omitempty"`
	UnitCost     *decimal.Decimal `gorm:"type:decimal(14,4)" json:"unitCost,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	Location   *Location   `gorm:"foreignKey:LocationID" json:"location,omitempty"`
}

// Movement types.
const (
	MovementReceipt    = "RECEIPT"
	MovementAdjustment = "ADJUSTMENT"
	MovementConsume    = "CONSUME"
	MovementProduce    = "PRODUCE"
	MovementCorrection = "CORRECTION"
)

// Reference types linking a movement back to the operation that caused it.
const (
	ReferencePrepTask      = "PREP_TASK"
	ReferencePurchaseOrder = "PURCHASE_ORDER"
	ReferenceManual        = "MANUAL"
)

// StockMovement is the append-only audit trail of ledger mutations.
type StockMovement struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	IngredientID  int64           `gorm:"not null;index" json:"ingredientId"`
	LocationID    int64           `gorm:"not null;index" json:"locationId"`
	MovementType  string          `gorm:"size:20;not null" json:"movementType"`
	Quantity      decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"quantity"`
	ReferenceType string          `gorm:"size:20;not null" json:"referenceType"`
	ReferenceID   *int64          `json:"referenceId,omitempty"`
	Notes         *string         `gorm:"size:255" json:"notes,omitempty"`
	CreatedBy     int64           `json:"createdBy"`
	CreatedAt     time.Time       `json:"createdAt"`
}
