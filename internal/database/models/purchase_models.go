package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order statuses.
const (
	OrderDraft             = "DRAFT"
	OrderSubmitted         = "SUBMITTED"
	OrderApproved          = "APPROVED"
	OrderPartiallyReceived = "PARTIALLY_RECEIVED"
	OrderReceived          = "RECEIVED"
	OrderCancelled         = "CANCELLED"
)

type PurchaseOrder struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string     `gorm:"size:100;uniqueIndex;not null" json:"orderNumber"`
	SupplierID  int64      `gorm:"not null;index" json:"supplierId"`
	LocationID  int64      `gorm:"not null" json:"locationId"`
	Status      string     `gorm:"size:20;not null;index" json:"status"`
	Notes       *string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy   int64      `gorm:"not null" json:"createdBy"`
	ApprovedBy  *int64     `json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Supplier *Supplier           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Location *Location           `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Items    []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items,omitempty"`
}

func (o *PurchaseOrder) Terminal() bool {
	return o.Status == OrderReceived || o.Status == OrderCancelled
}

type PurchaseOrderItem struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PurchaseOrderID  int64           `gorm:"not null;index" json:"purchaseOrderId"`
	IngredientID     int64           `gorm:"not null" json:"ingredientId"`
	OrderedQuantity  decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"orderedQuantity"`
	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"receivedQuantity"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"unitCost"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
