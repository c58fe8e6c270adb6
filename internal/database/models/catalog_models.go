package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ingredient struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"size:255;uniqueIndex;not null" json:"name"`
	UnitOfMeasure string          `gorm:"size:50;not null" json:"unitOfMeasure"`
	CostPerUnit   decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"costPerUnit"`
	IsPrepared    bool            `gorm:"not null;default:false" json:"isPrepared"`
	ReorderLevel  decimal.Decimal `gorm:"type:decimal(14,4);not null;default:0" json:"reorderLevel"`
	IsActive      bool            `gorm:"not null;default:true" json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	Holdings []StockHolding `gorm:"foreignKey:IngredientID" json:"holdings,omitempty"`
}

type Location struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LocationCode string    `gorm:"size:100;uniqueIndex;not null" json:"locationCode"`
	LocationName string    `gorm:"size:255;not null" json:"locationName"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Holdings []StockHolding `gorm:"foreignKey:LocationID" json:"holdings,omitempty"`
}

type Supplier struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SupplierCode  string    `gorm:"size:100;uniqueIndex;not null" json:"supplierCode"`
	SupplierName  string    `gorm:"size:255;not null" json:"supplierName"`
	ContactPerson *string   `gorm:"size:100" json:"contactPerson,omitempty"`
	Phone         *string   `gorm:"size:50" json:"phone,omitempty"`
	Email         *string   `gorm:"size:100" json:"email,omitempty"`
	Address       *string   `gorm:"size:255" json:"address,omitempty"`
	IsActive      bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
