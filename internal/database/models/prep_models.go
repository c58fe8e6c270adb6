package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prep task statuses.
const (
	TaskPending    = "PENDING"
	TaskAssigned   = "ASSIGNED"
	TaskInProgress = "IN_PROGRESS"
	TaskCompleted  = "COMPLETED"
	TaskCancelled  = "CANCELLED"
	TaskProblem    = "PROBLEM"
)

type PrepRecipe struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name               string          `gorm:"size:255;uniqueIndex;not null" json:"name"`
	OutputIngredientID int64           `gorm:"not null" json:"outputIngredientId"`
	OutputQuantity     decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"outputQuantity"`
	EstimatedMinutes   *int32          `json:"estimatedMinutes,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`

	OutputIngredient *Ingredient       `gorm:"foreignKey:OutputIngredientID" json:"outputIngredient,omitempty"`
	Inputs           []PrepRecipeInput `gorm:"foreignKey:PrepRecipeID" json:"inputs,omitempty"`
}

type PrepRecipeInput struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PrepRecipeID int64           `gorm:"not null;index" json:"prepRecipeId"`
	IngredientID int64           `gorm:"not null" json:"ingredientId"`
	Quantity     decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"quantity"`
	SortOrder    int32           `gorm:"not null;default:0" json:"sortOrder"`

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}

type PrepTask struct {
	ID               int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	PrepRecipeID     int64            `gorm:"not null;index" json:"prepRecipeId"`
	LocationID       int64            `gorm:"not null;index" json:"locationId"`
	TargetQuantity   decimal.Decimal  `gorm:"type:decimal(14,4);not null" json:"targetQuantity"`
	Status           string           `gorm:"size:20;not null;index" json:"status"`
	AssignedToUserID *int64           `json:"assignedToUserId,omitempty"`
	CompletedByUser  *int64           `json:"completedByUserId,omitempty"`
	QuantityRun      *decimal.Decimal `gorm:"type:decimal(14,4)" json:"quantityRun,omitempty"`
	Notes            *string          `gorm:"type:text" json:"notes,omitempty"`
	AssignedAt       *time.Time       `json:"assignedAt,omitempty"`
	StartedAt        *time.Time       `json:"startedAt,omitempty"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`

	PrepRecipe *PrepRecipe `gorm:"foreignKey:PrepRecipeID" json:"prepRecipe,omitempty"`
	Location   *Location   `gorm:"foreignKey:LocationID" json:"location,omitempty"`
}

// Terminal reports whether the task can no longer transition.
func (t *PrepTask) Terminal() bool {
	return t.Status == TaskCompleted || t.Status == TaskCancelled || t.Status == TaskProblem
}
