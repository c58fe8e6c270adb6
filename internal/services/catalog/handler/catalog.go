package handler

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/database/models"
)

const (
	INGREDIENTS_CACHE_KEY = "ingredients:list"
	CACHE_TTL_MEDIUM      = 30 * time.Minute
)

type CatalogHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client) *CatalogHandler {
	return &CatalogHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *CatalogHandler) InvalidateIngredientCaches(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, INGREDIENTS_CACHE_KEY).Err(); err != nil {
		log.Printf("Failed to invalidate ingredient cache: %v", err)
	}
}

type IngredientRequest struct {
	Name          string          `json:"name"`
	UnitOfMeasure string          `json:"unitOfMeasure"`
	CostPerUnit   decimal.Decimal `json:"costPerUnit"`
	IsPrepared    bool            `json:"isPrepared"`
	ReorderLevel  decimal.Decimal `json:"reorderLevel"`
}

func (req *IngredientRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.Validation("ingredient name is required")
	}
	if strings.TrimSpace(req.UnitOfMeasure) == "" {
		return apperrors.Validation("unit of measure is required")
	}
	if req.CostPerUnit.IsNegative() {
		return apperrors.Validation("cost per unit must not be negative")
	}
	if req.ReorderLevel.IsNegative() {
		return apperrors.Validation("reorder level must not be negative")
	}
	return nil
}

func (s *CatalogHandler) CreateIngredient(ctx context.Context, req IngredientRequest) (*models.Ingredient, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Ingredient{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("ingredient %q already exists", req.Name)
	}

	ingredient := models.Ingredient{
		Name:          strings.TrimSpace(req.Name),
		UnitOfMeasure: strings.TrimSpace(req.UnitOfMeasure),
		CostPerUnit:   req.CostPerUnit,
		IsPrepared:    req.IsPrepared,
		ReorderLevel:  req.ReorderLevel,
		IsActive:      true,
	}
	if err := s.db.Create(&ingredient).Error; err != nil {
		return nil, apperrors.Internal("error creating ingredient: %v", err)
	}

	s.InvalidateIngredientCaches(ctx)
	return &ingredient, nil
}

func (s *CatalogHandler) UpdateIngredient(ctx context.Context, id int64, req IngredientRequest, isActive *bool) (*models.Ingredient, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var ingredient models.Ingredient
	if err := s.db.First(&ingredient, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("ingredient %d not found", id)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}

	var count int64
	if err := s.db.Model(&models.Ingredient{}).
		Where("name = ? AND id <> ?", req.Name, id).Count(&count).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("ingredient %q already exists", req.Name)
	}

	ingredient.Name = strings.TrimSpace(req.Name)
	ingredient.UnitOfMeasure = strings.TrimSpace(req.UnitOfMeasure)
	ingredient.CostPerUnit = req.CostPerUnit
	ingredient.IsPrepared = req.IsPrepared
	ingredient.ReorderLevel = req.ReorderLevel
	if isActive != nil {
		ingredient.IsActive = *isActive
	}

	if err := s.db.Save(&ingredient).Error; err != nil {
		return nil, apperrors.Internal("error updating ingredient: %v", err)
	}

	s.InvalidateIngredientCaches(ctx)
	return &ingredient, nil
}

func (s *CatalogHandler) GetIngredient(ctx context.Context, id int64) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.First(&ingredient, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("ingredient %d not found", id)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}
	return &ingredient, nil
}

func (s *CatalogHandler) ListIngredients(ctx context.Context, searchTerm string, includeInactive bool) ([]models.Ingredient, error) {
	cacheable := searchTerm == "" && !includeInactive
	if cacheable && s.redis != nil {
		if cached, err := s.redis.Get(ctx, INGREDIENTS_CACHE_KEY).Result(); err == nil {
			var ingredients []models.Ingredient
			if err := json.Unmarshal([]byte(cached), &ingredients); err == nil {
				return ingredients, nil
			}
		}
	}

	query := s.db.Model(&models.Ingredient{})
	if searchTerm != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(searchTerm)+"%")
	}
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var ingredients []models.Ingredient
	if err := query.Order("name").Find(&ingredients).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}

	if cacheable && s.redis != nil {
		if payload, err := json.Marshal(ingredients); err == nil {
			s.redis.Set(ctx, INGREDIENTS_CACHE_KEY, payload, CACHE_TTL_MEDIUM)
		}
	}
	return ingredients, nil
}

// DeleteIngredient refuses to delete an ingredient that is still referenced
// by stock holdings, recipe inputs or recipe outputs.
func (s *CatalogHandler) DeleteIngredient(ctx context.Context, id int64) error {
	var ingredient models.Ingredient
	if err := s.db.First(&ingredient, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.NotFound("ingredient %d not found", id)
		}
		return apperrors.Internal("database error: %v", err)
	}

	var holdingCount int64
	if err := s.db.Model(&models.StockHolding{}).Where("ingredient_id = ?", id).Count(&holdingCount).Error; err != nil {
		return apperrors.Internal("database error: %v", err)
	}
	if holdingCount > 0 {
		return apperrors.Conflict("ingredient %q has %d stock holdings", ingredient.Name, holdingCount)
	}

	var inputCount int64
	if err := s.db.Model(&models.PrepRecipeInput{}).Where("ingredient_id = ?", id).Count(&inputCount).Error; err != nil {
		return apperrors.Internal("database error: %v", err)
	}
	var outputCount int64
	if err := s.db.Model(&models.PrepRecipe{}).Where("output_ingredient_id = ?", id).Count(&outputCount).Error; err != nil {
		return apperrors.Internal("database error: %v", err)
	}
	if inputCount > 0 || outputCount > 0 {
		return apperrors.Conflict("ingredient %q is used by %d recipes", ingredient.Name, inputCount+outputCount)
	}

	if err := s.db.Delete(&models.Ingredient{}, id).Error; err != nil {
		return apperrors.Internal("error deleting ingredient: %v", err)
	}

	s.InvalidateIngredientCaches(ctx)
	return nil
}

type LocationRequest struct {
	LocationCode string `json:"locationCode"`
	LocationName string `json:"locationName"`
}

func (s *CatalogHandler) CreateLocation(ctx context.Context, req LocationRequest) (*models.Location, error) {
	if strings.TrimSpace(req.LocationCode) == "" || strings.TrimSpace(req.LocationName) == "" {
		return nil, apperrors.Validation("location code and name are required")
	}

	var count int64
	if err := s.db.Model(&models.Location{}).Where("location_code = ?", req.LocationCode).Count(&count).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("location %q already exists", req.LocationCode)
	}

	location := models.Location{
		LocationCode: strings.TrimSpace(req.LocationCode),
		LocationName: strings.TrimSpace(req.LocationName),
		IsActive:     true,
	}
	if err := s.db.Create(&location).Error; err != nil {
		return nil, apperrors.Internal("error creating location: %v", err)
	}
	return &location, nil
}

func (s *CatalogHandler) GetLocation(ctx context.Context, id int64) (*models.Location, error) {
	var location models.Location
	if err := s.db.First(&location, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("location %d not found", id)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}
	return &location, nil
}

func (s *CatalogHandler) ListLocations(ctx context.Context) ([]models.Location, error) {
	var locations []models.Location
	if err := s.db.Where("is_active = ?", true).Order("location_code").Find(&locations).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	return locations, nil
}

type SupplierRequest struct {
	SupplierCode  string  `json:"supplierCode"`
	SupplierName  string  `json:"supplierName"`
	ContactPerson *string `json:"contactPerson"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
}

func (s *CatalogHandler) CreateSupplier(ctx context.Context, req SupplierRequest) (*models.Supplier, error) {
	if strings.TrimSpace(req.SupplierCode) == "" || strings.TrimSpace(req.SupplierName) == "" {
		return nil, apperrors.Validation("supplier code and name are required")
	}

	var count int64
	if err := s.db.Model(&models.Supplier{}).Where("supplier_code = ?", req.SupplierCode).Count(&count).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("supplier %q already exists", req.SupplierCode)
	}

	supplier := models.Supplier{
		SupplierCode:  strings.TrimSpace(req.SupplierCode),
		SupplierName:  strings.TrimSpace(req.SupplierName),
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		IsActive:      true,
	}
	if err := s.db.Create(&supplier).Error; err != nil {
		return nil, apperrors.Internal("error creating supplier: %v", err)
	}
	return &supplier, nil
}

func (s *CatalogHandler) GetSupplier(ctx context.Context, id int64) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := s.db.First(&supplier, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("supplier %d not found", id)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}
	return &supplier, nil
}

func (s *CatalogHandler) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if err := s.db.Where("is_active = ?", true).Order("supplier_code").Find(&suppliers).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	return suppliers, nil
}
