package handler

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/database/models"
)

const (
	RECIPES_CACHE_KEY = "recipes:list"
	CACHE_TTL_MEDIUM  = 30 * time.Minute
)

type RecipeHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewRecipeHandler(db *gorm.DB, redisClient *redis.Client) *RecipeHandler {
	return &RecipeHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *RecipeHandler) InvalidateRecipeCaches(ctx context.Context) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, RECIPES_CACHE_KEY)
}

type RecipeInputRequest struct {
	IngredientID int64           `json:"ingredientId"`
	Quantity     decimal.Decimal `json:"quantity"`
}

type RecipeRequest struct {
	Name               string               `json:"name"`
	OutputIngredientID int64                `json:"outputIngredientId"`
	OutputQuantity     decimal.Decimal      `json:"outputQuantity"`
	Inputs             []RecipeInputRequest `json:"inputs"`
	EstimatedMinutes   *int32               `json:"estimatedMinutes"`
}

func (s *RecipeHandler) validate(req RecipeRequest) error {
	if req.Name == "" {
		return apperrors.Validation("recipe name is required")
	}
	if !req.OutputQuantity.IsPositive() {
		return apperrors.Validation("output quantity must be greater than 0")
	}
	if len(req.Inputs) == 0 {
		return apperrors.Validation("recipe needs at least one input line")
	}
	for _, input := range req.Inputs {
		if !input.Quantity.IsPositive() {
			return apperrors.Validation("input quantity for ingredient %d must be greater than 0", input.IngredientID)
		}
	}

	var output models.Ingredient
	if err := s.db.First(&output, req.OutputIngredientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.NotFound("output ingredient %d not found", req.OutputIngredientID)
		}
		return apperrors.Internal("database error: %v", err)
	}
	if !output.IsPrepared {
		return apperrors.Validation("output ingredient %q is not marked as prepared", output.Name)
	}

	for _, input := range req.Inputs {
		var ingredient models.Ingredient
		if err := s.db.First(&ingredient, input.IngredientID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.NotFound("input ingredient %d not found", input.IngredientID)
			}
			return apperrors.Internal("database error: %v", err)
		}
	}
	return nil
}

func (s *RecipeHandler) CreateRecipe(ctx context.Context, req RecipeRequest) (*models.PrepRecipe, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	recipe := models.PrepRecipe{
		Name:               req.Name,
		OutputIngredientID: req.OutputIngredientID,
		OutputQuantity:     req.OutputQuantity,
		EstimatedMinutes:   req.EstimatedMinutes,
	}
	for i, input := range req.Inputs {
		recipe.Inputs = append(recipe.Inputs, models.PrepRecipeInput{
			IngredientID: input.IngredientID,
			Quantity:     input.Quantity,
			SortOrder:    int32(i),
		})
	}

	if err := s.db.Create(&recipe).Error; err != nil {
		return nil, apperrors.Internal("error creating recipe: %v", err)
	}

	s.InvalidateRecipeCaches(ctx)
	return s.GetRecipe(ctx, recipe.ID)
}

// UpdateRecipe replaces the whole definition, input lines included.
func (s *RecipeHandler) UpdateRecipe(ctx context.Context, id int64, req RecipeRequest) (*models.PrepRecipe, error) {
	var recipe models.PrepRecipe
	if err := s.db.First(&recipe, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("recipe %d not found", id)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}

	if err := s.validate(req); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		recipe.Name = req.Name
		recipe.OutputIngredientID = req.OutputIngredientID
		recipe.OutputQuantity = req.OutputQuantity
		recipe.EstimatedMinutes = req.EstimatedMinutes
		if err := tx.Model(&models.PrepRecipe{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":                 recipe.Name,
			"output_ingredient_id": recipe.OutputIngredientID,
			"output_quantity":      recipe.OutputQuantity,
			"estimated_minutes":    recipe.EstimatedMinutes,
		}).Error; err != nil {
			return apperrors.Internal("error updating recipe: %v", err)
		}

		if err := tx.Where("prep_recipe_id = ?", id).Delete(&models.PrepRecipeInput{}).Error; err != nil {
			return apperrors.Internal("error replacing recipe inputs: %v", err)
		}
		for i, input := range req.Inputs {
			line := models.PrepRecipeInput{
				PrepRecipeID: id,
				IngredientID: input.IngredientID,
				Quantity:     input.Quantity,
				SortOrder:    int32(i),
			}
			if err := tx.Create(&line).Error; err != nil {
				return apperrors.Internal("error replacing recipe inputs: %v", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateRecipeCaches(ctx)
	return s.GetRecipe(ctx, id)
}

func (s *RecipeHandler) GetRecipe(ctx context.Context, id int64) (*models.PrepRecipe, error) {
	var recipe models.PrepRecipe
	err := s.db.Preload("OutputIngredient").
		Preload("Inputs", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Inputs.Ingredient").
		First(&recipe, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("recipe %d not found", id)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}
	return &recipe, nil
}

func (s *RecipeHandler) ListRecipes(ctx context.Context, searchTerm string, page, pageSize int) ([]models.PrepRecipe, int64, error) {
	// The default first page is the hot path for the planning screen.
	cacheable := searchTerm == "" && page <= 1 && pageSize <= 0
	if cacheable && s.redis != nil {
		if cached, err := s.redis.Get(ctx, RECIPES_CACHE_KEY).Result(); err == nil {
			var payload struct {
				Recipes []models.PrepRecipe `json:"recipes"`
				Total   int64               `json:"total"`
			}
			if json.Unmarshal([]byte(cached), &payload) == nil {
				return payload.Recipes, payload.Total, nil
			}
		}
	}

	query := s.db.Model(&models.PrepRecipe{})
	if searchTerm != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(searchTerm)+"%")
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

	var recipes []models.PrepRecipe
	err := query.Preload("OutputIngredient").
		Preload("Inputs", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("Inputs.Ingredient").
		Order("id").Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, apperrors.Internal("database error: %v", err)
	}

	if cacheable && s.redis != nil {
		payload := struct {
			Recipes []models.PrepRecipe `json:"recipes"`
			Total   int64               `json:"total"`
		}{recipes, total}
		if raw, err := json.Marshal(payload); err == nil {
			_ = s.redis.Set(ctx, RECIPES_CACHE_KEY, raw, CACHE_TTL_MEDIUM)
		}
	}
	return recipes, total, nil
}

// DeleteRecipe refuses while any prep task still references the recipe, so
// the caller gets a typed conflict instead of a foreign-key failure.
func (s *RecipeHandler) DeleteRecipe(ctx context.Context, id int64) error {
	var recipe models.PrepRecipe
	if err := s.db.First(&recipe, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.NotFound("recipe %d not found", id)
		}
		return apperrors.Internal("database error: %v", err)
	}

	var taskCount int64
	if err := s.db.Model(&models.PrepTask{}).Where("prep_recipe_id = ?", id).Count(&taskCount).Error; err != nil {
		return apperrors.Internal("database error: %v", err)
	}
	if taskCount > 0 {
		return apperrors.Conflict("recipe %q is referenced by %d prep task(s)", recipe.Name, taskCount)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prep_recipe_id = ?", id).Delete(&models.PrepRecipeInput{}).Error; err != nil {
			return apperrors.Internal("error deleting recipe inputs: %v", err)
		}
		if err := tx.Delete(&models.PrepRecipe{}, id).Error; err != nil {
			return apperrors.Internal("error deleting recipe: %v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.InvalidateRecipeCaches(ctx)
	return nil
}

// RequiredInput is one scaled input line for a target output quantity.
type RequiredInput struct {
	IngredientID int64           `json:"ingredientId"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// ComputeRequiredInputs scales each input line by target/outputQuantity.
// Pure function; used for both the preview endpoint and the consumption step
// on task completion.
func ComputeRequiredInputs(recipe *models.PrepRecipe, target decimal.Decimal) []RequiredInput {
	required := make([]RequiredInput, 0, len(recipe.Inputs))
	for _, input := range recipe.Inputs {
		required = append(required, RequiredInput{
			IngredientID: input.IngredientID,
			Quantity:     input.Quantity.Mul(target).Div(recipe.OutputQuantity),
		})
	}
	return required
}
