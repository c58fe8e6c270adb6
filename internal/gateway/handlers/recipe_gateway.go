package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	recipehandler "gastro-system/internal/services/recipe/handler"
)

type RecipeHTTPHandler struct {
	recipes *recipehandler.RecipeHandler
}

func NewRecipeHTTPHandler(recipes *recipehandler.RecipeHandler) *RecipeHTTPHandler {
	return &RecipeHTTPHandler{recipes: recipes}
}

func (s *RecipeHTTPHandler) CreateRecipe(c *gin.Context) {
	var req recipehandler.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	recipe, err := s.recipes.CreateRecipe(c.Request.Context(), req)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, recipe)
}

func (s *RecipeHTTPHandler) UpdateRecipe(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req recipehandler.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	recipe, err := s.recipes.UpdateRecipe(c.Request.Context(), id, req)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, recipe)
}

func (s *RecipeHTTPHandler) GetRecipe(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	recipe, err := s.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, recipe)
}

func (s *RecipeHTTPHandler) ListRecipes(c *gin.Context) {
	page, pageSize := parsePagination(c)
	recipes, total, err := s.recipes.ListRecipes(c.Request.Context(), c.Query("search"), page, pageSize)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"recipes": recipes, "total": total})
}

func (s *RecipeHTTPHandler) DeleteRecipe(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := s.recipes.DeleteRecipe(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"deleted": id})
}

// RequiredInputs scales a recipe's input lines to an arbitrary target output
// quantity without touching stock.
func (s *RecipeHTTPHandler) RequiredInputs(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	target, err := decimal.NewFromString(c.Query("target"))
	if err != nil || !target.IsPositive() {
		fail(c, http.StatusBadRequest, "target must be a positive decimal")
		return
	}

	recipe, err := s.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{
		"recipeId":       recipe.ID,
		"targetQuantity": target,
		"inputs":         recipehandler.ComputeRequiredInputs(recipe, target),
	})
}
