package handler

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/database"
	"gastro-system/internal/database/models"
)

func newTestHandler(t *testing.T) (*gorm.DB, *CatalogHandler) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db, NewCatalogHandler(db, nil)
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestCreateIngredientRejectsDuplicateName(t *testing.T) {
	_, h := newTestHandler(t)

	req := IngredientRequest{Name: "Flour", UnitOfMeasure: "g", CostPerUnit: mustDecimal(t, "0.002")}
	_, err := h.CreateIngredient(context.Background(), req)
	require.NoError(t, err)

	_, err = h.CreateIngredient(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}

func TestCreateIngredientValidation(t *testing.T) {
	_, h := newTestHandler(t)

	_, err := h.CreateIngredient(context.Background(), IngredientRequest{UnitOfMeasure: "g"})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))

	_, err = h.CreateIngredient(context.Background(), IngredientRequest{
		Name: "Flour", UnitOfMeasure: "g", CostPerUnit: mustDecimal(t, "-1"),
	})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.HTTPStatus(err))
}

func TestDeleteIngredientInUseConflicts(t *testing.T) {
	db, h := newTestHandler(t)

	ing, err := h.CreateIngredient(context.Background(), IngredientRequest{
		Name: "Flour", UnitOfMeasure: "g", CostPerUnit: mustDecimal(t, "0.002"),
	})
	require.NoError(t, err)

	loc := models.Location{LocationCode: "MAIN", LocationName: "Main", IsActive: true}
	require.NoError(t, db.Create(&loc).Error)
	require.NoError(t, db.Create(&models.StockHolding{
		IngredientID: ing.ID, LocationID: loc.ID, Quantity: mustDecimal(t, "100"),
	}).Error)

	err = h.DeleteIngredient(context.Background(), ing.ID)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))

	// Gone once nothing references it.
	require.NoError(t, db.Where("ingredient_id = ?", ing.ID).Delete(&models.StockHolding{}).Error)
	require.NoError(t, h.DeleteIngredient(context.Background(), ing.ID))
}

func TestDeleteIngredientUsedByRecipeConflicts(t *testing.T) {
	db, h := newTestHandler(t)

	flour, err := h.CreateIngredient(context.Background(), IngredientRequest{
		Name: "Flour", UnitOfMeasure: "g", CostPerUnit: decimal.Zero,
	})
	require.NoError(t, err)
	dough, err := h.CreateIngredient(context.Background(), IngredientRequest{
		Name: "Dough", UnitOfMeasure: "g", IsPrepared: true,
	})
	require.NoError(t, err)

	recipe := models.PrepRecipe{
		Name:               "Dough",
		OutputIngredientID: dough.ID,
		OutputQuantity:     mustDecimal(t, "1000"),
		Inputs:             []models.PrepRecipeInput{{IngredientID: flour.ID, Quantity: mustDecimal(t, "600")}},
	}
	require.NoError(t, db.Create(&recipe).Error)

	for _, id := range []int64{flour.ID, dough.ID} {
		err = h.DeleteIngredient(context.Background(), id)
		require.Error(t, err)
		assert.Equal(t, 409, apperrors.HTTPStatus(err))
	}
}

func TestListIngredientsFilters(t *testing.T) {
	_, h := newTestHandler(t)

	_, err := h.CreateIngredient(context.Background(), IngredientRequest{Name: "Bread Flour", UnitOfMeasure: "g"})
	require.NoError(t, err)
	sugar, err := h.CreateIngredient(context.Background(), IngredientRequest{Name: "Sugar", UnitOfMeasure: "g"})
	require.NoError(t, err)

	inactive := false
	_, err = h.UpdateIngredient(context.Background(), sugar.ID,
		IngredientRequest{Name: "Sugar", UnitOfMeasure: "g"}, &inactive)
	require.NoError(t, err)

	active, err := h.ListIngredients(context.Background(), "", false)
	require.NoError(t, err)
	require.Len(t, active, 1)

	all, err := h.ListIngredients(context.Background(), "", true)
	require.NoError(t, err)
	require.Len(t, all, 2)

	matched, err := h.ListIngredients(context.Background(), "flour", false)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "Bread Flour", matched[0].Name)
}

func TestLocationAndSupplierCodesAreUnique(t *testing.T) {
	_, h := newTestHandler(t)

	_, err := h.CreateLocation(context.Background(), LocationRequest{LocationCode: "MAIN", LocationName: "Main"})
	require.NoError(t, err)
	_, err = h.CreateLocation(context.Background(), LocationRequest{LocationCode: "MAIN", LocationName: "Other"})
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))

	_, err = h.CreateSupplier(context.Background(), SupplierRequest{SupplierCode: "MILL", SupplierName: "City Mill"})
	require.NoError(t, err)
	_, err = h.CreateSupplier(context.Background(), SupplierRequest{SupplierCode: "MILL", SupplierName: "Another"})
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}
