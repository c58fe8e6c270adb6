package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gastro-system/internal/database"
	"gastro-system/internal/database/models"
	"gastro-system/internal/gateway/middleware"
	preptaskhandler "gastro-system/internal/services/preptask/handler"
	stockhandler "gastro-system/internal/services/stock/handler"
)

const listTasksUserID = int64(10)

// newTaskRouter seeds three tasks: one assigned to the requesting user, one
// unassigned, one completed.
func newTaskRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedRoles(db))

	var staffRole models.Role
	require.NoError(t, db.Where("role_name = ?", models.RoleStaff).First(&staffRole).Error)
	require.NoError(t, db.Create(&models.User{
		ID: listTasksUserID, Username: "cook", Email: "cook@example.com", Password: "x",
		Firstname: "Line", Lastname: "Cook", RoleID: staffRole.ID, IsActive: true,
	}).Error)

	dough := models.Ingredient{Name: "Dough", UnitOfMeasure: "g", CostPerUnit: decimal.Zero, IsPrepared: true, IsActive: true}
	require.NoError(t, db.Create(&dough).Error)
	loc := models.Location{LocationCode: "MAIN", LocationName: "Main", IsActive: true}
	require.NoError(t, db.Create(&loc).Error)
	recipe := models.PrepRecipe{Name: "Dough", OutputIngredientID: dough.ID, OutputQuantity: decimal.NewFromInt(1000)}
	require.NoError(t, db.Create(&recipe).Error)

	uid := listTasksUserID
	tasks := []models.PrepTask{
		{PrepRecipeID: recipe.ID, LocationID: loc.ID, TargetQuantity: decimal.NewFromInt(500), Status: models.TaskAssigned, AssignedToUserID: &uid},
		{PrepRecipeID: recipe.ID, LocationID: loc.ID, TargetQuantity: decimal.NewFromInt(500), Status: models.TaskPending},
		{PrepRecipeID: recipe.ID, LocationID: loc.ID, TargetQuantity: decimal.NewFromInt(500), Status: models.TaskCompleted},
	}
	for i := range tasks {
		require.NoError(t, db.Create(&tasks[i]).Error)
	}

	taskSvc := preptaskhandler.NewPrepTaskHandler(db, stockhandler.NewStockHandler(db, nil))
	h := NewPrepTaskHTTPHandler(taskSvc)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.CtxUserID, listTasksUserID)
		c.Set(middleware.CtxAccessLevel, int32(1))
	})
	r.GET("/api/v1/prep-tasks", h.ListTasks)
	return r
}

func listTasks(t *testing.T, r *gin.Engine, query string) []models.PrepTask {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/prep-tasks"+query, nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool              `json:"success"`
		Data    []models.PrepTask `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func TestListTasksQueryParameterNames(t *testing.T) {
	r := newTaskRouter(t)

	// Default view hides completed work.
	require.Len(t, listTasks(t, r, ""), 2)

	mine := listTasks(t, r, "?assignedToUserId=me")
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].AssignedToUserID)
	assert.Equal(t, listTasksUserID, *mine[0].AssignedToUserID)

	pool := listTasks(t, r, "?assignedToUserId=unassigned")
	require.Len(t, pool, 1)
	assert.Nil(t, pool[0].AssignedToUserID)

	byID := listTasks(t, r, fmt.Sprintf("?assignedToUserId=%d", listTasksUserID))
	require.Len(t, byID, 1)

	all := listTasks(t, r, "?includeCompleted=true")
	require.Len(t, all, 3)

	completed := listTasks(t, r, "?status=COMPLETED")
	require.Len(t, completed, 1)
	assert.Equal(t, models.TaskCompleted, completed[0].Status)
}
