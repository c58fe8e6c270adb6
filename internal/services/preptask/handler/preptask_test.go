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
	stockhandler "gastro-system/internal/services/stock/handler"
)

var (
	staff   = Actor{UserID: 10, AccessLevel: 1}
	manager = Actor{UserID: 20, AccessLevel: 2}
)

type fixture struct {
	db     *gorm.DB
	tasks  *PrepTaskHandler
	recipe *models.PrepRecipe
	loc    *models.Location
	flour  *models.Ingredient
	water  *models.Ingredient
	dough  *models.Ingredient
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// newFixture builds a dough recipe (1000g out of 600g flour + 400g water)
// with staff and manager users seeded.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedRoles(db))

	f := &fixture{db: db, tasks: NewPrepTaskHandler(db, stockhandler.NewStockHandler(db, nil))}

	newIngredient := func(name string, prepared bool) *models.Ingredient {
		ing := models.Ingredient{Name: name, UnitOfMeasure: "g", CostPerUnit: decimal.Zero, IsPrepared: prepared, IsActive: true}
		require.NoError(t, db.Create(&ing).Error)
		return &ing
	}
	f.flour = newIngredient("Flour", false)
	f.water = newIngredient("Water", false)
	f.dough = newIngredient("Dough", true)

	f.loc = &models.Location{LocationCode: "MAIN", LocationName: "Main Kitchen", IsActive: true}
	require.NoError(t, db.Create(f.loc).Error)

	var staffRole, managerRole models.Role
	require.NoError(t, db.Where("role_name = ?", models.RoleStaff).First(&staffRole).Error)
	require.NoError(t, db.Where("role_name = ?", models.RoleManager).First(&managerRole).Error)
	users := []models.User{
		{ID: staff.UserID, Username: "cook", Email: "cook@example.com", Password: "x", Firstname: "C", Lastname: "K", RoleID: staffRole.ID, IsActive: true},
		{ID: manager.UserID, Username: "chef", Email: "chef@example.com", Password: "x", Firstname: "C", Lastname: "F", RoleID: managerRole.ID, IsActive: true},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}

	f.recipe = &models.PrepRecipe{
		Name:               "Pizza Dough",
		OutputIngredientID: f.dough.ID,
		OutputQuantity:     mustDecimal(t, "1000"),
		Inputs: []models.PrepRecipeInput{
			{IngredientID: f.flour.ID, Quantity: mustDecimal(t, "600"), SortOrder: 0},
			{IngredientID: f.water.ID, Quantity: mustDecimal(t, "400"), SortOrder: 1},
		},
	}
	require.NoError(t, db.Create(f.recipe).Error)
	return f
}

func (f *fixture) stock(t *testing.T, ing *models.Ingredient, qty string) {
	t.Helper()
	require.NoError(t, f.db.Create(&models.StockHolding{
		IngredientID: ing.ID,
		LocationID:   f.loc.ID,
		Quantity:     mustDecimal(t, qty),
	}).Error)
}

func (f *fixture) available(t *testing.T, ing *models.Ingredient) decimal.Decimal {
	t.Helper()
	var total decimal.Decimal
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		total, err = stockhandler.AvailableAtLocation(tx, ing.ID, f.loc.ID)
		return err
	})
	require.NoError(t, err)
	return total
}

func (f *fixture) newTask(t *testing.T, assignee *int64) *models.PrepTask {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), CreateTaskRequest{
		PrepRecipeID:     f.recipe.ID,
		TargetQuantity:   mustDecimal(t, "500"),
		LocationID:       f.loc.ID,
		AssignedToUserID: assignee,
	})
	require.NoError(t, err)
	return task
}

func TestCreateTaskAssignmentSetsStatus(t *testing.T) {
	f := newFixture(t)

	open := f.newTask(t, nil)
	assert.Equal(t, models.TaskPending, open.Status)
	assert.Nil(t, open.AssignedAt)

	assigned := f.newTask(t, &staff.UserID)
	assert.Equal(t, models.TaskAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedToUserID)
	assert.Equal(t, staff.UserID, *assigned.AssignedToUserID)
	assert.NotNil(t, assigned.AssignedAt)
}

func TestClaimOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t, nil)

	claimed, err := f.tasks.Claim(context.Background(), task.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, claimed.Status)
	assert.Equal(t, staff.UserID, *claimed.AssignedToUserID)
	assert.NotNil(t, claimed.StartedAt)

	_, err = f.tasks.Claim(context.Background(), task.ID, manager)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}

func TestStartRestrictedToAssigneeUnlessManager(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t, &staff.UserID)

	intruder := Actor{UserID: 99, AccessLevel: 1}
	_, err := f.tasks.Start(context.Background(), task.ID, intruder)
	require.Error(t, err)
	assert.Equal(t, 403, apperrors.HTTPStatus(err))

	started, err := f.tasks.Start(context.Background(), task.ID, manager)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, started.Status)
}

func TestReassignToNilReturnsTaskToPool(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t, &staff.UserID)

	back, err := f.tasks.Reassign(context.Background(), task.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, back.Status)
	assert.Nil(t, back.AssignedToUserID)
	assert.Nil(t, back.AssignedAt)
}

func TestReassignRejectedOnceStarted(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t, nil)
	_, err := f.tasks.Claim(context.Background(), task.ID, staff)
	require.NoError(t, err)

	_, err = f.tasks.Reassign(context.Background(), task.ID, &manager.UserID)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}

func TestCompleteDeductsInputsAndAddsOutput(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.flour, "600")
	f.stock(t, f.water, "400")

	task := f.newTask(t, nil)
	_, err := f.tasks.Claim(context.Background(), task.ID, staff)
	require.NoError(t, err)

	// Task targeted 500 but the cook actually ran 500 as well.
	done, err := f.tasks.Complete(context.Background(), task.ID, mustDecimal(t, "500"), staff)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, done.Status)
	require.NotNil(t, done.QuantityRun)
	assert.True(t, done.QuantityRun.Equal(mustDecimal(t, "500")))
	require.NotNil(t, done.CompletedByUser)
	assert.Equal(t, staff.UserID, *done.CompletedByUser)

	// 500/1000 of the recipe: 300 flour, 200 water consumed, 500 dough added.
	assert.True(t, f.available(t, f.flour).Equal(mustDecimal(t, "300")))
	assert.True(t, f.available(t, f.water).Equal(mustDecimal(t, "200")))
	assert.True(t, f.available(t, f.dough).Equal(mustDecimal(t, "500")))

	var movements []models.StockMovement
	require.NoError(t, f.db.Where("reference_type = ?", models.ReferencePrepTask).Find(&movements).Error)
	assert.Len(t, movements, 3)
}

func TestCompleteInsufficientStockRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.flour, "600")
	f.stock(t, f.water, "100") // short on water

	task := f.newTask(t, nil)
	_, err := f.tasks.Claim(context.Background(), task.ID, staff)
	require.NoError(t, err)

	_, err = f.tasks.Complete(context.Background(), task.ID, mustDecimal(t, "500"), staff)
	require.Error(t, err)
	assert.Equal(t, 422, apperrors.HTTPStatus(err))

	// Neither the flour deduction nor the status flip survives.
	assert.True(t, f.available(t, f.flour).Equal(mustDecimal(t, "600")))
	assert.True(t, f.available(t, f.water).Equal(mustDecimal(t, "100")))
	assert.True(t, f.available(t, f.dough).IsZero())

	after, err := f.tasks.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, after.Status)
}

func TestCompleteTwiceAppliesLedgerOnce(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.flour, "1200")
	f.stock(t, f.water, "800")

	task := f.newTask(t, nil)
	_, err := f.tasks.Claim(context.Background(), task.ID, staff)
	require.NoError(t, err)

	_, err = f.tasks.Complete(context.Background(), task.ID, mustDecimal(t, "500"), staff)
	require.NoError(t, err)

	_, err = f.tasks.Complete(context.Background(), task.ID, mustDecimal(t, "500"), staff)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))

	assert.True(t, f.available(t, f.flour).Equal(mustDecimal(t, "900")))
	assert.True(t, f.available(t, f.water).Equal(mustDecimal(t, "600")))
	assert.True(t, f.available(t, f.dough).Equal(mustDecimal(t, "500")))
}

func TestCompleteWithZeroRunConsumesNothing(t *testing.T) {
	f := newFixture(t)
	f.stock(t, f.flour, "600")
	f.stock(t, f.water, "400")

	task := f.newTask(t, nil)
	_, err := f.tasks.Claim(context.Background(), task.ID, staff)
	require.NoError(t, err)

	done, err := f.tasks.Complete(context.Background(), task.ID, decimal.Zero, staff)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, done.Status)

	assert.True(t, f.available(t, f.flour).Equal(mustDecimal(t, "600")))
	assert.True(t, f.available(t, f.dough).IsZero())
}

func TestCancelAndProblemAreTerminal(t *testing.T) {
	f := newFixture(t)

	task := f.newTask(t, nil)
	cancelled, err := f.tasks.Cancel(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCancelled, cancelled.Status)

	_, err = f.tasks.Claim(context.Background(), task.ID, staff)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))

	other := f.newTask(t, &staff.UserID)
	notes := "mixer is broken"
	problem, err := f.tasks.ReportProblem(context.Background(), other.ID, &notes)
	require.NoError(t, err)
	assert.Equal(t, models.TaskProblem, problem.Status)
	require.NotNil(t, problem.Notes)
	assert.Equal(t, notes, *problem.Notes)

	_, err = f.tasks.Cancel(context.Background(), other.ID)
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.HTTPStatus(err))
}

func TestListTasksFilters(t *testing.T) {
	f := newFixture(t)

	open := f.newTask(t, nil)
	mine := f.newTask(t, &staff.UserID)
	done := f.newTask(t, nil)
	_, err := f.tasks.Claim(context.Background(), done.ID, manager)
	require.NoError(t, err)
	_, err = f.tasks.Complete(context.Background(), done.ID, decimal.Zero, manager)
	require.NoError(t, err)

	active, err := f.tasks.ListTasks(context.Background(), ListTasksRequest{Actor: staff})
	require.NoError(t, err)
	require.Len(t, active, 2)

	minez, err := f.tasks.ListTasks(context.Background(), ListTasksRequest{AssignedFilter: "me", Actor: staff})
	require.NoError(t, err)
	require.Len(t, minez, 1)
	assert.Equal(t, mine.ID, minez[0].ID)

	pool, err := f.tasks.ListTasks(context.Background(), ListTasksRequest{AssignedFilter: "unassigned", Actor: staff})
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, open.ID, pool[0].ID)

	completed, err := f.tasks.ListTasks(context.Background(), ListTasksRequest{Statuses: []string{"completed"}, Actor: staff})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)
}
