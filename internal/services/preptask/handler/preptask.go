package handler

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/database/models"
	recipehandler "gastro-system/internal/services/recipe/handler"
	stockhandler "gastro-system/internal/services/stock/handler"
)

// Actor identifies who is driving a transition. Managers (access level 2+)
// may act on tasks assigned to others.
type Actor struct {
	UserID      int64
	AccessLevel int32
}

func (a Actor) manager() bool { return a.AccessLevel >= 2 }

type PrepTaskHandler struct {
	db    *gorm.DB
	stock *stockhandler.StockHandler
}

func NewPrepTaskHandler(db *gorm.DB, stock *stockhandler.StockHandler) *PrepTaskHandler {
	return &PrepTaskHandler{
		db:    db,
		stock: stock,
	}
}

type CreateTaskRequest struct {
	PrepRecipeID     int64           `json:"prepRecipeId"`
	TargetQuantity   decimal.Decimal `json:"targetQuantity"`
	LocationID       int64           `json:"locationId"`
	Notes            *string         `json:"notes"`
	AssignedToUserID *int64          `json:"assignedToUserId"`
}

func (s *PrepTaskHandler) CreateTask(ctx context.Context, req CreateTaskRequest) (*models.PrepTask, error) {
	if !req.TargetQuantity.IsPositive() {
		return nil, apperrors.Validation("target quantity must be greater than 0")
	}

	var recipe models.PrepRecipe
	if err := s.db.First(&recipe, req.PrepRecipeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("recipe %d not found", req.PrepRecipeID)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}

	var location models.Location
	if err := s.db.First(&location, req.LocationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("location %d not found", req.LocationID)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}

	task := models.PrepTask{
		PrepRecipeID:   req.PrepRecipeID,
		LocationID:     req.LocationID,
		TargetQuantity: req.TargetQuantity,
		Status:         models.TaskPending,
		Notes:          req.Notes,
	}

	if req.AssignedToUserID != nil {
		var user models.User
		if err := s.db.First(&user, *req.AssignedToUserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.NotFound("user %d not found", *req.AssignedToUserID)
			}
			return nil, apperrors.Internal("database error: %v", err)
		}
		now := time.Now()
		task.Status = models.TaskAssigned
		task.AssignedToUserID = req.AssignedToUserID
		task.AssignedAt = &now
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, apperrors.Internal("error creating prep task: %v", err)
	}
	return s.GetTask(ctx, task.ID)
}

func (s *PrepTaskHandler) GetTask(ctx context.Context, id int64) (*models.PrepTask, error) {
	var task models.PrepTask
	err := s.db.Preload("PrepRecipe").
		Preload("PrepRecipe.Inputs", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order") }).
		Preload("PrepRecipe.Inputs.Ingredient").
		Preload("PrepRecipe.OutputIngredient").
		Preload("Location").
		First(&task, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("prep task %d not found", id)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}
	return &task, nil
}

type ListTasksRequest struct {
	Statuses         []string
	AssignedFilter   string // "", "me", "unassigned", or a numeric user id
	IncludeCompleted bool
	Actor            Actor
}

func (s *PrepTaskHandler) ListTasks(ctx context.Context, req ListTasksRequest) ([]models.PrepTask, error) {
	query := s.db.Preload("PrepRecipe").Preload("PrepRecipe.OutputIngredient").Preload("Location")

	if len(req.Statuses) > 0 {
		statuses := make([]string, 0, len(req.Statuses))
		for _, status := range req.Statuses {
			statuses = append(statuses, strings.ToUpper(strings.TrimSpace(status)))
		}
		query = query.Where("status IN ?", statuses)
	} else if !req.IncludeCompleted {
		query = query.Where("status NOT IN ?", []string{models.TaskCompleted, models.TaskCancelled})
	}

	switch req.AssignedFilter {
	case "":
	case "me":
		query = query.Where("assigned_to_user_id = ?", req.Actor.UserID)
	case "unassigned":
		query = query.Where("assigned_to_user_id IS NULL")
	default:
		query = query.Where("assigned_to_user_id = ?", req.AssignedFilter)
	}

	var tasks []models.PrepTask
	if err := query.Order("created_at DESC, id DESC").Find(&tasks).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	return tasks, nil
}

// Claim lets a worker take a pending task and start it in one step,
// skipping ASSIGNED.
func (s *PrepTaskHandler) Claim(ctx context.Context, taskID int64, actor Actor) (*models.PrepTask, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := s.db.Model(&models.PrepTask{}).
		Where("id = ? AND status = ?", taskID, models.TaskPending).
		Updates(map[string]interface{}{
			"status":              models.TaskInProgress,
			"assigned_to_user_id": actor.UserID,
			"assigned_at":         now,
			"started_at":          now,
		})
	if result.Error != nil {
		return nil, apperrors.Internal("error claiming prep task: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("prep task %d is %s, only PENDING tasks can be claimed", taskID, task.Status)
	}
	return s.GetTask(ctx, taskID)
}

func (s *PrepTaskHandler) Start(ctx context.Context, taskID int64, actor Actor) (*models.PrepTask, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !actor.manager() && (task.AssignedToUserID == nil || *task.AssignedToUserID != actor.UserID) {
		return nil, apperrors.Forbidden("prep task %d is not assigned to you", taskID)
	}

	now := time.Now()
	result := s.db.Model(&models.PrepTask{}).
		Where("id = ? AND status = ?", taskID, models.TaskAssigned).
		Updates(map[string]interface{}{
			"status":     models.TaskInProgress,
			"started_at": now,
		})
	if result.Error != nil {
		return nil, apperrors.Internal("error starting prep task: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("prep task %d is %s, only ASSIGNED tasks can be started", taskID, task.Status)
	}
	return s.GetTask(ctx, taskID)
}

// Reassign changes the assignee while the task has not been started. A nil
// assignee sends the task back to the open pool.
func (s *PrepTaskHandler) Reassign(ctx context.Context, taskID int64, newUserID *int64) (*models.PrepTask, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"assigned_to_user_id": nil,
		"assigned_at":         nil,
		"status":              models.TaskPending,
	}
	if newUserID != nil {
		var user models.User
		if err := s.db.First(&user, *newUserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperrors.NotFound("user %d not found", *newUserID)
			}
			return nil, apperrors.Internal("database error: %v", err)
		}
		updates["assigned_to_user_id"] = *newUserID
		updates["assigned_at"] = time.Now()
		updates["status"] = models.TaskAssigned
	}

	result := s.db.Model(&models.PrepTask{}).
		Where("id = ? AND status IN ?", taskID, []string{models.TaskPending, models.TaskAssigned}).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Internal("error reassigning prep task: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("prep task %d is %s and can no longer be reassigned", taskID, task.Status)
	}
	return s.GetTask(ctx, taskID)
}

// Complete flips IN_PROGRESS to COMPLETED and applies the stock side effect
// in one transaction: inputs scaled to the actual quantity run are deducted
// from the task's location and the output is added as a new batch. The
// status flip is guarded on the previous status, so a double submission
// fails as an invalid transition instead of re-applying the ledger change.
func (s *PrepTaskHandler) Complete(ctx context.Context, taskID int64, quantityRun decimal.Decimal, actor Actor) (*models.PrepTask, error) {
	if quantityRun.IsNegative() {
		return nil, apperrors.Validation("quantity run must not be negative")
	}

	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !actor.manager() && (task.AssignedToUserID == nil || *task.AssignedToUserID != actor.UserID) {
		return nil, apperrors.Forbidden("prep task %d is not assigned to you", taskID)
	}
	if task.Status != models.TaskInProgress {
		return nil, apperrors.Conflict("prep task %d is %s, only IN_PROGRESS tasks can be completed", taskID, task.Status)
	}

	// Inputs can repeat an ingredient; consumption works per ingredient.
	required := map[int64]decimal.Decimal{}
	order := []int64{}
	for _, line := range recipehandler.ComputeRequiredInputs(task.PrepRecipe, quantityRun) {
		if _, seen := required[line.IngredientID]; !seen {
			order = append(order, line.IngredientID)
		}
		required[line.IngredientID] = required[line.IngredientID].Add(line.Quantity)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&models.PrepTask{}).
			Where("id = ? AND status = ?", taskID, models.TaskInProgress).
			Updates(map[string]interface{}{
				"status":            models.TaskCompleted,
				"quantity_run":      quantityRun,
				"completed_at":      now,
				"completed_by_user": actor.UserID,
			})
		if result.Error != nil {
			return apperrors.Internal("error completing prep task: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.Conflict("prep task %d was completed concurrently", taskID)
		}

		// Pre-flight: reject before any deduction when any input is short.
		for _, ingredientID := range order {
			available, err := stockhandler.AvailableAtLocation(tx, ingredientID, task.LocationID)
			if err != nil {
				return err
			}
			if available.LessThan(required[ingredientID]) {
				return apperrors.InsufficientStock(
					"insufficient stock for ingredient %d at location %d: need %s, have %s",
					ingredientID, task.LocationID, required[ingredientID].String(), available.String())
			}
		}

		for _, ingredientID := range order {
			if err := stockhandler.ConsumeOldestFirst(tx, ingredientID, task.LocationID,
				required[ingredientID], models.ReferencePrepTask, taskID, actor.UserID); err != nil {
				return err
			}
		}

		if quantityRun.IsPositive() {
			if _, err := stockhandler.AddProducedHolding(tx, task.PrepRecipe.OutputIngredientID,
				task.LocationID, quantityRun, taskID, actor.UserID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stock.InvalidateStockCaches(ctx, task.LocationID)
	return s.GetTask(ctx, taskID)
}

// Cancel ends a task from any non-terminal state. No stock side effects.
func (s *PrepTaskHandler) Cancel(ctx context.Context, taskID int64) (*models.PrepTask, error) {
	return s.terminate(ctx, taskID, models.TaskCancelled, nil)
}

// ReportProblem parks a task in the PROBLEM state for a manager to review.
func (s *PrepTaskHandler) ReportProblem(ctx context.Context, taskID int64, notes *string) (*models.PrepTask, error) {
	return s.terminate(ctx, taskID, models.TaskProblem, notes)
}

func (s *PrepTaskHandler) terminate(ctx context.Context, taskID int64, status string, notes *string) (*models.PrepTask, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Terminal() {
		return nil, apperrors.Conflict("prep task %d is already %s", taskID, task.Status)
	}

	updates := map[string]interface{}{"status": status}
	if notes != nil {
		updates["notes"] = *notes
	}

	nonTerminal := []string{models.TaskPending, models.TaskAssigned, models.TaskInProgress}
	result := s.db.Model(&models.PrepTask{}).
		Where("id = ? AND status IN ?", taskID, nonTerminal).
		Updates(updates)
	if result.Error != nil {
		return nil, apperrors.Internal("error updating prep task: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.Conflict("prep task %d is already %s", taskID, task.Status)
	}
	return s.GetTask(ctx, taskID)
}
