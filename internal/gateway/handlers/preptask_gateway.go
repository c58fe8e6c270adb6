package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gastro-system/internal/database/models"
	"gastro-system/internal/gateway/middleware"
	preptaskhandler "gastro-system/internal/services/preptask/handler"
)

type PrepTaskHTTPHandler struct {
	tasks *preptaskhandler.PrepTaskHandler
}

func NewPrepTaskHTTPHandler(tasks *preptaskhandler.PrepTaskHandler) *PrepTaskHTTPHandler {
	return &PrepTaskHTTPHandler{tasks: tasks}
}

func actorFrom(c *gin.Context) preptaskhandler.Actor {
	return preptaskhandler.Actor{
		UserID:      c.GetInt64(middleware.CtxUserID),
		AccessLevel: accessLevelFrom(c),
	}
}

func (s *PrepTaskHTTPHandler) CreateTask(c *gin.Context) {
	var req preptaskhandler.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	task, err := s.tasks.CreateTask(c.Request.Context(), req)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, task)
}

func (s *PrepTaskHTTPHandler) GetTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	task, err := s.tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, task)
}

func (s *PrepTaskHTTPHandler) ListTasks(c *gin.Context) {
	var statuses []string
	if raw := c.Query("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}
	req := preptaskhandler.ListTasksRequest{
		Statuses:         statuses,
		AssignedFilter:   c.Query("assignedToUserId"),
		IncludeCompleted: parseBoolQuery(c, "includeCompleted"),
		Actor:            actorFrom(c),
	}

	tasks, err := s.tasks.ListTasks(c.Request.Context(), req)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, tasks)
}

type patchTaskBody struct {
	Status           *string          `json:"status"`
	QuantityRun      *decimal.Decimal `json:"quantityRun"`
	AssignedToUserID json.RawMessage  `json:"assignedToUserId"`
	Notes            *string          `json:"notes"`
}

// PatchTask drives the task state machine. A status field requests a
// transition; an assignedToUserId field (including an explicit null, which
// returns the task to the unassigned pool) requests a reassignment.
func (s *PrepTaskHTTPHandler) PatchTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body patchTaskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if body.Status == nil {
		if body.AssignedToUserID == nil {
			fail(c, http.StatusBadRequest, "Nothing to update: provide status or assignedToUserId")
			return
		}
		if accessLevelFrom(c) < 2 {
			fail(c, http.StatusForbidden, "Reassignment requires a manager")
			return
		}
		var newUserID *int64
		if !bytes.Equal(bytes.TrimSpace(body.AssignedToUserID), []byte("null")) {
			var uid int64
			if err := json.Unmarshal(body.AssignedToUserID, &uid); err != nil {
				fail(c, http.StatusBadRequest, "assignedToUserId must be a user id or null")
				return
			}
			newUserID = &uid
		}
		task, err := s.tasks.Reassign(c.Request.Context(), id, newUserID)
		if err != nil {
			failErr(c, err)
			return
		}
		success(c, task)
		return
	}

	actor := actorFrom(c)
	ctx := c.Request.Context()

	switch strings.ToUpper(*body.Status) {
	case models.TaskInProgress:
		current, err := s.tasks.GetTask(ctx, id)
		if err != nil {
			failErr(c, err)
			return
		}
		var task *models.PrepTask
		if current.Status == models.TaskPending {
			task, err = s.tasks.Claim(ctx, id, actor)
		} else {
			task, err = s.tasks.Start(ctx, id, actor)
		}
		if err != nil {
			failErr(c, err)
			return
		}
		success(c, task)

	case models.TaskCompleted:
		if body.QuantityRun == nil {
			fail(c, http.StatusBadRequest, "quantityRun is required to complete a task")
			return
		}
		task, err := s.tasks.Complete(ctx, id, *body.QuantityRun, actor)
		if err != nil {
			failErr(c, err)
			return
		}
		success(c, task)

	case models.TaskCancelled:
		if accessLevelFrom(c) < 2 {
			fail(c, http.StatusForbidden, "Cancelling a task requires a manager")
			return
		}
		task, err := s.tasks.Cancel(ctx, id)
		if err != nil {
			failErr(c, err)
			return
		}
		success(c, task)

	case models.TaskProblem:
		task, err := s.tasks.ReportProblem(ctx, id, body.Notes)
		if err != nil {
			failErr(c, err)
			return
		}
		success(c, task)

	default:
		fail(c, http.StatusBadRequest, "Unsupported status transition: "+*body.Status)
	}
}
