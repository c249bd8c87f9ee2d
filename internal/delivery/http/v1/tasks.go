package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-client/internal/models"
	"github.com/adanyl0v/go-todo-client/internal/store"
)

type getTaskResponse struct {
	ID                 int64            `json:"id"`
	Title              string           `json:"title"`
	Description        *string          `json:"description"`
	DescriptionPreview string           `json:"description_preview,omitempty"`
	Completed          bool             `json:"completed"`
	InFlight           bool             `json:"in_flight"`
	CreatedAt          models.Timestamp `json:"created_at"`
	UpdatedAt          models.Timestamp `json:"updated_at"`
}

func newGetTaskResponse(task *models.Task, inFlight bool) getTaskResponse {
	response := getTaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		InFlight:    inFlight,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if task.Description != nil {
		response.DescriptionPreview = models.Preview(*task.Description)
	}
	return response
}

func newGetTasksResponse(snapshot store.Snapshot) []getTaskResponse {
	response := make([]getTaskResponse, len(snapshot.Tasks))
	for i, task := range snapshot.Tasks {
		response[i] = newGetTaskResponse(&task, snapshot.IsInFlight(task.ID))
	}
	return response
}

func (h *handlerImpl) HandleGetTasks(c *gin.Context) {
	snapshot := h.store.Snapshot()
	h.requestLogger(c).Debug().
		Int("count", len(snapshot.Tasks)).
		Int("in_flight", len(snapshot.InFlight)).
		Msg("read tasks")

	c.JSON(http.StatusOK, newGetTasksResponse(snapshot))
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	logger := h.requestLogger(c)

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	params := models.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
	}
	err = models.ValidateCreate(&params)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("rejected task")
		abort(c, newBadRequestError(err.Error()))
		return
	}

	task, err := h.tasks.CreateTask(c, params)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to create task")
		abort(c, newBadGatewayError(msgCreateTaskFailed))
		return
	}

	logger.Info().
		Int64("id", task.ID).
		Msg("created task")
	c.JSON(http.StatusCreated, newGetTaskResponse(task, false))
}

type updateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	logger := h.requestLogger(c)

	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	params := models.UpdateTaskParams{
		ID:          taskID,
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}
	err = models.ValidateUpdate(&params)
	if err != nil {
		logger.Warn().
			Err(err).
			Int64("id", taskID).
			Msg("rejected task update")
		abort(c, newBadRequestError(err.Error()))
		return
	}

	task, err := h.tasks.UpdateTask(c, params)
	if err != nil {
		logger.Error().
			Err(err).
			Int64("id", taskID).
			Msg("failed to update task")
		abort(c, newBadGatewayError(msgUpdateTaskFailed))
		return
	}

	logger.Info().
		Int64("id", task.ID).
		Msg("updated task")
	c.JSON(http.StatusOK, newGetTaskResponse(task, false))
}

func (h *handlerImpl) HandleToggleTask(c *gin.Context) {
	logger := h.requestLogger(c)

	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	current, found := h.store.Get(taskID)
	if !found {
		logger.Warn().
			Int64("id", taskID).
			Msg("task not found")
		abort(c, newNotFoundError(msgTaskNotFound))
		return
	}

	task, err := h.tasks.UpdateTask(c, models.UpdateTaskParams{
		ID:        taskID,
		Completed: models.BoolPtr(!current.Completed),
	})
	if err != nil {
		logger.Error().
			Err(err).
			Int64("id", taskID).
			Msg("failed to update task status")
		abort(c, newBadGatewayError(msgToggleTaskFailed))
		return
	}

	logger.Info().
		Int64("id", task.ID).
		Bool("completed", task.Completed).
		Msg("updated task status")
	c.JSON(http.StatusOK, newGetTaskResponse(task, false))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	logger := h.requestLogger(c)

	taskID, ok := h.taskIDParam(c)
	if !ok {
		return
	}

	err := h.tasks.DeleteTask(c, taskID)
	if err != nil {
		logger.Error().
			Err(err).
			Int64("id", taskID).
			Msg("failed to delete task")
		abort(c, newBadGatewayError(msgDeleteTaskFailed))
		return
	}

	logger.Info().
		Int64("id", taskID).
		Msg("deleted task")
	c.Status(http.StatusNoContent)
}

// taskIDParam aborts the request when the id is not a positive integer.
func (h *handlerImpl) taskIDParam(c *gin.Context) (int64, bool) {
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err == nil && taskID <= 0 {
		err = errors.New("id must be positive")
	}
	if err != nil {
		h.requestLogger(c).Error().
			Err(err).
			Str("id", c.Param("id")).
			Msg("invalid task id")
		abort(c, newBadRequestError(errInvalidTaskID.Error()))
		return 0, false
	}
	return taskID, true
}
