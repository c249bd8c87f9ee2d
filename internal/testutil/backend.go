// Package testutil provides an in-process fake of the task backend.
package testutil

import (
	"cmp"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-client/internal/models"
)

const (
	OpList   = "list"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// The backend emits naive datetimes, like the real service does.
const naiveLayout = "2006-01-02T15:04:05.999999"

type Backend struct {
	mu         sync.Mutex
	tasks      map[int64]models.Task
	nextID     int64
	failures   map[string]int
	requestIDs []string
	calls      map[string]int
	server     *httptest.Server
}

type taskResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Completed   bool    `json:"completed"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func newTaskResponse(task models.Task) taskResponse {
	return taskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt.UTC().Format(naiveLayout),
		UpdatedAt:   task.UpdatedAt.UTC().Format(naiveLayout),
	}
}

// NewBackend starts the fake and seeds it with tasks. It is closed
// when the test ends.
func NewBackend(t testing.TB, tasks ...models.Task) *Backend {
	t.Helper()

	gin.SetMode(gin.TestMode)
	b := &Backend{
		tasks:    make(map[int64]models.Task),
		nextID:   1,
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
	for _, task := range tasks {
		b.Put(task)
	}

	router := gin.New()
	router.Use(b.recordRequestID)
	router.GET("/tasks/", b.handleList)
	router.POST("/tasks/", b.handleCreate)
	router.PUT("/tasks/:id", b.handleUpdate)
	router.DELETE("/tasks/:id", b.handleDelete)

	b.server = httptest.NewServer(router)
	t.Cleanup(b.server.Close)
	return b
}

func (b *Backend) URL() string {
	return b.server.URL
}

// Put stores the task as is, bypassing validation.
func (b *Backend) Put(task models.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tasks[task.ID] = task.Clone()
	if task.ID >= b.nextID {
		b.nextID = task.ID + 1
	}
}

func (b *Backend) Remove(taskID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.tasks, taskID)
}

// Fail makes every subsequent call of op answer with status.
// A zero status restores normal behaviour.
func (b *Backend) Fail(op string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if status == 0 {
		delete(b.failures, op)
		return
	}
	b.failures[op] = status
}

// Tasks returns the stored tasks ordered by id.
func (b *Backend) Tasks() []models.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	tasks := make([]models.Task, 0, len(b.tasks))
	for _, task := range b.tasks {
		tasks = append(tasks, task.Clone())
	}
	slices.SortFunc(tasks, func(a, b models.Task) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return tasks
}

func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.calls[op]
}

func (b *Backend) RequestIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.requestIDs)
}

func (b *Backend) recordRequestID(c *gin.Context) {
	b.mu.Lock()
	b.requestIDs = append(b.requestIDs, c.GetHeader("X-Request-ID"))
	b.mu.Unlock()
	c.Next()
}

// begin counts the call and reports whether it must fail.
func (b *Backend) begin(c *gin.Context, op string) bool {
	b.mu.Lock()
	b.calls[op]++
	status, failing := b.failures[op]
	b.mu.Unlock()

	if failing {
		c.AbortWithStatusJSON(status, gin.H{"detail": http.StatusText(status)})
		return false
	}
	return true
}

func (b *Backend) handleList(c *gin.Context) {
	if !b.begin(c, OpList) {
		return
	}

	tasks := b.Tasks()
	response := make([]taskResponse, len(tasks))
	for i, task := range tasks {
		response[i] = newTaskResponse(task)
	}
	c.JSON(http.StatusOK, response)
}

type createRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

func (b *Backend) handleCreate(c *gin.Context) {
	if !b.begin(c, OpCreate) {
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": "title must not be empty"})
		return
	}

	now := serverNow()
	b.mu.Lock()
	task := models.Task{
		ID:          b.nextID,
		Title:       req.Title,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.nextID++
	b.tasks[task.ID] = task
	b.mu.Unlock()

	c.JSON(http.StatusOK, newTaskResponse(task))
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func (b *Backend) handleUpdate(c *gin.Context) {
	if !b.begin(c, OpUpdate) {
		return
	}

	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid id"})
		return
	}

	var req updateRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": "title must not be empty"})
		return
	}

	b.mu.Lock()
	task, ok := b.tasks[taskID]
	if !ok {
		b.mu.Unlock()
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
		return
	}
	task = models.UpdateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	}.Apply(task)
	task.UpdatedAt = serverNow()
	b.tasks[taskID] = task
	b.mu.Unlock()

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (b *Backend) handleDelete(c *gin.Context) {
	if !b.begin(c, OpDelete) {
		return
	}

	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": "invalid id"})
		return
	}

	b.mu.Lock()
	_, ok := b.tasks[taskID]
	delete(b.tasks, taskID)
	b.mu.Unlock()

	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Task not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// serverNow matches the precision of the wire format.
func serverNow() models.Timestamp {
	return models.NewTimestamp(time.Now().Truncate(time.Microsecond))
}
