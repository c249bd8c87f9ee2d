package v1

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/go-todo-client/internal/api"
	"github.com/adanyl0v/go-todo-client/internal/cache"
	"github.com/adanyl0v/go-todo-client/internal/models"
	"github.com/adanyl0v/go-todo-client/internal/services"
	"github.com/adanyl0v/go-todo-client/internal/store"
	"github.com/adanyl0v/go-todo-client/internal/testutil"
)

type testEnv struct {
	backend *testutil.Backend
	service services.TaskService
	store   *store.Store
	router  *gin.Engine
}

func seedTask(id int64, title string, completed bool, description *string) models.Task {
	ts := models.NewTimestamp(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour))
	return models.Task{
		ID:          id,
		Title:       title,
		Description: description,
		Completed:   completed,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func newTestEnv(t *testing.T, seeds ...models.Task) *testEnv {
	t.Helper()

	backend := testutil.NewBackend(t, seeds...)
	client := api.NewClient(zerolog.Nop(), backend.URL(), 5*time.Second)
	taskStore := store.New()
	service := services.NewTaskService(
		zerolog.Nop(),
		client,
		taskStore,
		cache.NewMemoryMirror(),
		services.DefaultTaskServiceOptions(),
	)
	t.Cleanup(service.Close)
	require.NoError(t, service.Refetch(context.Background()))

	router := gin.New()
	RegisterRoutes(router, New(zerolog.Nop(), service, taskStore))

	return &testEnv{
		backend: backend,
		service: service,
		store:   taskStore,
		router:  router,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func decodeTask(t *testing.T, w *httptest.ResponseRecorder) getTaskResponse {
	t.Helper()

	var task getTaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))
	return task
}

func TestHandleGetTasks(t *testing.T) {
	long := strings.Repeat("x", 80)
	env := newTestEnv(t,
		seedTask(1, "done", true, nil),
		seedTask(2, "todo", false, &long),
	)

	w := env.do(t, http.MethodGet, "/api/v1/tasks", "")

	require.Equal(t, http.StatusOK, w.Code)
	var tasks []getTaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(2), tasks[0].ID)
	assert.Equal(t, strings.Repeat("x", 60)+"...", tasks[0].DescriptionPreview)
	assert.False(t, tasks[0].InFlight)
	assert.Equal(t, int64(1), tasks[1].ID)
	assert.True(t, tasks[1].Completed)
	assert.Empty(t, tasks[1].DescriptionPreview)
}

func TestHandleGetTasks_Empty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/tasks", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestHandleCreateTask(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/tasks", `{"title":"  Buy milk ","description":"   "}`)

	require.Equal(t, http.StatusCreated, w.Code)
	task := decodeTask(t, w)
	assert.Positive(t, task.ID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Nil(t, task.Description)
	assert.False(t, task.Completed)

	env.service.Wait()
	stored, ok := env.store.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "Buy milk", stored.Title)
	assert.Empty(t, env.store.InFlight())
	assert.Len(t, env.backend.Tasks(), 1)
}

func TestHandleCreateTask_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "blank title", body: `{"title":"   "}`, message: models.ErrTitleRequired.Error()},
		{name: "long title", body: `{"title":"` + strings.Repeat("t", 101) + `"}`, message: models.ErrTitleTooLong.Error()},
		{name: "long description", body: `{"title":"ok","description":"` + strings.Repeat("d", 501) + `"}`, message: models.ErrDescriptionTooLong.Error()},
		{name: "malformed json", body: `{"title":`, message: errInvalidRequestBody.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/tasks", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeError(t, w))
		})
	}
	assert.Zero(t, env.backend.Calls(testutil.OpCreate))
}

func TestHandleCreateTask_BackendFailure(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "existing", false, nil))
	env.backend.Fail(testutil.OpCreate, http.StatusInternalServerError)

	w := env.do(t, http.MethodPost, "/api/v1/tasks", `{"title":"doomed"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, msgCreateTaskFailed, decodeError(t, w))

	env.service.Wait()
	tasks := env.store.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(1), tasks[0].ID)
}

func TestHandleUpdateTask(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "old", false, nil))

	w := env.do(t, http.MethodPut, "/api/v1/tasks/1", `{"title":" new ","completed":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	task := decodeTask(t, w)
	assert.Equal(t, "new", task.Title)
	assert.True(t, task.Completed)

	env.service.Wait()
	stored, ok := env.store.Get(1)
	require.True(t, ok)
	assert.Equal(t, "new", stored.Title)
	assert.True(t, stored.Completed)
}

func TestHandleUpdateTask_BlankDescriptionIsOmitted(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "old", false, models.StringPtr("keep")))

	w := env.do(t, http.MethodPut, "/api/v1/tasks/1", `{"title":"new","description":"   "}`)

	require.Equal(t, http.StatusOK, w.Code)
	task := decodeTask(t, w)
	assert.Equal(t, "new", task.Title)
	require.NotNil(t, task.Description)
	assert.Equal(t, "keep", *task.Description)
}

func TestHandleUpdateTask_BadRequest(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "old", false, nil))

	tests := []struct {
		name    string
		path    string
		body    string
		message string
	}{
		{name: "non numeric id", path: "/api/v1/tasks/abc", body: `{"title":"x"}`, message: errInvalidTaskID.Error()},
		{name: "zero id", path: "/api/v1/tasks/0", body: `{"title":"x"}`, message: errInvalidTaskID.Error()},
		{name: "no fields", path: "/api/v1/tasks/1", body: `{}`, message: models.ErrNothingToUpdate.Error()},
		{name: "blank title", path: "/api/v1/tasks/1", body: `{"title":""}`, message: models.ErrTitleRequired.Error()},
		{name: "only blank description", path: "/api/v1/tasks/1", body: `{"description":"  "}`, message: models.ErrNothingToUpdate.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPut, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeError(t, w))
		})
	}
	assert.Zero(t, env.backend.Calls(testutil.OpUpdate))
}

func TestHandleUpdateTask_BackendFailure(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "old", false, nil))
	env.backend.Fail(testutil.OpUpdate, http.StatusServiceUnavailable)

	w := env.do(t, http.MethodPut, "/api/v1/tasks/1", `{"title":"new"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, msgUpdateTaskFailed, decodeError(t, w))

	env.service.Wait()
	stored, ok := env.store.Get(1)
	require.True(t, ok)
	assert.Equal(t, "old", stored.Title)
}

func TestHandleToggleTask(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "flip me", false, nil))

	w := env.do(t, http.MethodPatch, "/api/v1/tasks/1/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeTask(t, w).Completed)
	env.service.Wait()

	w = env.do(t, http.MethodPatch, "/api/v1/tasks/1/toggle", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeTask(t, w).Completed)
	env.service.Wait()

	assert.False(t, env.backend.Tasks()[0].Completed)
	assert.Equal(t, 2, env.backend.Calls(testutil.OpUpdate))
}

func TestHandleToggleTask_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPatch, "/api/v1/tasks/7/toggle", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, msgTaskNotFound, decodeError(t, w))
	assert.Zero(t, env.backend.Calls(testutil.OpUpdate))
}

func TestHandleToggleTask_BackendFailure(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "flip me", false, nil))
	env.backend.Fail(testutil.OpUpdate, http.StatusInternalServerError)

	w := env.do(t, http.MethodPatch, "/api/v1/tasks/1/toggle", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, msgToggleTaskFailed, decodeError(t, w))

	env.service.Wait()
	stored, _ := env.store.Get(1)
	assert.False(t, stored.Completed)
}

func TestHandleDeleteTask(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "doomed", false, nil), seedTask(2, "kept", false, nil))

	w := env.do(t, http.MethodDelete, "/api/v1/tasks/1", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	env.service.Wait()
	_, found := env.store.Get(1)
	assert.False(t, found)
	assert.Len(t, env.backend.Tasks(), 1)
}

func TestHandleDeleteTask_BackendFailure(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "kept", false, nil))
	env.backend.Fail(testutil.OpDelete, http.StatusInternalServerError)

	w := env.do(t, http.MethodDelete, "/api/v1/tasks/1", "")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, msgDeleteTaskFailed, decodeError(t, w))

	env.service.Wait()
	_, found := env.store.Get(1)
	assert.True(t, found)
}

func TestHandleRequestIDMiddleware(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/tasks", "")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get(requestIDHeader))
}

func TestHandleReport(t *testing.T) {
	env := newTestEnv(t,
		seedTask(1, "first", true, nil),
		seedTask(2, "second", false, models.StringPtr("details")),
	)

	w := env.do(t, http.MethodGet, "/api/v1/report.pdf", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "task-manager-report.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

// readEvent reads one server-sent event and returns its name and data.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()

	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		case line == "" && data != "":
			return event, data
		}
	}
}

func TestHandleEvents(t *testing.T) {
	env := newTestEnv(t, seedTask(1, "first", false, nil), seedTask(2, "second", false, nil))
	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/events", nil)
	require.NoError(t, err)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream"))

	reader := bufio.NewReader(resp.Body)
	event, data := readEvent(t, reader)
	assert.Equal(t, tasksEvent, event)
	var tasks []getTaskResponse
	require.NoError(t, json.Unmarshal([]byte(data), &tasks))
	assert.Len(t, tasks, 2)

	require.NoError(t, env.service.DeleteTask(ctx, 1))

	for {
		event, data = readEvent(t, reader)
		require.Equal(t, tasksEvent, event)
		require.NoError(t, json.Unmarshal([]byte(data), &tasks))
		if len(tasks) == 1 {
			break
		}
	}
	assert.Equal(t, int64(2), tasks[0].ID)
}
