// Package api is the REST client of the task backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo-client/internal/models"
)

const (
	requestIDHeader = "X-Request-ID"
	tasksPath       = "/tasks/"

	// Error bodies larger than this are truncated before parsing.
	maxErrorBodySize = 64 << 10
)

var ErrInvalidResponse = errors.New("invalid response body")

type Client interface {
	// ListTasks fetches the full task list.
	ListTasks(ctx context.Context) ([]models.Task, error)

	// CreateTask returns the created task with its server-assigned id.
	CreateTask(ctx context.Context, params models.CreateTaskParams) (*models.Task, error)

	// UpdateTask sends only the fields set in params.
	UpdateTask(ctx context.Context, params models.UpdateTaskParams) (*models.Task, error)

	DeleteTask(ctx context.Context, taskID int64) error
}

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

type clientImpl struct {
	logger  zerolog.Logger
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func NewClient(
	logger zerolog.Logger,
	baseURL string,
	timeout time.Duration,
) Client {
	return &clientImpl{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
	}
}

func (c *clientImpl) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := c.do(ctx, http.MethodGet, tasksPath, nil, &tasks)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (c *clientImpl) CreateTask(ctx context.Context, params models.CreateTaskParams) (*models.Task, error) {
	task := new(models.Task)
	err := c.do(ctx, http.MethodPost, tasksPath, params, task)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (c *clientImpl) UpdateTask(ctx context.Context, params models.UpdateTaskParams) (*models.Task, error) {
	task := new(models.Task)
	err := c.do(ctx, http.MethodPut, taskPath(params.ID), params, task)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (c *clientImpl) DeleteTask(ctx context.Context, taskID int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(taskID), nil, nil)
}

func taskPath(taskID int64) string {
	return tasksPath + strconv.FormatInt(taskID, 10)
}

func (c *clientImpl) do(ctx context.Context, method, path string, in, out any) error {
	requestID := uuid.NewString()
	logger := c.logger.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Logger()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			logger.Error().
				Err(err).
				Msg("failed to marshal request body")
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to create request")
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to send request")
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("received response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := newStatusError(resp)
		logger.Error().
			Err(statusErr).
			Msg("request rejected")
		return statusErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to decode response body")
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

func newStatusError(resp *http.Response) *StatusError {
	statusErr := &StatusError{
		Code:    resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(data) == 0 {
		return statusErr
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	err = json.Unmarshal(data, &payload)
	if err != nil || len(payload.Detail) == 0 {
		statusErr.Message = strings.TrimSpace(string(data))
		return statusErr
	}

	var detail string
	if json.Unmarshal(payload.Detail, &detail) == nil {
		statusErr.Message = detail
	} else {
		statusErr.Message = string(payload.Detail)
	}
	return statusErr
}
