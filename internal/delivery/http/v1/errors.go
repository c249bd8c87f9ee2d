package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	msgCreateTaskFailed = "Failed to create task. Please try again."
	msgUpdateTaskFailed = "Failed to update task."
	msgToggleTaskFailed = "Failed to update task status"
	msgDeleteTaskFailed = "Failed to delete task."
	msgTaskNotFound     = "Task not found"
)

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errInvalidTaskID      = errors.New("invalid task id")
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

// newBadGatewayError reports a failure of the task backend behind us.
func newBadGatewayError(message string) apiError {
	return newAPIError(http.StatusBadGateway, message)
}
