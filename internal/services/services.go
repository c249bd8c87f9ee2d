package services

import (
	"context"
	"errors"
	"time"

	"github.com/adanyl0v/go-todo-client/internal/models"
)

var (
	ErrCreateTaskFailed = errors.New("failed to create task")
	ErrUpdateTaskFailed = errors.New("failed to update task")
	ErrDeleteTaskFailed = errors.New("failed to delete task")
	ErrRefetchFailed    = errors.New("failed to refetch tasks")
	ErrTaskNotFound     = errors.New("task not found")
	ErrServiceClosed    = errors.New("task service closed")
)

type TaskService interface {
	// Refetch loads the task list from the backend and reconciles the
	// mirror cache and the store with it. It blocks until done.
	//
	// It returns ErrRefetchFailed if the list could not be fetched,
	// the store keeps its last state in that case.
	Refetch(ctx context.Context) error

	// CreateTask inserts a placeholder task marked as in flight, then
	// replaces it with the server's task or removes it on failure.
	// A refetch is scheduled on every exit path.
	//
	// It returns ErrCreateTaskFailed on any failure.
	CreateTask(ctx context.Context, params models.CreateTaskParams) (*models.Task, error)

	// UpdateTask applies the provided fields to the stored task before
	// the remote call and overwrites them with the server's task once
	// it succeeds. On failure the mirror cache is restored and the
	// scheduled refetch converges the store.
	//
	// It returns ErrUpdateTaskFailed on any failure.
	UpdateTask(ctx context.Context, params models.UpdateTaskParams) (*models.Task, error)

	// DeleteTask removes the task from the store before the remote call.
	//
	// It returns ErrDeleteTaskFailed on any failure.
	DeleteTask(ctx context.Context, taskID int64) error

	// StartCreateTask applies the optimistic part of CreateTask before
	// returning and settles the rest in the background.
	StartCreateTask(ctx context.Context, params models.CreateTaskParams) *Mutation
	StartUpdateTask(ctx context.Context, params models.UpdateTaskParams) *Mutation
	StartDeleteTask(ctx context.Context, taskID int64) *Mutation

	// Wait blocks until every started operation has settled and every
	// scheduled refetch has finished.
	Wait()

	// Close rejects new operations and waits for the running ones.
	Close()
}

type TaskServiceOptions struct {
	// RefetchTimeout bounds each background refetch.
	RefetchTimeout time.Duration

	// SerializePerTask makes updates and deletes of the same task wait
	// for each other instead of interleaving.
	SerializePerTask bool
}

func DefaultTaskServiceOptions() TaskServiceOptions {
	return TaskServiceOptions{
		RefetchTimeout: 10 * time.Second,
	}
}
