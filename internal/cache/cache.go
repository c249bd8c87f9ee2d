// Package cache keeps a mirror of the last task list served by the
// backend. It is only used to take and restore rollback snapshots.
package cache

import (
	"context"
	"errors"
	"slices"
	"sync/atomic"

	"github.com/adanyl0v/go-todo-client/internal/models"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

var ErrUnknownDriver = errors.New("unknown cache driver")

type Mirror interface {
	// Get returns a copy of the mirrored list, empty when nothing
	// has been cached yet.
	Get(ctx context.Context) ([]models.Task, error)
	Set(ctx context.Context, tasks []models.Task) error
	Invalidate(ctx context.Context) error
	Stats() StatsSnapshot
}

type stats struct {
	gets    atomic.Uint64
	sets    atomic.Uint64
	deletes atomic.Uint64
	errors  atomic.Uint64
}

type StatsSnapshot struct {
	Gets    uint64 `json:"gets"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
}

func (s *stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Gets:    s.gets.Load(),
		Sets:    s.sets.Load(),
		Deletes: s.deletes.Load(),
		Errors:  s.errors.Load(),
	}
}

// Append returns a new list with task added at the end.
func Append(tasks []models.Task, task models.Task) []models.Task {
	out := make([]models.Task, 0, len(tasks)+1)
	out = append(out, tasks...)
	return append(out, task)
}

// Replace returns a new list where the task with the same id is
// swapped for task.
func Replace(tasks []models.Task, task models.Task) []models.Task {
	out := slices.Clone(tasks)
	for i := range out {
		if out[i].ID == task.ID {
			out[i] = task
		}
	}
	return out
}

// Remove returns a new list without the task with the given id.
func Remove(tasks []models.Task, id int64) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.ID != id {
			out = append(out, task)
		}
	}
	return out
}

// Find returns the task with the given id.
func Find(tasks []models.Task, id int64) (models.Task, bool) {
	for _, task := range tasks {
		if task.ID == id {
			return task, true
		}
	}
	return models.Task{}, false
}

func cloneTasks(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, task := range tasks {
		out[i] = task.Clone()
	}
	return out
}
