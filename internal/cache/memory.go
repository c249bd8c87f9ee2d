package cache

import (
	"context"
	"sync"

	"github.com/adanyl0v/go-todo-client/internal/models"
)

type MemoryMirror struct {
	mu    sync.RWMutex
	tasks []models.Task
	stats stats
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

func (m *MemoryMirror) Get(_ context.Context) ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.stats.gets.Add(1)
	return cloneTasks(m.tasks), nil
}

func (m *MemoryMirror) Set(_ context.Context, tasks []models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.sets.Add(1)
	m.tasks = cloneTasks(tasks)
	return nil
}

func (m *MemoryMirror) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.deletes.Add(1)
	m.tasks = nil
	return nil
}

func (m *MemoryMirror) Stats() StatsSnapshot {
	return m.stats.snapshot()
}
