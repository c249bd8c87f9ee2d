package app

import (
	"context"

	"github.com/adanyl0v/go-todo-client/internal/api"
	"github.com/adanyl0v/go-todo-client/internal/services"
	"github.com/adanyl0v/go-todo-client/internal/store"
)

// MustInitTaskService wires the backend client, a fresh store and the
// mirror cache together. The cache must be connected first.
func (a *Application) MustInitTaskService() {
	if a.mirror == nil {
		a.logger.Error().
			Err(errCacheNotConnected).
			Msg("failed to init task service")
		panic(errCacheNotConnected)
	}

	cfg := a.config
	client := api.NewClient(a.componentLogger("api"), cfg.API.BaseURL, cfg.API.Timeout)
	a.taskStore = store.New()
	a.taskService = services.NewTaskService(
		a.componentLogger("tasks"),
		client,
		a.taskStore,
		a.mirror,
		services.TaskServiceOptions{
			RefetchTimeout:   cfg.API.RefetchTimeout,
			SerializePerTask: cfg.SerializePerTask,
		},
	)

	a.logger.Info().
		Str("base_url", cfg.API.BaseURL).
		Bool("serialize_per_task", cfg.SerializePerTask).
		Msg("initialized task service")
}

// LoadTasks performs the initial fetch of the task list.
func (a *Application) LoadTasks(ctx context.Context) error {
	err := a.taskService.Refetch(ctx)
	if err != nil {
		return err
	}
	a.logger.Info().
		Int("count", a.taskStore.Len()).
		Msg("loaded tasks")
	return nil
}
