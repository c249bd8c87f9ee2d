// Package app wires the client together. An Application owns every
// long-lived component and is torn down with Shutdown.
package app

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo-client/internal/cache"
	"github.com/adanyl0v/go-todo-client/internal/config"
	"github.com/adanyl0v/go-todo-client/internal/services"
	"github.com/adanyl0v/go-todo-client/internal/store"
)

var errCacheNotConnected = errors.New("cache is not connected")

type Application struct {
	logger zerolog.Logger
	config *config.Config

	mirror      cache.Mirror
	redisMirror *cache.RedisMirror

	taskStore   *store.Store
	taskService services.TaskService
}

// New returns an Application logging with the default logger.
func New() *Application {
	a := new(Application)
	a.InitDefaultLogger()
	return a
}

func (a *Application) Logger() zerolog.Logger {
	return a.logger
}

func (a *Application) TaskStore() *store.Store {
	return a.taskStore
}

// Shutdown closes the task service and then the cache, in that order.
// Components that were never started are skipped.
func (a *Application) Shutdown() {
	if a.taskService != nil {
		a.taskService.Close()
		a.taskService = nil
	}
	if a.mirror != nil {
		a.disconnectCache()
		a.mirror = nil
		a.redisMirror = nil
	}
	a.logger.Debug().Msg("shut down application")
}
