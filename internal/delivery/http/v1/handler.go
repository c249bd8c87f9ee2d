package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo-client/internal/services"
	"github.com/adanyl0v/go-todo-client/internal/store"
)

type Handler interface {
	HandleRequestIDMiddleware(c *gin.Context)

	HandleGetTasks(c *gin.Context)
	HandleCreateTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleToggleTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)

	HandleEvents(c *gin.Context)
	HandleReport(c *gin.Context)
}

type handlerImpl struct {
	logger zerolog.Logger
	tasks  services.TaskService
	store  *store.Store
}

func New(
	logger zerolog.Logger,
	taskService services.TaskService,
	taskStore *store.Store,
) Handler {
	return &handlerImpl{
		logger: logger,
		tasks:  taskService,
		store:  taskStore,
	}
}

// RegisterRoutes mounts the handler under /api/v1.
func RegisterRoutes(router gin.IRouter, h Handler) {
	router = router.Group("/api/v1", h.HandleRequestIDMiddleware)

	tasksRouter := router.Group("/tasks")
	tasksRouter.GET("", h.HandleGetTasks)
	tasksRouter.POST("", h.HandleCreateTask)
	tasksRouter.PUT("/:id", h.HandleUpdateTask)
	tasksRouter.PATCH("/:id/toggle", h.HandleToggleTask)
	tasksRouter.DELETE("/:id", h.HandleDeleteTask)

	router.GET("/events", h.HandleEvents)
	router.GET("/report.pdf", h.HandleReport)
}
