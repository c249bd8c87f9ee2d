package v1

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-client/internal/store"
)

const tasksEvent = "tasks"

// HandleEvents streams the task list as server-sent events: the current
// snapshot first, then one event per store change. Changes that pile
// up while the client is slow are coalesced into the latest snapshot.
func (h *handlerImpl) HandleEvents(c *gin.Context) {
	logger := h.requestLogger(c)

	updates := make(chan store.Snapshot, 1)
	unsubscribe := h.store.Subscribe(func(snapshot store.Snapshot) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snapshot:
		default:
		}
	})
	defer unsubscribe()

	select {
	case updates <- h.store.Snapshot():
	default:
	}

	logger.Debug().Msg("subscribed to task events")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snapshot := <-updates:
			c.SSEvent(tasksEvent, newGetTasksResponse(snapshot))
			return true
		}
	})

	logger.Debug().Msg("unsubscribed from task events")
}
