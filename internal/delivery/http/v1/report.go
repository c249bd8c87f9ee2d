package v1

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-client/internal/report"
)

func (h *handlerImpl) HandleReport(c *gin.Context) {
	logger := h.requestLogger(c)
	tasks := h.store.Tasks()

	var buf bytes.Buffer
	err := report.Write(&buf, tasks, time.Now())
	if err != nil {
		logger.Error().
			Err(err).
			Msg("failed to render report")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	logger.Info().
		Int("count", len(tasks)).
		Int("size", buf.Len()).
		Msg("rendered report")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
