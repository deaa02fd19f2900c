package transport

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/ds124wfegd/WB_L3/carrent/pkg/queue"

	"github.com/gin-gonic/gin"
)

// QueueInspector is implemented by *queue.RedisQueue.
type QueueInspector interface {
	GetQueueStats(ctx context.Context) (*queue.QueueStats, error)
	DLQ() queue.DLQHandler
}

// AdminHandler exposes the task queue and its dead letters to admins.
type AdminHandler struct {
	queue QueueInspector
}

func NewAdminHandler(q QueueInspector) *AdminHandler {
	return &AdminHandler{queue: q}
}

func (h *AdminHandler) QueueStats(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	stats, err := h.queue.GetQueueStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	dlq, err := h.queue.DLQ().GetDLQStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"queue": stats, "dlq": dlq})
}

func (h *AdminHandler) FailedTasks(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		respondError(c, entity.Validation("limit must be a positive integer"))
		return
	}

	tasks, err := h.queue.DLQ().GetFailedTasks(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tasks)
}

func (h *AdminHandler) RequeueTask(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	taskID := c.Param("id")
	if err := h.queue.DLQ().RequeueFailedTask(c.Request.Context(), taskID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requeued": taskID})
}

func (h *AdminHandler) authorize(c *gin.Context) bool {
	actor, ok := currentActor(c)
	if !ok {
		return false
	}
	if !actor.IsAdmin() {
		respondError(c, entity.Forbidden("admin role required"))
		return false
	}
	return true
}
