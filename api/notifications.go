package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
	"github.com/Domenick1991/tripmates/internal/notify"
	"github.com/gin-gonic/gin"
)

const (
	streamBuffer      = 64
	heartbeatInterval = 25 * time.Second
)

type Subscriber interface {
	Subscribe(userID string, handler notify.Handler) func()
}

// NotificationHandler streams a user's connection events as server-sent events.
type NotificationHandler struct {
	bus       Subscriber
	heartbeat time.Duration
}

func NewNotificationHandler(bus Subscriber) *NotificationHandler {
	return &NotificationHandler{bus: bus, heartbeat: heartbeatInterval}
}

func (h *NotificationHandler) Register(router *gin.RouterGroup) {
	router.GET("/stream", h.stream)
}

func (h *NotificationHandler) stream(c *gin.Context) {
	user := userID(c)
	ctx := c.Request.Context()

	events := make(chan domain.NotificationEvent, streamBuffer)
	unsubscribe := h.bus.Subscribe(user, func(_ context.Context, event domain.NotificationEvent) error {
		select {
		case events <- event:
		case <-ctx.Done():
		default:
			log.Printf("WARNING: notification stream for %s is full, dropping %s", user, event.ConnectionID)
		}
		return nil
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			c.SSEvent("connection", toNotificationResponse(event))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			c.Writer.Flush()
		}
	}
}
