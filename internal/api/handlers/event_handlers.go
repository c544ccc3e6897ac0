package handlers

import (
	"context"
	"net/http"
	"time"

	"facewatch-go/internal/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	clientBuffer      = 16
	keepAliveInterval = 15 * time.Second
	unregisterTimeout = time.Second
)

// EventHandler streams sightings to browsers as server-sent events
type EventHandler struct {
	hub       *sse.Hub
	keepAlive time.Duration
}

// NewEventHandler creates a handler streaming from hub
func NewEventHandler(hub *sse.Hub) *EventHandler {
	return &EventHandler{hub: hub, keepAlive: keepAliveInterval}
}

// RegisterRoutes registers GET /events on router
func (h *EventHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/events", h.Stream)
}

// Stream holds the connection open and forwards every hub message as a
// "sighting" event until the client disconnects or the hub shuts down.
func (h *EventHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	client := make(sse.Client, clientBuffer)

	if !h.hub.Register(ctx, client) {
		return
	}
	defer func() {
		unregCtx, cancel := context.WithTimeout(context.Background(), unregisterTimeout)
		defer cancel()
		h.hub.Unregister(unregCtx, client)
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("connected", gin.H{"status": "ok"})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("SSE client disconnected")
			return
		case msg, ok := <-client:
			if !ok {
				return
			}
			c.SSEvent("sighting", string(msg))
			c.Writer.Flush()
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}
