package http

import (
	"net/http"
	"time"

	"streamledger/internal/core/domain"
	"streamledger/internal/infrastructure/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventsHandler streams the notification feed over a websocket. Each
// connected client gets its own buffered subscription; slow clients miss
// events rather than stalling the ledger.
type EventsHandler struct {
	log      *events.Log
	buffer   int
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
}

func NewEventsHandler(log *events.Log, buffer int, logger *zap.SugaredLogger) *EventsHandler {
	return &EventsHandler{
		log:    log,
		buffer: buffer,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *EventsHandler) SetupRoutes(api *gin.RouterGroup) {
	eventsGroup := api.Group("/events")
	{
		eventsGroup.GET("", h.ListEvents)
		eventsGroup.GET("/ws", h.StreamEvents)
	}
}

// ListEvents returns the recorded log, optionally filtered by stream id.
func (h *EventsHandler) ListEvents(c *gin.Context) {
	streamID := domain.StreamID(c.Query("stream_id"))
	entries := h.log.Events(streamID)
	c.JSON(http.StatusOK, gin.H{
		"events": entries,
		"count":  len(entries),
	})
}

// StreamEvents upgrades to a websocket and forwards future events as JSON.
func (h *EventsHandler) StreamEvents(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	feed, cancel := h.log.Subscribe(h.buffer)
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Reader goroutine only services control frames and detects close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debugw("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
