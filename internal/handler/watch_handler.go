package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vigilexam/vigil-backend/internal/repository"
	"github.com/vigilexam/vigil-backend/internal/service"
	ws "github.com/vigilexam/vigil-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WatchHandler streams an attempt's live events to admin watchers.
type WatchHandler struct {
	queue          *repository.EventQueue
	attemptService *service.AttemptService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWatchHandler creates a new WatchHandler.
func NewWatchHandler(queue *repository.EventQueue, attemptService *service.AttemptService, log zerolog.Logger, allowedOrigins []string) *WatchHandler {
	return &WatchHandler{
		queue:          queue,
		attemptService: attemptService,
		log:            log.With().Str("component", "watch_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// WatchAttempt godoc
// WS /api/v1/admin/attempt/:attempt_id/watch
// Upgrades to WebSocket and forwards the attempt's event channel.
func (h *WatchHandler) WatchAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("attempt_id", attemptID.String()).Logger()
	wsLog.Info().Msg("Watcher connected")

	// Initial snapshot so the watcher knows the current state before the
	// live stream begins.
	if err := ws.WriteTyped(conn, ws.AttemptFrame{Event: ws.EventAttempt, Attempt: attempt}); err != nil {
		return
	}

	sub := h.queue.Subscribe(c.Request.Context(), attemptID)
	defer sub.Close()

	// Read pump: detects client close and answers pings. Closing the
	// connection unblocks the write loop below via the subscription.
	go func() {
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				sub.Close()
				return
			}
			if msg.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	for msg := range sub.Channel() {
		var payload json.RawMessage = []byte(msg.Payload)
		if err := ws.WriteTyped(conn, ws.ProctorFrame{Event: ws.EventProctor, Payload: payload}); err != nil {
			wsLog.Debug().Msg("Watcher disconnected")
			return
		}
	}
}
