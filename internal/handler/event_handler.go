package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vigilexam/vigil-backend/internal/model"
	"github.com/vigilexam/vigil-backend/internal/response"
	"github.com/vigilexam/vigil-backend/internal/service"
	"github.com/vigilexam/vigil-backend/internal/validator"
)

// EventHandler handles event ingestion and audit reads.
type EventHandler struct {
	eventService *service.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// LogEvents godoc
// POST /api/v1/attempt/:attempt_id/event
// Accepts a batch of client events. Unauthenticated on purpose: teardown
// events arrive via sendBeacon, which cannot set headers. The lifecycle
// gate still bounds what lands in the ledger.
func (h *EventHandler) LogEvents(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.LogEventsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	count, err := h.eventService.Log(c.Request.Context(), attemptID, &req)
	if err != nil {
		var conflict *service.StateConflictError
		switch {
		case errors.As(err, &conflict):
			failStateConflict(c, conflict)
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrUnknownEventType):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"count": count})
}

// AuditEvents godoc
// GET /api/v1/attempt/:attempt_id/events
// Full persisted event history in server-recorded order.
func (h *EventHandler) AuditEvents(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, events, err := h.eventService.Audit(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if events == nil {
		events = []model.Event{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt": attempt,
		"events":  events,
	})
}
