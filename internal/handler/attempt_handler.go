package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vigilexam/vigil-backend/internal/config"
	"github.com/vigilexam/vigil-backend/internal/model"
	"github.com/vigilexam/vigil-backend/internal/response"
	"github.com/vigilexam/vigil-backend/internal/service"
	"github.com/vigilexam/vigil-backend/internal/validator"
)

// AttemptHandler handles candidate-facing attempt lifecycle endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
	authService    *service.AuthService
	testService    *service.TestService
	cfg            *config.Config
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	attemptService *service.AttemptService,
	authService *service.AuthService,
	testService *service.TestService,
	cfg *config.Config,
) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		authService:    authService,
		testService:    testService,
		cfg:            cfg,
	}
}

// Start godoc
// POST /api/v1/attempt/start
// Creates the user's single attempt and issues the attempt token.
func (h *AttemptHandler) Start(c *gin.Context) {
	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), req.UserID)
	if err != nil {
		var conflict *service.StateConflictError
		switch {
		case errors.As(err, &conflict):
			failStateConflict(c, conflict)
		case errors.Is(err, service.ErrTestNotConfigured):
			response.Fail(c, http.StatusNotFound, response.ErrTestNotConfigured)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	token, err := h.authService.IssueAttemptToken(attempt)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, attemptPayload(attempt, token, h.cfg))
}

// StatusByUser godoc
// GET /api/v1/attempt/status/:user_id
// Resume lookup: reports the user's attempt, re-deriving the token only
// while the attempt is still live.
func (h *AttemptHandler) StatusByUser(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.GetByUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Success(c, http.StatusOK, gin.H{"status": "NOT_FOUND"})
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	token := ""
	if attempt.Status == model.AttemptStatusInProgress {
		token, err = h.authService.IssueAttemptToken(attempt)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
			return
		}
	}

	response.Success(c, http.StatusOK, attemptPayload(attempt, token, h.cfg))
}

// Get godoc
// GET /api/v1/attempt/:attempt_id
// Attempt status detail, expire-on-read applied.
func (h *AttemptHandler) Get(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// Questions godoc
// GET /api/v1/attempt/questions
// Static question set, served to authenticated attempts only.
func (h *AttemptHandler) Questions(c *gin.Context) {
	questions, err := h.testService.Questions(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if questions == nil {
		questions = []model.Question{}
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// Submit godoc
// POST /api/v1/attempt/submit/:attempt_id
// Finalizes the attempt. Expiry wins ties; terminal rejections carry the
// current status so a retrying client can stop.
func (h *AttemptHandler) Submit(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Submit(c.Request.Context(), attemptID)
	if err != nil {
		var conflict *service.StateConflictError
		switch {
		case errors.As(err, &conflict):
			failStateConflict(c, conflict)
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// attemptPayload builds the start/resume response body. Token is omitted
// when empty; the violation threshold and warning lead ride along so the
// client monitor and timer always agree with the server.
func attemptPayload(a *model.Attempt, token string, cfg *config.Config) gin.H {
	payload := gin.H{
		"attempt_id":           a.AttemptID,
		"start_time":           a.StartTime,
		"end_time":             a.EndTime,
		"status":               a.Status,
		"violation_threshold":  cfg.ViolationThreshold,
		"warning_lead_seconds": int(cfg.WarningLeadTime.Seconds()),
	}
	if a.SubmittedAt != nil {
		payload["submitted_at"] = a.SubmittedAt
	}
	if token != "" {
		payload["token"] = token
	}
	return payload
}

// failStateConflict renders a lifecycle rejection: a 400 whose error code
// names the reason and whose data carries the existing attempt's identity
// and current status.
func failStateConflict(c *gin.Context, conflict *service.StateConflictError) {
	code := response.ErrConflict
	switch conflict.Reason {
	case service.ConflictInProgress:
		code = response.ErrAttemptInProgress
	case service.ConflictCompleted:
		code = response.ErrAttemptCompleted
	case service.ConflictSubmitted:
		code = response.ErrAttemptSubmitted
	case service.ConflictExpired:
		code = response.ErrAttemptExpired
	}
	response.FailWithData(c, http.StatusBadRequest, code, gin.H{
		"attempt_id": conflict.AttemptID,
		"status":     conflict.Status,
	})
}
