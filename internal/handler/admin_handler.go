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

// AdminHandler handles admin authentication and review endpoints.
type AdminHandler struct {
	adminService   *service.AdminService
	authService    *service.AuthService
	attemptService *service.AttemptService
	answerService  *service.AnswerService
	eventService   *service.EventService
	testService    *service.TestService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	adminService *service.AdminService,
	authService *service.AuthService,
	attemptService *service.AttemptService,
	answerService *service.AnswerService,
	eventService *service.EventService,
	testService *service.TestService,
) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		authService:    authService,
		attemptService: attemptService,
		answerService:  answerService,
		eventService:   eventService,
		testService:    testService,
	}
}

// Login godoc
// POST /api/v1/admin/login
// Authenticates an admin with email and password.
func (h *AdminHandler) Login(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, err := h.adminService.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if err := h.authService.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.IssueAdminToken(admin)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"admin": admin,
	})
}

// ListAttempts godoc
// GET /api/v1/admin/attempts
// All attempts, newest first, with the violation tally overlaid.
func (h *AdminHandler) ListAttempts(c *gin.Context) {
	attempts, err := h.attemptService.ListAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	type attemptRow struct {
		model.Attempt
		Violations int64 `json:"violations"`
	}

	rows := make([]attemptRow, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, attemptRow{
			Attempt:    a,
			Violations: h.eventService.ViolationTally(c.Request.Context(), a.AttemptID),
		})
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": rows})
}

// DumpAnswers godoc
// GET /api/v1/admin/attempt/:attempt_id/answers
// Full answer dump for review, including not-yet-persisted cache values.
func (h *AdminHandler) DumpAnswers(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	answers, err := h.answerService.Dump(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if answers == nil {
		answers = []model.Answer{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt_id": attemptID,
		"answers":    answers,
	})
}

// CreateTest godoc
// POST /api/v1/admin/tests
// Creates a test configuration. Titles are unique.
func (h *AdminHandler) CreateTest(c *gin.Context) {
	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	test, err := h.testService.CreateTest(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateTestTitle) {
			response.Fail(c, http.StatusConflict, response.ErrDuplicateTestTitle)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}
