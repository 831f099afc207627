package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/vigilexam/vigil-backend/internal/config"
	"github.com/vigilexam/vigil-backend/internal/handler"
	"github.com/vigilexam/vigil-backend/internal/middleware"
	"github.com/vigilexam/vigil-backend/internal/response"
	"github.com/vigilexam/vigil-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt *handler.AttemptHandler
	Event   *handler.EventHandler
	Answer  *handler.AnswerHandler
	Admin   *handler.AdminHandler
	Watch   *handler.WatchHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	attemptService *service.AttemptService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// ─── 1. Attempt Group (Public) ─────────────────────────────────────
	// Start, resume and submit are unauthenticated: the attempt token is
	// what start/resume hand out, so it cannot gate them. Event ingestion
	// stays open for the sendBeacon teardown path; the lifecycle gate
	// bounds what any of these can do.
	attemptAPI := router.Group("/api/v1/attempt")
	{
		attemptAPI.POST("/start", handlers.Attempt.Start)
		attemptAPI.GET("/status/:user_id", handlers.Attempt.StatusByUser)
		attemptAPI.POST("/submit/:attempt_id", handlers.Attempt.Submit)
		attemptAPI.POST("/:attempt_id/event", handlers.Event.LogEvents)
		attemptAPI.GET("/:attempt_id/events", handlers.Event.AuditEvents)
		attemptAPI.GET("/:attempt_id", handlers.Attempt.Get)
	}

	// ─── 2. Attempt Group (Attempt Token) ──────────────────────────────
	attemptAuthAPI := router.Group("/api/v1/attempt")
	attemptAuthAPI.Use(middleware.RequireAttemptToken(authService, attemptService))
	{
		attemptAuthAPI.POST("/:attempt_id/answers", handlers.Answer.SaveAnswers)
		attemptAuthAPI.GET("/:attempt_id/answers", handlers.Answer.GetAnswers)
	}

	// Question set is static content; cache it client-side for a minute.
	router.GET("/api/v1/attempt/questions",
		middleware.RequireAttemptToken(authService, attemptService),
		middleware.CacheControl(60),
		handlers.Attempt.Questions,
	)

	// Rate limiter for admin login (10 requests per minute per IP).
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	// ─── 3. Admin Group ────────────────────────────────────────────────
	router.POST("/api/v1/admin/login", loginLimiter.Middleware(), handlers.Admin.Login)

	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/attempts", handlers.Admin.ListAttempts)
		adminAPI.GET("/attempt/:attempt_id/answers", handlers.Admin.DumpAnswers)
		adminAPI.GET("/attempt/:attempt_id/watch", handlers.Watch.WatchAttempt)
		adminAPI.POST("/tests", handlers.Admin.CreateTest)
	}

	return router
}
