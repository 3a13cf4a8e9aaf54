package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/arunika/interview/domain"
	"github.com/satriahrh/arunika/interview/domain/entities"
	"github.com/satriahrh/arunika/interview/internal/auth"
	"github.com/satriahrh/arunika/interview/internal/websocket"
	"github.com/satriahrh/arunika/interview/usecase"
)

// Dependencies are the services exposed over HTTP. A nil Auth treats every
// request as anonymous and disables token issuing.
type Dependencies struct {
	Hub     *websocket.Hub
	Topics  *usecase.TopicService
	Reports *usecase.ReportService
	Auth    *auth.Authenticator
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "arunika-interview",
			"busy":    deps.Hub != nil && deps.Hub.Busy(),
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/auth/token", func(c echo.Context) error {
		return issueToken(c, deps.Auth, logger)
	})

	v1.GET("/topics", func(c echo.Context) error {
		return listTopics(c, deps.Topics)
	})

	v1.GET("/reports/:id", func(c echo.Context) error {
		return getReport(c, deps, logger, false)
	})
	v1.GET("/reports/:id/meta", func(c echo.Context) error {
		return getReport(c, deps, logger, true)
	})

	// WebSocket endpoint with optional JWT
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(deps.Hub, deps.Auth, c, logger)
	})
}

// CandidateUserID derives a stable user id from an email address so the same
// candidate keeps their reports across tokens
func CandidateUserID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(strings.TrimSpace(email)))).String()
}

func issueToken(c echo.Context, authenticator *auth.Authenticator, logger *zap.Logger) error {
	if authenticator == nil {
		return c.JSON(http.StatusNotImplemented, ErrorResponse{
			Error:   "auth_disabled",
			Message: "Token issuing is not configured",
		})
	}

	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind token request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	candidate := entities.Candidate{Name: req.Name, Email: req.Email}
	if err := candidate.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_candidate",
			Message: err.Error(),
		})
	}

	userID := CandidateUserID(req.Email)
	token, err := authenticator.GenerateUserToken(userID, req.Email)
	if err != nil {
		logger.Error("Failed to generate user token",
			zap.String("user_id", userID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	logger.Info("Candidate authenticated", zap.String("user_id", userID))

	return c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(auth.DefaultTokenTTL),
		UserID:    userID,
	})
}

func listTopics(c echo.Context, topics *usecase.TopicService) error {
	listed := topics.ListTopics(c.Request().Context())
	response := TopicsResponse{Topics: make([]TopicSummary, 0, len(listed))}
	for _, topic := range listed {
		response.Topics = append(response.Topics, TopicSummary{
			ID:            topic.ID,
			Topic:         topic.Topic,
			Category:      topic.Category,
			QuestionCount: len(topic.Questions),
			Selectable:    topic.Selectable(),
		})
	}
	return c.JSON(http.StatusOK, response)
}

func getReport(c echo.Context, deps Dependencies, logger *zap.Logger, metaOnly bool) error {
	id := c.Param("id")
	report, err := deps.Reports.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Report not found",
			})
		}
		logger.Error("Failed to load report", zap.String("report_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load report",
		})
	}

	// Reports owned by a user are only visible to that user
	if report.UserID != "" && report.UserID != entities.AnonymousUserID {
		userID := requestUser(deps.Auth, c, logger)
		if userID != report.UserID {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Report not found",
			})
		}
	}

	if metaOnly {
		return c.JSON(http.StatusOK, report)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "inline; filename=\"interview-"+report.ID+reportExtension(report.ContentType)+"\"")
	return c.Blob(http.StatusOK, report.ContentType, report.Content)
}

func reportExtension(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "application/pdf"):
		return ".pdf"
	case strings.HasPrefix(contentType, "text/plain"):
		return ".txt"
	default:
		return ""
	}
}

// requestUser resolves the caller. Missing or invalid tokens are anonymous.
func requestUser(authenticator *auth.Authenticator, c echo.Context, logger *zap.Logger) string {
	if authenticator == nil {
		return ""
	}
	userID, err := authenticator.UserFromRequest(c.Request())
	if err != nil {
		logger.Warn("Ignoring invalid token", zap.Error(err))
		return ""
	}
	return userID
}

// websocketWithAuth handles WebSocket connections. A valid JWT attributes the
// interview report to its user; anything else joins anonymously.
func websocketWithAuth(hub *websocket.Hub, authenticator *auth.Authenticator, c echo.Context, logger *zap.Logger) error {
	userID := requestUser(authenticator, c, logger)

	logger.Info("WebSocket connection accepted",
		zap.String("user_id", userID),
		zap.Bool("anonymous", userID == ""))

	return websocket.HandleWebSocket(hub, c, userID, logger)
}
