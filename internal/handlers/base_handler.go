package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-assistant-service/internal/services"
	"github.com/SAP-F-2025/study-assistant-service/internal/utils"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// BaseHandler carries the logger shared by every handler
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	h.requestLogger(c).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	h.requestLogger(c).Error(msg, append(args, "error", err)...)
}

func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	logger := utils.GetLogger(c, h.logger)
	if userID, ok := c.Get(contextUserID); ok {
		logger = logger.With("user_id", userID)
	}
	return logger
}

// currentUserID writes a 401 and returns false when the request has no session
func (h *BaseHandler) currentUserID(c *gin.Context) (string, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

// bindJSON writes a 400 and returns false on malformed bodies
func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// handleServiceError maps service errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error, msg string) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrFaceNotRecognized),
		errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: unauthorizedMessage(err)})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied"})
	case errors.Is(err, services.ErrNoteNotFound),
		errors.Is(err, services.ErrVersionNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrFaceNotEnrolled):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: notFoundMessage(err)})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: err.Error()})
	case errors.Is(err, services.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Message: "Too many attempts, try again later"})
	case errors.Is(err, services.ErrUpstream):
		h.LogError(c, err, msg)
		c.JSON(http.StatusBadGateway, ErrorResponse{Message: msg})
	default:
		h.LogError(c, err, msg)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: msg})
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, services.ErrFaceNotRecognized):
		return "Face not recognized"
	default:
		return "User not authenticated"
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNoteNotFound):
		return "Note not found"
	case errors.Is(err, services.ErrVersionNotFound):
		return "Note version not found"
	case errors.Is(err, services.ErrFaceNotEnrolled):
		return "No face enrolled"
	default:
		return "User not found"
	}
}

// queryInt returns def when the parameter is absent or not a number
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return def
	}
	return value
}

func queryBool(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}
