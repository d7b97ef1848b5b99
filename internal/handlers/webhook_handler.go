package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-assistant-service/internal/services"
	"github.com/SAP-F-2025/study-assistant-service/internal/utils"
	"github.com/SAP-F-2025/study-assistant-service/internal/webhooks"
)

// maxWebhookBody bounds the payload read before the signature is checked
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	BaseHandler
	verifier    *webhooks.Verifier
	userService services.UserService
}

func NewWebhookHandler(verifier *webhooks.Verifier, userService services.UserService, logger utils.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: NewBaseHandler(logger),
		verifier:    verifier,
		userService: userService,
	}
}

// IdentityEvent accepts user lifecycle events from the identity provider.
// Verified events are queued and applied by the identity consumer.
// @Summary Identity provider webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Param svix-id header string true "Message ID"
// @Param svix-timestamp header string true "Send time (unix seconds)"
// @Param svix-signature header string true "Signatures"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Bad signature or payload"
// @Failure 500 {object} ErrorResponse "Event could not be queued"
// @Router /webhooks/identity [post]
func (h *WebhookHandler) IdentityEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Failed to read request body"})
		return
	}

	if h.verifier == nil {
		h.LogError(c, webhooks.ErrInvalidSecret, "Webhook received but no secret is configured")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Webhooks are not configured"})
		return
	}

	if err := h.verifier.Verify(c.Request.Header, body); err != nil {
		utils.GetLogger(c, h.logger).Warn("Rejected webhook", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid webhook signature",
			Details: err.Error(),
		})
		return
	}

	event, err := webhooks.ParseIdentityEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid webhook payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Identity event received",
		"type", event.Type,
		"external_id", event.Data.ID,
		"message_id", c.GetHeader(webhooks.HeaderID),
	)

	if err := h.userService.EnqueueIdentityEvent(c.Request.Context(), event); err != nil {
		h.LogError(c, err, "Failed to queue identity event", "type", event.Type)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to process webhook"})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Webhook processed"})
}

// CasdoorEvent accepts Casdoor webhook records. Records are not signed, so
// they are only used to name the user to reconcile against Casdoor.
// @Summary Casdoor webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse "Malformed record"
// @Failure 500 {object} ErrorResponse "Event could not be queued"
// @Router /webhooks/casdoor [post]
func (h *WebhookHandler) CasdoorEvent(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Failed to read request body"})
		return
	}

	event, err := webhooks.ParseCasdoorRecord(body)
	if err != nil {
		if errors.Is(err, webhooks.ErrIgnoredAction) {
			c.JSON(http.StatusOK, SuccessResponse{Message: "Webhook ignored"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid webhook payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Casdoor event received", "type", event.Type, "external_id", event.Data.ID)

	if err := h.userService.EnqueueIdentityEvent(c.Request.Context(), event); err != nil {
		h.LogError(c, err, "Failed to queue identity event", "type", event.Type)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Failed to process webhook"})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Webhook processed"})
}
