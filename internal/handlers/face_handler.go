package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-assistant-service/internal/services"
	"github.com/SAP-F-2025/study-assistant-service/internal/utils"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

type FaceHandler struct {
	BaseHandler
	faceService services.FaceService
}

func NewFaceHandler(faceService services.FaceService, logger utils.Logger) *FaceHandler {
	return &FaceHandler{
		BaseHandler: NewBaseHandler(logger),
		faceService: faceService,
	}
}

// Enroll stores or replaces the user's face descriptor
// @Summary Enroll face
// @Tags face
// @Accept json
// @Produce json
// @Param request body validator.FaceEmbeddingRequest true "Face descriptor"
// @Success 200 {object} services.FaceStatusResponse
// @Failure 400 {object} ErrorResponse "Invalid descriptor"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /face [put]
func (h *FaceHandler) Enroll(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.FaceEmbeddingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Enrolling face")

	status, err := h.faceService.Enroll(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to enroll face")
		return
	}

	c.JSON(http.StatusOK, status)
}

// Status reports whether the user has an enrolled face
// @Summary Face enrollment status
// @Tags face
// @Produce json
// @Success 200 {object} services.FaceStatusResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /face [get]
func (h *FaceHandler) Status(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	status, err := h.faceService.Status(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get face status")
		return
	}

	c.JSON(http.StatusOK, status)
}

// Remove deletes the user's face descriptor
// @Summary Remove face
// @Tags face
// @Success 204
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "No face enrolled"
// @Router /face [delete]
func (h *FaceHandler) Remove(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Removing face")

	if err := h.faceService.Remove(c.Request.Context(), userID); err != nil {
		h.handleServiceError(c, err, "Failed to remove face")
		return
	}

	c.Status(http.StatusNoContent)
}

// Verify compares a fresh descriptor with the enrolled one
// @Summary Verify face
// @Description Step-up check of the signed-in user's face
// @Tags face
// @Accept json
// @Produce json
// @Param request body validator.FaceEmbeddingRequest true "Face descriptor"
// @Success 200 {object} facematch.Result
// @Failure 400 {object} ErrorResponse "Invalid descriptor"
// @Failure 404 {object} ErrorResponse "No face enrolled"
// @Router /face/verify [post]
func (h *FaceHandler) Verify(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.FaceEmbeddingRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.faceService.Verify(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to verify face")
		return
	}

	c.JSON(http.StatusOK, result)
}
