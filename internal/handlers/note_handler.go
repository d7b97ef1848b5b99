package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/services"
	"github.com/SAP-F-2025/study-assistant-service/internal/utils"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

type NoteHandler struct {
	BaseHandler
	noteService services.NoteService
}

func NewNoteHandler(noteService services.NoteService, logger utils.Logger) *NoteHandler {
	return &NoteHandler{
		BaseHandler: NewBaseHandler(logger),
		noteService: noteService,
	}
}

// ListNotes lists the user's notes
// @Summary List notes
// @Tags notes
// @Produce json
// @Param pinned query bool false "Only pinned notes"
// @Param starred query bool false "Only starred notes"
// @Param tag query string false "Only notes with this tag"
// @Param q query string false "Search title and content"
// @Param limit query int false "Page size (default: 20, max: 100)"
// @Param offset query int false "Items to skip"
// @Param sort_by query string false "updated_at, created_at or title"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} services.NoteListResponse
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /notes [get]
func (h *NoteHandler) ListNotes(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	notes, err := h.noteService.List(c.Request.Context(), userID, h.parseNoteFilters(c))
	if err != nil {
		h.handleServiceError(c, err, "Failed to list notes")
		return
	}

	c.JSON(http.StatusOK, notes)
}

// CreateNote creates a note
// @Summary Create note
// @Description Missing title defaults to "Untitled Note"
// @Tags notes
// @Accept json
// @Produce json
// @Param request body validator.CreateNoteRequest true "Note"
// @Success 201 {object} models.Note
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Router /notes [post]
func (h *NoteHandler) CreateNote(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.CreateNoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	note, err := h.noteService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to create note")
		return
	}

	c.JSON(http.StatusCreated, note)
}

// GetNote returns one note
// @Summary Get note
// @Tags notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} models.Note
// @Failure 404 {object} ErrorResponse "Note not found"
// @Router /notes/{id} [get]
func (h *NoteHandler) GetNote(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	note, err := h.noteService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err, "Failed to get note")
		return
	}

	c.JSON(http.StatusOK, note)
}

// UpdateNote changes the fields present in the body. Title or content
// changes snapshot the previous state first.
// @Summary Update note
// @Tags notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param request body validator.UpdateNoteRequest true "Changed fields"
// @Success 200 {object} models.Note
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 404 {object} ErrorResponse "Note not found"
// @Router /notes/{id} [patch]
func (h *NoteHandler) UpdateNote(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.UpdateNoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	noteID := c.Param("id")
	h.LogRequest(c, "Updating note", "note_id", noteID, "versioned", req.ChangesContent())

	note, err := h.noteService.Update(c.Request.Context(), userID, noteID, &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to update note")
		return
	}

	c.JSON(http.StatusOK, note)
}

// DeleteNote deletes a note and its versions
// @Summary Delete note
// @Tags notes
// @Param id path string true "Note ID"
// @Success 204
// @Failure 404 {object} ErrorResponse "Note not found"
// @Router /notes/{id} [delete]
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	noteID := c.Param("id")
	h.LogRequest(c, "Deleting note", "note_id", noteID)

	if err := h.noteService.Delete(c.Request.Context(), userID, noteID); err != nil {
		h.handleServiceError(c, err, "Failed to delete note")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListVersions lists a note's snapshots, newest first
// @Summary List note versions
// @Tags notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {array} models.NoteVersion
// @Failure 404 {object} ErrorResponse "Note not found"
// @Router /notes/{id}/versions [get]
func (h *NoteHandler) ListVersions(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	versions, err := h.noteService.ListVersions(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err, "Failed to list note versions")
		return
	}

	c.JSON(http.StatusOK, versions)
}

// RestoreVersion copies a snapshot back onto its note
// @Summary Restore note version
// @Tags notes
// @Produce json
// @Param version_id path string true "Version ID"
// @Success 200 {object} models.Note
// @Failure 404 {object} ErrorResponse "Version not found"
// @Router /notes/versions/{version_id}/restore [post]
func (h *NoteHandler) RestoreVersion(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	versionID := c.Param("version_id")
	h.LogRequest(c, "Restoring note version", "version_id", versionID)

	note, err := h.noteService.RestoreVersion(c.Request.Context(), userID, versionID)
	if err != nil {
		h.handleServiceError(c, err, "Failed to restore note version")
		return
	}

	c.JSON(http.StatusOK, note)
}

func (h *NoteHandler) parseNoteFilters(c *gin.Context) repositories.NoteFilters {
	filters := repositories.NoteFilters{
		Pinned:    queryBool(c, "pinned"),
		Starred:   queryBool(c, "starred"),
		Query:     c.Query("q"),
		Limit:     queryInt(c, "limit", 20),
		Offset:    queryInt(c, "offset", 0),
		SortBy:    c.DefaultQuery("sort_by", "updated_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if tag := c.Query("tag"); tag != "" {
		filters.Tag = &tag
	}
	return filters
}
