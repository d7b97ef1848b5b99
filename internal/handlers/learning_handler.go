package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/services"
	"github.com/SAP-F-2025/study-assistant-service/internal/utils"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type LearningHandler struct {
	BaseHandler
	learningService services.LearningService
}

func NewLearningHandler(learningService services.LearningService, logger utils.Logger) *LearningHandler {
	return &LearningHandler{
		BaseHandler:     NewBaseHandler(logger),
		learningService: learningService,
	}
}

// GeneratePlan asks the completion service for a study plan
// @Summary Generate learning plan
// @Tags learning
// @Accept json
// @Produce json
// @Param request body validator.GeneratePlanRequest true "Topic"
// @Success 200 {object} services.PlanResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 502 {object} ErrorResponse "Completion service unavailable"
// @Router /learning/plans/generate [post]
func (h *LearningHandler) GeneratePlan(c *gin.Context) {
	var req validator.GeneratePlanRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Generating learning plan", "topic", req.Topic)

	plan, err := h.learningService.GeneratePlan(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to generate learning plan")
		return
	}

	c.JSON(http.StatusOK, plan)
}

// SavePlan stores a generated plan in the user's history
// @Summary Save learning plan
// @Tags learning
// @Accept json
// @Produce json
// @Param request body validator.SavePlanRequest true "Plan"
// @Success 201 {object} models.LearningPlan
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Router /learning/plans [post]
func (h *LearningHandler) SavePlan(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.SavePlanRequest
	if !h.bindJSON(c, &req) {
		return
	}

	plan, err := h.learningService.SavePlan(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to save learning plan")
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GenerateQuiz asks the completion service for quiz questions
// @Summary Generate quiz
// @Description A reply that cannot be parsed yields an empty question list
// @Tags learning
// @Accept json
// @Produce json
// @Param request body validator.GenerateQuizRequest true "Topic"
// @Success 200 {object} services.QuizResponse
// @Failure 502 {object} ErrorResponse "Completion service unavailable"
// @Router /learning/quizzes/generate [post]
func (h *LearningHandler) GenerateQuiz(c *gin.Context) {
	var req validator.GenerateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Generating quiz", "topic", req.Topic)

	quiz, err := h.learningService.GenerateQuiz(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to generate quiz")
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ExplainAnswer explains why an answer was right or wrong
// @Summary Explain quiz answer
// @Tags learning
// @Accept json
// @Produce json
// @Param request body validator.ExplainAnswerRequest true "Question and answers"
// @Success 200 {object} services.ExplanationResponse
// @Failure 502 {object} ErrorResponse "Completion service unavailable"
// @Router /learning/quizzes/explain [post]
func (h *LearningHandler) ExplainAnswer(c *gin.Context) {
	var req validator.ExplainAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	explanation, err := h.learningService.ExplainAnswer(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to explain answer")
		return
	}

	c.JSON(http.StatusOK, explanation)
}

// SaveQuizResult stores a completed quiz
// @Summary Save quiz result
// @Tags learning
// @Accept json
// @Produce json
// @Param request body validator.SaveQuizResultRequest true "Quiz result"
// @Success 201 {object} models.QuizResult
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Router /learning/quizzes/results [post]
func (h *LearningHandler) SaveQuizResult(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req validator.SaveQuizResultRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.learningService.SaveQuizResult(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleServiceError(c, err, "Failed to save quiz result")
		return
	}

	c.JSON(http.StatusCreated, result)
}

// History lists saved plans and quiz results, newest first
// @Summary Learning history
// @Tags learning
// @Produce json
// @Param limit query int false "Max items per list (default: 20)"
// @Param offset query int false "Items to skip"
// @Success 200 {object} services.HistoryResponse
// @Router /learning/history [get]
func (h *LearningHandler) History(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := repositories.HistoryFilters{
		Limit:  queryInt(c, "limit", 20),
		Offset: queryInt(c, "offset", 0),
	}

	history, err := h.learningService.History(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err, "Failed to get learning history")
		return
	}

	c.JSON(http.StatusOK, history)
}

// ExportHistory downloads the full history as a spreadsheet
// @Summary Export learning history
// @Tags learning
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file
// @Router /learning/history/export [get]
func (h *LearningHandler) ExportHistory(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting learning history")

	data, err := h.learningService.ExportHistory(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err, "Failed to export learning history")
		return
	}

	filename := fmt.Sprintf("learning-history-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// Stats summarizes study activity
// @Summary Study statistics
// @Description Totals and per-period activity for the signed-in user
// @Tags learning
// @Produce json
// @Param period query string false "week (default), month or year"
// @Success 200 {object} services.StatsResponse
// @Failure 400 {object} ErrorResponse "Unsupported period"
// @Router /learning/stats [get]
func (h *LearningHandler) Stats(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.learningService.Stats(c.Request.Context(), userID, c.Query("period"))
	if err != nil {
		h.handleServiceError(c, err, "Failed to get study statistics")
		return
	}

	c.JSON(http.StatusOK, stats)
}
