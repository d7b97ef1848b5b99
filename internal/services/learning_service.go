package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
	"github.com/SAP-F-2025/study-assistant-service/internal/completion"
	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

const (
	plansSheet   = "Plans"
	quizzesSheet = "Quizzes"
)

type learningService struct {
	repo       repositories.Repository
	generator  completion.Generator
	publisher  events.EventPublisher
	statsCache *cache.CacheHelper
	logger     *slog.Logger
	validator  *validator.Validator
}

func NewLearningService(repo repositories.Repository, generator completion.Generator, publisher events.EventPublisher, statsCache *cache.CacheHelper, logger *slog.Logger, validator *validator.Validator) LearningService {
	return &learningService{
		repo:       repo,
		generator:  generator,
		publisher:  publisher,
		statsCache: statsCache,
		logger:     logger,
		validator:  validator,
	}
}

// ===== GENERATION =====

func (s *learningService) GeneratePlan(ctx context.Context, req *validator.GeneratePlanRequest) (*PlanResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(req.Topic)
	text, err := s.generator.Generate(ctx, completion.PlanPrompt(topic))
	if err != nil {
		s.logger.Error("Plan generation failed", "topic", topic, "error", err)
		return nil, upstreamError("generate plan", err)
	}

	return &PlanResponse{Topic: topic, Content: text}, nil
}

// GenerateQuiz never fails on a malformed completion; the quiz is just empty
func (s *learningService) GenerateQuiz(ctx context.Context, req *validator.GenerateQuizRequest) (*QuizResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	topic := strings.TrimSpace(req.Topic)
	text, err := s.generator.Generate(ctx, completion.QuizPrompt(topic))
	if err != nil {
		s.logger.Error("Quiz generation failed", "topic", topic, "error", err)
		return nil, upstreamError("generate quiz", err)
	}

	questions := completion.ParseQuiz(text)
	if len(questions) == 0 {
		s.logger.Warn("Completion returned no usable quiz questions", "topic", topic)
	}

	return &QuizResponse{Topic: topic, Questions: questions}, nil
}

func (s *learningService) ExplainAnswer(ctx context.Context, req *validator.ExplainAnswerRequest) (*ExplanationResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	text, err := s.generator.Generate(ctx, completion.ExplainPrompt(req.Question, req.Answer, req.UserAnswer, req.Topic))
	if err != nil {
		s.logger.Error("Explanation failed", "topic", req.Topic, "error", err)
		return nil, upstreamError("explain answer", err)
	}

	return &ExplanationResponse{Explanation: text}, nil
}

// ===== PERSISTENCE =====

func (s *learningService) SavePlan(ctx context.Context, userID string, req *validator.SavePlanRequest) (*models.LearningPlan, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	plan := &models.LearningPlan{
		UserID:  userID,
		Topic:   strings.TrimSpace(req.Topic),
		Content: req.Content,
	}
	if err := s.repo.LearningPlan().Create(ctx, nil, plan); err != nil {
		return nil, fmt.Errorf("failed to save learning plan: %w", err)
	}
	cache.InvalidateUserStats(ctx, s.statsCache, userID)

	publishEvent(ctx, s.publisher, s.logger, events.TopicStudy, events.TypePlanSaved, map[string]string{
		"user_id": userID,
		"plan_id": plan.ID,
		"topic":   plan.Topic,
	})

	return plan, nil
}

func (s *learningService) SaveQuizResult(ctx context.Context, userID string, req *validator.SaveQuizResultRequest) (*models.QuizResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	result := &models.QuizResult{
		UserID:    userID,
		Topic:     strings.TrimSpace(req.Topic),
		Questions: datatypes.JSONSlice[models.QuizQuestion](req.Questions),
		Answers:   datatypes.JSONSlice[string](req.Answers),
		Score:     *req.Score,
	}
	if err := s.repo.QuizResult().Create(ctx, nil, result); err != nil {
		return nil, fmt.Errorf("failed to save quiz result: %w", err)
	}
	cache.InvalidateUserStats(ctx, s.statsCache, userID)

	publishEvent(ctx, s.publisher, s.logger, events.TopicStudy, events.TypeQuizResultSaved, map[string]interface{}{
		"user_id":   userID,
		"result_id": result.ID,
		"topic":     result.Topic,
		"score":     result.Score,
		"questions": len(result.Questions),
	})

	return result, nil
}

func (s *learningService) History(ctx context.Context, userID string, filters repositories.HistoryFilters) (*HistoryResponse, error) {
	plans, err := s.repo.LearningPlan().ListByUser(ctx, nil, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list learning plans: %w", err)
	}

	results, err := s.repo.QuizResult().ListByUser(ctx, nil, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz results: %w", err)
	}

	if plans == nil {
		plans = []*models.LearningPlan{}
	}
	if results == nil {
		results = []*models.QuizResult{}
	}

	return &HistoryResponse{LearningPlans: plans, QuizResults: results}, nil
}

// ===== EXPORT =====

// ExportHistory renders the full history as an XLSX workbook
func (s *learningService) ExportHistory(ctx context.Context, userID string) ([]byte, error) {
	history, err := s.History(ctx, userID, repositories.HistoryFilters{})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", plansSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(quizzesSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	planRows := make([][]interface{}, 0, len(history.LearningPlans))
	for _, plan := range history.LearningPlans {
		planRows = append(planRows, []interface{}{
			plan.Topic,
			plan.Content,
			plan.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeSheet(f, plansSheet, headerStyle, []interface{}{"Topic", "Content", "Created At"}, planRows); err != nil {
		return nil, err
	}

	quizRows := make([][]interface{}, 0, len(history.QuizResults))
	for _, result := range history.QuizResults {
		quizRows = append(quizRows, []interface{}{
			result.Topic,
			result.Score,
			len(result.Questions),
			fmt.Sprintf("%.1f", result.Percentage()),
			result.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	if err := writeSheet(f, quizzesSheet, headerStyle, []interface{}{"Topic", "Score", "Questions", "Percentage", "Created At"}, quizRows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("History exported", "user_id", userID,
		"plans", len(history.LearningPlans), "quiz_results", len(history.QuizResults))

	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []interface{}, rows [][]interface{}) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}

	return nil
}
