package completion

import (
	"encoding/json"
	"strings"

	"github.com/SAP-F-2025/study-assistant-service/internal/models"
)

// ParseQuiz extracts quiz questions from model output. It never fails: text
// that holds no usable JSON array gives an empty quiz, and items missing a
// question, at least two choices or an answer are dropped.
func ParseQuiz(text string) []models.QuizQuestion {
	raw := extractJSONArray(stripCodeFence(text))
	if raw == "" {
		return []models.QuizQuestion{}
	}

	var items []models.QuizQuestion
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []models.QuizQuestion{}
	}

	questions := make([]models.QuizQuestion, 0, len(items))
	for _, item := range items {
		item.Question = strings.TrimSpace(item.Question)
		item.Answer = strings.TrimSpace(item.Answer)

		choices := make([]string, 0, len(item.Choices))
		for _, choice := range item.Choices {
			if choice = strings.TrimSpace(choice); choice != "" {
				choices = append(choices, choice)
			}
		}
		item.Choices = choices

		if item.Question == "" || item.Answer == "" || len(item.Choices) < 2 {
			continue
		}
		questions = append(questions, item)
	}

	return questions
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	// Drop the opening fence line, which may name a language
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	} else {
		return ""
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// extractJSONArray returns the first balanced top-level [...] in text
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}

	return ""
}
