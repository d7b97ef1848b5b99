package completion

import "fmt"

const (
	planMaxTokens    = 1024
	quizMaxTokens    = 800
	explainMaxTokens = 300

	defaultTemperature = 0.7
)

const tutorSystem = "You are a patient tutor who explains topics to beginners."

// PlanPrompt asks for a beginner step-by-step study plan
func PlanPrompt(topic string) Prompt {
	return Prompt{
		System: tutorSystem,
		User: fmt.Sprintf(
			"Create a step-by-step learning plan for a beginner who wants to learn %q. "+
				"Number each step and keep every step short and practical.", topic),
		MaxTokens:   planMaxTokens,
		Temperature: defaultTemperature,
	}
}

// QuizPrompt asks for 3 to 5 multiple choice questions as a JSON array
func QuizPrompt(topic string) Prompt {
	return Prompt{
		System: "You write short multiple choice quizzes and answer with JSON only.",
		User: fmt.Sprintf(
			"Create a quiz of 3 to 5 multiple choice questions about %q. "+
				"Respond with a JSON array where each item has the fields "+
				`"question" (string), "choices" (array of strings) and "answer" (one of the choices). `+
				"Do not add any text outside the JSON array.", topic),
		MaxTokens:   quizMaxTokens,
		Temperature: defaultTemperature,
	}
}

// ExplainPrompt asks why an answer is right and where the learner went wrong
func ExplainPrompt(question, answer, userAnswer, topic string) Prompt {
	return Prompt{
		System: tutorSystem,
		User: fmt.Sprintf(
			"Topic: %s\nQuestion: %s\nCorrect answer: %s\nLearner's answer: %s\n"+
				"Explain briefly why the correct answer is right and, if the learner's answer differs, why it is wrong.",
			topic, question, answer, userAnswer),
		MaxTokens:   explainMaxTokens,
		Temperature: defaultTemperature,
	}
}
