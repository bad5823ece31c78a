package gemini

import "github.com/fairyhunter13/ai-interview-coach/internal/domain"

// MaxQuestions caps the parsed question list.
const MaxQuestions = 5

var fallbackQuestions = [MaxQuestions]string{
	"Tell me about yourself and your professional background.",
	"What are your key technical skills and areas of expertise?",
	"Describe a challenging project you worked on and how you overcame obstacles.",
	"How do you stay updated with the latest technology trends?",
	"Where do you see yourself professionally in the next 3-5 years?",
}

const (
	fallbackOverallScore      = 70
	fallbackTechnicalAccuracy = "Unable to generate detailed analysis. Please try again."
	fallbackQuestionScore     = 14
	fallbackQuestionFeedback  = "Answer recorded. Detailed analysis unavailable."
)

// FallbackQuestions returns a fresh copy of the generic question list.
func FallbackQuestions() []string {
	out := make([]string, len(fallbackQuestions))
	copy(out, fallbackQuestions[:])
	return out
}

// FallbackFeedback builds the report used when no AI analysis is available.
// It has one entry per answer, in order.
func FallbackFeedback(answers []domain.AnswerPair) domain.FeedbackReport {
	qf := make([]domain.QuestionFeedback, len(answers))
	for i, a := range answers {
		qf[i] = domain.QuestionFeedback{
			Question: a.Question,
			Answer:   a.Answer,
			Score:    fallbackQuestionScore,
			Feedback: fallbackQuestionFeedback,
			Accurate: true,
		}
	}
	return domain.FeedbackReport{
		OverallScore:      fallbackOverallScore,
		TechnicalAccuracy: fallbackTechnicalAccuracy,
		QuestionFeedbacks: qf,
		AreasForImprovement: []string{
			"Detailed AI analysis temporarily unavailable",
			"Please try submitting again for comprehensive feedback",
		},
		Strengths: []string{
			"Interview completed successfully",
			"All questions answered",
		},
	}
}
