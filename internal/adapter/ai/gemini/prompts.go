package gemini

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

func questionPrompt(pc config.PromptConfig, resumeText string) string {
	return strings.ReplaceAll(pc.Questions, config.ResumePlaceholder, resumeText)
}

func feedbackPrompt(pc config.PromptConfig, answers []domain.AnswerPair) string {
	var b strings.Builder
	b.WriteString(pc.FeedbackPreamble)
	for i, a := range answers {
		fmt.Fprintf(&b, "Question %d: %s\nAnswer: %s\n\n", i+1, a.Question, a.Answer)
	}
	b.WriteString(pc.FeedbackFormat)
	return b.String()
}
