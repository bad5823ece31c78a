package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

const (
	opQuestions = "generate_questions"
	opFeedback  = "analyze_feedback"
)

// Generator is what the service needs from the orchestrator.
type Generator interface {
	Do(ctx context.Context, prompt string) (string, error)
}

// TokenCounter is optional; when set, prompt sizes are recorded.
type TokenCounter interface {
	Count(text, model string) int
}

// Service implements domain.InterviewAI on top of a Generator. Both
// operations always return a usable value; failures only show up in logs
// and in ai_fallbacks_total.
type Service struct {
	gen     Generator
	prompts config.PromptConfig
	tokens  TokenCounter
	model   string
	cleaner *ai.ResponseCleaner
}

var _ domain.InterviewAI = (*Service)(nil)

// NewService wires a Service. tokens may be nil.
func NewService(gen Generator, prompts config.PromptConfig, tokens TokenCounter, model string) *Service {
	return &Service{
		gen:     gen,
		prompts: prompts,
		tokens:  tokens,
		model:   model,
		cleaner: ai.NewResponseCleaner(),
	}
}

// GenerateQuestions returns up to MaxQuestions questions for the resume.
func (s *Service) GenerateQuestions(ctx context.Context, resumeText string) []string {
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("operation", opQuestions))
	if strings.TrimSpace(resumeText) == "" {
		lg.Warn("resume text is blank, using fallback questions")
		fallback(opQuestions, "empty_input")
		return FallbackQuestions()
	}

	prompt := questionPrompt(s.prompts, resumeText)
	s.observePrompt(opQuestions, prompt)

	text, err := s.gen.Do(ctx, prompt)
	if err != nil {
		lg.Error("question generation failed, using fallback", slog.Any("error", err))
		fallback(opQuestions, failureReason(err))
		return FallbackQuestions()
	}

	qs := ParseQuestions(s.cleaner.Clean(text))
	switch {
	case len(qs) == 0:
		lg.Warn("no numbered questions in response, using fallback", slog.Int("response_chars", len(text)))
		fallback(opQuestions, "no_questions")
		return FallbackQuestions()
	case len(qs) < MaxQuestions:
		lg.Warn("fewer questions than requested", slog.Int("got", len(qs)), slog.Int("want", MaxQuestions))
	}
	return qs
}

// AnalyzeFeedback scores the answers. The report always has one entry per
// answer, in submission order.
func (s *Service) AnalyzeFeedback(ctx context.Context, answers []domain.AnswerPair) domain.FeedbackReport {
	lg := obsctx.LoggerFromContext(ctx).With(slog.String("operation", opFeedback))
	if len(answers) == 0 {
		lg.Warn("no answers submitted, using fallback feedback")
		fallback(opFeedback, "empty_input")
		return FallbackFeedback(answers)
	}

	prompt := feedbackPrompt(s.prompts, answers)
	s.observePrompt(opFeedback, prompt)

	text, err := s.gen.Do(ctx, prompt)
	if err != nil {
		lg.Error("feedback analysis failed, using fallback", slog.Any("error", err), slog.Int("answers", len(answers)))
		fallback(opFeedback, failureReason(err))
		return FallbackFeedback(answers)
	}

	report, err := ParseFeedback(s.cleaner.Clean(text), answers)
	if err != nil {
		lg.Error("feedback parse failed, using fallback", slog.Any("error", err))
		fallback(opFeedback, "parse_error")
		return FallbackFeedback(answers)
	}
	if len(answers) > domain.MaxScoredQuestions {
		lg.Info("answers beyond the scored range use default feedback",
			slog.Int("answers", len(answers)), slog.Int("scored", domain.MaxScoredQuestions))
	}
	return report
}

func (s *Service) observePrompt(op, prompt string) {
	if s.tokens == nil {
		return
	}
	observability.AIPromptTokens.WithLabelValues(provider, op).Observe(float64(s.tokens.Count(prompt, s.model)))
}

func fallback(op, reason string) {
	observability.AIFallbacksTotal.WithLabelValues(op, reason).Inc()
}

func failureReason(err error) string {
	var re *RetryError
	if errors.As(err, &re) {
		return re.Kind.String()
	}
	return "call_failed"
}
