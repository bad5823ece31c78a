package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

// InterviewService runs the question and feedback flow.
type InterviewService struct {
	Users      domain.UserRepository
	Interviews domain.InterviewRepository
	AI         domain.InterviewAI
	Events     domain.EventPublisher
	// Limiter is optional; nil disables the per-user question quota.
	Limiter domain.Limiter
	Now     func() time.Time
}

// NewInterviewService constructs an InterviewService. events and limiter may be nil.
func NewInterviewService(u domain.UserRepository, iv domain.InterviewRepository, ai domain.InterviewAI, events domain.EventPublisher, limiter domain.Limiter) InterviewService {
	return InterviewService{Users: u, Interviews: iv, AI: ai, Events: events, Limiter: limiter, Now: time.Now}
}

func (s InterviewService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// GenerateQuestions creates an interview for the user identified by email
// and returns its id and questions.
func (s InterviewService) GenerateQuestions(ctx domain.Context, resumeText, userEmail string) (string, []string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	user, err := s.lookupUser(ctx, userEmail)
	if err != nil {
		return "", nil, err
	}
	if err := s.checkQuota(ctx, user.ID); err != nil {
		return "", nil, err
	}

	questions := s.AI.GenerateQuestions(ctx, resumeText)
	iv := domain.Interview{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		ResumeText: resumeText,
		Questions:  questions,
		CreatedAt:  s.now(),
	}
	id, err := s.Interviews.Create(ctx, iv)
	if err != nil {
		return "", nil, fmt.Errorf("op=interview.generate_questions: %w", err)
	}
	observability.InterviewCreated()
	lg.Info("interview created", slog.String("interview_id", id), slog.Int64("user_id", user.ID), slog.Int("questions", len(questions)))

	s.publish(ctx, domain.InterviewEvent{
		Type:        domain.EventInterviewCreated,
		InterviewID: id,
		UserEmail:   user.Email,
		Questions:   len(questions),
		OccurredAt:  iv.CreatedAt,
	})
	return id, questions, nil
}

// SubmitAnswers scores the answers of an open interview and stores the report.
func (s InterviewService) SubmitAnswers(ctx domain.Context, interviewID string, answers []domain.AnswerPair) (domain.FeedbackReport, error) {
	lg := obsctx.LoggerFromContext(ctx)
	iv, err := s.Get(ctx, interviewID)
	if err != nil {
		return domain.FeedbackReport{}, err
	}
	if iv.Completed() {
		return domain.FeedbackReport{}, domain.NewPublicError(domain.ErrConflict, "Interview already completed")
	}

	report := s.AI.AnalyzeFeedback(ctx, answers)
	completedAt := s.now()
	if err := s.Interviews.Complete(ctx, iv.ID, answers, report, completedAt); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.FeedbackReport{}, domain.NewPublicError(domain.ErrConflict, "Interview already completed")
		}
		return domain.FeedbackReport{}, fmt.Errorf("op=interview.submit_answers: %w", err)
	}
	observability.InterviewCompleted(report.OverallScore)
	lg.Info("interview completed",
		slog.String("interview_id", iv.ID),
		slog.Int("answers", len(answers)),
		slog.Int("overall_score", report.OverallScore))

	score := report.OverallScore
	s.publish(ctx, domain.InterviewEvent{
		Type:         domain.EventInterviewCompleted,
		InterviewID:  iv.ID,
		Questions:    len(answers),
		OverallScore: &score,
		OccurredAt:   completedAt,
	})
	return report, nil
}

// Get loads one interview.
func (s InterviewService) Get(ctx domain.Context, interviewID string) (domain.Interview, error) {
	if _, err := uuid.Parse(strings.TrimSpace(interviewID)); err != nil {
		return domain.Interview{}, domain.NewPublicError(domain.ErrNotFound, "Interview not found")
	}
	iv, err := s.Interviews.Get(ctx, strings.TrimSpace(interviewID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Interview{}, domain.NewPublicError(domain.ErrNotFound, "Interview not found")
		}
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", err)
	}
	return iv, nil
}

// ListByUser returns the user's interviews, newest first.
func (s InterviewService) ListByUser(ctx domain.Context, userEmail string) ([]domain.Interview, error) {
	user, err := s.lookupUser(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	out, err := s.Interviews.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list_by_user: %w", err)
	}
	return out, nil
}

func (s InterviewService) lookupUser(ctx domain.Context, email string) (domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.NewPublicError(domain.ErrInvalidArgument, "User email is required")
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.NewPublicError(domain.ErrNotFound, "User not found")
		}
		return domain.User{}, fmt.Errorf("op=interview.lookup_user: %w", err)
	}
	return u, nil
}

// checkQuota fails open when the limiter itself errors.
func (s InterviewService) checkQuota(ctx domain.Context, userID int64) error {
	if s.Limiter == nil {
		return nil
	}
	allowed, retryAfter, err := s.Limiter.Allow(ctx, fmt.Sprintf("questions:user:%d", userID), 1)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("question quota check failed, allowing", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil
	}
	if !allowed {
		secs := int(retryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		return &RateLimitError{RetryAfter: retryAfter, msg: fmt.Sprintf("Too many question requests, retry in %ds", secs)}
	}
	return nil
}

func (s InterviewService) publish(ctx domain.Context, ev domain.InterviewEvent) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishInterviewEvent(ctx, ev); err != nil {
		obsctx.LoggerFromContext(ctx).Warn("interview event not published",
			slog.String("type", ev.Type),
			slog.String("interview_id", ev.InterviewID),
			slog.Any("error", err))
	}
}

// RateLimitError is returned when the per-user question quota is spent.
type RateLimitError struct {
	RetryAfter time.Duration
	msg        string
}

func (e *RateLimitError) Error() string { return e.msg }

func (e *RateLimitError) Unwrap() error { return domain.ErrRateLimited }
