package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain/mocks"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

type interviewDeps struct {
	users   *mocks.MockUserRepository
	repo    *mocks.MockInterviewRepository
	ai      *mocks.MockInterviewAI
	events  *mocks.MockEventPublisher
	limiter *mocks.MockLimiter
}

func newInterviewService(withLimiter bool) (usecase.InterviewService, interviewDeps) {
	d := interviewDeps{
		users:  &mocks.MockUserRepository{},
		repo:   &mocks.MockInterviewRepository{},
		ai:     &mocks.MockInterviewAI{},
		events: &mocks.MockEventPublisher{},
	}
	var lim domain.Limiter
	if withLimiter {
		d.limiter = &mocks.MockLimiter{}
		lim = d.limiter
	}
	svc := usecase.NewInterviewService(d.users, d.repo, d.ai, d.events, lim)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.Now = func() time.Time { return fixed }
	return svc, d
}

var ann = domain.User{ID: 9, Name: "Ann", Email: "ann@example.com"}

func TestInterview_GenerateQuestions(t *testing.T) {
	t.Parallel()
	svc, d := newInterviewService(false)
	qs := []string{"q1", "q2"}

	d.users.On("GetByEmail", mock.Anything, "ann@example.com").Return(ann, nil)
	d.ai.On("GenerateQuestions", mock.Anything, "my resume").Return(qs)
	d.repo.On("Create", mock.Anything, mock.MatchedBy(func(iv domain.Interview) bool {
		_, err := uuid.Parse(iv.ID)
		return err == nil && iv.UserID == 9 && len(iv.Questions) == 2
	})).Return("iv-1", nil)
	d.events.On("PublishInterviewEvent", mock.Anything, mock.MatchedBy(func(ev domain.InterviewEvent) bool {
		return ev.Type == domain.EventInterviewCreated && ev.InterviewID == "iv-1" && ev.Questions == 2
	})).Return(nil)

	id, got, err := svc.GenerateQuestions(context.Background(), "my resume", "Ann@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "iv-1", id)
	assert.Equal(t, qs, got)
	d.repo.AssertExpectations(t)
	d.events.AssertExpectations(t)
}

func TestInterview_GenerateQuestions_UnknownUser(t *testing.T) {
	t.Parallel()
	svc, d := newInterviewService(false)
	d.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(domain.User{}, domain.ErrNotFound)

	_, _, err := svc.GenerateQuestions(context.Background(), "r", "ghost@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "User not found", err.Error())
	d.ai.AssertNotCalled(t, "GenerateQuestions", mock.Anything, mock.Anything)
}

func TestInterview_GenerateQuestions_EventFailureIgnored(t *testing.T) {
	t.Parallel()
	svc, d := newInterviewService(false)
	d.users.On("GetByEmail", mock.Anything, "ann@example.com").Return(ann, nil)
	d.ai.On("GenerateQuestions", mock.Anything, "r").Return([]string{"q"})
	d.repo.On("Create", mock.Anything, mock.Anything).Return("iv-2", nil)
	d.events.On("PublishInterviewEvent", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	id, _, err := svc.GenerateQuestions(context.Background(), "r", "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "iv-2", id)
}

func TestInterview_GenerateQuestions_QuotaExceeded(t *testing.T) {
	t.Parallel()
	svc, d := newInterviewService(true)
	d.users.On("GetByEmail", mock.Anything, "ann@example.com").Return(ann, nil)
	d.limiter.On("Allow", mock.Anything, "questions:user:9", int64(1)).Return(false, 12*time.Second, nil)

	_, _, err := svc.GenerateQuestions(context.Background(), "r", "ann@example.com")
	require.ErrorIs(t, err, domain.ErrRateLimited)
	var rle *usecase.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 12*time.Second, rle.RetryAfter)
	d.ai.AssertNotCalled(t, "GenerateQuestions", mock.Anything, mock.Anything)
}

func TestInterview_GenerateQuestions_QuotaErrorFailsOpen(t *testing.T) {
	t.Parallel()
	svc, d := newInterviewService(true)
	d.users.On("GetByEmail", mock.Anything, "ann@example.com").Return(ann, nil)
	d.limiter.On("Allow", mock.Anything, mock.Anything, int64(1)).Return(false, time.Duration(0), errors.New("redis down"))
	d.ai.On("GenerateQuestions", mock.Anything, "r").Return([]string{"q"})
	d.repo.On("Create", mock.Anything, mock.Anything).Return("iv-3", nil)
	d.events.On("PublishInterviewEvent", mock.Anything, mock.Anything).Return(nil)

	_, _, err := svc.GenerateQuestions(context.Background(), "r", "ann@example.com")
	require.NoError(t, err)
}

func TestInterview_SubmitAnswers(t *testing.T) {
	t.Parallel()
	svc, d := newInterviewService(false)
	id := uuid.New().String()
	answers := []domain.AnswerPair{{Question: "q1", Answer: "a1"}}
	report := domain.FeedbackReport{OverallScore: 81, QuestionFeedbacks: []domain.QuestionFeedback{{Question: "q1", Answer: "a1", Score: 16}}}

	d.repo.On("Get", mock.Anything, id).Return(domain.Interview{ID: id, UserID: 9}, nil)
	d.ai.On("AnalyzeFeedback", mock.Anything, answers).Return(report)
	d.repo.On("Complete", mock.Anything, id, answers, report, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)).Return(nil)
	d.events.On("PublishInterviewEvent", mock.Anything, mock.MatchedBy(func(ev domain.InterviewEvent) bool {
		return ev.Type == domain.EventInterviewCompleted && ev.OverallScore != nil && *ev.OverallScore == 81
	})).Return(nil)

	got, err := svc.SubmitAnswers(context.Background(), id, answers)
	require.NoError(t, err)
	assert.Equal(t, report, got)
	d.repo.AssertExpectations(t)
	d.events.AssertExpectations(t)
}

func TestInterview_SubmitAnswers_NotFound(t *testing.T) {
	t.Parallel()
	svc, d := newInterviewService(false)
	id := uuid.New().String()
	d.repo.On("Get", mock.Anything, id).Return(domain.Interview{}, domain.ErrNotFound)

	_, err := svc.SubmitAnswers(context.Background(), id, nil)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Interview not found", err.Error())

	_, err = svc.SubmitAnswers(context.Background(), "not-a-uuid", nil)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInterview_SubmitAnswers_AlreadyCompleted(t *testing.T) {
	t.Parallel()
	svc, d := newInterviewService(false)
	id := uuid.New().String()
	done := time.Now()
	d.repo.On("Get", mock.Anything, id).Return(domain.Interview{ID: id, CompletedAt: &done}, nil)

	_, err := svc.SubmitAnswers(context.Background(), id, []domain.AnswerPair{{Question: "q", Answer: "a"}})
	require.ErrorIs(t, err, domain.ErrConflict)
	d.ai.AssertNotCalled(t, "AnalyzeFeedback", mock.Anything, mock.Anything)
}

func TestInterview_ListByUser(t *testing.T) {
	t.Parallel()
	svc, d := newInterviewService(false)
	list := []domain.Interview{{ID: "b"}, {ID: "a"}}
	d.users.On("GetByEmail", mock.Anything, "ann@example.com").Return(ann, nil)
	d.repo.On("ListByUser", mock.Anything, int64(9)).Return(list, nil)

	got, err := svc.ListByUser(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, list, got)

	_, err = svc.ListByUser(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
