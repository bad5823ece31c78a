// Package mocks holds testify mocks for the domain ports.
package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// MockUserRepository mocks domain.UserRepository.
type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx domain.Context, u domain.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx domain.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx domain.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockInterviewRepository mocks domain.InterviewRepository.
type MockInterviewRepository struct{ mock.Mock }

func (m *MockInterviewRepository) Create(ctx domain.Context, iv domain.Interview) (string, error) {
	args := m.Called(ctx, iv)
	return args.String(0), args.Error(1)
}

func (m *MockInterviewRepository) Get(ctx domain.Context, id string) (domain.Interview, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Interview), args.Error(1)
}

func (m *MockInterviewRepository) Complete(ctx domain.Context, id string, answers []domain.AnswerPair, report domain.FeedbackReport, completedAt time.Time) error {
	return m.Called(ctx, id, answers, report, completedAt).Error(0)
}

func (m *MockInterviewRepository) ListByUser(ctx domain.Context, userID int64) ([]domain.Interview, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]domain.Interview)
	return out, args.Error(1)
}

// MockInterviewAI mocks domain.InterviewAI.
type MockInterviewAI struct{ mock.Mock }

func (m *MockInterviewAI) GenerateQuestions(ctx domain.Context, resumeText string) []string {
	out, _ := m.Called(ctx, resumeText).Get(0).([]string)
	return out
}

func (m *MockInterviewAI) AnalyzeFeedback(ctx domain.Context, answers []domain.AnswerPair) domain.FeedbackReport {
	return m.Called(ctx, answers).Get(0).(domain.FeedbackReport)
}

// MockEventPublisher mocks domain.EventPublisher.
type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) PublishInterviewEvent(ctx domain.Context, ev domain.InterviewEvent) error {
	return m.Called(ctx, ev).Error(0)
}

// MockLimiter mocks domain.Limiter.
type MockLimiter struct{ mock.Mock }

func (m *MockLimiter) Allow(ctx domain.Context, key string, cost int64) (bool, time.Duration, error) {
	args := m.Called(ctx, key, cost)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

// MockPasswordHasher mocks domain.PasswordHasher.
type MockPasswordHasher struct{ mock.Mock }

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, encoded string) bool {
	return m.Called(password, encoded).Bool(0)
}

// MockTextExtractor mocks domain.TextExtractor.
type MockTextExtractor struct{ mock.Mock }

func (m *MockTextExtractor) ExtractBytes(ctx domain.Context, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, fileName, data)
	return args.String(0), args.Error(1)
}
