package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstream        = errors.New("upstream unavailable")
	ErrInternal        = errors.New("internal error")
)

// PublicError pairs a sentinel with a message that is safe to show API
// clients. errors.Is matches the sentinel.
type PublicError struct {
	Kind error
	Msg  string
}

func (e *PublicError) Error() string { return e.Msg }

func (e *PublicError) Unwrap() error { return e.Kind }

// NewPublicError wraps kind with a client-facing message.
func NewPublicError(kind error, msg string) error { return &PublicError{Kind: kind, Msg: msg} }

// MaxScoredQuestions is how many QUESTION_i blocks the feedback prompt asks for.
const MaxScoredQuestions = 5

// QuestionSeparator joins questions in storage.
const QuestionSeparator = "|||"

// User is a registered candidate. Email is stored lower-cased and unique.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// AnswerPair is one submitted question/answer.
type AnswerPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuestionFeedback is the assessment of a single answer.
// Score is nominally 0..20.
type QuestionFeedback struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
	Accurate bool   `json:"accurate"`
}

// FeedbackReport is the structured result of answer analysis.
// Invariant: len(QuestionFeedbacks) equals the number of submitted answers,
// in submission order.
type FeedbackReport struct {
	OverallScore        int                `json:"overallScore"`
	TechnicalAccuracy   string             `json:"technicalAccuracy"`
	QuestionFeedbacks   []QuestionFeedback `json:"questionFeedbacks"`
	AreasForImprovement []string           `json:"areasForImprovement"`
	Strengths           []string           `json:"strengths"`
}

// Interview is one question/answer session for a user.
type Interview struct {
	ID                string
	UserID            int64
	ResumeText        string
	Questions         []string
	Answers           []AnswerPair
	OverallScore      *int
	TechnicalAccuracy string
	Report            *FeedbackReport
	CreatedAt         time.Time
	CompletedAt       *time.Time
}

// Completed reports whether answers were already submitted.
func (i Interview) Completed() bool { return i.CompletedAt != nil }

// JoinQuestions encodes questions for storage.
func JoinQuestions(qs []string) string { return strings.Join(qs, QuestionSeparator) }

// SplitQuestions decodes stored questions; empty input yields no questions.
func SplitQuestions(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return strings.Split(s, QuestionSeparator)
}

// Interview event types
const (
	EventInterviewCreated   = "interview.created"
	EventInterviewCompleted = "interview.completed"
)

// InterviewEvent is published when an interview changes state.
type InterviewEvent struct {
	Type         string    `json:"type"`
	InterviewID  string    `json:"interviewId"`
	UserEmail    string    `json:"userEmail,omitempty"`
	Questions    int       `json:"questions"`
	OverallScore *int      `json:"overallScore,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Repositories (ports)

type UserRepository interface {
	Create(ctx Context, u User) (int64, error)
	GetByEmail(ctx Context, email string) (User, error)
	ExistsByEmail(ctx Context, email string) (bool, error)
}

type InterviewRepository interface {
	Create(ctx Context, iv Interview) (string, error)
	Get(ctx Context, id string) (Interview, error)
	Complete(ctx Context, id string, answers []AnswerPair, report FeedbackReport, completedAt time.Time) error
	ListByUser(ctx Context, userID int64) ([]Interview, error)
}

// InterviewAI (port)
// Both operations are total: failures degrade to deterministic fallbacks.
type InterviewAI interface {
	GenerateQuestions(ctx Context, resumeText string) []string
	AnalyzeFeedback(ctx Context, answers []AnswerPair) FeedbackReport
}

// EventPublisher (port)
type EventPublisher interface {
	PublishInterviewEvent(ctx Context, ev InterviewEvent) error
}

// Limiter (port) is a keyed token bucket.
type Limiter interface {
	Allow(ctx Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// PasswordHasher (port)
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// TextExtractor (port) turns an uploaded document into plain text.
type TextExtractor interface {
	ExtractBytes(ctx Context, fileName string, data []byte) (string, error)
}

// Context aliases context.Context so ports read uniformly.
type Context = context.Context
