package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

const interviewColumns = `id, user_id, resume_text, questions, answers, overall_score, technical_accuracy, feedback, created_at, completed_at`

// InterviewRepo persists interviews. Questions are stored joined with
// domain.QuestionSeparator; answers and the feedback report as JSONB.
type InterviewRepo struct{ Pool PgxPool }

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo { return &InterviewRepo{Pool: p} }

var _ domain.InterviewRepository = (*InterviewRepo)(nil)

// Create inserts a new interview and returns its id.
func (r *InterviewRepo) Create(ctx domain.Context, iv domain.Interview) (string, error) {
	ctx, span := observability.Tracer().Start(ctx, "interviews.Create")
	defer span.End()

	id := iv.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := iv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	q := `INSERT INTO interviews (id, user_id, resume_text, questions, created_at) VALUES ($1,$2,$3,$4,$5)`
	if _, err := r.Pool.Exec(ctx, q, id, iv.UserID, iv.ResumeText, domain.JoinQuestions(iv.Questions), createdAt); err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}
	return id, nil
}

// Get loads an interview by id.
func (r *InterviewRepo) Get(ctx domain.Context, id string) (domain.Interview, error) {
	ctx, span := observability.Tracer().Start(ctx, "interviews.Get")
	defer span.End()

	iv, err := scanInterview(r.Pool.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", err)
	}
	return iv, nil
}

// Complete stores answers and feedback. Only an open interview can be
// completed; a second call returns ErrConflict.
func (r *InterviewRepo) Complete(ctx domain.Context, id string, answers []domain.AnswerPair, report domain.FeedbackReport, completedAt time.Time) error {
	ctx, span := observability.Tracer().Start(ctx, "interviews.Complete")
	defer span.End()

	ab, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("op=interview.complete: marshal answers: %w", err)
	}
	rb, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("op=interview.complete: marshal feedback: %w", err)
	}
	q := `UPDATE interviews SET answers=$2, overall_score=$3, technical_accuracy=$4, feedback=$5, completed_at=$6
		WHERE id=$1 AND completed_at IS NULL`
	tag, err := r.Pool.Exec(ctx, q, id, ab, report.OverallScore, report.TechnicalAccuracy, rb, completedAt.UTC())
	if err != nil {
		return fmt.Errorf("op=interview.complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=interview.complete: %w", domain.ErrConflict)
	}
	return nil
}

// ListByUser returns a user's interviews, newest first.
func (r *InterviewRepo) ListByUser(ctx domain.Context, userID int64) ([]domain.Interview, error) {
	ctx, span := observability.Tracer().Start(ctx, "interviews.ListByUser")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list_by_user: %w", err)
	}
	defer rows.Close()

	out := []domain.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("op=interview.list_by_user: %w", err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=interview.list_by_user: %w", err)
	}
	return out, nil
}

func scanInterview(row pgx.Row) (domain.Interview, error) {
	var (
		iv          domain.Interview
		questions   string
		answers     []byte
		overall     *int
		accuracy    *string
		feedback    []byte
		completedAt *time.Time
	)
	if err := row.Scan(&iv.ID, &iv.UserID, &iv.ResumeText, &questions, &answers, &overall, &accuracy, &feedback, &iv.CreatedAt, &completedAt); err != nil {
		return domain.Interview{}, err
	}
	iv.Questions = domain.SplitQuestions(questions)
	iv.OverallScore = overall
	if accuracy != nil {
		iv.TechnicalAccuracy = *accuracy
	}
	iv.CompletedAt = completedAt
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &iv.Answers); err != nil {
			return domain.Interview{}, fmt.Errorf("decode answers: %w", err)
		}
	}
	if len(feedback) > 0 {
		var rep domain.FeedbackReport
		if err := json.Unmarshal(feedback, &rep); err != nil {
			return domain.Interview{}, fmt.Errorf("decode feedback: %w", err)
		}
		iv.Report = &rep
	}
	return iv, nil
}
