//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain/mocks"
	"github.com/fairyhunter13/ai-interview-coach/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	host, err := c.Host(ctx)
	require.NoError(t, err)
	p, err := c.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host + ":" + p.Port()
}

func startPostgres(t *testing.T) string {
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "app"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(90 * time.Second),
	}, "5432")
	return "postgres://postgres:postgres@" + addr + "/app?sslmode=disable"
}

func Test_Postgres_InterviewLifecycle(t *testing.T) {
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.EnsureSchema(ctx, pool))
	require.NoError(t, postgres.EnsureSchema(ctx, pool), "schema bootstrap is idempotent")

	userRepo := postgres.NewUserRepo(pool)
	users := usecase.NewUserService(userRepo, httpserver.NewArgon2Hasher())
	u, err := users.Register(ctx, "Ana", " Ana@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)

	_, err = users.Register(ctx, "Ana", "ana@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrConflict)

	_, err = users.Login(ctx, "ana@example.com", "wrong")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	ai := &mocks.MockInterviewAI{}
	ai.On("GenerateQuestions", mock.Anything, "Go dev").Return([]string{"Q1?", "Q2?"})
	report := domain.FeedbackReport{
		OverallScore:      70,
		TechnicalAccuracy: "Good",
		QuestionFeedbacks: []domain.QuestionFeedback{
			{Question: "Q1?", Answer: "A1", Score: 14, Feedback: "ok", Accurate: true},
			{Question: "Q2?", Answer: "A2", Score: 10, Feedback: "ok", Accurate: true},
		},
		AreasForImprovement: []string{"depth"},
		Strengths:           []string{"clarity"},
	}
	answers := []domain.AnswerPair{{Question: "Q1?", Answer: "A1"}, {Question: "Q2?", Answer: "A2"}}
	ai.On("AnalyzeFeedback", mock.Anything, answers).Return(report)

	svc := usecase.NewInterviewService(userRepo, postgres.NewInterviewRepo(pool), ai, nil, nil)
	id, qs, err := svc.GenerateQuestions(ctx, "Go dev", "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, []string{"Q1?", "Q2?"}, qs)

	got, err := svc.SubmitAnswers(ctx, id, answers)
	require.NoError(t, err)
	assert.Equal(t, report, got)

	_, err = svc.SubmitAnswers(ctx, id, answers)
	require.ErrorIs(t, err, domain.ErrConflict)

	iv, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, iv.Completed())
	require.NotNil(t, iv.OverallScore)
	assert.Equal(t, 70, *iv.OverallScore)
	assert.Equal(t, answers, iv.Answers)
	require.NotNil(t, iv.Report)
	assert.Equal(t, report, *iv.Report)

	list, err := svc.ListByUser(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)

	// nothing is old enough to be removed
	deleted, err := postgres.NewCleanupService(pool, 1).CleanupOldData(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func Test_Redis_QuestionQuota(t *testing.T) {
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}, "6379")
	rdb, err := ratelimiter.NewClient("redis://" + addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	require.Eventually(t, func() bool { return ratelimiter.Ping(ctx, rdb) == nil }, 30*time.Second, time.Second)

	lim := ratelimiter.NewRedisLuaLimiter(rdb, ratelimiter.NewBucketConfigFromPerMinute(2))
	for i := 0; i < 2; i++ {
		ok, _, err := lim.Allow(ctx, "questions:user:1", 1)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, retry, err := lim.Allow(ctx, "questions:user:1", 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
}

func Test_Tika_ExtractsText(t *testing.T) {
	addr := startContainer(t, testcontainers.ContainerRequest{
		Image:        "apache/tika:2.9.0.0",
		ExposedPorts: []string{"9998/tcp"},
		WaitingFor:   wait.ForHTTP("/version").WithPort("9998/tcp").WithStartupTimeout(90 * time.Second),
	}, "9998")
	c := tika.New("http://" + addr)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	text, err := c.ExtractBytes(ctx, "cv.txt", []byte("Jane Doe\nSenior Go engineer\n"))
	require.NoError(t, err)
	assert.Contains(t, text, "Senior Go engineer")
}
