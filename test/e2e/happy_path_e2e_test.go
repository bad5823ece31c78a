//go:build e2e

package e2e_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_HappyPath_InterviewFlow registers a user, generates questions,
// answers them and reads the stored interview back. It holds whether the AI
// backend answers or the fallbacks are served.
func TestE2E_HappyPath_InterviewFlow(t *testing.T) {
	requireApp(t)

	email := uniqueEmail("happy")
	st, body := postJSON(t, "/api/auth/register", map[string]string{"name": "E2E User", "email": email, "password": "e2e-secret"})
	require.Equal(t, http.StatusCreated, st, "%v", body)
	assert.Equal(t, email, body["email"])

	st, body = postJSON(t, "/api/auth/login", map[string]string{"email": email, "password": "e2e-secret"})
	require.Equal(t, http.StatusOK, st, "%v", body)

	st, body = postJSON(t, "/api/interview/generate-questions", map[string]string{
		"resumeText": "Backend engineer. 5 years of Go, PostgreSQL, Kafka and Kubernetes.",
		"userId":     email,
	})
	require.Equal(t, http.StatusCreated, st, "%v", body)
	interviewID, _ := body["interviewId"].(string)
	require.NotEmpty(t, interviewID)
	questions, _ := body["questions"].([]any)
	require.NotEmpty(t, questions)
	require.LessOrEqual(t, len(questions), 5)

	answers := make([]map[string]string, 0, len(questions))
	for i, q := range questions {
		answers = append(answers, map[string]string{"question": q.(string), "answer": fmt.Sprintf("Answer number %d with some detail.", i+1)})
	}
	st, body = postJSON(t, "/api/interview/submit-answers", map[string]any{"interviewId": interviewID, "answers": answers})
	require.Equal(t, http.StatusOK, st, "%v", body)
	score, ok := body["overallScore"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
	fbs, _ := body["questionFeedbacks"].([]any)
	assert.Len(t, fbs, len(answers))

	st, body = getJSON(t, "/api/interview/"+interviewID)
	require.Equal(t, http.StatusOK, st, "%v", body)
	assert.Equal(t, "completed", body["status"])

	st, body = getJSON(t, "/api/users/"+url.PathEscape(email)+"/interviews")
	require.Equal(t, http.StatusOK, st, "%v", body)
	list, _ := body["interviews"].([]any)
	require.Len(t, list, 1)
}
