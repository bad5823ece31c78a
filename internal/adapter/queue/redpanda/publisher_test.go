package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		out = append(out, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return out
}

func (f *fakeProducer) Close() { f.closed = true }

func header(r *kgo.Record, key string) string {
	for _, h := range r.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublisher_PublishInterviewEvent(t *testing.T) {
	fp := &fakeProducer{}
	p := &Publisher{client: fp, topic: "interview-events"}
	score := 77
	ev := domain.InterviewEvent{
		Type:         domain.EventInterviewCompleted,
		InterviewID:  "iv-1",
		Questions:    5,
		OverallScore: &score,
		OccurredAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	ctx := obsctx.ContextWithRequestID(context.Background(), "req-9")
	require.NoError(t, p.PublishInterviewEvent(ctx, ev))
	require.Len(t, fp.records, 1)

	r := fp.records[0]
	assert.Equal(t, "interview-events", r.Topic)
	assert.Equal(t, "iv-1", string(r.Key))
	assert.Equal(t, domain.EventInterviewCompleted, header(r, "event_type"))
	assert.Equal(t, "iv-1", header(r, "interview_id"))
	assert.Equal(t, "req-9", header(r, "request_id"))

	var got domain.InterviewEvent
	require.NoError(t, json.Unmarshal(r.Value, &got))
	assert.Equal(t, ev, got)

	p.Close()
	assert.True(t, fp.closed)
}

func TestPublisher_ProduceError(t *testing.T) {
	p := &Publisher{client: &fakeProducer{err: errors.New("not leader")}, topic: "t"}
	err := p.PublishInterviewEvent(context.Background(), domain.InterviewEvent{Type: domain.EventInterviewCreated, InterviewID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not leader")
}

func TestBuildRecord_Validation(t *testing.T) {
	_, err := buildRecord(context.Background(), "t", domain.InterviewEvent{Type: domain.EventInterviewCreated})
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	r, err := buildRecord(context.Background(), "t", domain.InterviewEvent{Type: "x", InterviewID: "i"})
	require.NoError(t, err)
	assert.Empty(t, header(r, "request_id"))
	var got domain.InterviewEvent
	require.NoError(t, json.Unmarshal(r.Value, &got))
	assert.False(t, got.OccurredAt.IsZero())
}

func TestNewPublisher_NoBrokers(t *testing.T) {
	_, err := NewPublisher(context.Background(), nil, "")
	require.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p domain.EventPublisher = NoopPublisher{}
	assert.NoError(t, p.PublishInterviewEvent(context.Background(), domain.InterviewEvent{}))
}

type fakeRequester struct {
	resp kmsg.Response
	err  error
	req  *kmsg.CreateTopicsRequest
}

func (f *fakeRequester) Request(_ context.Context, req kmsg.Request) (kmsg.Response, error) {
	f.req, _ = req.(*kmsg.CreateTopicsRequest)
	return f.resp, f.err
}

func topicsResponse(code int16) *kmsg.CreateTopicsResponse {
	resp := kmsg.NewCreateTopicsResponse()
	tr := kmsg.NewCreateTopicsResponseTopic()
	tr.Topic = "interview-events"
	tr.ErrorCode = code
	resp.Topics = append(resp.Topics, tr)
	return &resp
}

func TestCreateTopicIfNotExists(t *testing.T) {
	ctx := context.Background()

	fr := &fakeRequester{resp: topicsResponse(0)}
	require.NoError(t, createTopicIfNotExists(ctx, fr, "interview-events", 1, 1))
	require.NotNil(t, fr.req)
	assert.Equal(t, "interview-events", fr.req.Topics[0].Topic)

	require.NoError(t, createTopicIfNotExists(ctx, &fakeRequester{resp: topicsResponse(36)}, "interview-events", 1, 1))

	// 29 = TOPIC_AUTHORIZATION_FAILED
	require.Error(t, createTopicIfNotExists(ctx, &fakeRequester{resp: topicsResponse(29)}, "interview-events", 1, 1))
	require.Error(t, createTopicIfNotExists(ctx, &fakeRequester{err: errors.New("dial")}, "interview-events", 1, 1))
	require.Error(t, createTopicIfNotExists(ctx, &fakeRequester{}, "", 1, 1))
	require.Error(t, createTopicIfNotExists(ctx, &fakeRequester{}, "t", 0, 1))
}
