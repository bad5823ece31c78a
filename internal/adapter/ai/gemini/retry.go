package gemini

import (
	"context"
	"errors"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
)

// Caller is the single-shot transport the orchestrator wraps.
type Caller interface {
	Call(ctx context.Context, prompt string) (string, error)
}

// Orchestrator retries a Caller with a bounded number of attempts.
// Server errors wait base*attempt, other retryable failures wait base.
type Orchestrator struct {
	caller      Caller
	maxAttempts int
	baseDelay   time.Duration
	// newTimer is swapped in tests to observe waits without sleeping.
	newTimer func() backoff.Timer
}

// NewOrchestrator builds an Orchestrator from the AI retry policy.
func NewOrchestrator(caller Caller, rc config.RetryConfig) *Orchestrator {
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = 1
	}
	return &Orchestrator{caller: caller, maxAttempts: rc.MaxAttempts, baseDelay: rc.BaseDelay}
}

// attemptBackOff is a backoff.BackOff whose interval depends on the attempt
// number and on the class of the failure that just happened.
type attemptBackOff struct {
	base    time.Duration
	attempt int
	last    FailureClass
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	if b.last == FailureServerError {
		return b.base * time.Duration(b.attempt)
	}
	return b.base
}

func (b *attemptBackOff) Reset() {
	b.attempt = 0
	b.last = FailureUnknown
}

// Do runs prompt through the caller until it succeeds, hits a
// non-retryable failure, runs out of attempts or ctx ends.
// Failures are always *RetryError.
func (o *Orchestrator) Do(ctx context.Context, prompt string) (string, error) {
	lg := obsctx.LoggerFromContext(ctx)
	policy := &attemptBackOff{base: o.baseDelay}
	var lastErr error

	op := func() (string, error) {
		policy.attempt++
		lg.Info("calling gemini api", slog.Int("attempt", policy.attempt), slog.Int("max_attempts", o.maxAttempts))
		text, err := o.caller.Call(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		policy.last = ClassOf(err)
		if !policy.last.Retryable() {
			lg.Error("gemini call failed, not retryable",
				slog.Int("attempt", policy.attempt),
				slog.String("class", policy.last.String()),
				slog.Any("error", err))
			return "", backoff.Permanent(err)
		}
		lg.Warn("gemini call failed",
			slog.Int("attempt", policy.attempt),
			slog.Int("max_attempts", o.maxAttempts),
			slog.String("class", policy.last.String()),
			slog.Any("error", err))
		return "", err
	}
	notify := func(_ error, wait time.Duration) {
		lg.Info("waiting before gemini retry", slog.Duration("backoff", wait), slog.Int("next_attempt", policy.attempt+1))
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(o.maxAttempts-1)), ctx)
	var timer backoff.Timer
	if o.newTimer != nil {
		timer = o.newTimer()
	}
	text, err := backoff.RetryNotifyWithTimerAndData[string](op, bo, notify, timer)
	if err == nil {
		return text, nil
	}
	if lastErr == nil {
		lastErr = err
	}
	rerr := &RetryError{Kind: kindFor(lastErr), Attempts: policy.attempt, Last: lastErr}
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		rerr.Kind = KindCancelled
	}
	lg.Error("gemini call gave up", slog.String("kind", rerr.Kind.String()), slog.Int("attempts", rerr.Attempts), slog.Any("error", lastErr))
	return "", rerr
}

func kindFor(err error) RetryKind {
	switch ClassOf(err) {
	case FailureConfiguration:
		return KindConfiguration
	case FailureUnauthorized:
		return KindUnauthorized
	case FailureBadRequest, FailureClientError:
		return KindInvalidRequest
	case FailureCancelled:
		return KindCancelled
	default:
		return KindExhaustedRetries
	}
}
