package config

import (
	"time"
)

const (
	defaultAIMaxAttempts = 2
	defaultAIBaseDelay   = time.Second
)

// RetryConfig describes the bounded retry policy for AI calls.
type RetryConfig struct {
	// MaxAttempts is the total number of calls, first attempt included.
	MaxAttempts int
	// BaseDelay scales the wait between attempts.
	BaseDelay time.Duration
}

// GetRetryConfig returns the AI retry policy. Test environments use a tiny
// base delay so retry paths run quickly.
func (c Config) GetRetryConfig() RetryConfig {
	rc := RetryConfig{MaxAttempts: c.GeminiMaxAttempts, BaseDelay: c.GeminiRetryBaseDelay}
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = defaultAIMaxAttempts
	}
	if rc.BaseDelay <= 0 {
		rc.BaseDelay = defaultAIBaseDelay
	}
	if c.IsTest() {
		rc.BaseDelay = 10 * time.Millisecond
	}
	return rc
}
