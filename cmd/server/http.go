package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
)

// newHTTPServer builds the public server. Every request context derives from
// a base context owned by the returned cancel func, so handlers waiting on
// Gemini retries or upstream calls return once shutdown begins.
func newHTTPServer(cfg config.Config, h http.Handler) (*http.Server, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}, cancel
}

// shutdown cancels in-flight request contexts, then waits up to timeout for
// handlers to finish writing their responses.
func shutdown(srv *http.Server, cancelRequests context.CancelFunc, timeout time.Duration) error {
	cancelRequests()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
