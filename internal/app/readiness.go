package app

import (
	"context"
	"fmt"
)

// Pinger is the minimal interface for a dependency that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BuildReadinessChecks returns the db, redis and tika checks for /readyz.
// The database is mandatory; redis and tika checks are nil when those
// dependencies are not configured, which drops them from the report.
func BuildReadinessChecks(pool Pinger, redisPing func(context.Context) error, tika Pinger) (
	dbCheck func(ctx context.Context) error,
	redisCheck func(ctx context.Context) error,
	tikaCheck func(ctx context.Context) error,
) {
	dbCheck = func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	if redisPing != nil {
		redisCheck = redisPing
	}
	if tika != nil {
		tikaCheck = tika.Ping
	}
	return dbCheck, redisCheck, tikaCheck
}
