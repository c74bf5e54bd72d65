package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/persona-drift/audit"
	"go.uber.org/zap"
)

// RetryPolicy is the caller's retry choice; adapters themselves never retry.
type RetryPolicy struct {
	MaxRetries       int
	RateLimitWaits   []time.Duration
	ServerErrorWaits []time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:       3,
		RateLimitWaits:   []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second},
		ServerErrorWaits: []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second},
	}
}

// Retrying re-issues calls that failed with a rate limit or server error.
type Retrying struct {
	next   audit.Generator
	policy RetryPolicy
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func WithRetry(next audit.Generator, policy RetryPolicy, logger *zap.Logger) audit.Generator {
	if policy.MaxRetries <= 0 {
		return next
	}
	return &Retrying{next: next, policy: policy, logger: nopIfNil(logger), sleep: sleepCtx}
}

func (r *Retrying) Generate(ctx context.Context, history []audit.Turn, message string, cfg audit.RoleConfig) (string, error) {
	for attempt := 0; ; attempt++ {
		out, err := r.next.Generate(ctx, history, message, cfg)
		if err == nil {
			return out, nil
		}
		wait, ok := r.backoff(err, attempt)
		if !ok {
			return "", err
		}
		r.logger.Warn("generation failed, retrying",
			zap.String("role", cfg.Name),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))
		if serr := r.sleep(ctx, wait); serr != nil {
			return "", fmt.Errorf("%w; retry abandoned: %w", err, serr)
		}
	}
}

func (r *Retrying) backoff(err error, attempt int) (time.Duration, bool) {
	if attempt >= r.policy.MaxRetries {
		return 0, false
	}
	switch {
	case isRateLimitError(err):
		return pick(r.policy.RateLimitWaits, attempt), true
	case isServerError(err):
		return pick(r.policy.ServerErrorWaits, attempt), true
	default:
		return 0, false
	}
}

func pick(waits []time.Duration, attempt int) time.Duration {
	if len(waits) == 0 {
		return 0
	}
	if attempt >= len(waits) {
		return waits[len(waits)-1]
	}
	return waits[attempt]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "resource_exhausted")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}
