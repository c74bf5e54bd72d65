package provider

import (
	"context"
	"errors"
	"time"

	"github.com/theimaginaryfoundation/persona-drift/audit"
)

// Timed bounds each individual call. Placed inside WithRetry, every retry
// attempt gets a fresh deadline and the back-off waits are not charged to it.
type Timed struct {
	next    audit.Generator
	timeout time.Duration
}

// WithTimeout applies timeout to every call; a non-positive timeout disables it.
func WithTimeout(next audit.Generator, timeout time.Duration) audit.Generator {
	if timeout <= 0 {
		return next
	}
	return &Timed{next: next, timeout: timeout}
}

func (t *Timed) Generate(ctx context.Context, history []audit.Turn, message string, cfg audit.RoleConfig) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	out, err := t.next.Generate(cctx, history, message, cfg)
	if err != nil && ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return "", unavailable("call timed out after "+t.timeout.String(), cctx.Err())
	}
	return out, err
}
