package provider

import (
	"context"
	"time"

	"github.com/theimaginaryfoundation/persona-drift/audit"
	"golang.org/x/time/rate"
)

// Paced spaces out calls to stay under provider rate limits.
type Paced struct {
	next    audit.Generator
	limiter *rate.Limiter
}

// WithPacing allows one call per interval; a non-positive interval disables pacing.
func WithPacing(next audit.Generator, interval time.Duration) audit.Generator {
	if interval <= 0 {
		return next
	}
	return &Paced{next: next, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *Paced) Generate(ctx context.Context, history []audit.Turn, message string, cfg audit.RoleConfig) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", unavailable("pacing", err)
	}
	return p.next.Generate(ctx, history, message, cfg)
}
