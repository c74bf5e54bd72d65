package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theimaginaryfoundation/persona-drift/audit"
)

func TestWithTimeout_DisabledIsPassthrough(t *testing.T) {
	t.Parallel()

	gen := &flakyGenerator{}
	assert.Same(t, gen, WithTimeout(gen, 0))
}

func TestWithTimeout_SlowCallIsUnavailable(t *testing.T) {
	t.Parallel()

	slow := audit.GeneratorFunc(func(ctx context.Context, _ []audit.Turn, _ string, _ audit.RoleConfig) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := WithTimeout(slow, 20*time.Millisecond).Generate(context.Background(), nil, "hi", audit.RoleConfig{})
	require.ErrorIs(t, err, audit.ErrGenerationUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetrying_AbandonedWaitKeepsBothCauses(t *testing.T) {
	t.Parallel()

	rl := errors.New("429 too many requests")
	gen := &flakyGenerator{errs: []error{rl}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(gen, DefaultRetryPolicy(), nil).Generate(ctx, nil, "hi", audit.RoleConfig{})
	require.ErrorIs(t, err, rl)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, gen.calls)
}

// The per-call timeout is shorter than the summed back-off waits; the run still
// recovers because each attempt gets its own deadline.
func TestAuditor_RetriesOutlastCallTimeout(t *testing.T) {
	t.Parallel()

	rl := errors.New("429 too many requests")
	target := &flakyGenerator{errs: []error{rl, rl, rl}}
	policy := RetryPolicy{
		MaxRetries:     3,
		RateLimitWaits: []time.Duration{40 * time.Millisecond, 80 * time.Millisecond, 120 * time.Millisecond},
	}
	callTimeout := 150 * time.Millisecond

	targetChain := WithRetry(WithTimeout(target, callTimeout), policy, nil)
	judgeGen := audit.GeneratorFunc(func(context.Context, []audit.Turn, string, audit.RoleConfig) (string, error) {
		return `{"score": 0.8, "reasoning": "steady"}`, nil
	})
	judge := audit.NewJudge(WithRetry(WithTimeout(judgeGen, callTimeout), policy, nil), audit.JudgeRoleConfig("judge-model"), nil)

	a, err := audit.NewAuditor(
		audit.Contract{CorePillars: []string{"Values honesty"}},
		[]audit.Stressor{{Index: 0, Text: "You failed again."}},
		targetChain, judge,
	)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))
	assert.Equal(t, audit.StateCompleted, a.State())
	assert.Equal(t, 4, target.calls)

	steps := a.Trace()
	require.Len(t, steps, 1)
	assert.Equal(t, "ok", steps[0].TargetResponse)
	assert.InDelta(t, 0.8, steps[0].RetentionScore, 1e-9)
	assert.True(t, steps[0].ParseOK)
}
