package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theimaginaryfoundation/persona-drift/audit"
)

func TestWithPacing_DisabledIsPassthrough(t *testing.T) {
	t.Parallel()

	gen := &flakyGenerator{}
	assert.Same(t, gen, WithPacing(gen, 0))
}

func TestWithPacing_FirstCallImmediateThenWaits(t *testing.T) {
	t.Parallel()

	gen := &flakyGenerator{}
	paced := WithPacing(gen, time.Hour)

	out, err := paced.Generate(context.Background(), nil, "one", audit.RoleConfig{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = paced.Generate(ctx, nil, "two", audit.RoleConfig{})
	require.ErrorIs(t, err, audit.ErrGenerationUnavailable)
	assert.Equal(t, 1, gen.calls)
}
