package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/theimaginaryfoundation/persona-drift/audit"
	"go.uber.org/zap"
)

const (
	NameGemini = "gemini"
	NameOpenAI = "openai"
)

// Client is a Generator that can also enumerate the models it can call.
type Client interface {
	audit.Generator
	ListModels(ctx context.Context) ([]string, error)
}

// New builds the named provider client.
func New(ctx context.Context, name, apiKey string, logger *zap.Logger) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameGemini:
		return NewGemini(ctx, apiKey, logger)
	case NameOpenAI:
		return NewOpenAI(apiKey, logger)
	default:
		return nil, fmt.Errorf("unknown provider %q (want %s or %s)", name, NameGemini, NameOpenAI)
	}
}

// APIKeyEnv names the environment variable holding the provider's credential.
func APIKeyEnv(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", audit.ErrGenerationUnavailable, op, err)
}

func nopIfNil(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
