package audit

import "context"

// Generator is the external text-generation capability. Implementations send
// history followed by message and return the raw reply text. They must not modify
// history, must not retry on their own, and should wrap failures in
// ErrGenerationUnavailable.
type Generator interface {
	Generate(ctx context.Context, history []Turn, message string, cfg RoleConfig) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, history []Turn, message string, cfg RoleConfig) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, history []Turn, message string, cfg RoleConfig) (string, error) {
	return f(ctx, history, message, cfg)
}

const (
	RoleNameTarget = "target"
	RoleNameJudge  = "judge"
)

// RoleConfig selects model parameters for one role.
type RoleConfig struct {
	Name         string
	Model        string
	Temperature  *float64
	SystemPrompt string
	// MaxOutputTokens of 0 leaves the provider default.
	MaxOutputTokens int

	// SchemaName and Schema request structured JSON output when the provider
	// supports it. JSONOutput alone asks for a JSON MIME type.
	JSONOutput bool
	SchemaName string
	Schema     map[string]any
}

func TargetRoleConfig(model string) RoleConfig {
	return RoleConfig{
		Name:         RoleNameTarget,
		Model:        model,
		Temperature:  Float(0.7),
		SystemPrompt: targetPersonaPrompt,
	}
}

func JudgeRoleConfig(model string) RoleConfig {
	return RoleConfig{
		Name:            RoleNameJudge,
		Model:           model,
		Temperature:     Float(0),
		SystemPrompt:    judgePersonaPrompt,
		MaxOutputTokens: 400,
		JSONOutput:      true,
		SchemaName:      "RetentionVerdict",
		Schema:          verdictSchema,
	}
}

func Float(v float64) *float64 { return &v }
