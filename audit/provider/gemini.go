package provider

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/theimaginaryfoundation/persona-drift/audit"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Gemini generates text through the Gemini API. System turns are folded into the
// request's system instruction since contents only carry user and model turns.
type Gemini struct {
	client *genai.Client
	logger *zap.Logger
}

func NewGemini(ctx context.Context, apiKey string, logger *zap.Logger) (*Gemini, error) {
	return NewGeminiWithConfig(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}, logger)
}

// NewGeminiWithConfig allows overriding HTTP options such as the base URL.
func NewGeminiWithConfig(ctx context.Context, cc *genai.ClientConfig, logger *zap.Logger) (*Gemini, error) {
	if cc == nil || cc.APIKey == "" {
		return nil, unavailable("gemini", errors.New("missing API key"))
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, unavailable("gemini client", err)
	}
	return &Gemini{client: client, logger: nopIfNil(logger)}, nil
}

func (g *Gemini) Generate(ctx context.Context, history []audit.Turn, message string, cfg audit.RoleConfig) (string, error) {
	contents, config := geminiRequest(history, message, cfg)

	g.logger.Debug("gemini request",
		zap.String("role", cfg.Name),
		zap.String("model", cfg.Model),
		zap.Int("contents", len(contents)))

	resp, err := g.client.Models.GenerateContent(ctx, cfg.Model, contents, config)
	if err != nil {
		return "", unavailable("gemini generate", err)
	}
	return resp.Text(), nil
}

func geminiRequest(history []audit.Turn, message string, cfg audit.RoleConfig) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	if s := strings.TrimSpace(cfg.SystemPrompt); s != "" {
		system = append(system, s)
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		switch t.Role {
		case audit.RoleSystem:
			system = append(system, t.Text)
		case audit.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Text, genai.RoleUser))
		}
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if cfg.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*cfg.Temperature))
	}
	if cfg.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	if cfg.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}
	return contents, config
}

// ListModels returns ids of models that support generateContent.
func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return nil, unavailable("gemini list models", err)
		}
		if !slices.Contains(m.SupportedActions, "generateContent") {
			continue
		}
		id := m.Name
		if i := strings.LastIndexByte(id, '/'); i != -1 {
			id = id[i+1:]
		}
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
