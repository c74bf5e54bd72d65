package provider

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/theimaginaryfoundation/persona-drift/audit"
	"go.uber.org/zap"
)

// OpenAI generates text through the Responses API.
type OpenAI struct {
	client *openai.Client
	logger *zap.Logger
}

func NewOpenAI(apiKey string, logger *zap.Logger, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, unavailable("openai", errors.New("missing API key"))
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAI{client: &client, logger: nopIfNil(logger)}, nil
}

func (o *OpenAI) Generate(ctx context.Context, history []audit.Turn, message string, cfg audit.RoleConfig) (string, error) {
	params := openAIParams(history, message, cfg)

	o.logger.Debug("openai request",
		zap.String("role", cfg.Name),
		zap.String("model", cfg.Model),
		zap.Int("history_turns", len(history)))

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", unavailable("openai responses", err)
	}
	return resp.OutputText(), nil
}

func openAIParams(history []audit.Turn, message string, cfg audit.RoleConfig) responses.ResponseNewParams {
	items := make([]responses.ResponseInputItemUnionParam, 0, len(history)+1)
	for _, t := range history {
		items = append(items, responses.ResponseInputItemParamOfMessage(t.Text, openAIRole(t.Role)))
	}
	items = append(items, responses.ResponseInputItemParamOfMessage(message, responses.EasyInputMessageRoleUser))

	params := responses.ResponseNewParams{
		Model: cfg.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if cfg.SystemPrompt != "" {
		params.Instructions = openai.String(cfg.SystemPrompt)
	}
	if cfg.Temperature != nil {
		params.Temperature = openai.Float(*cfg.Temperature)
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(cfg.MaxOutputTokens))
	}
	if cfg.Schema != nil {
		name := cfg.SchemaName
		if name == "" {
			name = "Output"
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: cfg.Schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		}
	}
	return params
}

func openAIRole(r audit.TurnRole) responses.EasyInputMessageRole {
	switch r {
	case audit.RoleSystem:
		return responses.EasyInputMessageRoleSystem
	case audit.RoleAssistant:
		return responses.EasyInputMessageRoleAssistant
	default:
		return responses.EasyInputMessageRoleUser
	}
}

func (o *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	iter := o.client.Models.ListAutoPaging(ctx)
	var ids []string
	for iter.Next() {
		if id := iter.Current().ID; isOpenAITextModel(id) {
			ids = append(ids, id)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, unavailable("openai list models", err)
	}
	sort.Strings(ids)
	return ids, nil
}

var (
	openAITextPrefixes  = []string{"gpt-", "chatgpt-", "o1", "o3", "o4"}
	openAINonTextMarker = []string{"embedding", "tts", "whisper", "transcribe", "realtime", "audio", "image", "dall-e", "moderation", "search"}
)

// isOpenAITextModel reports whether id names a chat/text generation model. The
// models endpoint carries no capability data, so the id is all there is.
func isOpenAITextModel(id string) bool {
	id = strings.ToLower(id)
	if !slices.ContainsFunc(openAITextPrefixes, func(p string) bool { return strings.HasPrefix(id, p) }) {
		return false
	}
	return !slices.ContainsFunc(openAINonTextMarker, func(m string) bool { return strings.Contains(id, m) })
}
