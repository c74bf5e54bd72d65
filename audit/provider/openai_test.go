package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theimaginaryfoundation/persona-drift/audit"
)

const responsesBody = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1700000000,
  "status": "completed",
  "model": "gpt-test",
  "output": [
    {
      "type": "message",
      "id": "msg_1",
      "status": "completed",
      "role": "assistant",
      "content": [
        {"type": "output_text", "text": "Keep sketching tonight.", "annotations": []}
      ]
    }
  ]
}`

func TestOpenAI_GenerateSendsHistoryAndConfig(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(responsesBody))
	}))
	defer srv.Close()

	gen, err := NewOpenAI("test-key", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	history := []audit.Turn{
		{Role: audit.RoleSystem, Text: "contract"},
		{Role: audit.RoleUser, Text: "first"},
		{Role: audit.RoleAssistant, Text: "reply"},
	}
	out, err := gen.Generate(context.Background(), history, "second", audit.TargetRoleConfig("gpt-test"))
	require.NoError(t, err)
	assert.Equal(t, "Keep sketching tonight.", out)

	assert.Equal(t, "gpt-test", got["model"])
	assert.NotEmpty(t, got["instructions"])
	assert.InDelta(t, 0.7, got["temperature"], 1e-9)

	input, ok := got["input"].([]any)
	require.True(t, ok, "input=%v", got["input"])
	require.Len(t, input, 4)
	wantRoles := []string{"system", "user", "assistant", "user"}
	wantText := []string{"contract", "first", "reply", "second"}
	for i, item := range input {
		m, ok := item.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, wantRoles[i], m["role"])
		assert.Equal(t, wantText[i], m["content"])
	}
	assert.Len(t, history, 3)
}

func TestOpenAI_JudgeRequestsStrictSchema(t *testing.T) {
	t.Parallel()

	params := openAIParams(nil, "score this", audit.JudgeRoleConfig("gpt-test"))
	b, err := json.Marshal(params)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	text, ok := m["text"].(map[string]any)
	require.True(t, ok, "text=%v", m["text"])
	format, ok := text["format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "RetentionVerdict", format["name"])
	assert.Equal(t, true, format["strict"])
	assert.EqualValues(t, 400, m["max_output_tokens"])
}

func TestOpenAI_AuthFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
	}))
	defer srv.Close()

	gen, err := NewOpenAI("bad-key", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), nil, "hi", audit.TargetRoleConfig("gpt-test"))
	require.ErrorIs(t, err, audit.ErrGenerationUnavailable)
}

func TestNewOpenAI_MissingKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAI("", nil)
	require.ErrorIs(t, err, audit.ErrGenerationUnavailable)
}

func TestOpenAI_ListModelsKeepsTextModels(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "list", "data": [
			{"id": "gpt-4o-mini", "object": "model", "created": 1, "owned_by": "openai"},
			{"id": "text-embedding-3-small", "object": "model", "created": 1, "owned_by": "openai"},
			{"id": "tts-1", "object": "model", "created": 1, "owned_by": "openai"},
			{"id": "whisper-1", "object": "model", "created": 1, "owned_by": "openai"},
			{"id": "gpt-4o-realtime-preview", "object": "model", "created": 1, "owned_by": "openai"},
			{"id": "dall-e-3", "object": "model", "created": 1, "owned_by": "openai"},
			{"id": "o3-mini", "object": "model", "created": 1, "owned_by": "openai"},
			{"id": "gpt-4.1", "object": "model", "created": 1, "owned_by": "openai"}
		]}`))
	}))
	defer srv.Close()

	gen, err := NewOpenAI("test-key", nil, option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	ids, err := gen.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4.1", "gpt-4o-mini", "o3-mini"}, ids)
}
