package fileutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONFileAtomic_CreatesDirAndTrailingNewline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := filepath.Join(dir, "reports", "run.json")

	require.NoError(t, WriteJSONFileAtomic(out, map[string]int{"steps": 5}, false))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "{\"steps\":5}\n", string(b))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "leftover temp files")
}

func TestCheckWritable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "report.json")

	require.NoError(t, CheckWritable(p, false))
	require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))
	assert.ErrorContains(t, CheckWritable(p, false), "already exists")
	assert.NoError(t, CheckWritable(p, true))
	assert.Error(t, CheckWritable("", true))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  short  ", 10, "short"},
		{"abcdef", 3, "abc…"},
		{"abcdef", 0, "abcdef"},
		{"héllo", 2, "h…"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Truncate(tc.in, tc.max), "Truncate(%q, %d)", tc.in, tc.max)
	}
}

func TestFirstJSONObject(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"score":0.4}`, `{"score":0.4}`, true},
		{"prose", `Here you go: {"score": 1, "reasoning": "ok"} hope that helps {"x":2}`, `{"score": 1, "reasoning": "ok"}`, true},
		{"fenced", "```json\n{\"score\": 0.2}\n```", `{"score": 0.2}`, true},
		{"brace in string", `{"reasoning": "kept {both} pillars", "score": 0.9}`, `{"reasoning": "kept {both} pillars", "score": 0.9}`, true},
		{"escaped quote", `{"reasoning": "said \"hi}\"", "score": 0.5}`, `{"reasoning": "said \"hi}\"", "score": 0.5}`, true},
		{"skips invalid", `{not json} then {"score": 0.3}`, `{"score": 0.3}`, true},
		{"nested", `x {"a": {"b": 1}} y`, `{"a": {"b": 1}}`, true},
		{"none", `no json here`, "", false},
		{"unbalanced", `{"score": 0.5`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FirstJSONObject(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
