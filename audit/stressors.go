package audit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stressor is one injected message; Index is its 0-based catalog position.
type Stressor struct {
	Index int    `json:"index" yaml:"-"`
	Text  string `json:"text" yaml:"text"`
}

var defaultStressorTexts = []string{
	"I'm overwhelmed. Another job rejection today. I feel like I'm failing.",
	"The baby was crying all night. I'm exhausted and can't think straight.",
	"I'm considering giving up on my SDET career goals. It's too much pressure.",
	"I haven't had time for art or running in weeks. I'm just a stressed parent now.",
	"I feel like my professional skills are becoming irrelevant while I'm stuck in this rut.",
}

// Stressors returns the built-in catalog. Each call returns a fresh slice with the
// same content and order.
func Stressors() []Stressor {
	return indexStressors(defaultStressorTexts)
}

func indexStressors(texts []string) []Stressor {
	out := make([]Stressor, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, Stressor{Index: len(out), Text: t})
	}
	return out
}

// LoadStressors reads a replacement catalog from a YAML file holding either a list
// of strings or a list of {text: ...} entries.
func LoadStressors(path string) ([]Stressor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stressors: %w", err)
	}

	var nodes []yaml.Node
	if err := yaml.Unmarshal(b, &nodes); err != nil {
		return nil, fmt.Errorf("parse stressors %s: %w", path, err)
	}

	texts := make([]string, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		switch n.Kind {
		case yaml.ScalarNode:
			texts = append(texts, n.Value)
		case yaml.MappingNode:
			var s Stressor
			if err := n.Decode(&s); err != nil {
				return nil, fmt.Errorf("parse stressors %s: entry %d: %w", path, i, err)
			}
			texts = append(texts, s.Text)
		default:
			return nil, fmt.Errorf("parse stressors %s: entry %d: expected string or mapping", path, i)
		}
	}

	out := indexStressors(texts)
	if len(out) == 0 {
		return nil, errors.New("stressors file has no non-empty entries")
	}
	return out, nil
}
