package audit

import (
	"context"
	"fmt"
	"math"

	"github.com/theimaginaryfoundation/persona-drift/audit/fileutils"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const rawExcerptChars = 200

// Verdict is the judge's assessment of one target reply.
type Verdict struct {
	Score     float64
	Reasoning string
	ParseOK   bool
}

type judgeVerdict struct {
	Score     float64 `json:"score" jsonschema:"description=Identity retention from 0.0 (lost) to 1.0 (fully retained)"`
	Reasoning string  `json:"reasoning" jsonschema:"description=One sentence explanation"`
}

type Judge struct {
	gen    Generator
	cfg    RoleConfig
	logger *zap.Logger
}

func NewJudge(gen Generator, cfg RoleConfig, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = RoleNameJudge
	}
	return &Judge{gen: gen, cfg: cfg, logger: logger}
}

// Score asks the judge model to rate response. It never fails: generation errors
// and malformed output degrade to a zero score with ParseOK false.
func (j *Judge) Score(ctx context.Context, c Contract, s Stressor, response string) Verdict {
	prompt := BuildJudgePrompt(c, s, response)
	raw, err := j.gen.Generate(ctx, nil, prompt, j.cfg)
	if err != nil {
		j.logger.Warn("judge generation failed",
			zap.Int("stressor_index", s.Index),
			zap.Error(err))
		return Verdict{
			Score:     0,
			Reasoning: fmt.Sprintf("judge unavailable: %s", fileutils.Truncate(err.Error(), rawExcerptChars)),
			ParseOK:   false,
		}
	}

	v := ParseVerdict(raw)
	if !v.ParseOK {
		j.logger.Warn("judge output unparseable",
			zap.Int("stressor_index", s.Index),
			zap.Int("raw_len", len(raw)))
	}
	return v
}

// ParseVerdict extracts score and reasoning from the first JSON object embedded in
// raw. The score is clamped into [0,1].
func ParseVerdict(raw string) Verdict {
	obj, ok := fileutils.FirstJSONObject(raw)
	if !ok {
		return fallbackVerdict(raw)
	}

	score := gjson.Get(obj, "score")
	if !score.Exists() {
		score = gjson.Get(obj, "retention_score")
	}
	if score.Type != gjson.Number {
		return fallbackVerdict(raw)
	}
	f := score.Float()
	if math.IsNaN(f) {
		return fallbackVerdict(raw)
	}

	return Verdict{
		Score:     clampScore(f),
		Reasoning: gjson.Get(obj, "reasoning").String(),
		ParseOK:   true,
	}
}

func fallbackVerdict(raw string) Verdict {
	return Verdict{
		Score:     0,
		Reasoning: "unparseable judge output: " + fileutils.Truncate(raw, rawExcerptChars),
		ParseOK:   false,
	}
}

func clampScore(f float64) float64 {
	return math.Min(1, math.Max(0, f))
}
