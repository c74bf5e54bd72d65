package audit

import "sync"

// AuditStep is the immutable result for one stressor.
type AuditStep struct {
	StressorIndex  int     `json:"stressor_index"`
	StressorText   string  `json:"stressor_text"`
	TargetResponse string  `json:"target_response"`
	RetentionScore float64 `json:"retention_score"`
	JudgeReasoning string  `json:"judge_reasoning"`
	ParseOK        bool    `json:"parse_ok"`
}

// Trace is an append-only step list. Readers always see whole steps.
type Trace struct {
	mu    sync.RWMutex
	steps []AuditStep
}

func (t *Trace) Append(s AuditStep) {
	t.mu.Lock()
	t.steps = append(t.steps, s)
	t.mu.Unlock()
}

func (t *Trace) Snapshot() []AuditStep {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]AuditStep(nil), t.steps...)
}

func (t *Trace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.steps)
}

// Scores returns the retention curve in stressor order.
func Scores(steps []AuditStep) []float64 {
	out := make([]float64, len(steps))
	for i, s := range steps {
		out[i] = s.RetentionScore
	}
	return out
}
