package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/theimaginaryfoundation/persona-drift/audit/fileutils"
)

// Report is the on-disk artifact of one run.
type Report struct {
	RunID        string      `json:"run_id"`
	Provider     string      `json:"provider"`
	TargetModel  string      `json:"target_model"`
	JudgeModel   string      `json:"judge_model"`
	ContractPath string      `json:"contract_path,omitempty"`
	State        State       `json:"state"`
	Error        string      `json:"error,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
	Contract     Contract    `json:"contract"`
	Stressors    int         `json:"stressors"`
	Steps        []AuditStep `json:"steps"`
	Scores       []float64   `json:"scores"`
}

// ReportMeta holds the run facts the Auditor does not know about.
type ReportMeta struct {
	Provider     string
	TargetModel  string
	JudgeModel   string
	ContractPath string
	StartedAt    time.Time
	FinishedAt   time.Time
}

func NewReport(a *Auditor, meta ReportMeta) Report {
	steps := a.Trace()
	if steps == nil {
		steps = []AuditStep{}
	}
	r := Report{
		RunID:        uuid.NewString(),
		Provider:     meta.Provider,
		TargetModel:  meta.TargetModel,
		JudgeModel:   meta.JudgeModel,
		ContractPath: meta.ContractPath,
		State:        a.State(),
		StartedAt:    meta.StartedAt.UTC(),
		FinishedAt:   meta.FinishedAt.UTC(),
		Contract:     a.Contract(),
		Stressors:    a.Total(),
		Steps:        steps,
		Scores:       Scores(steps),
	}
	if err := a.Err(); err != nil {
		r.Error = err.Error()
	}
	return r
}

func WriteReport(path string, r Report, pretty bool) error {
	if path == "" {
		return errors.New("write report: empty path")
	}
	return fileutils.WriteJSONFileAtomic(path, r, pretty)
}
