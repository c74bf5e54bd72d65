package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the lifecycle position of one audit run.
type State string

const (
	StateInitialized State = "initialized"
	StateRunning     State = "running"
	StateCompleted   State = "completed"
	StateAborted     State = "aborted"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// Progress is delivered to the progress hook after every step and on abort.
type Progress struct {
	State State
	Done  int
	Total int
	// Step is nil when the run aborted before a step was recorded.
	Step *AuditStep
	Err  error
}

type Option func(*Auditor)

func WithLogger(l *zap.Logger) Option {
	return func(a *Auditor) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCallTimeout bounds each generation call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(a *Auditor) { a.callTimeout = d }
}

// WithProbe replaces DefaultProbe; an empty probe sends stressors unchanged.
func WithProbe(probe string) Option {
	return func(a *Auditor) { a.probe = probe }
}

func WithTargetConfig(cfg RoleConfig) Option {
	return func(a *Auditor) { a.targetCfg = cfg }
}

func WithProgress(fn func(Progress)) Option {
	return func(a *Auditor) { a.progress = fn }
}

// Auditor drives one audit run: a target conversation seeded with the contract,
// one stressor per step, each reply scored by the judge.
type Auditor struct {
	contract  Contract
	stressors []Stressor
	target    Generator
	judge     *Judge

	targetCfg   RoleConfig
	probe       string
	callTimeout time.Duration
	logger      *zap.Logger
	progress    func(Progress)

	stepMu sync.Mutex

	mu    sync.RWMutex
	state State
	err   error
	next  int

	conv  *Conversation
	trace Trace
}

func NewAuditor(contract Contract, stressors []Stressor, target Generator, judge *Judge, opts ...Option) (*Auditor, error) {
	if len(contract.CorePillars) == 0 {
		return nil, ErrContractInvalid
	}
	if target == nil {
		return nil, errors.New("new auditor: target generator is nil")
	}
	if judge == nil {
		return nil, errors.New("new auditor: judge is nil")
	}
	a := &Auditor{
		contract:  contract,
		stressors: append([]Stressor(nil), stressors...),
		target:    target,
		judge:     judge,
		targetCfg: TargetRoleConfig(""),
		probe:     DefaultProbe,
		logger:    zap.NewNop(),
		state:     StateInitialized,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Start seeds the target conversation and moves the run to Running.
func (a *Auditor) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateInitialized {
		return fmt.Errorf("start audit: state is %s", a.state)
	}
	a.conv = NewConversation(seedTurn(a.contract))
	a.state = StateRunning
	a.logger.Info("audit started",
		zap.Int("stressors", len(a.stressors)),
		zap.Int("pillars", len(a.contract.CorePillars)))
	if len(a.stressors) == 0 {
		a.state = StateCompleted
		a.logger.Info("audit completed", zap.Int("steps", 0))
	}
	return nil
}

// Step processes the next stressor. Step i+1 never begins before step i's reply
// and score are recorded. A target failure aborts the run and returns a
// *GenerationError; judge failures only degrade the recorded step.
func (a *Auditor) Step(ctx context.Context) (AuditStep, error) {
	a.stepMu.Lock()
	defer a.stepMu.Unlock()

	a.mu.RLock()
	state, idx := a.state, a.next
	a.mu.RUnlock()
	if state != StateRunning {
		return AuditStep{}, fmt.Errorf("%w: state is %s", ErrNotRunning, state)
	}

	stressor := a.stressors[idx]
	message := stressorMessage(stressor, a.probe)
	history := a.conv.Turns()

	a.logger.Debug("calling target",
		zap.Int("step", idx+1),
		zap.Int("history_turns", len(history)))

	reply, err := a.generate(ctx, a.target, history, message, a.targetCfg)
	if err != nil {
		genErr := &GenerationError{Role: RoleNameTarget, Err: err}
		a.abort(genErr)
		return AuditStep{}, genErr
	}
	a.conv.AppendExchange(message, reply)

	a.logger.Debug("judging reply", zap.Int("step", idx+1))
	jctx, cancel := a.callContext(ctx)
	verdict := a.judge.Score(jctx, a.contract, stressor, reply)
	cancel()

	step := AuditStep{
		StressorIndex:  stressor.Index,
		StressorText:   stressor.Text,
		TargetResponse: reply,
		RetentionScore: verdict.Score,
		JudgeReasoning: verdict.Reasoning,
		ParseOK:        verdict.ParseOK,
	}
	a.trace.Append(step)

	a.mu.Lock()
	a.next++
	if a.next >= len(a.stressors) {
		a.state = StateCompleted
	}
	state, done := a.state, a.next
	a.mu.Unlock()

	a.logger.Info("audit step recorded",
		zap.Int("step", done),
		zap.Int("total", len(a.stressors)),
		zap.Float64("retention_score", step.RetentionScore),
		zap.Bool("parse_ok", step.ParseOK))
	if state == StateCompleted {
		a.logger.Info("audit completed", zap.Int("steps", done))
	}
	a.notify(Progress{State: state, Done: done, Total: len(a.stressors), Step: &step})
	return step, nil
}

// Run starts the audit if needed and steps until it completes or aborts. The
// returned error is the abort cause; the partial trace stays available.
func (a *Auditor) Run(ctx context.Context) error {
	if a.State() == StateInitialized {
		if err := a.Start(); err != nil {
			return err
		}
	}
	for a.State() == StateRunning {
		if _, err := a.Step(ctx); err != nil {
			return err
		}
	}
	return a.Err()
}

func (a *Auditor) generate(ctx context.Context, gen Generator, history []Turn, message string, cfg RoleConfig) (string, error) {
	cctx, cancel := a.callContext(ctx)
	defer cancel()
	return gen.Generate(cctx, history, message, cfg)
}

func (a *Auditor) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.callTimeout)
}

func (a *Auditor) abort(err error) {
	a.mu.Lock()
	a.state = StateAborted
	a.err = err
	done := a.next
	a.mu.Unlock()

	a.logger.Error("audit aborted",
		zap.Int("completed_steps", done),
		zap.Int("total", len(a.stressors)),
		zap.Error(err))
	a.notify(Progress{State: StateAborted, Done: done, Total: len(a.stressors), Err: err})
}

func (a *Auditor) notify(p Progress) {
	if a.progress != nil {
		a.progress(p)
	}
}

func (a *Auditor) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Err returns the abort cause, or nil.
func (a *Auditor) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.err
}

// Trace returns a snapshot of the steps recorded so far.
func (a *Auditor) Trace() []AuditStep {
	return a.trace.Snapshot()
}

// History returns a copy of the target conversation, or nil before Start.
func (a *Auditor) History() []Turn {
	a.mu.RLock()
	conv := a.conv
	a.mu.RUnlock()
	if conv == nil {
		return nil
	}
	return conv.Turns()
}

func (a *Auditor) Contract() Contract { return a.contract }

func (a *Auditor) Total() int { return len(a.stressors) }
