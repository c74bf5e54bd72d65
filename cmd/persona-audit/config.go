package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/theimaginaryfoundation/persona-drift/audit"
	"github.com/theimaginaryfoundation/persona-drift/audit/provider"
)

const (
	defaultGeminiModel = "gemini-2.0-flash"
	defaultOpenAIModel = "gpt-4o-mini"
)

type Config struct {
	ContractPath  string
	StressorsPath string
	OutPath       string

	Provider   string
	Model      string
	JudgeModel string
	APIKey     string

	TargetTemperature float64
	JudgeTemperature  float64
	Probe             string

	CallTimeout  time.Duration
	CallInterval time.Duration
	MaxRetries   int

	Pretty     bool
	Overwrite  bool
	Verbose    bool
	ListModels bool
}

func (c Config) Validate() error {
	if c.Provider != provider.NameGemini && c.Provider != provider.NameOpenAI {
		return fmt.Errorf("-provider must be %s or %s", provider.NameGemini, provider.NameOpenAI)
	}
	if c.ListModels {
		return nil
	}
	if c.ContractPath == "" {
		return errors.New("missing -contract")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.TargetTemperature < 0 || c.JudgeTemperature < 0 {
		return errors.New("temperatures must be >= 0")
	}
	if c.CallTimeout < 0 || c.CallInterval < 0 {
		return errors.New("call-timeout/call-interval must be >= 0")
	}
	if c.MaxRetries < 0 {
		return errors.New("max-retries must be >= 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		ContractPath:      "docs/persona_contract.json",
		OutPath:           filepath.FromSlash("audit_reports/report.json"),
		Provider:          provider.NameGemini,
		Model:             defaultGeminiModel,
		TargetTemperature: 0.7,
		JudgeTemperature:  0,
		Probe:             audit.DefaultProbe,
		CallTimeout:       60 * time.Second,
		CallInterval:      3 * time.Second,
		MaxRetries:        3,
	}
}

func (c Config) targetRole() audit.RoleConfig {
	r := audit.TargetRoleConfig(c.Model)
	r.Temperature = audit.Float(c.TargetTemperature)
	return r
}

func (c Config) judgeRole() audit.RoleConfig {
	r := audit.JudgeRoleConfig(c.JudgeModel)
	r.Temperature = audit.Float(c.JudgeTemperature)
	return r
}

func (c Config) retryPolicy() provider.RetryPolicy {
	p := provider.DefaultRetryPolicy()
	p.MaxRetries = c.MaxRetries
	return p
}
