package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/theimaginaryfoundation/persona-drift/audit"
	"github.com/theimaginaryfoundation/persona-drift/audit/fileutils"
	"github.com/theimaginaryfoundation/persona-drift/audit/provider"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(provider.APIKeyEnv(cfg.Provider))
	}
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "missing %s (or pass -api-key)\n", provider.APIKeyEnv(cfg.Provider))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := provider.New(ctx, cfg.Provider, apiKey, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if cfg.ListModels {
		ids, err := client.ListModels(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		for _, id := range ids {
			fmt.Fprintln(os.Stdout, id)
		}
		return
	}

	code := run(ctx, cfg, client, logger, os.Stdout, os.Stderr)
	_ = logger.Sync()
	os.Exit(code)
}

// run executes one audit and returns the process exit code: 0 completed,
// 1 aborted or report write failure, 2 bad input.
func run(ctx context.Context, cfg Config, gen audit.Generator, logger *zap.Logger, stdout, stderr io.Writer) int {
	contract, err := audit.LoadContract(cfg.ContractPath)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	stressors := audit.Stressors()
	if cfg.StressorsPath != "" {
		stressors, err = audit.LoadStressors(cfg.StressorsPath)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return 2
		}
	}

	if err := fileutils.CheckWritable(cfg.OutPath, cfg.Overwrite); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	// Pacing and the call timeout sit inside the retry loop so each attempt is
	// spaced and bounded on its own.
	gen = provider.WithRetry(
		provider.WithPacing(provider.WithTimeout(gen, cfg.CallTimeout), cfg.CallInterval),
		cfg.retryPolicy(), logger)
	judge := audit.NewJudge(gen, cfg.judgeRole(), logger.Named("judge"))

	auditor, err := audit.NewAuditor(contract, stressors, gen, judge,
		audit.WithTargetConfig(cfg.targetRole()),
		audit.WithProbe(cfg.Probe),
		audit.WithLogger(logger.Named("auditor")),
		audit.WithProgress(func(p audit.Progress) { printProgress(stdout, p) }),
	)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	startedAt := time.Now()
	runErr := auditor.Run(ctx)
	finishedAt := time.Now()

	report := audit.NewReport(auditor, audit.ReportMeta{
		Provider:     cfg.Provider,
		TargetModel:  cfg.Model,
		JudgeModel:   cfg.JudgeModel,
		ContractPath: cfg.ContractPath,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	})
	if err := audit.WriteReport(cfg.OutPath, report, cfg.Pretty); err != nil {
		fmt.Fprintln(stderr, fmt.Errorf("write report: %w", err).Error())
		return 1
	}

	fmt.Fprintf(stdout, "state=%s steps=%d/%d scores=%s report=%s\n",
		report.State, len(report.Steps), report.Stressors, formatScores(report.Scores), cfg.OutPath)

	if runErr != nil {
		fmt.Fprintln(stderr, runErr.Error())
		if errors.Is(runErr, audit.ErrGenerationUnavailable) {
			fmt.Fprintln(stderr, "target model unavailable: check the API key, model id and quota, then re-run")
		}
		return 1
	}
	return 0
}

func printProgress(w io.Writer, p audit.Progress) {
	if p.Step == nil {
		fmt.Fprintf(w, "step=%d/%d state=%s error=%q\n", p.Done, p.Total, p.State, errString(p.Err))
		return
	}
	fmt.Fprintf(w, "step=%d/%d score=%.2f parse_ok=%t reason=%q\n",
		p.Done, p.Total, p.Step.RetentionScore, p.Step.ParseOK, fileutils.Truncate(p.Step.JudgeReasoning, 160))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func formatScores(scores []float64) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%.2f", s)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.ContractPath, "contract", cfg.ContractPath, "Path to the identity contract JSON file")
	fs.StringVar(&cfg.StressorsPath, "stressors", "", "Optional YAML file replacing the built-in stressor catalog")
	fs.StringVar(&cfg.OutPath, "out", cfg.OutPath, "Path for the JSON audit report")
	fs.StringVar(&cfg.Provider, "provider", cfg.Provider, "Model provider: gemini or openai")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Target model id (e.g. gemini-2.0-flash, gpt-4o-mini)")
	fs.StringVar(&cfg.JudgeModel, "judge-model", "", "Judge model id (default: -model)")
	fs.StringVar(&cfg.APIKey, "api-key", "", "API key (overrides GEMINI_API_KEY / OPENAI_API_KEY)")
	fs.Float64Var(&cfg.TargetTemperature, "target-temperature", cfg.TargetTemperature, "Sampling temperature for the target model")
	fs.Float64Var(&cfg.JudgeTemperature, "judge-temperature", cfg.JudgeTemperature, "Sampling temperature for the judge model")
	fs.StringVar(&cfg.Probe, "probe", cfg.Probe, "Text appended to every stressor (empty disables)")
	fs.DurationVar(&cfg.CallTimeout, "call-timeout", cfg.CallTimeout, "Timeout per model call (0 disables)")
	fs.DurationVar(&cfg.CallInterval, "call-interval", cfg.CallInterval, "Minimum spacing between model calls (0 disables)")
	fs.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Retries per call on rate limit / server errors (0 disables)")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print the report JSON")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite an existing report file")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Debug logging")
	fs.BoolVar(&cfg.ListModels, "list-models", false, "List models available to the API key and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	modelSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "model" {
			modelSet = true
		}
	})
	if !modelSet && cfg.Provider == provider.NameOpenAI {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.JudgeModel == "" {
		cfg.JudgeModel = cfg.Model
	}
	if cfg.ContractPath != "" {
		cfg.ContractPath = filepath.Clean(cfg.ContractPath)
	}
	if cfg.StressorsPath != "" {
		cfg.StressorsPath = filepath.Clean(cfg.StressorsPath)
	}
	if cfg.OutPath != "" {
		cfg.OutPath = filepath.Clean(cfg.OutPath)
	}
	return cfg, nil
}
