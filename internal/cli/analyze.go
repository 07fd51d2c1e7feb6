package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/petasbytes/autotriage/internal/config"
	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/parsers"
	"github.com/petasbytes/autotriage/internal/provider"
	"github.com/petasbytes/autotriage/internal/report"
	"github.com/petasbytes/autotriage/internal/runner"
	"github.com/petasbytes/autotriage/internal/triage"
	"github.com/petasbytes/autotriage/memory"
	"github.com/petasbytes/autotriage/tools"
)

type analyzeFlags struct {
	sonarqube       bool
	dependencyCheck bool
	sbom            bool
	limit           int
	format          string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze [subfolder]",
		Short: "Investigate every scanner finding and write the triage reports",
		Long: `Parse the scanner outputs under the input directory, let the model
investigate each finding in severity order, and write problems.json,
analysis_report.json and analysis_summary.md to the output directory.

With no source flags, SonarQube and Dependency-Check results are processed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var subfolder string
			if len(args) == 1 {
				subfolder = args[0]
			}
			return a.runAnalyze(cmd, subfolder, f)
		},
	}

	cmd.Flags().BoolVar(&f.sonarqube, "sonarqube", false, "process SonarQube results")
	cmd.Flags().BoolVar(&f.dependencyCheck, "dependency-check", false, "process OWASP Dependency-Check results")
	cmd.Flags().BoolVar(&f.sbom, "sbom", false, "process vulnerabilities listed in the CycloneDX SBOM")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "analyze at most this many problems (0 = all)")
	cmd.Flags().StringVar(&f.format, "format", report.FormatJSON, "analysis report format (json, yaml)")
	cmd.Flags().String("input-dir", "", "directory holding the scanner outputs (default: analysis-inputs)")
	cmd.Flags().String("output-dir", "", "directory to write results to (default: analysis-outputs)")
	cmd.Flags().Int("max-iterations", 0, "maximum tool calls per problem (default: 5)")

	for key, flag := range map[string]string{
		"paths.input_dir":         "input-dir",
		"paths.output_dir":        "output-dir",
		"analysis.max_iterations": "max-iterations",
	} {
		_ = a.v.BindPFlag(key, cmd.Flags().Lookup(flag))
	}
	return cmd
}

// sources picks the parsers for the selected flags.
func (f analyzeFlags) sources() []parsers.Parser {
	if !f.sonarqube && !f.dependencyCheck && !f.sbom {
		f.sonarqube, f.dependencyCheck = true, true
	}
	var ps []parsers.Parser
	if f.sonarqube {
		ps = append(ps, parsers.SonarQube{})
	}
	if f.dependencyCheck {
		ps = append(ps, parsers.DependencyCheck{})
	}
	if f.sbom {
		ps = append(ps, parsers.CycloneDX{})
	}
	return ps
}

func (a *app) runAnalyze(cmd *cobra.Command, subfolder string, f analyzeFlags) error {
	cfg := a.cfg
	switch f.format {
	case report.FormatJSON, report.FormatYAML:
	default:
		return errs.New(errs.CodeCLIInputInvalid, fmt.Sprintf("--format must be json or yaml, got %q", f.format))
	}
	if f.limit < 0 {
		return errs.New(errs.CodeCLIInputInvalid, "--limit must not be negative")
	}
	if fi, err := os.Stat(cfg.Paths.InputDir); err != nil || !fi.IsDir() {
		return errs.New(errs.CodeCLIInputInvalid,
			fmt.Sprintf("input directory %q does not exist", cfg.Paths.InputDir))
	}
	if cfg.APIKey() == "" {
		return errs.New(errs.CodeProviderRequestInvalid, cfg.APIKeyEnv()+" environment variable is required")
	}

	client, err := a.newClient(cfg.ProviderConfig())
	if err != nil {
		return err
	}
	b := &batch{
		cfg:       cfg,
		client:    client,
		sources:   f.sources(),
		limit:     f.limit,
		format:    f.format,
		subfolder: subfolder,
		runID:     uuid.NewString(),
		out:       cmd.OutOrStdout(),
		progress:  cmd.ErrOrStderr(),
	}
	_, err = b.run(cmd.Context())
	return err
}

// batch is one analyze invocation: parse, analyze sequentially, report.
type batch struct {
	cfg       *config.Config
	client    provider.Client
	sources   []parsers.Parser
	limit     int
	format    string
	subfolder string
	runID     string
	out       io.Writer
	progress  io.Writer
}

// run analyzes every problem in severity order. A hard failure from one
// problem stops the batch after its verdict and the partial reports are
// written; the failure is returned.
func (b *batch) run(ctx context.Context) (report.Report, error) {
	log := logging.With("batch").With().Str("run_id", b.runID).Logger()
	cfg := b.cfg
	outputDir := cfg.Paths.OutputDir

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return report.Report{}, errs.Wrap(err, errs.CodeReportWriteFailure, "create output dir")
	}

	problems, failures := parsers.ParseInputDir(cfg.Paths.InputDir, b.sources...)
	for _, err := range failures {
		fmt.Fprintf(b.out, "%s %v\n", color.YellowString("warning:"), err)
	}
	triage.SortBySeverity(problems)
	if b.limit > 0 && len(problems) > b.limit {
		problems = problems[:b.limit]
	}
	if _, err := report.WriteProblems(outputDir, problems); err != nil {
		return report.Report{}, err
	}

	label := b.subfolder
	if label == "" {
		label = "."
	}
	fmt.Fprintf(b.out, "Analyzing %s: %d problem(s), max %d tool calls each\n",
		label, len(problems), cfg.Analysis.MaxIterations)

	reg, err := tools.NewDefaultRegistry()
	if err != nil {
		return report.Report{}, err
	}
	inputDir, _ := filepath.Abs(cfg.Paths.InputDir)
	r := runner.New(b.client, reg, tools.Env{
		WorkspaceRoot:  cfg.Paths.WorkspaceRoot,
		InputDir:       inputDir,
		KnownIssuesDir: cfg.Paths.KnownIssuesDir,
		SearchTimeout:  cfg.Search.Timeout,
	}, runner.Options{
		MaxIterations:      cfg.Analysis.MaxIterations,
		ContextBudget:      cfg.Analysis.ContextBudget,
		ToolResultMaxRunes: cfg.Analysis.ToolResultMaxRunes,
		Model:              cfg.Model.Primary,
	})

	spin := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(b.progress))
	entries := make([]report.Entry, 0, len(problems))
	var hardErr error
	for i, p := range problems {
		spin.Suffix = fmt.Sprintf(" [%d/%d] %s", i+1, len(problems), p.ID)
		spin.Start()
		res, err := r.Analyze(ctx, p)
		spin.Stop()

		entries = append(entries, report.NewEntry(p, res.Verdict))
		b.printVerdict(i+1, len(problems), p, res)
		if _, lerr := memory.SaveLog(outputDir, memory.Log{
			RunID:      b.runID,
			ProblemID:  p.ID,
			Model:      cfg.Model.Primary,
			State:      string(res.State),
			ModelCalls: res.ModelCalls,
			Messages:   memory.FromProvider(res.Messages),
		}); lerr != nil {
			log.Warn().Err(lerr).Str("problem_id", p.ID).Msg("conversation log not saved")
		}
		if err != nil {
			log.Error().Err(err).Str("problem_id", p.ID).Msg("stopping batch")
			hardErr = err
			break
		}
	}

	rep := report.Build(b.runID, len(problems), entries)
	paths, werr := report.Write(outputDir, rep, b.format)
	if werr != nil {
		if hardErr != nil {
			log.Error().Err(werr).Msg("partial report not written")
			return rep, hardErr
		}
		return rep, werr
	}
	paths = append(paths, filepath.Join(filepath.Dir(paths[0]), memory.LogDir))
	report.PrintSummary(b.out, rep, paths...)
	return rep, hardErr
}

func (b *batch) printVerdict(n, total int, p triage.Problem, res runner.Result) {
	v := res.Verdict
	var status string
	switch {
	case v.AnalysisFailed:
		status = color.YellowString("analysis failed")
	case v.IsApplicable:
		status = color.RedString("applicable (%s)", v.Severity)
	default:
		status = color.GreenString("not applicable")
	}
	fmt.Fprintf(b.out, "[%d/%d] %s: %s after %d step(s)\n", n, total, p.ID, status, len(res.Steps))
}
