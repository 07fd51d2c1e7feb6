// Package cli is the autotriage command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/petasbytes/autotriage/internal/config"
	"github.com/petasbytes/autotriage/internal/errs"
	"github.com/petasbytes/autotriage/internal/logging"
	"github.com/petasbytes/autotriage/internal/provider"
	"github.com/petasbytes/autotriage/internal/telemetry"
)

// app carries per-invocation state shared by the subcommands.
type app struct {
	v   *viper.Viper
	cfg *config.Config

	// newClient builds the model client; tests replace it with a scripted fake.
	newClient func(provider.Config) (provider.Client, error)
}

func newApp() *app {
	return &app{
		v: viper.New(),
		newClient: func(pc provider.Config) (provider.Client, error) {
			return provider.New(pc)
		},
	}
}

// NewRootCmd creates the root autotriage command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "autotriage",
		Short: "LLM-driven triage of scanner findings",
		Long: `autotriage lets a language model investigate each finding reported by
SonarQube, OWASP Dependency-Check or a CycloneDX SBOM, using read-only tools
over the workspace, and records a structured verdict per finding.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (auto, console, json)")
	root.PersistentFlags().String("workspace-root", "", "repository root the tools may read (default: current directory)")

	// Flags override env and file values only when set explicitly.
	for key, flag := range map[string]string{
		"log.level":            "log-level",
		"log.format":           "log-format",
		"paths.workspace_root": "workspace-root",
	} {
		_ = a.v.BindPFlag(key, root.PersistentFlags().Lookup(flag))
	}

	root.AddCommand(
		newAnalyzeCmd(a),
		newKnownIssuesCmd(a),
		newToolsCmd(a),
		newVersionCmd(),
	)
	return root
}

// init applies defaults, env bindings and the optional config file to the
// flag-bound viper, then loads and validates the configuration.
func (a *app) init(cmd *cobra.Command) error {
	v := a.v
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return errs.Errorf(errs.CodeConfigReadFailure, "reading config file: %w", err)
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Init(logging.Config{Format: cfg.Log.Format, Level: cfg.Log.Level, Out: cmd.ErrOrStderr()})
	if cfg.Telemetry.Observe {
		telemetry.SetObserve(true)
	}
	return nil
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
