package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/artpar/harvestplan/internal/core/validation"
	"github.com/artpar/harvestplan/internal/shell/planner"
	"github.com/artpar/harvestplan/internal/shell/scenario"
	"github.com/artpar/harvestplan/internal/shell/store"
	"github.com/spf13/cobra"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		var sErr *ServerError
		if errors.As(err, &sErr) {
			return sErr.ExitCode
		}
		return ExitConfigError
	}
	return ExitSuccess
}

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	cfg        *Config
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "harvestplan",
		Short:         "Harvest task scheduling and cost reporting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := LoadConfig(a.configPath)
			if err != nil {
				return &ServerError{Op: "LoadConfig", Err: err, ExitCode: ExitConfigError}
			}
			if err := cfg.Validate(); err != nil {
				return &ServerError{Op: "LoadConfig", Err: err, ExitCode: ExitConfigError}
			}
			a.cfg = cfg
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config file")

	root.AddCommand(
		a.serveCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.reportCmd(),
		a.versionCmd(),
	)
	return root
}

// cliLogger logs to stderr so command output on stdout stays clean.
func (a *app) cliLogger() *slog.Logger {
	return newLogger(a.cfg, a.stderr)
}

// =============================================================================
// Commands
// =============================================================================

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := SetupLogger(a.cfg)
			logger.Info("starting harvestplan",
				"version", Version,
				"config", a.configPath,
			)

			server, err := NewServer(a.cfg, logger)
			if err != nil {
				return err
			}
			return server.Start(cmd.Context())
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	var replace string

	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Load a YAML scenario into the database",
		Long: `Load a YAML scenario into the database and print the new plan ID.

Examples:
  harvestplan import scenarios/winter.yaml
  harvestplan import scenarios/winter.yaml --replace plan_1a2b3c4d`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := a.cliLogger()

			plan, err := scenario.Load(args[0])
			if err != nil {
				return &ServerError{Op: "import", Err: err, ExitCode: ExitScenarioError}
			}
			for _, v := range validation.ValidatePlan(plan) {
				logger.Warn("scenario violation", "kind", v.Kind, "task_id", v.TaskID, "message", v.Message)
			}

			s, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if replace != "" {
				plan.ID = replace
				err = s.ReplacePlan(ctx, plan)
			} else {
				err = s.CreatePlan(ctx, plan)
			}
			if err != nil {
				return storeFailure("import", err)
			}

			logger.Info("scenario imported", "plan_id", plan.ID, "tasks", len(plan.Tasks), "teams", len(plan.Teams))
			fmt.Fprintln(a.stdout, plan.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&replace, "replace", "", "Replace the contents of an existing plan")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <plan-id>",
		Short: "Write a plan back out as a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			plan, err := s.GetPlan(cmd.Context(), args[0])
			if err != nil {
				return storeFailure("export", err)
			}

			if output != "" {
				err = scenario.Save(output, plan)
			} else {
				err = scenario.Encode(a.stdout, plan)
			}
			if err != nil {
				return &ServerError{Op: "export", Err: err, ExitCode: ExitScenarioError}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	var (
		month   string
		grouped bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "report <plan-id>",
		Short: "Print a cost and production summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(a.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			rep, err := buildReport(cmd.Context(), s, a.cliLogger(), a.cfg, args[0], month, grouped)
			if err != nil {
				return err
			}

			newReportRenderer(a.cfg.Report.Color && !noColor).Render(a.stdout, *rep)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Scope costs to one month")
	cmd.Flags().BoolVar(&grouped, "grouped", true, "Fold products into product groups")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "harvestplan %s (built %s)\n", Version, BuildTime)
		},
	}
}

// =============================================================================
// Helpers
// =============================================================================

// buildReport gathers every report section through the planning service.
func buildReport(ctx context.Context, s store.Store, logger *slog.Logger, cfg *Config, planID, month string, grouped bool) (*Report, error) {
	svc := planner.NewService(s, logger, planner.WithSweepFactor(cfg.Planner.ReflowSweepFactor))

	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, storeFailure("report", err)
	}
	costs, err := svc.Costs(ctx, planID, month)
	if err != nil {
		if errors.Is(err, planner.ErrMonthNotFound) {
			return nil, &ServerError{Op: "report", Err: err, ExitCode: ExitNotFound}
		}
		return nil, storeFailure("report", err)
	}
	production, err := svc.Production(ctx, planID, grouped)
	if err != nil {
		return nil, storeFailure("report", err)
	}
	balance, err := svc.Balance(ctx, planID)
	if err != nil {
		return nil, storeFailure("report", err)
	}
	violations, err := svc.Validate(ctx, planID)
	if err != nil {
		return nil, storeFailure("report", err)
	}

	return &Report{
		Plan:       plan,
		Month:      month,
		Costs:      costs,
		Production: production,
		Balance:    balance,
		Violations: violations,
	}, nil
}

// storeFailure maps store errors to exit codes.
func storeFailure(op string, err error) error {
	code := ExitDatabaseError
	if store.IsNotFound(err) {
		code = ExitNotFound
	}
	return &ServerError{Op: op, Err: err, ExitCode: code}
}
