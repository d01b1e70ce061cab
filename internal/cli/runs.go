package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loanwatch/internal/config"
	"github.com/roach88/loanwatch/internal/store"
)

// RunsCmdOptions holds flags for the runs command.
type RunsCmdOptions struct {
	*RootOptions
	Limit int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsCmdOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent run summaries",
		Long: `Print recent cycle summaries from the run log, newest first:
counts, duration, and whether the cycle failed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum summaries to show")

	return cmd
}

func runRuns(opts *RunsCmdOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runs, err := st.Runs(ctx, opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read runs", err)
	}

	if opts.Format == "json" {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		return formatter.Success("no runs recorded")
	}
	var b strings.Builder
	for _, sum := range runs {
		status := "ok"
		if sum.Err != "" {
			status = "failed: " + sum.Err
		}
		fmt.Fprintf(&b, "%s  %s  observed=%d changes=%d delivered=%d duration=%s  %s\n",
			sum.StartedAt.UTC().Format(time.RFC3339), sum.CycleID,
			sum.Observed, sum.Changes, sum.Delivered,
			sum.Duration.Round(time.Millisecond), status)
	}
	return formatter.Success(strings.TrimRight(b.String(), "\n"))
}
