package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loanwatch/internal/change"
	"github.com/roach88/loanwatch/internal/config"
	"github.com/roach88/loanwatch/internal/cycle"
	"github.com/roach88/loanwatch/internal/metrics"
	"github.com/roach88/loanwatch/internal/notify"
	"github.com/roach88/loanwatch/internal/policy"
	"github.com/roach88/loanwatch/internal/source"
	"github.com/roach88/loanwatch/internal/store"
)

// RunCmdOptions holds flags for the run command.
type RunCmdOptions struct {
	*RootOptions
	DryRun bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunCmdOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one poll cycle",
		Long: `Fetch the current snapshot from the portal, diff it against the last
persisted snapshot, deliver delivery-eligible change notifications to the
configured webhook, persist the new snapshot, and record a run summary.

Example:
  loanwatch run --config /etc/loanwatch/loanwatch.yaml
  loanwatch run --dry-run --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCycle(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false,
		"log eligible notifications instead of posting to the webhook")

	return cmd
}

// logNotifier is the --dry-run delivery sink: eligible events go to the
// log, the webhook is never touched, the baseline still advances.
type logNotifier struct{}

func (logNotifier) Deliver(ctx context.Context, events []change.Event) error {
	for _, ev := range events {
		slog.Info("dry-run notification", "kind", ev.Kind(), "text", notify.FormatEvent(ev))
	}
	return nil
}

func runCycle(opts *RunCmdOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

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

	classifier, err := policy.NewClassifier(policy.Vocabulary{
		ClosedStatuses: cfg.Policy.ClosedStatuses,
		ExcludedStages: cfg.Policy.ExcludedStages,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid policy vocabulary", err)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	src, err := source.New(source.Config{
		URL:     cfg.Source.URL,
		Token:   cfg.Source.Token,
		Timeout: time.Duration(cfg.Source.Timeout),
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build source client", err)
	}
	defer src.Close()

	var notifier cycle.Notifier
	if opts.DryRun {
		notifier = logNotifier{}
	} else {
		wh, err := notify.NewWebhook(notify.Config{
			URL:     cfg.Webhook.URL,
			Timeout: time.Duration(cfg.Webhook.Timeout),
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build webhook", err)
		}
		defer wh.Close()
		notifier = wh
	}

	runner := cycle.NewRunner(src, st, notifier, st,
		policy.NewPolicy(classifier, cfg.Policy.DeliverClosed))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sum, runErr := runner.Run(ctx)

	if cfg.Metrics.PushgatewayURL != "" {
		// Best-effort: a dead pushgateway must not fail the cycle.
		if pushErr := metrics.Push(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, sum); pushErr != nil {
			slog.Warn("metrics push failed", "error", pushErr)
		}
	}

	if runErr != nil {
		if ferr := formatter.Error("CYCLE_FAILED", runErr.Error(), sum); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "cycle failed", runErr)
	}

	if opts.Format == "json" {
		return formatter.Success(sum)
	}
	return formatter.Success(fmt.Sprintf(
		"cycle %s: observed=%d baseline=%t changes=%d new=%d delivered=%d missing=%d duration=%s",
		sum.CycleID, sum.Observed, sum.Baseline, sum.Changes, sum.NewRecords,
		sum.Delivered, sum.Missing, sum.Duration.Round(time.Millisecond)))
}
