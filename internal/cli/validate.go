package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/loanwatch/internal/config"
	"github.com/roach88/loanwatch/internal/policy"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file without running a cycle",
		Long: `Validate the loanwatch config file: YAML structure against the schema,
environment overrides, and the policy vocabulary. Exits non-zero if the
config would fail a run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var errs []string

	cfg, err := config.Load(opts.Config)
	if err != nil {
		errs = append(errs, err.Error())
	} else {
		// The classifier applies the same fail-fast checks a run would.
		if _, cerr := policy.NewClassifier(policy.Vocabulary{
			ClosedStatuses: cfg.Policy.ClosedStatuses,
			ExcludedStages: cfg.Policy.ExcludedStages,
		}); cerr != nil {
			errs = append(errs, cerr.Error())
		}
	}

	if len(errs) > 0 {
		if ferr := formatter.Error("INVALID_CONFIG", "config validation failed", errs); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "config validation failed", nil)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	formatter.VerboseLog("config %s parsed and validated", opts.Config)
	return formatter.Success("config valid")
}
