package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/loanwatch/internal/config"
	"github.com/roach88/loanwatch/internal/record"
	"github.com/roach88/loanwatch/internal/store"
)

// storedRecordView is the JSON shape for one stored record.
type storedRecordView struct {
	Key            string `json:"key"`
	Stage          string `json:"stage"`
	Status         string `json:"status"`
	Requested      *int64 `json:"requested_cents,omitempty"`
	Approved       *int64 `json:"approved_cents,omitempty"`
	MaxApproved    *int64 `json:"max_approved_cents,omitempty"`
	Notes          string `json:"notes,omitempty"`
	LossReason     string `json:"loss_reason,omitempty"`
	LastObservedAt string `json:"last_observed_at"`
}

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Dump the stored snapshot",
		Long: `Print the persisted snapshot: the last-known state per identity key
that the next cycle will diff against.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(rootOpts, cmd)
		},
	}
	return cmd
}

func runRecords(opts *RootOptions, cmd *cobra.Command) error {
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
	records, err := st.Records(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read records", err)
	}

	if opts.Format == "json" {
		views := make([]storedRecordView, 0, len(records))
		for _, rec := range records {
			views = append(views, toView(rec))
		}
		return formatter.Success(views)
	}

	if len(records) == 0 {
		return formatter.Success("no stored records (next run is a baseline)")
	}
	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "%s  stage=%q status=%q last_observed=%s\n",
			rec.Key, rec.Stage, rec.Status,
			rec.LastObservedAt.UTC().Format(time.RFC3339))
	}
	return formatter.Success(strings.TrimRight(b.String(), "\n"))
}

func toView(rec record.Stored) storedRecordView {
	v := storedRecordView{
		Key:            string(rec.Key),
		Stage:          rec.Stage,
		Status:         rec.Status,
		LastObservedAt: rec.LastObservedAt.UTC().Format(time.RFC3339),
	}
	if rec.RequestedAmount.Valid {
		n := rec.RequestedAmount.Cents
		v.Requested = &n
	}
	if rec.ApprovedAmount.Valid {
		n := rec.ApprovedAmount.Cents
		v.Approved = &n
	}
	if rec.MaxApprovedAmount.Valid {
		n := rec.MaxApprovedAmount.Cents
		v.MaxApproved = &n
	}
	if rec.Notes.Valid {
		v.Notes = rec.Notes.Value
	}
	if rec.LossReason.Valid {
		v.LossReason = rec.LossReason.Value
	}
	return v
}
