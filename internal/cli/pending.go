package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/fieldop"
)

// PendingEntry is one object's merged pending change-set.
type PendingEntry struct {
	LocalID string          `json:"local_id"`
	Ops     json.RawMessage `json:"ops"`
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending [local-id]",
		Short: "Print pending change-sets waiting to be sent",
		Long: `Print the pending change-set of one object, or of every object with
saved, unacknowledged operations. Each object's saved rows are folded in
order into one operation per field.

Example:
  fieldsync pending --db ./local.db
  fieldsync pending --db ./local.db 0192f6c4-7d1e-7a3b-9c1f-2b9e5c3d4a10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPending(rootOpts, args, cmd)
		},
	}
}

func runPending(opts *RootOptions, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx := commandContext(cmd)

	st, err := opts.openExisting(ctx, out)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	ids := args
	if len(ids) == 0 {
		if ids, err = st.PendingIDs(ctx); err != nil {
			return WrapExitError(ExitFailure, "failed to list pending objects", err)
		}
	}

	entries := make([]PendingEntry, 0, len(ids))
	for _, id := range ids {
		cs, err := st.Pending(ctx, id)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to read pending operations of %s", id), err)
		}
		data, err := encodeChangeSet(cs)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to encode pending operations of %s", id), err)
		}
		entries = append(entries, PendingEntry{LocalID: id, Ops: data})
	}

	if out.JSON() {
		return out.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out.Writer, "No pending operations.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out.Writer, "%s\t%s\n", e.LocalID, e.Ops)
	}
	return nil
}

func encodeChangeSet(cs *fieldop.ChangeSet) (json.RawMessage, error) {
	data, err := cs.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
