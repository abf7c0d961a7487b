package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/harness"
	"github.com/roach88/fieldsync/internal/value"
)

// ApplyResult is the JSON payload of the apply command.
type ApplyResult struct {
	Scenario string          `json:"scenario"`
	Pass     bool            `json:"pass"`
	Errors   []string        `json:"errors,omitempty"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <script>",
		Short: "Run a script of field operations against the database",
		Long: `Run a YAML or CUE scenario script against the database named by --db,
creating it if needed. Saved objects and their pending operations stay in
the database afterwards.

Example:
  fieldsync apply --db ./local.db ./scripts/counters.yaml
  fieldsync apply --db ./local.db ./scripts/relations.cue --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(rootOpts, args[0], cmd)
		},
	}
}

func runApply(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if err := opts.requireDatabase(); err != nil {
		return err
	}

	sc, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load script", err)
	}

	ctx := commandContext(cmd)
	st, err := opts.open(ctx, out)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	logger := out.Logger()
	logger.Debug("applying script", "scenario", sc.Name, "steps", len(sc.Steps), "db", opts.Database)

	h := harness.NewWithStore(st, logger)
	res := h.Run(ctx, sc)
	snap, err := h.Snapshot(ctx, sc.Name, res)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read back results", err)
	}

	if out.JSON() {
		data, err := value.Marshal(snap)
		if err != nil {
			return err
		}
		if err := out.Success(ApplyResult{
			Scenario: sc.Name,
			Pass:     res.Pass,
			Errors:   res.Errors,
			Snapshot: data,
		}); err != nil {
			return err
		}
	} else {
		writeApplyText(out.Writer, sc.Name, res, snap)
	}

	if !res.Pass {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("script %s failed", sc.Name), reported: true}
	}
	return nil
}

func writeApplyText(w io.Writer, name string, res *harness.Result, snap value.Object) {
	mark := "\u2713"
	if !res.Pass {
		mark = "\u2717"
	}
	fmt.Fprintf(w, "%s %s (%d steps)\n", mark, name, len(res.Steps))
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}

	objects, _ := snap["objects"].(value.Object)
	aliases := make([]string, 0, len(objects))
	for alias := range objects {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		entry, _ := objects[alias].(value.Object)
		fmt.Fprintf(w, "%s %s %s\n", alias, text(entry["class"]), text(entry["local_id"]))
		fmt.Fprintf(w, "  data:    %s\n", value.Key(entry["data"]))
		if p, ok := entry["pending"]; ok {
			fmt.Fprintf(w, "  pending: %s\n", value.Key(p))
		}
		if p, ok := entry["pending_error"]; ok {
			fmt.Fprintf(w, "  pending error: %s\n", text(p))
		}
	}
}

// text renders strings bare and everything else as canonical JSON.
func text(v value.Value) string {
	if s, ok := v.(value.String); ok {
		return string(s)
	}
	return value.Key(v)
}
