package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/session"
)

// QueryResult is the JSON payload of the query command.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a raw SQL query through the storage session",
		Long: `Run a raw SQL query against the database named by --db. Extra
arguments bind to ? placeholders in order.

Example:
  fieldsync query --db ./local.db "SELECT local_id, class_name FROM objects"
  fieldsync query --db ./local.db "SELECT data FROM objects WHERE local_id = ?" obj-0001`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], args[1:], cmd)
		},
	}
}

func runQuery(opts *RootOptions, sqlText string, args []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx := commandContext(cmd)

	st, err := opts.openExisting(ctx, out)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	bind := make([]any, len(args))
	for i, a := range args {
		bind[i] = a
	}
	cur, err := st.Session().RawQuery(sqlText, bind...).Wait(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}

	if out.JSON() {
		rows := cur.Maps()
		for _, row := range rows {
			for k, v := range row {
				row[k] = cell(v)
			}
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		return out.Success(QueryResult{Columns: cur.Columns(), Rows: rows})
	}
	return writeRows(out.Writer, cur)
}

func writeRows(w io.Writer, cur *session.Cursor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cur.Columns(), "\t"))
	for cur.Next() {
		row := cur.Row()
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(cell(v))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d rows)\n", cur.Len())
	return nil
}

// cell shows text columns as strings and NULL as NULL.
func cell(v any) any {
	switch v := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	default:
		return v
	}
}
