package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/session"
)

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Delete the database file",
		Long: `Delete the database named by --db along with its WAL side files.
All saved objects and unsent operations are lost.

Example:
  fieldsync drop --db ./local.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrop(rootOpts, cmd)
		},
	}
}

func runDrop(opts *RootOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if err := opts.requireDatabase(); err != nil {
		return err
	}
	if _, err := os.Stat(opts.Database); errors.Is(err, os.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	reg := session.NewRegistry(session.SQLiteDriver{}, session.WithLogger(out.Logger()))
	if err := reg.DeleteDatabase(commandContext(cmd), opts.Database); err != nil {
		return WrapExitError(ExitFailure, "failed to delete database", err)
	}

	if out.JSON() {
		return out.Success(map[string]string{"deleted": opts.Database})
	}
	fmt.Fprintf(out.Writer, "Deleted %s\n", opts.Database)
	return nil
}
