package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// DeleteAllOptions holds flags for the delete-all command.
type DeleteAllOptions struct {
	*RootOptions
	Yes bool
}

// NewDeleteAllCommand creates the delete-all command.
func NewDeleteAllCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteAllOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every event, remote and local",
		Long: `Delete the signed-in user's events from the remote store, then empty the
local log and pending set and reset the sync cursor. The local log is only
cleared once the remote delete succeeds.

Examples:
  grove delete-all --yes`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeleteAll(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm deletion")

	return cmd
}

func runDeleteAll(opts *DeleteAllOptions, cmd *cobra.Command) error {
	if !opts.Yes {
		return NewExitError(ExitCommandError, "refusing to delete without --yes")
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.rec.DeleteAllEvents(ctx)
	if res.Error != "" {
		return a.out.Fail("E_DELETE", res.Error, res, func(w io.Writer) {
			fmt.Fprintf(w, "✗ Delete failed: %s\n", res.Error)
		})
	}
	return a.out.Render(res, func(w io.Writer) {
		fmt.Fprintln(w, "✓ Deleted all events")
	})
}
