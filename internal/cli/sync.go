package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/reconcile"
)

// SyncReport is a sync result plus what is still waiting to be pushed.
type SyncReport struct {
	*reconcile.SyncResult
	Pending int `json:"pending"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push pending events and pull remote ones",
		Long: `Retry every pending push, then pull events from the remote store and merge
them into the local log.

The first sync, and any sync after the local cache format changes, is a full
sync: the local log is replaced by the server's events plus local events
that are still pending. Later syncs pull only records created since the last
one.

Exit codes:
  0 - Sync succeeded
  1 - Sync failed (not signed in, remote unreachable, etc.)
  2 - Command error (database not found, etc.)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
}

func runSync(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.rec.SmartSync(ctx)
	pending, err := a.rec.PendingCount(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read pending set", err)
	}
	report := SyncReport{SyncResult: res, Pending: pending}

	if res.Status != reconcile.StatusSuccess {
		return a.out.Fail("E_SYNC", res.Error, report, func(w io.Writer) {
			fmt.Fprintf(w, "✗ Sync failed (%s): %s\n", res.Mode, res.Error)
			fmt.Fprintf(w, "  %d event(s) pending\n", pending)
		})
	}
	return a.out.Render(report, func(w io.Writer) {
		fmt.Fprintf(w, "✓ Synced (%s): pulled %d, pushed %d\n", res.Mode, res.Pulled, res.Pushed)
		if pending > 0 {
			fmt.Fprintf(w, "  %d event(s) still pending\n", pending)
		}
	})
}
