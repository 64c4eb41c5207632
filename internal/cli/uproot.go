package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/state"
)

// NewUprootCommand creates the uproot command.
func NewUprootCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uproot <sprout-id>",
		Short: "Abandon an active sprout for a partial soil refund",
		Long: `Remove an active sprout from the garden. A quarter of its planting cost
returns to available soil.

Examples:
  grove uproot 0193c1f2-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUproot(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runUproot(opts *RootOptions, sproutID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sp, ok := a.snapshot().Sprouts[sproutID]
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown sprout %s", sproutID))
	}
	if sp.State != state.StateActive {
		return NewExitError(ExitCommandError, fmt.Sprintf("sprout %s is %s, not active", sproutID, sp.State))
	}

	refund := economy.UprootRefund(sp.SoilCost)
	a.out.VerboseLog("refund %.4f of %.4f", refund, sp.SoilCost)

	e := event.New(a.now(), event.SproutUprooted{
		SproutID:     sproutID,
		SoilReturned: refund,
	})
	return appendEvent(ctx, a, e)
}
