package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/state"
)

// HarvestOptions holds flags for the harvest command.
type HarvestOptions struct {
	*RootOptions
	Result     int
	Reflection string
}

// NewHarvestCommand creates the harvest command.
func NewHarvestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HarvestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "harvest <sprout-id>",
		Short: "Harvest an active sprout for soil capacity",
		Long: `Complete an active sprout with a result from 1 to 5. The capacity gained
is computed now, from the sprout's season and environment, the result and
the current soil capacity, and stored in the event.

Examples:
  grove harvest 0193c1f2-... --result 4 --reflection "kept it up"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarvest(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Result, "result", 0, "outcome from 1 (withered) to 5 (flourished) (required)")
	cmd.Flags().StringVar(&opts.Reflection, "reflection", "", "closing note")
	_ = cmd.MarkFlagRequired("result")

	return cmd
}

func runHarvest(opts *HarvestOptions, sproutID string, cmd *cobra.Command) error {
	if opts.Result < 1 || opts.Result > 5 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid result %d: must be between 1 and 5", opts.Result))
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.snapshot()
	sp, ok := snap.Sprouts[sproutID]
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown sprout %s", sproutID))
	}
	if sp.State != state.StateActive {
		return NewExitError(ExitCommandError, fmt.Sprintf("sprout %s is %s, not active", sproutID, sp.State))
	}

	gained := economy.CapacityReward(sp.Season, sp.Environment, opts.Result, snap.SoilCapacity)
	a.out.VerboseLog("capacity %.4f + %.4f", snap.SoilCapacity, gained)

	e := event.New(a.now(), event.SproutHarvested{
		SproutID:       sproutID,
		Result:         opts.Result,
		Reflection:     opts.Reflection,
		CapacityGained: gained,
	})
	return appendEvent(ctx, a, e)
}
