package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/state"
)

// WaterOptions holds flags for the water command.
type WaterOptions struct {
	*RootOptions
	Note   string
	Prompt string
}

// NewWaterCommand creates the water command.
func NewWaterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WaterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "water <sprout-id>",
		Short: "Water an active sprout with a journal entry",
		Long: `Record a journal entry against an active sprout. A garden has three
waterings per day; the day turns over at 6 AM local time.

Exit codes:
  0 - Sprout watered
  1 - No water left today
  2 - Unknown or inactive sprout, or database error

Examples:
  grove water 0193c1f2-... --note "ran 5k before work"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWater(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Note, "note", "", "journal entry (required)")
	cmd.Flags().StringVar(&opts.Prompt, "prompt", "", "prompt the entry answers")
	_ = cmd.MarkFlagRequired("note")

	return cmd
}

func runWater(opts *WaterOptions, sproutID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd)
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

	e := event.New(a.now(), event.SproutWatered{
		SproutID: sproutID,
		Content:  opts.Note,
		Prompt:   opts.Prompt,
	})
	return appendEvent(ctx, a, e)
}

// ShineOptions holds flags for the shine command.
type ShineOptions struct {
	*RootOptions
	Label  string
	Note   string
	Prompt string
}

// NewShineCommand creates the shine command.
func NewShineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shine <twig-id>",
		Short: "Reflect on a twig with the week's sun",
		Long: `Record a reflection on a twig. A garden has one sun per week; the week
starts Monday at 6 AM local time.

Exit codes:
  0 - Sun shone
  1 - No sun left this week
  2 - Invalid flags or database error

Examples:
  grove shine health --label Health --note "sleep is the lever"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShine(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Label, "label", "", "display label for the twig (defaults to the id)")
	cmd.Flags().StringVar(&opts.Note, "note", "", "reflection (required)")
	cmd.Flags().StringVar(&opts.Prompt, "prompt", "", "prompt the reflection answers")
	_ = cmd.MarkFlagRequired("note")

	return cmd
}

func runShine(opts *ShineOptions, twigID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	label := opts.Label
	if label == "" {
		label = twigID
	}

	e := event.New(a.now(), event.SunShone{
		TwigID:    twigID,
		TwigLabel: label,
		Content:   opts.Note,
		Prompt:    opts.Prompt,
	})
	return appendEvent(ctx, a, e)
}
