package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/state"
)

// LeafSummary is a leaf and the sprouts grouped under it.
type LeafSummary struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Sprouts []string `json:"sprouts"`
}

// TwigSummary is one twig of the garden.
type TwigSummary struct {
	ID      string          `json:"id"`
	Sprouts int             `json:"sprouts"`
	Active  []SproutSummary `json:"active"`
	Leaves  []LeafSummary   `json:"leaves"`
}

// NewTwigsCommand creates the twigs command.
func NewTwigsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "twigs [twig-id]",
		Short: "Show sprouts and leaves per twig",
		Long: `List every twig that has sprouts or leaves, with its active sprouts and
its leaves. Give a twig id to show only that twig.

Examples:
  grove twigs
  grove twigs health --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTwigs(rootOpts, args, cmd)
		},
	}
}

func runTwigs(opts *RootOptions, args []string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.snapshot()
	twigs := snap.Twigs()
	if len(args) == 1 {
		twigs = args
	}

	result := make([]TwigSummary, 0, len(twigs))
	for _, id := range twigs {
		result = append(result, twigSummary(snap, id))
	}
	return a.out.Render(result, func(w io.Writer) { printTwigs(w, result) })
}

func twigSummary(snap *state.Snapshot, twigID string) TwigSummary {
	ts := TwigSummary{
		ID:      twigID,
		Sprouts: len(snap.SproutsForTwig(twigID)),
		Active:  []SproutSummary{},
		Leaves:  []LeafSummary{},
	}
	for _, sp := range snap.ActiveSproutsForTwig(twigID) {
		ts.Active = append(ts.Active, summarize(sp))
	}
	for _, l := range snap.LeavesForTwig(twigID) {
		ls := LeafSummary{ID: l.ID, Name: l.Name, Sprouts: []string{}}
		for _, sp := range snap.SproutsForLeaf(l.ID) {
			ls.Sprouts = append(ls.Sprouts, sp.ID)
		}
		ts.Leaves = append(ts.Leaves, ls)
	}
	return ts
}

func printTwigs(w io.Writer, twigs []TwigSummary) {
	if len(twigs) == 0 {
		fmt.Fprintln(w, "No twigs yet")
		return
	}
	for _, t := range twigs {
		fmt.Fprintf(w, "%s  (%d active, %d total)\n", t.ID, len(t.Active), t.Sprouts)
		for _, sp := range t.Active {
			fmt.Fprintf(w, "  %s  %q  %s/%s\n", sp.ID, sp.Title, sp.Season, sp.Environment)
		}
		for _, l := range t.Leaves {
			fmt.Fprintf(w, "  leaf %s %q: %d sprout(s)\n", l.ID, l.Name, len(l.Sprouts))
		}
	}
}
