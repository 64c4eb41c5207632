package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Range string
	Raw   bool
}

// HistoryResult is a bucketed soil series, or the raw samples with --raw.
type HistoryResult struct {
	Range   history.Range    `json:"range"`
	Points  []history.Point  `json:"points,omitempty"`
	Samples []history.Sample `json:"samples,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show soil capacity and availability over time",
		Long: `Replay the log into a soil time series and bucket it for a chart window.
Each point carries the soil level at its right edge; the last point is the
level now.

Ranges: 1d, 1w, 1m, 3m, 6m, ytd, all

Examples:
  grove history --range 1w
  grove history --range all --format json
  grove history --raw`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Range, "range", "r", string(history.RangeMonth), "chart window")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "print one sample per soil-changing event instead of buckets")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	r, err := history.ParseRange(opts.Range)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid range", err)
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	samples := history.RawSoilHistory(a.events())
	result := HistoryResult{Range: r}
	if opts.Raw {
		result.Samples = samples
	} else {
		result.Points = history.Bucket(samples, r, a.now())
	}

	return a.out.Render(result, func(w io.Writer) { printHistory(w, result, a.loc) })
}

func printHistory(w io.Writer, r HistoryResult, loc *time.Location) {
	if r.Samples != nil || len(r.Points) == 0 {
		fmt.Fprintf(w, "%d sample(s)\n", len(r.Samples))
		for _, s := range r.Samples {
			fmt.Fprintf(w, "  %s  %7.2f  %7.2f\n", s.Timestamp.In(loc).Format(time.DateTime), s.Capacity, s.Available)
		}
		return
	}

	fmt.Fprintf(w, "Soil history (%s)\n", r.Range)
	fmt.Fprintf(w, "  %-19s  %8s  %9s\n", "at", "capacity", "available")
	for _, p := range r.Points {
		fmt.Fprintf(w, "  %s  %8.2f  %9.2f\n", p.Timestamp.In(loc).Format(time.DateTime), p.Capacity, p.Available)
	}
}
