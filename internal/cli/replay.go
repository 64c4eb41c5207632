package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/state"
)

// ReplayResult holds the outcome of replaying the local log.
type ReplayResult struct {
	Events        int     `json:"events"`
	Applied       int     `json:"applied"`
	Duplicates    int     `json:"duplicates"`
	Sprouts       int     `json:"sprouts"`
	SoilCapacity  float64 `json:"soil_capacity"`
	SoilAvailable float64 `json:"soil_available"`
	Fingerprint   string  `json:"fingerprint"`
	Deterministic bool    `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Replay the event log and verify determinism",
		Long: `Derive the garden from the local log three ways (as stored, reversed, and
with every event duplicated) and check that all three snapshots have the
same fingerprint.

Exit codes:
  0 - Replay is deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  grove replay
  grove replay --db ./grove.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, cmd)
		},
	}
}

func runReplay(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := replayAndVerify(a.events())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint snapshot", err)
	}

	if !result.Deterministic {
		return a.out.Fail("E_DETERMINISM", "determinism verification failed", result, func(w io.Writer) {
			printReplay(w, result, opts.Verbose)
		})
	}
	return a.out.Render(result, func(w io.Writer) { printReplay(w, result, opts.Verbose) })
}

// replayAndVerify derives events in several orders and compares fingerprints.
func replayAndVerify(events []event.Event) (ReplayResult, error) {
	reversed := slices.Clone(events)
	slices.Reverse(reversed)
	doubled := append(slices.Clone(events), reversed...)

	snap := state.Derive(events)
	want, err := snap.Fingerprint()
	if err != nil {
		return ReplayResult{}, err
	}

	deterministic := true
	for _, variant := range [][]event.Event{events, reversed, doubled} {
		got, err := state.Derive(variant).Fingerprint()
		if err != nil {
			return ReplayResult{}, err
		}
		if got != want {
			deterministic = false
		}
	}

	applied := len(state.Prepare(events))
	return ReplayResult{
		Events:        len(events),
		Applied:       applied,
		Duplicates:    len(events) - applied,
		Sprouts:       len(snap.Sprouts),
		SoilCapacity:  snap.SoilCapacity,
		SoilAvailable: snap.SoilAvailable,
		Fingerprint:   want,
		Deterministic: deterministic,
	}, nil
}

func printReplay(w io.Writer, r ReplayResult, verbose bool) {
	fmt.Fprintf(w, "Replay Summary: %d event(s), %d applied\n", r.Events, r.Applied)
	if verbose {
		fmt.Fprintf(w, "  Duplicates: %d\n", r.Duplicates)
		fmt.Fprintf(w, "  Sprouts: %d\n", r.Sprouts)
		fmt.Fprintf(w, "  Soil: %.2f / %.2f\n", r.SoilAvailable, r.SoilCapacity)
	}
	fmt.Fprintf(w, "  Fingerprint: %s\n", r.Fingerprint)

	if r.Deterministic {
		fmt.Fprintln(w, "✓ Replay verified deterministic")
		return
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
}
