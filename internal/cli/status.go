package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/state"
)

// SproutSummary is one active sprout in the status report.
type SproutSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	TwigID      string    `json:"twig_id"`
	Season      string    `json:"season"`
	Environment string    `json:"environment"`
	SoilCost    float64   `json:"soil_cost"`
	PlantedAt   time.Time `json:"planted_at"`
	Waterings   int       `json:"waterings"`
}

// StatusResult is the garden as derived from the local log right now.
type StatusResult struct {
	SoilCapacity   float64         `json:"soil_capacity"`
	SoilAvailable  float64         `json:"soil_available"`
	ActiveSprouts  int             `json:"active_sprouts"`
	TotalSprouts   int             `json:"total_sprouts"`
	Leaves         int             `json:"leaves"`
	WaterAvailable int             `json:"water_available"`
	SunAvailable   int             `json:"sun_available"`
	Streak         economy.Streak  `json:"streak"`
	Events         int             `json:"events"`
	Pending        int             `json:"pending"`
	SyncEnabled    bool            `json:"sync_enabled"`
	User           string          `json:"user,omitempty"`
	LastSync       time.Time       `json:"last_sync,omitzero"`
	Sprouts        []SproutSummary `json:"sprouts"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show soil, sprouts and sync state",
		Long: `Derive the garden from the local log and report soil, active sprouts,
remaining water and sun, the watering streak and sync state.

Examples:
  grove status
  grove status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	events := a.events()
	snap := a.snapshot()
	now := a.now()

	result := StatusResult{
		SoilCapacity:   snap.SoilCapacity,
		SoilAvailable:  snap.SoilAvailable,
		ActiveSprouts:  snap.ActiveCount(),
		TotalSprouts:   len(snap.Sprouts),
		Leaves:         len(snap.Leaves),
		WaterAvailable: economy.WaterAvailable(events, now),
		SunAvailable:   economy.SunAvailable(events, now),
		Streak:         economy.WateringStreak(events, now),
		Events:         len(events),
		SyncEnabled:    a.remote != nil,
		Sprouts:        activeSprouts(snap),
	}

	if result.Pending, err = a.rec.PendingCount(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to read pending set", err)
	}
	if result.LastSync, err = a.rec.LastSync(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to read sync cursor", err)
	}
	id, err := a.session.CurrentUser(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if id != nil {
		result.User = id.UserID
	}

	return a.out.Render(result, func(w io.Writer) { printStatus(w, result) })
}

// activeSprouts lists active sprouts grouped by twig, in planting order
// within each twig.
func activeSprouts(snap *state.Snapshot) []SproutSummary {
	out := []SproutSummary{}
	for _, twig := range snap.Twigs() {
		for _, sp := range snap.ActiveSproutsForTwig(twig) {
			out = append(out, summarize(sp))
		}
	}
	return out
}

func summarize(sp state.Sprout) SproutSummary {
	return SproutSummary{
		ID:          sp.ID,
		Title:       sp.Title,
		TwigID:      sp.TwigID,
		Season:      string(sp.Season),
		Environment: string(sp.Environment),
		SoilCost:    sp.SoilCost,
		PlantedAt:   sp.PlantedAt,
		Waterings:   len(sp.WaterEntries),
	}
}

func printStatus(w io.Writer, r StatusResult) {
	fmt.Fprintf(w, "Soil:     %.2f / %.2f\n", r.SoilAvailable, r.SoilCapacity)
	fmt.Fprintf(w, "Sprouts:  %d active, %d total\n", r.ActiveSprouts, r.TotalSprouts)
	fmt.Fprintf(w, "Water:    %d/%d left today\n", r.WaterAvailable, economy.WaterDailyCapacity)
	fmt.Fprintf(w, "Sun:      %d/%d left this week\n", r.SunAvailable, economy.SunWeeklyCapacity)
	fmt.Fprintf(w, "Streak:   %d day(s), longest %d\n", r.Streak.Current, r.Streak.Longest)
	fmt.Fprintf(w, "Events:   %d (%d pending)\n", r.Events, r.Pending)

	switch {
	case !r.SyncEnabled:
		fmt.Fprintln(w, "Sync:     off")
	case r.User == "":
		fmt.Fprintln(w, "Sync:     signed out")
	case r.LastSync.IsZero():
		fmt.Fprintf(w, "Sync:     %s, never synced\n", r.User)
	default:
		fmt.Fprintf(w, "Sync:     %s, last %s\n", r.User, r.LastSync.Format(time.RFC3339))
	}

	if len(r.Sprouts) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, sp := range r.Sprouts {
		fmt.Fprintf(w, "  %s  %q  %s/%s  twig=%s  watered=%d\n",
			sp.ID, sp.Title, sp.Season, sp.Environment, sp.TwigID, sp.Waterings)
	}
}
