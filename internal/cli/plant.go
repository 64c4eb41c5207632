package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/event"
)

// PlantOptions holds flags for the plant command.
type PlantOptions struct {
	*RootOptions
	SproutID      string
	TwigID        string
	Title         string
	Season        string
	Environment   string
	LeafID        string
	BloomWither   string
	BloomBudding  string
	BloomFlourish string
}

// soilShortfall is reported when a sprout costs more than the free soil.
type soilShortfall struct {
	Needed    float64 `json:"needed"`
	Available float64 `json:"available"`
}

// NewPlantCommand creates the plant command.
func NewPlantCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlantOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plant",
		Short: "Plant a sprout, spending soil",
		Long: `Plant a new sprout on a twig. The soil cost follows from the season
and environment; planting fails if the garden does not have that much
soil available.

Exit codes:
  0 - Sprout planted
  1 - Not enough soil
  2 - Invalid flags or database error

Examples:
  grove plant --twig health --title "Run 3x a week"
  grove plant --twig craft --title "Ship the book" --season 1y --env barren`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlant(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SproutID, "id", "", "sprout id (generated when empty)")
	cmd.Flags().StringVar(&opts.TwigID, "twig", "", "twig the sprout grows on (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "what the sprout is about (required)")
	cmd.Flags().StringVar(&opts.Season, "season", string(event.Season1M), "season: 2w, 1m, 3m, 6m or 1y")
	cmd.Flags().StringVar(&opts.Environment, "env", string(event.EnvFirm), "environment: fertile, firm or barren")
	cmd.Flags().StringVar(&opts.LeafID, "leaf", "", "leaf grouping the sprout")
	cmd.Flags().StringVar(&opts.BloomWither, "wither", "", "what a poor outcome looks like")
	cmd.Flags().StringVar(&opts.BloomBudding, "budding", "", "what a middling outcome looks like")
	cmd.Flags().StringVar(&opts.BloomFlourish, "flourish", "", "what a great outcome looks like")
	_ = cmd.MarkFlagRequired("twig")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func runPlant(opts *PlantOptions, cmd *cobra.Command) error {
	season := event.Season(opts.Season)
	if !season.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid season %q: must be one of %v", opts.Season, event.Seasons))
	}
	env := event.Environment(opts.Environment)
	if !env.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid environment %q: must be one of %v", opts.Environment, event.Environments))
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.snapshot()
	sproutID := opts.SproutID
	if sproutID == "" {
		sproutID = event.UUIDv7Generator{}.Generate()
	}
	if _, exists := snap.Sprouts[sproutID]; exists {
		return NewExitError(ExitCommandError, fmt.Sprintf("sprout %s already exists", sproutID))
	}

	cost := economy.PlantingCost(season, env)
	if cost > snap.SoilAvailable {
		short := soilShortfall{Needed: cost, Available: snap.SoilAvailable}
		return a.out.Fail("E_SOIL", "not enough soil", short, func(w io.Writer) {
			fmt.Fprintf(w, "✗ Not enough soil: %s/%s needs %.2f, %.2f available\n", season, env, cost, snap.SoilAvailable)
		})
	}

	e := event.New(a.now(), event.SproutPlanted{
		SproutID:      sproutID,
		TwigID:        opts.TwigID,
		Title:         opts.Title,
		Season:        season,
		Environment:   env,
		SoilCost:      cost,
		LeafID:        opts.LeafID,
		BloomWither:   opts.BloomWither,
		BloomBudding:  opts.BloomBudding,
		BloomFlourish: opts.BloomFlourish,
	})
	return appendEvent(ctx, a, e)
}
