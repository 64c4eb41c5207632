package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/remote"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	EnvFile    string
	Database   string // overrides local.db_path

	// Now overrides the wall clock (for testing). If nil, defaults to time.Now.
	Now func() time.Time

	// IDs overrides client id generation (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs event.IDGenerator

	// Remote overrides the configured remote store (for testing).
	Remote remote.Store
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the grove CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grove",
		Short: "grove - grow goals from an event log",
		Long: `Plant sprouts, water them daily and harvest them for soil capacity.

Every action is an event appended to a local log. The garden is derived by
replaying that log, and the log is kept in step with a remote store so two
devices converge on the same garden.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to grove.yaml (default ./grove.yaml if present)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to a .env file with GROVE_* overrides")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the local SQLite database (overrides config)")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewAppendCommand(opts))
	cmd.AddCommand(NewPlantCommand(opts))
	cmd.AddCommand(NewWaterCommand(opts))
	cmd.AddCommand(NewShineCommand(opts))
	cmd.AddCommand(NewHarvestCommand(opts))
	cmd.AddCommand(NewUprootCommand(opts))
	cmd.AddCommand(NewTwigsCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewDeleteAllCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
