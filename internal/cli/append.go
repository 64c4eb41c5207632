package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/reconcile"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	File string
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append [event-json]",
		Short: "Append a raw event to the log",
		Long: `Validate one event in wire format, append it to the local log and push it.

A missing client_id is generated. If the push fails the event stays pending
and is retried by the next sync; the command still succeeds.

Exit codes:
  0 - Event appended (pushed or pending)
  2 - Invalid event or database error

Examples:
  grove append '{"type":"sun_shone","timestamp":"2026-01-05T08:00:00.000Z","twigId":"t1","twigLabel":"Health","content":"good week"}'
  grove append --file event.json
  cat event.json | grove append --file -`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the event from a file (- for stdin)")

	return cmd
}

func runAppend(opts *AppendOptions, args []string, cmd *cobra.Command) error {
	data, err := readEventInput(opts, args, cmd)
	if err != nil {
		return err
	}

	e, err := event.Parse(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid event", err)
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return appendEvent(ctx, a, e)
}

func readEventInput(opts *AppendOptions, args []string, cmd *cobra.Command) ([]byte, error) {
	switch {
	case len(args) == 1 && opts.File != "":
		return nil, NewExitError(ExitCommandError, "give the event as an argument or with --file, not both")
	case len(args) == 1:
		return []byte(args[0]), nil
	case opts.File == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return data, nil
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read event file", err)
		}
		return data, nil
	default:
		return nil, NewExitError(ExitCommandError, "no event given")
	}
}

// appendEvent appends e through the reconciler and reports the outcome. A
// failed push is reported but is not a command failure.
func appendEvent(ctx context.Context, a *app, e event.Event) error {
	if err := checkAllowance(a, e); err != nil {
		return err
	}

	res, err := a.rec.AppendEvent(ctx, e)
	if err != nil {
		if event.IsValidationError(err) {
			return WrapExitError(ExitCommandError, "invalid event", err)
		}
		return WrapExitError(ExitCommandError, "failed to append event", err)
	}
	a.out.VerboseLog("appended %s as %s", res.Event.Type(), res.Event.ClientID)

	return a.out.Render(res, func(w io.Writer) { printAppend(w, res) })
}

// allowance is reported when a watering or sun reflection would exceed
// its window.
type allowance struct {
	Used     int `json:"used"`
	Capacity int `json:"capacity"`
}

// checkAllowance refuses a watering past the daily allowance, or a sun
// reflection past the weekly one, counted in the day or week that contains
// the event's own timestamp.
func checkAllowance(a *app, e event.Event) error {
	at := e.Timestamp.In(a.loc)
	events := a.events()

	switch e.Type() {
	case event.TypeSproutWatered:
		if economy.WaterAvailable(events, at) > 0 {
			return nil
		}
		used := allowance{Used: economy.WaterUsed(events, at), Capacity: economy.WaterDailyCapacity}
		return a.out.Fail("E_WATER", "no water left today", used, func(w io.Writer) {
			fmt.Fprintf(w, "✗ No water left today: %d/%d used, resets at %s\n",
				used.Used, used.Capacity, economy.NextDayStart(at).Format(time.DateTime))
		})
	case event.TypeSunShone:
		if economy.SunAvailable(events, at) > 0 {
			return nil
		}
		used := allowance{Used: economy.SunUsed(events, at), Capacity: economy.SunWeeklyCapacity}
		return a.out.Fail("E_SUN", "no sun left this week", used, func(w io.Writer) {
			fmt.Fprintf(w, "✗ No sun left this week: %d/%d used\n", used.Used, used.Capacity)
		})
	}
	return nil
}

func printAppend(w io.Writer, res reconcile.AppendResult) {
	fmt.Fprintf(w, "✓ Appended %s %s (client_id %s)\n", res.Event.Type(), res.Event.EntityID(), res.Event.ClientID)
	if res.Push.OK() {
		fmt.Fprintln(w, "  pushed")
		return
	}
	fmt.Fprintf(w, "  pending: %s\n", strings.TrimSpace(res.Push.Error))
}
