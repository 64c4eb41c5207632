package cli

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grove/internal/auth"
	"github.com/roach88/grove/internal/economy"
	"github.com/roach88/grove/internal/event"
	"github.com/roach88/grove/internal/reconcile"
	"github.com/roach88/grove/internal/remote"
	"github.com/roach88/grove/internal/remote/httpapi"
	"github.com/roach88/grove/internal/remote/memory"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "grove", cmd.Use)

	commands := []string{"status", "append", "plant", "water", "shine", "harvest", "uproot", "twigs", "sync", "replay", "history", "delete-all", "login", "logout", "serve"}
	for _, name := range commands {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestRootCommand_RejectsUnknownFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"status", "--format", "yaml"})
	cmd.SetOut(&nopWriter{})
	cmd.SetErr(&nopWriter{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestPlantAndStatus_Offline(t *testing.T) {
	opts := newTestOptions(t)

	out := mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run")
	assert.Contains(t, out, "✓ Appended sprout_planted s1 (client_id c-0001)")
	assert.Contains(t, out, "pending: SYNC_UNAVAILABLE")

	var status StatusResult
	asJSON(opts, func() {
		out = mustRun(t, opts, NewStatusCommand)
	})
	assert.Equal(t, "ok", decodeData(t, out, &status))

	assert.Equal(t, 10.0, status.SoilCapacity)
	assert.Equal(t, 5.0, status.SoilAvailable)
	assert.Equal(t, 1, status.ActiveSprouts)
	assert.Equal(t, 1, status.Events)
	assert.Equal(t, 1, status.Pending)
	assert.Equal(t, economy.WaterDailyCapacity, status.WaterAvailable)
	assert.False(t, status.SyncEnabled)
	require.Len(t, status.Sprouts, 1)
	assert.Equal(t, "s1", status.Sprouts[0].ID)
	assert.Equal(t, t0, status.Sprouts[0].PlantedAt)

	text := mustRun(t, opts, NewStatusCommand)
	assert.Contains(t, text, "Soil:     5.00 / 10.00")
	assert.Contains(t, text, "Sync:     off")
}

func TestPlant_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{
			name:     "not enough soil",
			args:     []string{"--id", "big", "--twig", "t", "--title", "x", "--season", "1y", "--env", "barren"},
			wantCode: ExitFailure,
			wantOut:  "Not enough soil: 1y/barren needs 24.00, 10.00 available",
		},
		{
			name:     "bad season",
			args:     []string{"--twig", "t", "--title", "x", "--season", "2y"},
			wantCode: ExitCommandError,
			wantErr:  `invalid season "2y"`,
		},
		{
			name:     "bad environment",
			args:     []string{"--twig", "t", "--title", "x", "--env", "rocky"},
			wantCode: ExitCommandError,
			wantErr:  `invalid environment "rocky"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := newTestOptions(t)
			out, err := run(t, opts, NewPlantCommand, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			if tt.wantOut != "" {
				assert.Contains(t, out, tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPlant_DuplicateSproutID(t *testing.T) {
	opts := newTestOptions(t)
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "t", "--title", "x", "--season", "2w", "--env", "fertile")

	_, err := run(t, opts, NewPlantCommand, "--id", "s1", "--twig", "t", "--title", "again", "--season", "2w", "--env", "fertile")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "sprout s1 already exists")
}

func TestHarvest(t *testing.T) {
	opts := newTestOptions(t)
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run")

	out := mustRun(t, opts, NewHarvestCommand, "s1", "--result", "5", "--reflection", "done")
	assert.Contains(t, out, "✓ Appended sprout_harvested s1")

	var status StatusResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewStatusCommand), &status) })

	wantGain := economy.CapacityReward(event.Season1M, event.EnvFirm, 5, economy.StartingCapacity)
	assert.InDelta(t, 10+wantGain, status.SoilCapacity, 1e-9)
	assert.Equal(t, 10.0, status.SoilAvailable)
	assert.Equal(t, 0, status.ActiveSprouts)
	assert.Equal(t, 1, status.TotalSprouts)

	_, err := run(t, opts, NewHarvestCommand, "s1", "--result", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sprout s1 is completed, not active")

	_, err = run(t, opts, NewHarvestCommand, "ghost", "--result", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sprout ghost")

	_, err = run(t, opts, NewHarvestCommand, "s1", "--result", "6")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAppend(t *testing.T) {
	opts := newTestOptions(t)
	sun := `{"type":"sun_shone","timestamp":"2026-01-05T06:30:00.000Z","twigId":"t1","twigLabel":"Health","content":"good week"}`

	out := mustRun(t, opts, NewAppendCommand, sun)
	assert.Contains(t, out, "✓ Appended sun_shone t1 (client_id c-0001)")

	var status StatusResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewStatusCommand), &status) })
	assert.Equal(t, 0, status.SunAvailable)
	assert.InDelta(t, 10.0, status.SoilAvailable, 1e-9, "sun cannot push availability past capacity")
}

func TestAppend_JSONOutput(t *testing.T) {
	opts := newTestOptions(t)
	raw := `{"type":"leaf_created","timestamp":"2026-01-05T06:30:00.000Z","client_id":"mine","leafId":"l1","twigId":"t1","name":"Cardio"}`

	var res reconcile.AppendResult
	asJSON(opts, func() {
		assert.Equal(t, "ok", decodeData(t, mustRun(t, opts, NewAppendCommand, raw), &res))
	})
	assert.Equal(t, "mine", res.Event.ClientID)
	assert.Equal(t, event.TypeLeafCreated, res.Event.Type())
	assert.Contains(t, res.Push.Error, "SYNC_UNAVAILABLE")
}

func TestAppend_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no input", args: nil, wantErr: "no event given"},
		{name: "not json", args: []string{"{"}, wantErr: "invalid event"},
		{name: "unknown type", args: []string{`{"type":"sprout_pruned","timestamp":"2026-01-05T06:30:00.000Z"}`}, wantErr: "invalid event"},
		{name: "bad result", args: []string{`{"type":"sprout_harvested","timestamp":"2026-01-05T06:30:00.000Z","sproutId":"s1","result":0,"capacityGained":1}`}, wantErr: "invalid event"},
		{name: "arg and file", args: []string{"{}", "--file", "x.json"}, wantErr: "not both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := newTestOptions(t)
			_, err := run(t, opts, NewAppendCommand, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWater_DailyAllowance(t *testing.T) {
	opts := newTestOptions(t)
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run")

	for i := 0; i < economy.WaterDailyCapacity; i++ {
		out := mustRun(t, opts, NewWaterCommand, "s1", "--note", "ran")
		assert.Contains(t, out, "✓ Appended sprout_watered s1")
	}

	out, err := run(t, opts, NewWaterCommand, "s1", "--note", "again")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "No water left today: 3/3 used, resets at 2026-01-06 06:00:00")

	var used allowance
	asJSON(opts, func() {
		out, err = run(t, opts, NewWaterCommand, "s1", "--note", "again")
		require.Error(t, err)
		assert.Equal(t, "error", decodeData(t, out, &used))
	})
	assert.Equal(t, allowance{Used: 3, Capacity: 3}, used)

	var status StatusResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewStatusCommand), &status) })
	require.Len(t, status.Sprouts, 1)
	assert.Equal(t, 3, status.Sprouts[0].Waterings, "refused waterings are not logged")
	assert.Equal(t, 0, status.WaterAvailable)
}

func TestWater_Errors(t *testing.T) {
	opts := newTestOptions(t)
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run")
	mustRun(t, opts, NewUprootCommand, "s1")

	_, err := run(t, opts, NewWaterCommand, "s1", "--note", "late")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "sprout s1 is uprooted, not active")

	_, err = run(t, opts, NewWaterCommand, "ghost", "--note", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sprout ghost")

	_, err = run(t, opts, NewWaterCommand, "s1")
	require.Error(t, err)
}

func TestShine_WeeklyAllowance(t *testing.T) {
	opts := newTestOptions(t)

	out := mustRun(t, opts, NewShineCommand, "health", "--note", "sleep is the lever")
	assert.Contains(t, out, "✓ Appended sun_shone health")

	out, err := run(t, opts, NewShineCommand, "craft", "--label", "Craft", "--note", "again")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "No sun left this week: 1/1 used")

	var status StatusResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewStatusCommand), &status) })
	assert.Equal(t, 1, status.Events)
	assert.Equal(t, 0, status.SunAvailable)
}

func TestUproot(t *testing.T) {
	opts := newTestOptions(t)
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run")

	out := mustRun(t, opts, NewUprootCommand, "s1")
	assert.Contains(t, out, "✓ Appended sprout_uprooted s1")

	var status StatusResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewStatusCommand), &status) })
	assert.InDelta(t, 5+economy.UprootRefund(5), status.SoilAvailable, 1e-9)
	assert.Equal(t, 0, status.ActiveSprouts)
	assert.Equal(t, 1, status.TotalSprouts)

	_, err := run(t, opts, NewUprootCommand, "s1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "sprout s1 is uprooted, not active")

	_, err = run(t, opts, NewUprootCommand, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sprout ghost")
}

func TestAppend_Allowances(t *testing.T) {
	water := func(at string) string {
		return `{"type":"sprout_watered","timestamp":"` + at + `","sproutId":"s1","content":"x"}`
	}
	sun := func(at string) string {
		return `{"type":"sun_shone","timestamp":"` + at + `","twigId":"t1","twigLabel":"T","content":"x"}`
	}

	t.Run("water counts the event's own day", func(t *testing.T) {
		opts := newTestOptions(t)
		mustRun(t, opts, NewAppendCommand, water("2026-01-05T06:00:00.000Z"))
		mustRun(t, opts, NewAppendCommand, water("2026-01-05T12:00:00.000Z"))
		mustRun(t, opts, NewAppendCommand, water("2026-01-05T23:00:00.000Z"))

		// 05:59 the next morning still belongs to the same day.
		out, err := run(t, opts, NewAppendCommand, water("2026-01-06T05:59:00.000Z"))
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "No water left today")

		mustRun(t, opts, NewAppendCommand, water("2026-01-06T06:00:00.000Z"))
	})

	t.Run("sun counts the event's own week", func(t *testing.T) {
		opts := newTestOptions(t)
		mustRun(t, opts, NewAppendCommand, sun("2026-01-05T06:30:00.000Z"))

		var used allowance
		asJSON(opts, func() {
			out, err := run(t, opts, NewAppendCommand, sun("2026-01-11T20:00:00.000Z"))
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Equal(t, "error", decodeData(t, out, &used))
		})
		assert.Equal(t, allowance{Used: 1, Capacity: 1}, used)

		// The previous week's allowance is untouched.
		mustRun(t, opts, NewAppendCommand, sun("2026-01-05T05:00:00.000Z"))
		mustRun(t, opts, NewAppendCommand, sun("2026-01-12T06:00:00.000Z"))
	})
}

func TestTwigs(t *testing.T) {
	opts := newTestOptions(t)
	assert.Contains(t, mustRun(t, opts, NewTwigsCommand), "No twigs yet")

	mustRun(t, opts, NewAppendCommand, `{"type":"leaf_created","timestamp":"2026-01-05T06:30:00.000Z","leafId":"l1","twigId":"craft","name":"Writing"}`)
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run", "--season", "2w", "--env", "fertile")
	mustRun(t, opts, NewPlantCommand, "--id", "s2", "--twig", "craft", "--title", "Essay", "--season", "2w", "--env", "fertile", "--leaf", "l1")
	mustRun(t, opts, NewPlantCommand, "--id", "s3", "--twig", "craft", "--title", "Book", "--season", "2w", "--env", "fertile", "--leaf", "l1")
	mustRun(t, opts, NewHarvestCommand, "s3", "--result", "3")

	var twigs []TwigSummary
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewTwigsCommand), &twigs) })
	require.Len(t, twigs, 2)

	craft := twigs[0]
	assert.Equal(t, "craft", craft.ID)
	assert.Equal(t, 2, craft.Sprouts)
	require.Len(t, craft.Active, 1)
	assert.Equal(t, "s2", craft.Active[0].ID)
	require.Len(t, craft.Leaves, 1)
	assert.Equal(t, LeafSummary{ID: "l1", Name: "Writing", Sprouts: []string{"s2", "s3"}}, craft.Leaves[0])

	health := twigs[1]
	assert.Equal(t, "health", health.ID)
	assert.Equal(t, 1, health.Sprouts)
	assert.Empty(t, health.Leaves)

	out := mustRun(t, opts, NewTwigsCommand, "craft")
	assert.Contains(t, out, "craft  (1 active, 2 total)")
	assert.Contains(t, out, `leaf l1 "Writing": 2 sprout(s)`)
	assert.NotContains(t, out, "health")

	var unknown []TwigSummary
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewTwigsCommand, "garden"), &unknown) })
	require.Len(t, unknown, 1)
	assert.Zero(t, unknown[0].Sprouts)
}

func TestStatus_GroupsSproutsByTwig(t *testing.T) {
	opts := newTestOptions(t)
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "zen", "--title", "Sit", "--season", "2w", "--env", "fertile")
	mustRun(t, opts, NewPlantCommand, "--id", "s2", "--twig", "art", "--title", "Draw", "--season", "2w", "--env", "fertile")
	mustRun(t, opts, NewPlantCommand, "--id", "s3", "--twig", "zen", "--title", "Walk", "--season", "2w", "--env", "fertile")

	var status StatusResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewStatusCommand), &status) })

	ids := make([]string, 0, len(status.Sprouts))
	for _, sp := range status.Sprouts {
		ids = append(ids, sp.ID)
	}
	assert.Equal(t, []string{"s2", "s1", "s3"}, ids)
}

// signIn logs opts in as user against rs.
func signIn(t *testing.T, opts *RootOptions, rs remote.Store, user string) {
	t.Helper()
	opts.Remote = rs
	out := mustRun(t, opts, NewLoginCommand, "--user", user)
	assert.Contains(t, out, "✓ Signed in as "+user)
}

func TestSync(t *testing.T) {
	opts := newTestOptions(t)
	rs := memory.New()
	signIn(t, opts, rs, "alice")

	out := mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run")
	assert.Contains(t, out, "pushed")
	assert.Equal(t, 1, rs.Len())

	// Another device pushes a watering.
	water := event.New(t0, event.SproutWatered{SproutID: "s1", Content: "ran 5k"}).WithClientID("phone-1")
	rec, err := reconcile.ToRecord("alice", water)
	require.NoError(t, err)
	_, err = rs.Insert(context.Background(), rec)
	require.NoError(t, err)

	out = mustRun(t, opts, NewSyncCommand)
	assert.Contains(t, out, "✓ Synced (full): pulled 2, pushed 0")

	var report SyncReport
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewSyncCommand), &report) })
	assert.Equal(t, reconcile.ModeIncremental, report.Mode)
	assert.Equal(t, 0, report.Pulled)
	assert.Equal(t, 0, report.Pending)

	var status StatusResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewStatusCommand), &status) })
	assert.Equal(t, "alice", status.User)
	assert.True(t, status.SyncEnabled)
	assert.False(t, status.LastSync.IsZero())
	assert.Equal(t, 2, status.WaterAvailable)
	assert.Equal(t, 1, status.Streak.Current)
	assert.InDelta(t, 5.05, status.SoilAvailable, 1e-9)
}

func TestSync_SignedOut(t *testing.T) {
	opts := newTestOptions(t)
	opts.Remote = memory.New()

	out, err := run(t, opts, NewSyncCommand)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Sync failed (full): SYNC_UNAVAILABLE: not signed in")
}

func TestLogout(t *testing.T) {
	opts := newTestOptions(t)
	signIn(t, opts, memory.New(), "alice")

	assert.Contains(t, mustRun(t, opts, NewLogoutCommand), "✓ Signed out")

	_, err := run(t, opts, NewSyncCommand)
	require.Error(t, err)
}

func TestLogin_Errors(t *testing.T) {
	opts := newTestOptions(t)

	_, err := run(t, opts, NewLoginCommand, "--token", "not-a-jwt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")

	_, err = run(t, opts, NewLoginCommand)
	require.Error(t, err)

	t.Setenv("GROVE_AUTH_SECRET", "")
	_, err = run(t, opts, NewLoginCommand, "--user", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user needs auth.secret")
}

func TestDeleteAll(t *testing.T) {
	opts := newTestOptions(t)
	rs := memory.New()
	signIn(t, opts, rs, "alice")
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run")

	_, err := run(t, opts, NewDeleteAllCommand)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing to delete without --yes")

	assert.Contains(t, mustRun(t, opts, NewDeleteAllCommand, "--yes"), "✓ Deleted all events")
	assert.Equal(t, 0, rs.Len())

	var status StatusResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewStatusCommand), &status) })
	assert.Equal(t, 0, status.Events)
	assert.Equal(t, 10.0, status.SoilAvailable)
	assert.True(t, status.LastSync.IsZero())
}

func TestDeleteAll_Unavailable(t *testing.T) {
	opts := newTestOptions(t)

	out, err := run(t, opts, NewDeleteAllCommand, "--yes")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Delete failed")
}

func TestReplay(t *testing.T) {
	opts := newTestOptions(t)
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run")
	mustRun(t, opts, NewHarvestCommand, "s1", "--result", "4")

	out := mustRun(t, opts, NewReplayCommand)
	assert.Contains(t, out, "Replay Summary: 2 event(s), 2 applied")
	assert.Contains(t, out, "✓ Replay verified deterministic")

	var result ReplayResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewReplayCommand), &result) })
	assert.True(t, result.Deterministic)
	assert.Equal(t, 0, result.Duplicates)
	assert.Len(t, result.Fingerprint, 64)
}

func TestReplayAndVerify_CountsDuplicates(t *testing.T) {
	plant := event.New(t0, event.SproutPlanted{
		SproutID: "s1", TwigID: "t", Title: "x",
		Season: event.Season2W, Environment: event.EnvFertile, SoilCost: 2,
	}).WithClientID("a")

	result, err := replayAndVerify([]event.Event{plant, plant})
	require.NoError(t, err)
	assert.True(t, result.Deterministic)
	assert.Equal(t, 2, result.Events)
	assert.Equal(t, 1, result.Applied)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 8.0, result.SoilAvailable)
}

func TestHistory(t *testing.T) {
	opts := newTestOptions(t)
	mustRun(t, opts, NewPlantCommand, "--id", "s1", "--twig", "health", "--title", "Run")

	var result HistoryResult
	asJSON(opts, func() { decodeData(t, mustRun(t, opts, NewHistoryCommand, "--range", "1d"), &result) })
	require.NotEmpty(t, result.Points)
	last := result.Points[len(result.Points)-1]
	assert.Equal(t, t0, last.Timestamp)
	assert.Equal(t, 5.0, last.Available)
	assert.Equal(t, 10.0, result.Points[0].Available)

	out := mustRun(t, opts, NewHistoryCommand, "--raw")
	assert.Contains(t, out, "1 sample(s)")
	assert.Contains(t, out, "2026-01-05 07:00:00")

	_, err := run(t, opts, NewHistoryCommand, "--range", "2y")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServe(t *testing.T) {
	opts := newTestOptions(t)
	backing := memory.New()
	opts.Remote = backing

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var serveErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, serveErr = runContext(t, ctx, opts, func(o *RootOptions) *cobra.Command {
			return newServeCommand(&ServeOptions{RootOptions: o, Listener: ln})
		})
	}()

	token, err := auth.IssueToken("alice", testSecret, time.Hour, time.Now())
	require.NoError(t, err)
	client := httpapi.NewClient("http://"+ln.Addr().String(), staticToken(token))

	rec, err := reconcile.ToRecord("alice", event.New(t0, event.SunShone{TwigID: "t1", TwigLabel: "Health"}).WithClientID("x"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := client.Insert(context.Background(), rec)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, backing.Len())

	cancel()
	wg.Wait()
	assert.NoError(t, serveErr)
}

func TestServe_RequiresSecret(t *testing.T) {
	opts := newTestOptions(t)
	t.Setenv("GROVE_AUTH_SECRET", "")

	_, err := run(t, opts, NewServeCommand)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "serve needs auth.secret")
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }
