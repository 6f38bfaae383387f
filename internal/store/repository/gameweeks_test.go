package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/xgfixtures/internal/gameweek"
	"github.com/fortuna/xgfixtures/internal/store"
)

func TestToWindowNormalisesToUTCDate(t *testing.T) {
	loc := time.FixedZone("BST", 3600)
	w := toWindow(30, time.Date(2025, 4, 1, 0, 0, 0, 0, loc), time.Date(2025, 4, 3, 0, 0, 0, 0, loc))

	assert.Equal(t, 30, w.Gameweek)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC), w.End)
}

// Runs against a real Postgres when XGFIXTURES_TEST_DSN is set.
func TestGameweekRepositoryRoundTrip(t *testing.T) {
	dsn := os.Getenv("XGFIXTURES_TEST_DSN")
	if dsn == "" {
		t.Skip("XGFIXTURES_TEST_DSN not set")
	}

	ctx := context.Background()
	db, err := store.NewDatabase(ctx, dsn, nil)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.RunMigrations(ctx))

	season := "test-" + time.Now().Format("150405.000")
	t.Cleanup(func() {
		db.DB().ExecContext(context.Background(), "DELETE FROM gameweek_windows WHERE season = $1", season)
	})

	repo := NewGameweekRepository(db)
	builtin := gameweek.Default().Windows()
	require.NoError(t, repo.SeedWindows(ctx, season, builtin))
	require.NoError(t, repo.SeedWindows(ctx, season, builtin))

	n, err := repo.CountWindows(ctx, season)
	require.NoError(t, err)
	assert.Equal(t, len(builtin), n)

	cal, err := repo.LoadCalendar(ctx, season)
	require.NoError(t, err)
	assert.Equal(t, builtin, cal.Windows())

	gw, ok := cal.Lookup(time.Date(2025, 4, 2, 19, 45, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 30, gw)
}

func TestSeedWindowsRejectsInvalidCalendar(t *testing.T) {
	repo := NewGameweekRepository(nil)
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	err := repo.SeedWindows(context.Background(), "2024", []gameweek.Window{
		{Gameweek: 1, Start: day, End: day.AddDate(0, 0, 3)},
		{Gameweek: 2, Start: day.AddDate(0, 0, 2), End: day.AddDate(0, 0, 5)},
	})
	assert.ErrorIs(t, err, gameweek.ErrOverlap)
}
