// Command calendar seeds and inspects the gameweek calendar stored in Postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/fortuna/xgfixtures/internal/gameweek"
	"github.com/fortuna/xgfixtures/internal/store"
	"github.com/fortuna/xgfixtures/internal/store/repository"
)

const (
	appName    = "xgfixtures-calendar"
	appVersion = "1.0.0"
)

func main() {
	logger := log.With(log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)), "ts", log.DefaultTimestampUTC)
	level.Info(logger).Log("msg", "starting", "app", appName, "version", appVersion)

	var (
		dsn    = flag.String("dsn", getEnv("DATABASE_DSN", ""), "Postgres DSN")
		season = flag.String("season", getEnv("CALENDAR_SEASON", gameweek.DefaultSeason), "Season key, e.g. 2024")
		file   = flag.String("file", "", "YAML calendar to seed (default: builtin calendar)")
		list   = flag.Bool("list", false, "List the stored windows instead of seeding")
		dryRun = flag.Bool("dry-run", false, "Validate and print the windows without writing")
	)
	flag.Parse()

	windows, seasonKey, err := sourceWindows(*file, *season)
	if err != nil {
		level.Error(logger).Log("msg", "invalid calendar", "err", err)
		os.Exit(1)
	}

	if *dryRun && !*list {
		printWindows(os.Stdout, seasonKey, windows)
		return
	}

	if *dsn == "" {
		level.Error(logger).Log("msg", "missing -dsn or DATABASE_DSN")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := store.NewDatabase(ctx, *dsn, logger)
	if err != nil {
		level.Error(logger).Log("msg", "connect database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		level.Error(logger).Log("msg", "migrations failed", "err", err)
		os.Exit(1)
	}

	repo := repository.NewGameweekRepository(db)

	if *list {
		stored, err := repo.ListWindows(ctx, seasonKey)
		if err != nil {
			level.Error(logger).Log("msg", "list failed", "err", err)
			os.Exit(1)
		}
		printWindows(os.Stdout, seasonKey, stored)
		return
	}

	if err := repo.SeedWindows(ctx, seasonKey, windows); err != nil {
		level.Error(logger).Log("msg", "seed failed", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "calendar seeded", "season", seasonKey, "windows", len(windows))
}

// sourceWindows returns the windows to seed and the season they belong to.
// A calendar file's own season wins over the flag.
func sourceWindows(path, season string) ([]gameweek.Window, string, error) {
	if path == "" {
		return gameweek.Default().Windows(), season, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading calendar file: %w", err)
	}
	f, cal, err := gameweek.ParseFile(data)
	if err != nil {
		return nil, "", err
	}
	if f.Season != "" {
		season = f.Season
	}
	return cal.Windows(), season, nil
}

func printWindows(w io.Writer, season string, windows []gameweek.Window) {
	fmt.Fprintf(w, "season %s: %d windows\n", season, len(windows))
	for _, win := range windows {
		fmt.Fprintf(w, "GW%-3d %s .. %s\n", win.Gameweek,
			win.Start.Format(gameweek.DateLayout), win.End.Format(gameweek.DateLayout))
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
