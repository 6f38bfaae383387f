package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/xgfixtures/internal/gameweek"
	"github.com/fortuna/xgfixtures/internal/store"
)

// GameweekRepository handles gameweek window data access
type GameweekRepository struct {
	db *store.Database
}

// NewGameweekRepository creates a new gameweek repository
func NewGameweekRepository(db *store.Database) *GameweekRepository {
	return &GameweekRepository{db: db}
}

// ListWindows returns a season's windows ordered by start date.
func (r *GameweekRepository) ListWindows(ctx context.Context, season string) ([]gameweek.Window, error) {
	query := `
		SELECT gameweek, start_date, end_date
		FROM gameweek_windows
		WHERE season = $1
		ORDER BY start_date, gameweek
	`

	rows, err := r.db.DB().QueryContext(ctx, query, season)
	if err != nil {
		return nil, fmt.Errorf("querying gameweek windows: %w", err)
	}
	defer rows.Close()

	var windows []gameweek.Window
	for rows.Next() {
		var (
			gw         int
			start, end time.Time
		)
		if err := rows.Scan(&gw, &start, &end); err != nil {
			return nil, fmt.Errorf("scanning gameweek window: %w", err)
		}
		windows = append(windows, toWindow(gw, start, end))
	}

	return windows, rows.Err()
}

// LoadCalendar builds a validated calendar from a season's stored windows.
func (r *GameweekRepository) LoadCalendar(ctx context.Context, season string) (gameweek.Calendar, error) {
	windows, err := r.ListWindows(ctx, season)
	if err != nil {
		return gameweek.Calendar{}, err
	}
	return gameweek.New(windows)
}

// CountWindows returns how many windows are stored for season.
func (r *GameweekRepository) CountWindows(ctx context.Context, season string) (int, error) {
	var n int
	err := r.db.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM gameweek_windows WHERE season = $1", season).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting gameweek windows: %w", err)
	}
	return n, nil
}

// SeedWindows upserts windows for season in a single transaction.
func (r *GameweekRepository) SeedWindows(ctx context.Context, season string, windows []gameweek.Window) error {
	if _, err := gameweek.New(windows); err != nil {
		return err
	}

	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gameweek_windows (season, gameweek, start_date, end_date)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (season, gameweek) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("preparing seed statement: %w", err)
	}
	defer stmt.Close()

	for _, w := range windows {
		if _, err := stmt.ExecContext(ctx, season, w.Gameweek,
			w.Start.Format(gameweek.DateLayout), w.End.Format(gameweek.DateLayout)); err != nil {
			return fmt.Errorf("seeding gameweek %d: %w", w.Gameweek, err)
		}
	}

	return tx.Commit()
}

// toWindow normalises DATE columns, which lib/pq returns at midnight in the
// session time zone, to UTC calendar dates.
func toWindow(gw int, start, end time.Time) gameweek.Window {
	return gameweek.Window{
		Gameweek: gw,
		Start:    time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		End:      time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC),
	}
}
