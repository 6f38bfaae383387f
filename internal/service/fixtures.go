package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/fortuna/xgfixtures/internal/fixture"
	"github.com/fortuna/xgfixtures/internal/gameweek"
	"github.com/fortuna/xgfixtures/internal/ingest/understat"
	"github.com/fortuna/xgfixtures/internal/metrics"
	"github.com/fortuna/xgfixtures/internal/ranking"
)

// ErrFixturesUnavailable wraps a failure of the fixture path. No payload can
// be built without fixtures, so this always fails the pipeline.
var ErrFixturesUnavailable = errors.New("fixtures unavailable")

// Source is the upstream data provider.
type Source interface {
	GetLeagueTable(ctx context.Context, league, season string, opts understat.TableOptions) (*understat.Table, error)
	GetLeagueFixtures(ctx context.Context, league, season string) ([]fixture.RawFixture, error)
}

// Options configures a FixtureService.
type Options struct {
	League string
	Season string
	// DegradeRanking serves fixtures without opponent metrics when the
	// ranking path fails.
	DegradeRanking bool
	Metrics        *metrics.Metrics
	Logger         log.Logger
}

// FixtureService runs the fetch, rank, reshape and join pipeline.
type FixtureService struct {
	source         Source
	calendar       gameweek.Calendar
	reshaper       *fixture.Reshaper
	league         string
	season         string
	degradeRanking bool
	metrics        *metrics.Metrics
	logger         log.Logger
	now            func() time.Time
}

// NewFixtureService creates a new fixture service
func NewFixtureService(source Source, calendar gameweek.Calendar, opts Options) *FixtureService {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	return &FixtureService{
		source:         source,
		calendar:       calendar,
		reshaper:       fixture.NewReshaper(calendar, logger),
		league:         opts.League,
		season:         opts.Season,
		degradeRanking: opts.DegradeRanking,
		metrics:        m,
		logger:         log.With(logger, "component", "fixture-service"),
		now:            time.Now,
	}
}

// Result is one pipeline run.
type Result struct {
	Teams        fixture.View             `json:"teams"`
	Rankings     []ranking.TeamRanking    `json:"-"`
	Skipped      []fixture.SkippedFixture `json:"skipped"`
	SkippedCount int                      `json:"skipped_count"`
	RankingError string                   `json:"ranking_error,omitempty"`
	GeneratedAt  time.Time                `json:"generated_at"`
}

// Calendar returns the gameweek calendar in use.
func (s *FixtureService) Calendar() gameweek.Calendar {
	return s.calendar
}

// ComputeUpcomingFixtures fetches rankings and fixtures concurrently and
// joins them once both are available.
func (s *FixtureService) ComputeUpcomingFixtures(ctx context.Context) (*Result, error) {
	start := s.now()
	res, err := s.compute(ctx)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case res.RankingError != "":
		outcome = "degraded"
	}
	s.metrics.PipelineDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return res, err
}

func (s *FixtureService) compute(ctx context.Context) (*Result, error) {
	var (
		table   []ranking.TeamRanking
		rankErr error
		view    fixture.View
		skipped []fixture.SkippedFixture
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		table, rankErr = s.Rankings(gctx)
		if rankErr != nil && !s.degradeRanking {
			return rankErr
		}
		return nil
	})
	g.Go(func() error {
		raw, err := s.source.GetLeagueFixtures(gctx, s.league, s.season)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFixturesUnavailable, err)
		}
		view, skipped = s.reshaper.Reshape(raw)
		return nil
	})
	if err := g.Wait(); err != nil {
		level.Error(s.logger).Log("msg", "pipeline failed", "err", err)
		return nil, err
	}

	if skipped == nil {
		skipped = []fixture.SkippedFixture{}
	}
	res := &Result{
		Skipped:      skipped,
		SkippedCount: len(skipped),
		GeneratedAt:  s.now().UTC(),
	}
	for _, sk := range skipped {
		s.metrics.SkippedFixtures.WithLabelValues(string(sk.Reason)).Inc()
	}

	if rankErr != nil {
		level.Warn(s.logger).Log("msg", "serving fixtures without opponent metrics", "err", rankErr)
		s.metrics.RankingDegraded.Inc()
		res.RankingError = rankErr.Error()
		table = nil
	}

	joined, err := fixture.Join(view, table)
	if err != nil {
		level.Error(s.logger).Log("msg", "join failed", "err", err)
		return nil, fmt.Errorf("joining fixtures: %w", err)
	}
	res.Teams = joined
	res.Rankings = table

	level.Info(s.logger).Log("msg", "fixtures computed", "teams", joined.Teams(), "entries", joined.Entries(),
		"skipped", len(skipped), "ranked", len(table))
	return res, nil
}

// Rankings fetches the league table and ranks it.
func (s *FixtureService) Rankings(ctx context.Context) ([]ranking.TeamRanking, error) {
	table, err := s.source.GetLeagueTable(ctx, s.league, s.season, understat.TableOptions{})
	if err != nil {
		return nil, err
	}
	rows, err := ranking.RowsFromTable(table.Header, table.Rows)
	if err != nil {
		return nil, err
	}
	return ranking.Rank(rows)
}
