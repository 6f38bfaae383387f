// Package understat reads league tables and fixture lists from understat.com
// league pages.
package understat

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/fortuna/xgfixtures/internal/fixture"
)

// BaseURL is the default Understat origin.
const BaseURL = "https://understat.com"

const historyDateLayout = "2006-01-02 15:04:05"

// Client fetches and decodes Understat league pages.
type Client struct {
	baseURL string
	fetcher Fetcher
	logger  log.Logger
}

// New creates a client. An empty baseURL selects BaseURL.
func New(baseURL string, fetcher Fetcher, logger log.Logger) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetcher: fetcher,
		logger:  log.With(logger, "component", "understat"),
	}
}

// LeagueURL is the page holding a league's season data.
func (c *Client) LeagueURL(league, season string) string {
	return fmt.Sprintf("%s/league/%s/%s", c.baseURL, league, season)
}

// GetLeagueTable builds the league table from each team's match history.
// Rows are ordered by points, goal difference and goals scored.
func (c *Client) GetLeagueTable(ctx context.Context, league, season string, opts TableOptions) (*Table, error) {
	vars, err := c.page(ctx, league, season)
	if err != nil {
		return nil, &FetchError{Op: "league table", League: league, Season: season, Err: err}
	}
	teams, err := parseTeams(vars)
	if err != nil {
		return nil, &FetchError{Op: "league table", League: league, Season: season, Err: err}
	}

	type line struct {
		title                  string
		m, w, d, l, g, ga, pts int
		xg, xga, xpts          float64
	}

	lines := make([]line, 0, len(teams))
	for _, team := range teams {
		ln := line{title: team.Title}
		for _, h := range team.History {
			if !opts.Start.IsZero() || !opts.End.IsZero() {
				played, err := time.Parse(historyDateLayout, h.Date)
				if err != nil || !opts.includes(played) {
					continue
				}
			}
			ln.m++
			ln.w += h.Wins
			ln.d += h.Draws
			ln.l += h.Loses
			ln.g += h.Scored
			ln.ga += h.Missed
			ln.pts += h.Pts
			ln.xg += h.XG
			ln.xga += h.XGA
			ln.xpts += h.XPts
		}
		lines = append(lines, ln)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.pts != b.pts {
			return a.pts > b.pts
		}
		if a.g-a.ga != b.g-b.ga {
			return a.g-a.ga > b.g-b.ga
		}
		if a.g != b.g {
			return a.g > b.g
		}
		return a.title < b.title
	})

	table := &Table{
		Header: append([]string(nil), TableHeader...),
		Rows:   make([][]string, 0, len(lines)),
	}
	for _, ln := range lines {
		table.Rows = append(table.Rows, []string{
			ln.title,
			strconv.Itoa(ln.m),
			strconv.Itoa(ln.w),
			strconv.Itoa(ln.d),
			strconv.Itoa(ln.l),
			strconv.Itoa(ln.g),
			strconv.Itoa(ln.ga),
			strconv.Itoa(ln.pts),
			formatFloat(ln.xg),
			formatFloat(ln.xga),
			formatFloat(ln.xpts),
		})
	}

	level.Debug(c.logger).Log("msg", "league table parsed", "league", league, "season", season, "teams", len(table.Rows))
	return table, nil
}

// GetLeagueFixtures returns the fixtures that have not been played yet, in
// the order the page lists them.
func (c *Client) GetLeagueFixtures(ctx context.Context, league, season string) ([]fixture.RawFixture, error) {
	vars, err := c.page(ctx, league, season)
	if err != nil {
		return nil, &FetchError{Op: "league fixtures", League: league, Season: season, Err: err}
	}
	dates, err := parseDates(vars)
	if err != nil {
		return nil, &FetchError{Op: "league fixtures", League: league, Season: season, Err: err}
	}

	fixtures := make([]fixture.RawFixture, 0, len(dates))
	for _, d := range dates {
		if d.IsResult {
			continue
		}
		fixtures = append(fixtures, fixture.RawFixture{
			ID:        d.ID,
			Home:      d.Home.Title,
			HomeShort: d.Home.ShortTitle,
			Away:      d.Away.Title,
			AwayShort: d.Away.ShortTitle,
			DateTime:  d.DateTime,
		})
	}

	level.Debug(c.logger).Log("msg", "fixtures parsed", "league", league, "season", season, "upcoming", len(fixtures), "total", len(dates))
	return fixtures, nil
}

func (c *Client) page(ctx context.Context, league, season string) (map[string][]byte, error) {
	url := c.LeagueURL(league, season)
	body, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		level.Error(c.logger).Log("msg", "fetch failed", "url", url, "err", err)
		return nil, err
	}
	return extractVariables(body)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
