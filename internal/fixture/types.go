// Package fixture reshapes a league fixture list into per-team views and
// annotates them with opponent expected-goals rankings.
package fixture

import (
	"github.com/fortuna/xgfixtures/internal/ranking"
)

// DateTimeLayout is the kick-off layout used by the fixture source.
const DateTimeLayout = "2006-01-02 15:04:05"

// RawFixture is one scheduled match as delivered by the data source.
type RawFixture struct {
	ID        string
	Home      string
	HomeShort string
	Away      string
	AwayShort string
	// DateTime is nil when the source omitted the kick-off time.
	DateTime *string
}

// Venue marks whether the owning team plays at home or away.
type Venue string

const (
	Home Venue = "H"
	Away Venue = "A"
)

// Entry is one upcoming fixture from the point of view of a single team.
// Opponent metrics are populated by Join.
type Entry struct {
	Opponent      string         `json:"opponent"`
	OpponentShort string         `json:"opponent_short"`
	Venue         Venue          `json:"home_away"`
	Gameweek      *int           `json:"gameweek"`
	XG            *ranking.Per90 `json:"xG"`
	XGA           *ranking.Per90 `json:"xGA"`
	XGRank        *int           `json:"xGrank,omitempty"`
	XGARank       *int           `json:"xGArank,omitempty"`
}

// View maps a team to its fixtures in fixture-list order.
type View map[string][]Entry

// Teams returns the number of teams in the view.
func (v View) Teams() int {
	return len(v)
}

// Entries returns the total number of fixture entries across all teams.
func (v View) Entries() int {
	n := 0
	for _, entries := range v {
		n += len(entries)
	}
	return n
}

// SkipReason explains why a fixture contributed no entries.
type SkipReason string

const (
	ReasonMissingDate SkipReason = "missing_datetime"
	ReasonInvalidDate SkipReason = "invalid_datetime"
)

// SkippedFixture records a fixture dropped during reshaping.
type SkippedFixture struct {
	FixtureID   string     `json:"fixture_id,omitempty"`
	Home        string     `json:"home"`
	Away        string     `json:"away"`
	RawDateTime string     `json:"datetime,omitempty"`
	Reason      SkipReason `json:"reason"`
	Detail      string     `json:"detail,omitempty"`
}
