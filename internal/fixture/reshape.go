package fixture

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/fortuna/xgfixtures/internal/gameweek"
)

// Reshaper assigns gameweeks to fixtures and groups them per team.
type Reshaper struct {
	calendar gameweek.Calendar
	logger   log.Logger
}

// NewReshaper creates a reshaper for the given calendar. A nil logger discards output.
func NewReshaper(calendar gameweek.Calendar, logger log.Logger) *Reshaper {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Reshaper{
		calendar: calendar,
		logger:   log.With(logger, "component", "reshaper"),
	}
}

// Reshape builds the per-team view. Fixtures with a missing or malformed
// kick-off time are dropped and reported; fixtures outside every gameweek
// window are kept with no gameweek.
func (r *Reshaper) Reshape(fixtures []RawFixture) (View, []SkippedFixture) {
	view := make(View)
	var skipped []SkippedFixture

	for _, f := range fixtures {
		if f.DateTime == nil {
			level.Warn(r.logger).Log("msg", "missing datetime, skipping fixture", "fixture", f.ID, "home", f.Home, "away", f.Away)
			skipped = append(skipped, SkippedFixture{
				FixtureID: f.ID,
				Home:      f.Home,
				Away:      f.Away,
				Reason:    ReasonMissingDate,
			})
			continue
		}

		kickoff, err := time.Parse(DateTimeLayout, *f.DateTime)
		if err != nil {
			level.Warn(r.logger).Log("msg", "invalid datetime, skipping fixture", "fixture", f.ID, "datetime", *f.DateTime, "err", err)
			skipped = append(skipped, SkippedFixture{
				FixtureID:   f.ID,
				Home:        f.Home,
				Away:        f.Away,
				RawDateTime: *f.DateTime,
				Reason:      ReasonInvalidDate,
				Detail:      err.Error(),
			})
			continue
		}

		var gw *int
		if n, ok := r.calendar.Lookup(kickoff); ok {
			gw = &n
		} else {
			level.Debug(r.logger).Log("msg", "no gameweek for fixture", "fixture", f.ID, "datetime", *f.DateTime)
		}

		view[f.Home] = append(view[f.Home], Entry{
			Opponent:      f.Away,
			OpponentShort: f.AwayShort,
			Venue:         Home,
			Gameweek:      copyInt(gw),
		})
		view[f.Away] = append(view[f.Away], Entry{
			Opponent:      f.Home,
			OpponentShort: f.HomeShort,
			Venue:         Away,
			Gameweek:      copyInt(gw),
		})
	}

	return view, skipped
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
