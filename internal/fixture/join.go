package fixture

import (
	"errors"
	"fmt"

	"github.com/fortuna/xgfixtures/internal/ranking"
)

var (
	// ErrPrecondition is returned when Join is called without a view.
	ErrPrecondition = errors.New("fixture view is required")
	// ErrDuplicateTeam is returned when the ranking table lists a team twice.
	ErrDuplicateTeam = errors.New("duplicate team in ranking table")
)

// Join returns a copy of view where every entry carries its opponent's
// metrics and ranks. The input view is left untouched.
//
// Opponents missing from rankings get null xG and xGA and no ranks.
func Join(view View, rankings []ranking.TeamRanking) (View, error) {
	if view == nil {
		return nil, ErrPrecondition
	}

	byTeam, err := ranking.Lookup(rankings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDuplicateTeam, err)
	}

	out := make(View, len(view))
	for team, entries := range view {
		joined := make([]Entry, len(entries))
		for i, e := range entries {
			e.Gameweek = copyInt(e.Gameweek)
			if opp, ok := byTeam[e.Opponent]; ok {
				xg, xga := opp.XGPer90, opp.XGAPer90
				xgRank, xgaRank := opp.XGRank, opp.XGARank
				e.XG, e.XGA = &xg, &xga
				e.XGRank, e.XGARank = &xgRank, &xgaRank
			} else {
				e.XG, e.XGA = nil, nil
				e.XGRank, e.XGARank = nil, nil
			}
			joined[i] = e
		}
		out[team] = joined
	}
	return out, nil
}
