package service

import (
	"errors"
	"fmt"

	"github.com/fortuna/xgfixtures/internal/fixture"
	"github.com/fortuna/xgfixtures/internal/ranking"
)

// ErrInvalidRange is returned for an empty or non-positive gameweek range.
var ErrInvalidRange = errors.New("invalid gameweek range")

// TeamSummary totals a team's opponent metrics over a gameweek range.
type TeamSummary struct {
	Fixtures         []fixture.Entry `json:"fixtures"`
	TotalOpponentXG  ranking.Per90   `json:"total_opponent_xG"`
	TotalOpponentXGA ranking.Per90   `json:"total_opponent_xGA"`
}

// ValidateRange reports ErrInvalidRange unless 1 <= minGW <= maxGW.
func ValidateRange(minGW, maxGW int) error {
	if minGW < 1 || maxGW < minGW {
		return fmt.Errorf("%w: %d..%d", ErrInvalidRange, minGW, maxGW)
	}
	return nil
}

// Summarize keeps each team's fixtures with a gameweek in [minGW, maxGW] and
// sums the opponents' xG and xGA. Fixtures without a gameweek never match;
// opponents without metrics count as zero.
func Summarize(view fixture.View, minGW, maxGW int) (map[string]TeamSummary, error) {
	if err := ValidateRange(minGW, maxGW); err != nil {
		return nil, err
	}

	out := make(map[string]TeamSummary, len(view))
	for team, entries := range view {
		sum := TeamSummary{Fixtures: make([]fixture.Entry, 0, len(entries))}
		for _, e := range entries {
			if e.Gameweek == nil || *e.Gameweek < minGW || *e.Gameweek > maxGW {
				continue
			}
			sum.Fixtures = append(sum.Fixtures, e)
			if e.XG != nil {
				sum.TotalOpponentXG += *e.XG
			}
			if e.XGA != nil {
				sum.TotalOpponentXGA += *e.XGA
			}
		}
		out[team] = sum
	}
	return out, nil
}
