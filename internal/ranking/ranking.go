// Package ranking turns a league table into per-90 expected-goals metrics and
// two independent rank orderings.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidInput is returned when a table row cannot be ranked. The whole
// computation is aborted so a partial table is never produced.
var ErrInvalidInput = errors.New("invalid ranking input")

// RawTableRow is one team's cumulative season totals.
type RawTableRow struct {
	Team      string
	Matches   int
	XGFor     float64
	XGAgainst float64
}

// TeamRanking holds a team's per-90 metrics and its position in both orderings.
type TeamRanking struct {
	Team     string `json:"team"`
	XGPer90  Per90  `json:"xGper90"`
	XGAPer90 Per90  `json:"xGAper90"`
	XGRank   int    `json:"xGrank"`
	XGARank  int    `json:"xGArank"`
}

// Rank computes per-90 metrics for every row and assigns xG and xGA ranks.
//
// xGRank orders teams by descending xGPer90, xGARank by ascending xGAPer90.
// Ties keep input order. The result is returned in input order.
func Rank(rows []RawTableRow) ([]TeamRanking, error) {
	table := make([]TeamRanking, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for i, row := range rows {
		if err := validate(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if _, dup := seen[row.Team]; dup {
			return nil, fmt.Errorf("row %d: %w: duplicate team %q", i, ErrInvalidInput, row.Team)
		}
		seen[row.Team] = struct{}{}

		m := float64(row.Matches)
		table = append(table, TeamRanking{
			Team:     row.Team,
			XGPer90:  NewPer90(row.XGFor / m),
			XGAPer90: NewPer90(row.XGAgainst / m),
		})
	}

	assign(table, func(a, b TeamRanking) bool { return a.XGPer90 > b.XGPer90 }, func(t *TeamRanking, r int) { t.XGRank = r })
	assign(table, func(a, b TeamRanking) bool { return a.XGAPer90 < b.XGAPer90 }, func(t *TeamRanking, r int) { t.XGARank = r })

	return table, nil
}

// assign stable-sorts indices into table with less and writes 1-based positions back.
func assign(table []TeamRanking, less func(a, b TeamRanking) bool, set func(*TeamRanking, int)) {
	order := make([]int, len(table))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return less(table[order[i]], table[order[j]])
	})
	for pos, idx := range order {
		set(&table[idx], pos+1)
	}
}

func validate(row RawTableRow) error {
	switch {
	case row.Team == "":
		return fmt.Errorf("%w: missing team", ErrInvalidInput)
	case row.Matches <= 0:
		return fmt.Errorf("%w: team %q has %d matches played", ErrInvalidInput, row.Team, row.Matches)
	case !finite(row.XGFor) || row.XGFor < 0:
		return fmt.Errorf("%w: team %q has xG %v", ErrInvalidInput, row.Team, row.XGFor)
	case !finite(row.XGAgainst) || row.XGAgainst < 0:
		return fmt.Errorf("%w: team %q has xGA %v", ErrInvalidInput, row.Team, row.XGAgainst)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Lookup indexes a ranked table by team. A team listed twice is rejected
// with ErrInvalidInput.
func Lookup(table []TeamRanking) (map[string]TeamRanking, error) {
	out := make(map[string]TeamRanking, len(table))
	for _, t := range table {
		if _, dup := out[t.Team]; dup {
			return nil, fmt.Errorf("%w: duplicate team %q", ErrInvalidInput, t.Team)
		}
		out[t.Team] = t
	}
	return out, nil
}
