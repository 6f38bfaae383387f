package ranking

import (
	"fmt"
	"strconv"
	"strings"
)

// Column names read from a league table header.
const (
	ColumnTeam    = "Team"
	ColumnMatches = "M"
	ColumnXG      = "xG"
	ColumnXGA     = "xGA"
)

// RowsFromTable maps a league table with a header row to raw rows, locating
// the Team, M, xG and xGA columns by name.
func RowsFromTable(header []string, rows [][]string) ([]RawTableRow, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}

	cols := make(map[string]int, 4)
	for _, name := range []string{ColumnTeam, ColumnMatches, ColumnXG, ColumnXGA} {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("%w: league table has no %q column", ErrInvalidInput, name)
		}
		cols[name] = i
	}

	out := make([]RawTableRow, 0, len(rows))
	for n, row := range rows {
		for name, i := range cols {
			if i >= len(row) {
				return nil, fmt.Errorf("%w: row %d is missing column %q", ErrInvalidInput, n, name)
			}
		}

		matches, err := strconv.Atoi(strings.TrimSpace(row[cols[ColumnMatches]]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d matches: %v", ErrInvalidInput, n, err)
		}
		xg, err := strconv.ParseFloat(strings.TrimSpace(row[cols[ColumnXG]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d xG: %v", ErrInvalidInput, n, err)
		}
		xga, err := strconv.ParseFloat(strings.TrimSpace(row[cols[ColumnXGA]]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d xGA: %v", ErrInvalidInput, n, err)
		}

		out = append(out, RawTableRow{
			Team:      strings.TrimSpace(row[cols[ColumnTeam]]),
			Matches:   matches,
			XGFor:     xg,
			XGAgainst: xga,
		})
	}
	return out, nil
}
