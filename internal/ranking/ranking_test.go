package ranking

import (
	"encoding/json"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankTwoTeams(t *testing.T) {
	table, err := Rank([]RawTableRow{
		{Team: "A", Matches: 10, XGFor: 20, XGAgainst: 10},
		{Team: "B", Matches: 10, XGFor: 10, XGAgainst: 20},
	})
	require.NoError(t, err)
	require.Len(t, table, 2)

	assert.Equal(t, TeamRanking{Team: "A", XGPer90: 200, XGAPer90: 100, XGRank: 1, XGARank: 1}, table[0])
	assert.Equal(t, TeamRanking{Team: "B", XGPer90: 100, XGAPer90: 200, XGRank: 2, XGARank: 2}, table[1])
}

func TestRankRoundsToTwoDecimals(t *testing.T) {
	table, err := Rank([]RawTableRow{
		{Team: "Arsenal", Matches: 24, XGFor: 42.7381, XGAgainst: 21.0553},
	})
	require.NoError(t, err)

	assert.Equal(t, "1.78", table[0].XGPer90.String())
	assert.Equal(t, "0.88", table[0].XGAPer90.String())
}

func TestRankRoundsHalvesToEven(t *testing.T) {
	// 1.25/10 and 6.25/10 are exact binary halves at the second decimal.
	table, err := Rank([]RawTableRow{
		{Team: "A", Matches: 10, XGFor: 1.25, XGAgainst: 6.25},
		{Team: "B", Matches: 100, XGFor: 13, XGAgainst: 62},
	})
	require.NoError(t, err)

	assert.Equal(t, "0.12", table[0].XGPer90.String())
	assert.Equal(t, "0.62", table[0].XGAPer90.String())
	assert.Equal(t, "0.13", table[1].XGPer90.String())
	assert.Equal(t, "0.62", table[1].XGAPer90.String())

	assert.Equal(t, 2, table[0].XGRank)
	assert.Equal(t, 1, table[1].XGRank)
	assert.Equal(t, 1, table[0].XGARank)
	assert.Equal(t, 2, table[1].XGARank)

	assert.Equal(t, Per90(12), NewPer90(0.125))
	assert.Equal(t, Per90(38), NewPer90(0.375))
}

func TestRankIsPermutationAndOrdered(t *testing.T) {
	rows := []RawTableRow{
		{Team: "Liverpool", Matches: 24, XGFor: 53.1, XGAgainst: 24.2},
		{Team: "Arsenal", Matches: 24, XGFor: 42.7, XGAgainst: 21.0},
		{Team: "Ipswich", Matches: 24, XGFor: 23.0, XGAgainst: 45.9},
		{Team: "Chelsea", Matches: 24, XGFor: 47.5, XGAgainst: 30.3},
		{Team: "Southampton", Matches: 24, XGFor: 20.4, XGAgainst: 51.8},
		{Team: "Brentford", Matches: 24, XGFor: 38.1, XGAgainst: 38.6},
	}
	table, err := Rank(rows)
	require.NoError(t, err)
	require.Len(t, table, len(rows))

	xgRanks := make([]int, 0, len(table))
	xgaRanks := make([]int, 0, len(table))
	for _, tr := range table {
		xgRanks = append(xgRanks, tr.XGRank)
		xgaRanks = append(xgaRanks, tr.XGARank)
	}
	sort.Ints(xgRanks)
	sort.Ints(xgaRanks)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, xgRanks)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, xgaRanks)

	byXG := append([]TeamRanking(nil), table...)
	sort.Slice(byXG, func(i, j int) bool { return byXG[i].XGRank < byXG[j].XGRank })
	for i := 1; i < len(byXG); i++ {
		assert.GreaterOrEqual(t, byXG[i-1].XGPer90, byXG[i].XGPer90)
	}

	byXGA := append([]TeamRanking(nil), table...)
	sort.Slice(byXGA, func(i, j int) bool { return byXGA[i].XGARank < byXGA[j].XGARank })
	for i := 1; i < len(byXGA); i++ {
		assert.LessOrEqual(t, byXGA[i-1].XGAPer90, byXGA[i].XGAPer90)
	}

	assert.Equal(t, "Liverpool", byXG[0].Team)
	assert.Equal(t, "Arsenal", byXGA[0].Team)
}

func TestRankStableTieBreak(t *testing.T) {
	table, err := Rank([]RawTableRow{
		{Team: "Fulham", Matches: 10, XGFor: 15, XGAgainst: 12},
		{Team: "Brighton", Matches: 10, XGFor: 15, XGAgainst: 12},
		{Team: "Everton", Matches: 10, XGFor: 9, XGAgainst: 12},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, table[0].XGRank)
	assert.Equal(t, 2, table[1].XGRank)
	assert.Equal(t, 3, table[2].XGRank)

	// All equal on xGA: input order decides.
	assert.Equal(t, 1, table[0].XGARank)
	assert.Equal(t, 2, table[1].XGARank)
	assert.Equal(t, 3, table[2].XGARank)
}

func TestRankInvalidInputAborts(t *testing.T) {
	tests := []struct {
		name string
		rows []RawTableRow
	}{
		{"zero matches", []RawTableRow{{Team: "A", Matches: 10, XGFor: 1, XGAgainst: 1}, {Team: "B", Matches: 0, XGFor: 0, XGAgainst: 0}}},
		{"missing team", []RawTableRow{{Matches: 3, XGFor: 1, XGAgainst: 1}}},
		{"negative xG", []RawTableRow{{Team: "A", Matches: 3, XGFor: -1, XGAgainst: 1}}},
		{"NaN xGA", []RawTableRow{{Team: "A", Matches: 3, XGFor: 1, XGAgainst: math.NaN()}}},
		{"duplicate team", []RawTableRow{{Team: "A", Matches: 3, XGFor: 1, XGAgainst: 1}, {Team: "A", Matches: 3, XGFor: 2, XGAgainst: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Rank(tt.rows)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, table)
		})
	}
}

func TestRankEmpty(t *testing.T) {
	table, err := Rank(nil)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestLookup(t *testing.T) {
	byTeam, err := Lookup([]TeamRanking{{Team: "A", XGRank: 2}, {Team: "B", XGRank: 1}})
	require.NoError(t, err)
	assert.Len(t, byTeam, 2)
	assert.Equal(t, 1, byTeam["B"].XGRank)

	byTeam, err = Lookup([]TeamRanking{{Team: "A"}, {Team: "A"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Nil(t, byTeam)
}

func TestRowsFromTable(t *testing.T) {
	header := []string{"Team", "M", "W", "D", "L", "G", "GA", "PTS", "xG", "xGA", "xPTS"}
	rows := [][]string{
		{"Liverpool", "24", "17", "6", "1", "58", "22", "57", "53.12", "24.20", "50.1"},
		{"Ipswich", "24", "3", "7", "14", "22", "50", "16", "23.01", "45.90", "20.3"},
	}

	raw, err := RowsFromTable(header, rows)
	require.NoError(t, err)
	assert.Equal(t, []RawTableRow{
		{Team: "Liverpool", Matches: 24, XGFor: 53.12, XGAgainst: 24.20},
		{Team: "Ipswich", Matches: 24, XGFor: 23.01, XGAgainst: 45.90},
	}, raw)
}

func TestRowsFromTableErrors(t *testing.T) {
	_, err := RowsFromTable([]string{"Team", "M", "xG"}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = RowsFromTable([]string{"Team", "M", "xG", "xGA"}, [][]string{{"Chelsea", "24", "47.5"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = RowsFromTable([]string{"Team", "M", "xG", "xGA"}, [][]string{{"Chelsea", "n/a", "47.5", "30.1"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestPer90JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		XG  Per90  `json:"xG"`
		XGA *Per90 `json:"xGA"`
	}{XG: NewPer90(1.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"xG":1.50,"xGA":null}`, string(out))
	assert.Contains(t, string(out), `1.50`)

	var p Per90
	require.NoError(t, json.Unmarshal([]byte(`"0.87"`), &p))
	assert.Equal(t, Per90(87), p)
	require.NoError(t, json.Unmarshal([]byte(`2.046`), &p))
	assert.Equal(t, Per90(205), p)

	assert.Equal(t, "-0.05", Per90(-5).String())
}
