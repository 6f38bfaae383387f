package understat

import "time"

// Table is a league table with its header row kept separately.
type Table struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// TableHeader is the column order produced by GetLeagueTable.
var TableHeader = []string{"Team", "M", "W", "D", "L", "G", "GA", "PTS", "xG", "xGA", "xPTS"}

// TableOptions restricts the matches that contribute to a league table.
// A zero Start or End leaves that side of the window open.
type TableOptions struct {
	Start time.Time
	End   time.Time
}

func (o TableOptions) includes(t time.Time) bool {
	if !o.Start.IsZero() && t.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && t.After(o.End) {
		return false
	}
	return true
}

// teamData mirrors an entry of the teamsData blob.
type teamData struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	History []matchHistory `json:"history"`
}

type matchHistory struct {
	HomeAway string  `json:"h_a"`
	XG       float64 `json:"xG"`
	XGA      float64 `json:"xGA"`
	NPXG     float64 `json:"npxG"`
	NPXGA    float64 `json:"npxGA"`
	Scored   int     `json:"scored"`
	Missed   int     `json:"missed"`
	XPts     float64 `json:"xpts"`
	Result   string  `json:"result"`
	Date     string  `json:"date"`
	Wins     int     `json:"wins"`
	Draws    int     `json:"draws"`
	Loses    int     `json:"loses"`
	Pts      int     `json:"pts"`
}

// dateData mirrors an entry of the datesData blob.
type dateData struct {
	ID       string   `json:"id"`
	IsResult bool     `json:"isResult"`
	Home     sideTeam `json:"h"`
	Away     sideTeam `json:"a"`
	DateTime *string  `json:"datetime"`
}

type sideTeam struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ShortTitle string `json:"short_title"`
}
