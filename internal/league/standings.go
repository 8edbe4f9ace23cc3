package league

import (
	"sort"

	"github.com/sam-maryland/espn-mcp-server/internal/standings"
)

// StandingRow is a resolved standings row with the team details attached
type StandingRow struct {
	standings.Standing
	TeamName     string   `json:"team_name"`
	Abbrev       string   `json:"abbrev"`
	DivisionName string   `json:"division_name,omitempty"`
	Owners       []string `json:"owners,omitempty"`
}

// Records converts the regular season into resolver input
func (l *League) Records() []standings.TeamSeasonRecord {
	records := make([]standings.TeamSeasonRecord, 0, len(l.Teams))
	for _, t := range l.Teams {
		opponents := make([]standings.TeamID, len(t.Schedule))
		for i, id := range t.Schedule {
			opponents[i] = standings.TeamID(id)
		}
		records = append(records, standings.TeamSeasonRecord{
			TeamID:     standings.TeamID(t.ID),
			DivisionID: standings.DivisionID(t.DivisionID),
			Outcomes:   append([]standings.Outcome(nil), t.Outcomes...),
			ScoresFor:  append([]float64(nil), t.Scores...),
			Opponents:  opponents,
		})
	}
	return records
}

// DivisionIDs lists the league's divisions in configuration order
func (l *League) DivisionIDs() []standings.DivisionID {
	ids := make([]standings.DivisionID, len(l.Divisions))
	for i, d := range l.Divisions {
		ids[i] = standings.DivisionID(d.ID)
	}
	return ids
}

// DefaultWeek is the cutoff used when no week is requested: the current matchup
// period, bounded by the regular season
func (l *League) DefaultWeek() int {
	week := l.CurrentMatchupPeriod
	if week > l.RegularSeasonWeeks {
		week = l.RegularSeasonWeeks
	}
	if week < 0 {
		week = 0
	}
	return week
}

// StandingsWeekly resolves the standings as of week. A week of zero or less selects
// DefaultWeek and an empty policy selects the league's own tie rule.
func (l *League) StandingsWeekly(week int, policy standings.Policy, rng standings.RandomSource) ([]StandingRow, error) {
	if week <= 0 {
		week = l.DefaultWeek()
	}
	if policy == "" {
		policy = l.TieRule
	}

	table, err := standings.Table(l.Records(), week, policy, l.DivisionIDs(), rng)
	if err != nil {
		return nil, err
	}

	rows := make([]StandingRow, len(table))
	for i, s := range table {
		row := StandingRow{Standing: s}
		if t := l.Team(int(s.TeamID)); t != nil {
			row.TeamName = t.Name
			row.Abbrev = t.Abbrev
			row.DivisionName = t.DivisionName
			row.Owners = t.OwnerNames()
		}
		rows[i] = row
	}
	return rows, nil
}

// Standings returns the teams in ESPN's own order: final standing once the season
// is complete, playoff seed before that
func (l *League) Standings() []*Team {
	out := append([]*Team(nil), l.Teams...)
	sort.SliceStable(out, func(i, j int) bool {
		return placement(out[i]) < placement(out[j])
	})
	return out
}

func placement(t *Team) int {
	if t.FinalStanding != 0 {
		return t.FinalStanding
	}
	return t.Standing
}
