package league

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/sam-maryland/espn-mcp-server/internal/espn"
	"github.com/sam-maryland/espn-mcp-server/internal/standings"
)

// ErrNoData is returned by season analytics when there is nothing to measure yet
var ErrNoData = errors.New("league has no teams or completed weeks")

// League is a typed view of one ESPN league season
type League struct {
	ID                   int              `json:"league_id"`
	Year                 int              `json:"year"`
	Name                 string           `json:"name"`
	Size                 int              `json:"size"`
	CurrentWeek          int              `json:"current_week"`
	CurrentMatchupPeriod int              `json:"current_matchup_period"`
	RegularSeasonWeeks   int              `json:"regular_season_weeks"`
	PlayoffTeamCount     int              `json:"playoff_team_count"`
	TieRule              standings.Policy `json:"tie_rule"`
	ScoringType          string           `json:"scoring_type,omitempty"`
	PreviousSeasons      []int            `json:"previous_seasons,omitempty"`
	Divisions            []Division       `json:"divisions"`
	Teams                []*Team          `json:"teams"`
	Matchups             []Matchup        `json:"-"`
}

// Division is a named group of teams
type Division struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Owner is a league member that manages a team
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
}

// Team carries ESPN's season summary plus the regular season week by week.
// Week slices are indexed by matchup period, index 0 being period 1.
type Team struct {
	ID            int     `json:"team_id"`
	Abbrev        string  `json:"abbrev"`
	Name          string  `json:"team_name"`
	DivisionID    int     `json:"division_id"`
	DivisionName  string  `json:"division_name,omitempty"`
	Owners        []Owner `json:"owners,omitempty"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Ties          int     `json:"ties"`
	PointsFor     float64 `json:"points_for"`
	PointsAgainst float64 `json:"points_against"`
	Standing      int     `json:"standing"`
	FinalStanding int     `json:"final_standing,omitempty"`

	Schedule []int               `json:"-"`
	Scores   []float64           `json:"-"`
	Outcomes []standings.Outcome `json:"-"`
	MOV      []float64           `json:"-"`
}

// Matchup is a single game of the season. AwayTeamID is zero on a bye.
type Matchup struct {
	Week        int     `json:"week"`
	HomeTeamID  int     `json:"home_team_id"`
	AwayTeamID  int     `json:"away_team_id,omitempty"`
	HomeScore   float64 `json:"home_score"`
	AwayScore   float64 `json:"away_score"`
	Winner      string  `json:"winner"`
	PlayoffTier string  `json:"playoff_tier,omitempty"`
	IsPlayoff   bool    `json:"is_playoff"`
}

// FromESPN builds a League from the raw league document
func FromESPN(raw *espn.League) (*League, error) {
	if raw == nil {
		return nil, fmt.Errorf("league payload is empty")
	}

	sched := raw.Settings.ScheduleSettings
	l := &League{
		ID:                   raw.ID,
		Year:                 raw.SeasonID,
		Name:                 raw.Settings.Name,
		Size:                 raw.Settings.Size,
		CurrentWeek:          raw.ScoringPeriodID,
		CurrentMatchupPeriod: raw.Status.CurrentMatchupPeriod,
		RegularSeasonWeeks:   sched.MatchupPeriodCount,
		PlayoffTeamCount:     sched.PlayoffTeamCount,
		TieRule:              standings.Policy(sched.PlayoffSeedingRule),
		ScoringType:          raw.Settings.ScoringSettings.ScoringType,
		PreviousSeasons:      append([]int(nil), raw.Status.PreviousSeasons...),
	}
	if final := raw.Status.FinalScoringPeriod; final > 0 && l.CurrentWeek > final {
		l.CurrentWeek = final
	}
	if l.Size == 0 {
		l.Size = len(raw.Teams)
	}

	members := make(map[string]espn.Member, len(raw.Members))
	for _, m := range raw.Members {
		members[m.ID] = m
	}

	divisionNames := make(map[int]string, len(sched.Divisions))
	for _, d := range sched.Divisions {
		l.Divisions = append(l.Divisions, Division{ID: d.ID, Name: d.Name})
		divisionNames[d.ID] = d.Name
	}
	if len(l.Divisions) == 0 {
		seen := make(map[int]bool)
		for _, t := range raw.Teams {
			if !seen[t.DivisionID] {
				seen[t.DivisionID] = true
				l.Divisions = append(l.Divisions, Division{ID: t.DivisionID})
			}
		}
		sort.Slice(l.Divisions, func(i, j int) bool { return l.Divisions[i].ID < l.Divisions[j].ID })
	}

	byID := make(map[int]*Team, len(raw.Teams))
	for _, t := range raw.Teams {
		team := &Team{
			ID:            t.ID,
			Abbrev:        t.Abbrev,
			Name:          teamName(t),
			DivisionID:    t.DivisionID,
			DivisionName:  divisionNames[t.DivisionID],
			Wins:          t.Record.Overall.Wins,
			Losses:        t.Record.Overall.Losses,
			Ties:          t.Record.Overall.Ties,
			PointsFor:     t.Record.Overall.PointsFor,
			PointsAgainst: t.Record.Overall.PointsAgainst,
			Standing:      t.PlayoffSeed,
			FinalStanding: t.RankCalculatedFinal,
		}
		for _, ownerID := range t.Owners {
			owner := Owner{ID: ownerID}
			if m, ok := members[ownerID]; ok {
				owner.DisplayName = m.DisplayName
				owner.FirstName = m.FirstName
				owner.LastName = m.LastName
			}
			team.Owners = append(team.Owners, owner)
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("team %d appears more than once in league %d", t.ID, raw.ID)
		}
		byID[t.ID] = team
		l.Teams = append(l.Teams, team)
	}

	for _, m := range raw.Schedule {
		if m.Home == nil {
			continue
		}
		matchup := Matchup{
			Week:        m.MatchupPeriodID,
			HomeTeamID:  m.Home.TeamID,
			HomeScore:   m.Home.TotalPoints,
			Winner:      m.Winner,
			PlayoffTier: m.PlayoffTierType,
		}
		if m.Away != nil {
			matchup.AwayTeamID = m.Away.TeamID
			matchup.AwayScore = m.Away.TotalPoints
		}
		matchup.IsPlayoff = !l.regularSeason(m)
		l.Matchups = append(l.Matchups, matchup)
	}
	sort.SliceStable(l.Matchups, func(i, j int) bool { return l.Matchups[i].Week < l.Matchups[j].Week })

	if l.RegularSeasonWeeks == 0 {
		for _, m := range l.Matchups {
			if !m.IsPlayoff && m.Week > l.RegularSeasonWeeks {
				l.RegularSeasonWeeks = m.Week
			}
		}
	}

	if err := l.buildSchedules(byID); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *League) regularSeason(m espn.Matchup) bool {
	if m.PlayoffTierType != "" && m.PlayoffTierType != espn.PlayoffTierNone {
		return false
	}
	return l.RegularSeasonWeeks == 0 || m.MatchupPeriodID <= l.RegularSeasonWeeks
}

// buildSchedules fills the per-week slices of every team from the regular season matchups
func (l *League) buildSchedules(byID map[int]*Team) error {
	weeks := l.RegularSeasonWeeks
	for _, t := range l.Teams {
		t.Schedule = make([]int, weeks)
		t.Scores = make([]float64, weeks)
		t.Outcomes = make([]standings.Outcome, weeks)
		t.MOV = make([]float64, weeks)
	}

	for _, m := range l.Matchups {
		if m.IsPlayoff || m.AwayTeamID == 0 || m.Week < 1 || m.Week > weeks {
			continue
		}
		home, ok := byID[m.HomeTeamID]
		if !ok {
			return fmt.Errorf("week %d matchup references unknown team %d", m.Week, m.HomeTeamID)
		}
		away, ok := byID[m.AwayTeamID]
		if !ok {
			return fmt.Errorf("week %d matchup references unknown team %d", m.Week, m.AwayTeamID)
		}

		w := m.Week - 1
		home.Schedule[w], away.Schedule[w] = away.ID, home.ID
		home.Scores[w], away.Scores[w] = m.HomeScore, m.AwayScore
		home.MOV[w], away.MOV[w] = m.HomeScore-m.AwayScore, m.AwayScore-m.HomeScore

		switch m.Winner {
		case espn.WinnerHome:
			home.Outcomes[w], away.Outcomes[w] = standings.OutcomeWin, standings.OutcomeLoss
		case espn.WinnerAway:
			home.Outcomes[w], away.Outcomes[w] = standings.OutcomeLoss, standings.OutcomeWin
		case espn.WinnerTie:
			home.Outcomes[w], away.Outcomes[w] = standings.OutcomeTie, standings.OutcomeTie
		default:
			home.Outcomes[w], away.Outcomes[w] = standings.OutcomeUndecided, standings.OutcomeUndecided
		}
	}
	return nil
}

func teamName(t espn.Team) string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return strings.TrimSpace(t.Location + " " + t.Nickname)
}

// Champion returns the team that finished first, or nil while the season is running
func (l *League) Champion() *Team {
	for _, t := range l.Teams {
		if t.FinalStanding == 1 {
			return t
		}
	}
	return nil
}

// Team returns the team with the given id, or nil
func (l *League) Team(id int) *Team {
	for _, t := range l.Teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// OwnerNames returns the display names of the team's owners
func (t *Team) OwnerNames() []string {
	names := make([]string, 0, len(t.Owners))
	for _, o := range t.Owners {
		switch {
		case o.DisplayName != "":
			names = append(names, o.DisplayName)
		case o.FirstName != "" || o.LastName != "":
			names = append(names, strings.TrimSpace(o.FirstName+" "+o.LastName))
		default:
			names = append(names, o.ID)
		}
	}
	return names
}
