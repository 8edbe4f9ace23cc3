package espn

// League is the league document returned by the fantasy API for the mTeam, mMatchup,
// mSettings, mStandings and mNav views
type League struct {
	ID              int       `json:"id"`
	SeasonID        int       `json:"seasonId"`
	ScoringPeriodID int       `json:"scoringPeriodId"`
	Status          Status    `json:"status"`
	Settings        Settings  `json:"settings"`
	Teams           []Team    `json:"teams"`
	Members         []Member  `json:"members"`
	Schedule        []Matchup `json:"schedule"`
}

// Status describes where the season currently is
type Status struct {
	CurrentMatchupPeriod int   `json:"currentMatchupPeriod"`
	LatestScoringPeriod  int   `json:"latestScoringPeriod"`
	FinalScoringPeriod   int   `json:"finalScoringPeriod"`
	FirstScoringPeriod   int   `json:"firstScoringPeriod"`
	IsActive             bool  `json:"isActive"`
	PreviousSeasons      []int `json:"previousSeasons"`
}

// Settings holds the league configuration
type Settings struct {
	Name             string           `json:"name"`
	Size             int              `json:"size"`
	ScheduleSettings ScheduleSettings `json:"scheduleSettings"`
	ScoringSettings  ScoringSettings  `json:"scoringSettings"`
}

// ScheduleSettings covers divisions, season length and playoff seeding
type ScheduleSettings struct {
	Divisions          []Division `json:"divisions"`
	MatchupPeriodCount int        `json:"matchupPeriodCount"`
	PlayoffTeamCount   int        `json:"playoffTeamCount"`
	PlayoffSeedingRule string     `json:"playoffSeedingRule"`
}

// ScoringSettings is the subset of scoring configuration the server reports
type ScoringSettings struct {
	ScoringType string `json:"scoringType"`
}

// Division is a named group of teams
type Division struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Team is a fantasy team
type Team struct {
	ID                  int       `json:"id"`
	Abbrev              string    `json:"abbrev"`
	Name                string    `json:"name"`
	Location            string    `json:"location"`
	Nickname            string    `json:"nickname"`
	DivisionID          int       `json:"divisionId"`
	Owners              []string  `json:"owners"`
	PlayoffSeed         int       `json:"playoffSeed"`
	RankCalculatedFinal int       `json:"rankCalculatedFinal"`
	Logo                string    `json:"logo"`
	Record              TeamStats `json:"record"`
}

// TeamStats holds ESPN's own record summaries
type TeamStats struct {
	Overall Record `json:"overall"`
}

// Record is a win/loss summary as ESPN reports it
type Record struct {
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Ties          int     `json:"ties"`
	PointsFor     float64 `json:"pointsFor"`
	PointsAgainst float64 `json:"pointsAgainst"`
	Percentage    float64 `json:"percentage"`
	StreakLength  int     `json:"streakLength"`
	StreakType    string  `json:"streakType"`
}

// Member is a league member (a team owner)
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// Matchup is a single scheduled game. Away is nil on a bye.
type Matchup struct {
	ID              int          `json:"id"`
	MatchupPeriodID int          `json:"matchupPeriodId"`
	Home            *MatchupSide `json:"home"`
	Away            *MatchupSide `json:"away"`
	Winner          string       `json:"winner"`
	PlayoffTierType string       `json:"playoffTierType"`
}

// MatchupSide is one team's half of a matchup
type MatchupSide struct {
	TeamID               int     `json:"teamId"`
	TotalPoints          float64 `json:"totalPoints"`
	TotalProjectedPoints float64 `json:"totalProjectedPoints,omitempty"`
}

const (
	WinnerHome      = "HOME"
	WinnerAway      = "AWAY"
	WinnerTie       = "TIE"
	WinnerUndecided = "UNDECIDED"

	// PlayoffTierNone marks a regular season matchup
	PlayoffTierNone = "NONE"
)

// Credentials are the cookies needed to read a private league
type Credentials struct {
	ESPNS2 string
	SWID   string
}

// Empty reports whether no cookie is set
func (c Credentials) Empty() bool {
	return c.ESPNS2 == "" && c.SWID == ""
}
