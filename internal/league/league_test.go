package league

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sam-maryland/espn-mcp-server/internal/espn"
	"github.com/sam-maryland/espn-mcp-server/internal/standings"
)

func game(period, home, away int, homePts, awayPts float64, winner string) espn.Matchup {
	return espn.Matchup{
		MatchupPeriodID: period,
		Home:            &espn.MatchupSide{TeamID: home, TotalPoints: homePts},
		Away:            &espn.MatchupSide{TeamID: away, TotalPoints: awayPts},
		Winner:          winner,
		PlayoffTierType: espn.PlayoffTierNone,
	}
}

// fixture is a four team league: teams 1-3 share the East and beat each other in a cycle,
// team 4 is alone in the West. Week 4 is still to be played and week 5 is a playoff game.
func fixture() *espn.League {
	playoff := game(5, 1, 4, 0, 0, espn.WinnerUndecided)
	playoff.PlayoffTierType = "WINNERS_BRACKET"

	return &espn.League{
		ID:              555,
		SeasonID:        2024,
		ScoringPeriodID: 4,
		Status:          espn.Status{CurrentMatchupPeriod: 4, FinalScoringPeriod: 17},
		Settings: espn.Settings{
			Name: "Cycle League",
			ScheduleSettings: espn.ScheduleSettings{
				Divisions:          []espn.Division{{ID: 0, Name: "East"}, {ID: 1, Name: "West"}},
				MatchupPeriodCount: 4,
				PlayoffTeamCount:   2,
				PlayoffSeedingRule: string(standings.PolicyTotalPointsScored),
			},
			ScoringSettings: espn.ScoringSettings{ScoringType: "H2H_POINTS"},
		},
		Members: []espn.Member{{ID: "{M1}", DisplayName: "alpha_gm"}, {ID: "{M4}", FirstName: "Dee", LastName: "Four"}},
		Teams: []espn.Team{
			{ID: 1, Abbrev: "ALP", Name: "Alpha", DivisionID: 0, Owners: []string{"{M1}"}, PlayoffSeed: 1,
				Record: espn.TeamStats{Overall: espn.Record{Wins: 2, Losses: 1, PointsFor: 345, PointsAgainst: 325}}},
			{ID: 2, Abbrev: "BRV", Name: "Bravo", DivisionID: 0, PlayoffSeed: 4,
				Record: espn.TeamStats{Overall: espn.Record{Wins: 2, Losses: 1, PointsFor: 305, PointsAgainst: 320}}},
			{ID: 3, Abbrev: "CHR", Name: "Charlie", DivisionID: 0, PlayoffSeed: 3,
				Record: espn.TeamStats{Overall: espn.Record{Wins: 2, Losses: 1, PointsFor: 340, PointsAgainst: 315}}},
			{ID: 4, Abbrev: "DLT", Location: "Delta", Nickname: "Dogs", DivisionID: 1, Owners: []string{"{M4}"}, PlayoffSeed: 2,
				Record: espn.TeamStats{Overall: espn.Record{Losses: 3, PointsFor: 265, PointsAgainst: 330}}},
		},
		Schedule: []espn.Matchup{
			playoff,
			game(1, 1, 2, 120, 100, espn.WinnerHome), game(1, 3, 4, 110, 90, espn.WinnerHome),
			game(2, 2, 3, 105, 100, espn.WinnerHome), game(2, 1, 4, 115, 95, espn.WinnerHome),
			game(3, 3, 1, 130, 110, espn.WinnerHome), game(3, 2, 4, 100, 80, espn.WinnerHome),
			game(4, 1, 3, 0, 0, espn.WinnerUndecided), game(4, 4, 2, 0, 0, espn.WinnerUndecided),
		},
	}
}

func mustLeague(t *testing.T) *League {
	t.Helper()
	l, err := FromESPN(fixture())
	require.NoError(t, err)
	return l
}

func rowIDs(rows []StandingRow) []standings.TeamID {
	ids := make([]standings.TeamID, len(rows))
	for i, r := range rows {
		ids[i] = r.TeamID
	}
	return ids
}

func TestFromESPN(t *testing.T) {
	l := mustLeague(t)

	assert.Equal(t, "Cycle League", l.Name)
	assert.Equal(t, 4, l.Size)
	assert.Equal(t, 4, l.CurrentWeek)
	assert.Equal(t, 4, l.RegularSeasonWeeks)
	assert.Equal(t, standings.PolicyTotalPointsScored, l.TieRule)
	assert.Equal(t, "H2H_POINTS", l.ScoringType)
	assert.Equal(t, []Division{{ID: 0, Name: "East"}, {ID: 1, Name: "West"}}, l.Divisions)
	require.Len(t, l.Teams, 4)

	delta := l.Team(4)
	require.NotNil(t, delta)
	assert.Equal(t, "Delta Dogs", delta.Name)
	assert.Equal(t, "West", delta.DivisionName)
	assert.Equal(t, []string{"Dee Four"}, delta.OwnerNames())
	assert.Equal(t, []string{"alpha_gm"}, l.Team(1).OwnerNames())

	alpha := l.Team(1)
	assert.Equal(t, []int{2, 4, 3, 3}, alpha.Schedule)
	assert.Equal(t, []float64{120, 115, 110, 0}, alpha.Scores)
	assert.Equal(t, []float64{20, 20, -20, 0}, alpha.MOV)
	assert.Equal(t, []standings.Outcome{
		standings.OutcomeWin, standings.OutcomeWin, standings.OutcomeLoss, standings.OutcomeUndecided,
	}, alpha.Outcomes)

	require.Len(t, l.Matchups, 9)
	assert.True(t, l.Matchups[len(l.Matchups)-1].IsPlayoff)
	assert.False(t, l.Matchups[0].IsPlayoff)
	assert.Nil(t, l.Team(99))
}

func TestFromESPN_FinalScoringPeriodCapsCurrentWeek(t *testing.T) {
	raw := fixture()
	raw.ScoringPeriodID = 18
	raw.Status.FinalScoringPeriod = 17

	l, err := FromESPN(raw)
	require.NoError(t, err)
	assert.Equal(t, 17, l.CurrentWeek)
}

func TestFromESPN_DerivesMissingSettings(t *testing.T) {
	raw := fixture()
	raw.Settings.ScheduleSettings.Divisions = nil
	raw.Settings.ScheduleSettings.MatchupPeriodCount = 0

	l, err := FromESPN(raw)
	require.NoError(t, err)
	assert.Equal(t, 4, l.RegularSeasonWeeks)
	assert.Equal(t, []Division{{ID: 0}, {ID: 1}}, l.Divisions)
}

func TestFromESPN_Errors(t *testing.T) {
	_, err := FromESPN(nil)
	assert.Error(t, err)

	unknown := fixture()
	unknown.Schedule = append(unknown.Schedule, game(2, 1, 77, 1, 0, espn.WinnerHome))
	_, err = FromESPN(unknown)
	assert.Error(t, err)

	dup := fixture()
	dup.Teams = append(dup.Teams, dup.Teams[0])
	_, err = FromESPN(dup)
	assert.Error(t, err)
}

func TestStandingsWeekly(t *testing.T) {
	l := mustLeague(t)

	tests := []struct {
		name   string
		week   int
		policy standings.Policy
		want   []standings.TeamID
	}{
		{
			name: "league tie rule at current week",
			week: 0,
			want: []standings.TeamID{1, 4, 3, 2},
		},
		{
			name:   "head to head override",
			week:   3,
			policy: standings.PolicyHeadToHead,
			want:   []standings.TeamID{1, 4, 2, 3},
		},
		{
			name: "after week one",
			week: 1,
			want: []standings.TeamID{1, 4, 3, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := l.StandingsWeekly(tt.week, tt.policy, rand.New(rand.NewPCG(1, 2)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rowIDs(rows))
		})
	}

	rows, err := l.StandingsWeekly(0, "", rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, "Alpha", rows[0].TeamName)
	assert.Equal(t, "East", rows[0].DivisionName)
	assert.True(t, rows[1].DivisionWinner)
	assert.Equal(t, "Delta Dogs", rows[1].TeamName)
}

func TestStandingsWeekly_Errors(t *testing.T) {
	raw := fixture()
	raw.Settings.ScheduleSettings.PlayoffSeedingRule = "UNKNOWN_RULE"
	l, err := FromESPN(raw)
	require.NoError(t, err)

	_, err = l.StandingsWeekly(2, "", rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, standings.ErrConfiguration)

	_, err = mustLeague(t).StandingsWeekly(9, standings.PolicyHeadToHead, rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, standings.ErrDataIntegrity)

	preseason := fixture()
	preseason.Status.CurrentMatchupPeriod = 0
	l, err = FromESPN(preseason)
	require.NoError(t, err)
	_, err = l.StandingsWeekly(0, "", rand.New(rand.NewPCG(1, 2)))
	assert.ErrorIs(t, err, standings.ErrInsufficientData)
}

func TestStandings(t *testing.T) {
	l := mustLeague(t)

	var ids []int
	for _, team := range l.Standings() {
		ids = append(ids, team.ID)
	}
	assert.Equal(t, []int{1, 4, 3, 2}, ids)

	l.Team(2).FinalStanding = 1
	l.Team(1).FinalStanding = 2
	assert.Equal(t, 2, l.Standings()[0].ID)
}

func TestScoreboard(t *testing.T) {
	l := mustLeague(t)

	week2 := l.Scoreboard(2)
	require.Len(t, week2, 2)
	assert.Equal(t, 2, week2[0].HomeTeamID)
	assert.Equal(t, 105.0, week2[0].HomeScore)

	current := l.Scoreboard(0)
	require.Len(t, current, 2)
	assert.Equal(t, 4, current[0].Week)

	assert.Empty(t, l.Scoreboard(12))
}

func TestSeasonLeaders(t *testing.T) {
	l := mustLeague(t)

	top, err := l.TopScorer()
	require.NoError(t, err)
	assert.Equal(t, 1, top.ID)

	least, err := l.LeastScorer()
	require.NoError(t, err)
	assert.Equal(t, 4, least.ID)

	mostPA, err := l.MostPointsAgainst()
	require.NoError(t, err)
	assert.Equal(t, 4, mostPA.ID)

	high, err := l.TopScoredWeek()
	require.NoError(t, err)
	assert.Equal(t, 3, high.Team.ID)
	assert.Equal(t, 3, high.Week)
	assert.Equal(t, 130.0, high.Points)

	// week 4 is undecided and its zero scores do not count
	low, err := l.LeastScoredWeek()
	require.NoError(t, err)
	assert.Equal(t, 4, low.Team.ID)
	assert.Equal(t, 80.0, low.Points)

	empty := &League{}
	_, err = empty.TopScorer()
	assert.ErrorIs(t, err, ErrNoData)
	_, err = empty.TopScoredWeek()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestPowerRankings(t *testing.T) {
	l := mustLeague(t)

	rankings, err := l.PowerRankings(3)
	require.NoError(t, err)
	require.Len(t, rankings, 4)

	want := []struct {
		id    int
		power float64
	}{
		{1, 20.75},
		{3, 20.70},
		{2, 18.40},
		{4, 12.20},
	}
	for i, w := range want {
		assert.Equal(t, i+1, rankings[i].Rank)
		assert.Equal(t, w.id, rankings[i].TeamID, "rank %d", i+1)
		assert.InDelta(t, w.power, rankings[i].Power, 1e-9, "team %d", w.id)
	}
	assert.InDelta(t, 4.0, rankings[0].Dominance, 1e-9)
	assert.InDelta(t, 0.0, rankings[3].Dominance, 1e-9)

	fallback, err := l.PowerRankings(99)
	require.NoError(t, err)
	assert.Len(t, fallback, 4)

	_, err = (&League{}).PowerRankings(1)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestTwoStepDominance(t *testing.T) {
	x := [][]float64{
		{0, 1, 1},
		{0, 0, 1},
		{0, 0, 0},
	}
	// X² has a single path 0->1->2
	assert.Equal(t, []float64{3, 1, 0}, twoStepDominance(x))
}

func TestRecords(t *testing.T) {
	l := mustLeague(t)

	records := l.Records()
	require.Len(t, records, 4)
	assert.Equal(t, standings.TeamID(1), records[0].TeamID)
	assert.Equal(t, []standings.TeamID{2, 4, 3, 3}, records[0].Opponents)
	assert.Equal(t, []standings.DivisionID{0, 1}, l.DivisionIDs())

	records[0].ScoresFor[0] = -1
	assert.Equal(t, 120.0, l.Team(1).Scores[0])
}
