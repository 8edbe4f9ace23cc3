package league

import (
	"math"
	"sort"
)

// WeeklyScore is a single team's score in one week
type WeeklyScore struct {
	Team   *Team   `json:"team"`
	Week   int     `json:"week"`
	Points float64 `json:"points"`
}

// PowerRanking is one row of the two-step dominance power rankings
type PowerRanking struct {
	Rank         int     `json:"rank"`
	TeamID       int     `json:"team_id"`
	TeamName     string  `json:"team_name"`
	Power        float64 `json:"power"`
	Dominance    float64 `json:"dominance"`
	AverageScore float64 `json:"average_score"`
	AverageMOV   float64 `json:"average_mov"`
}

// Scoreboard returns the matchups of a matchup period. Zero or less selects the current one.
func (l *League) Scoreboard(week int) []Matchup {
	if week <= 0 {
		week = l.CurrentMatchupPeriod
	}
	out := make([]Matchup, 0, len(l.Teams)/2)
	for _, m := range l.Matchups {
		if m.Week == week {
			out = append(out, m)
		}
	}
	return out
}

// TopScorer returns the team with the most points for
func (l *League) TopScorer() (*Team, error) {
	return l.pick(func(a, b *Team) bool { return a.PointsFor > b.PointsFor })
}

// LeastScorer returns the team with the fewest points for
func (l *League) LeastScorer() (*Team, error) {
	return l.pick(func(a, b *Team) bool { return a.PointsFor < b.PointsFor })
}

// MostPointsAgainst returns the team that gave up the most points
func (l *League) MostPointsAgainst() (*Team, error) {
	return l.pick(func(a, b *Team) bool { return a.PointsAgainst > b.PointsAgainst })
}

// pick returns the first team that no later team beats, keeping the earliest on ties
func (l *League) pick(better func(a, b *Team) bool) (*Team, error) {
	if len(l.Teams) == 0 {
		return nil, ErrNoData
	}
	best := l.Teams[0]
	for _, t := range l.Teams[1:] {
		if better(t, best) {
			best = t
		}
	}
	return best, nil
}

// TopScoredWeek returns the highest single week score of the season so far
func (l *League) TopScoredWeek() (WeeklyScore, error) {
	return l.extremeWeek(func(a, b float64) bool { return a > b })
}

// LeastScoredWeek returns the lowest single week score of the season so far
func (l *League) LeastScoredWeek() (WeeklyScore, error) {
	return l.extremeWeek(func(a, b float64) bool { return a < b })
}

func (l *League) extremeWeek(better func(a, b float64) bool) (WeeklyScore, error) {
	weeks := l.DefaultWeek()
	var best WeeklyScore
	found := false
	for _, t := range l.Teams {
		for w := 0; w < weeks && w < len(t.Scores); w++ {
			if !t.Outcomes[w].Decided() {
				continue
			}
			if !found || better(t.Scores[w], best.Points) {
				best = WeeklyScore{Team: t, Week: w + 1, Points: t.Scores[w]}
				found = true
			}
		}
	}
	if !found {
		return WeeklyScore{}, ErrNoData
	}
	return best, nil
}

// PowerRankings scores every team through week with two-step dominance blended with
// average score and average margin of victory. A week outside the played range selects DefaultWeek.
func (l *League) PowerRankings(week int) ([]PowerRanking, error) {
	if week <= 0 || week > l.DefaultWeek() {
		week = l.DefaultWeek()
	}
	if week == 0 || len(l.Teams) == 0 {
		return nil, ErrNoData
	}

	teams := append([]*Team(nil), l.Teams...)
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })

	index := make(map[int]int, len(teams))
	for i, t := range teams {
		index[t.ID] = i
	}

	wins := make([][]float64, len(teams))
	for i, t := range teams {
		wins[i] = make([]float64, len(teams))
		for w := 0; w < week && w < len(t.MOV); w++ {
			opp, ok := index[t.Schedule[w]]
			if ok && t.MOV[w] > 0 {
				wins[i][opp]++
			}
		}
	}
	dominance := twoStepDominance(wins)

	rankings := make([]PowerRanking, len(teams))
	for i, t := range teams {
		var scored, margin float64
		for w := 0; w < week && w < len(t.Scores); w++ {
			scored += t.Scores[w]
			margin += t.MOV[w]
		}
		avgScore := scored / float64(week)
		avgMOV := margin / float64(week)
		power := math.Trunc(dominance[i])*0.8 + math.Trunc(avgScore)*0.15 + math.Trunc(avgMOV)*0.05

		rankings[i] = PowerRanking{
			TeamID:       t.ID,
			TeamName:     t.Name,
			Power:        math.Round(power*100) / 100,
			Dominance:    dominance[i],
			AverageScore: avgScore,
			AverageMOV:   avgMOV,
		}
	}

	sort.SliceStable(rankings, func(i, j int) bool { return rankings[i].Power > rankings[j].Power })
	for i := range rankings {
		rankings[i].Rank = i + 1
	}
	return rankings, nil
}

// twoStepDominance returns the row sums of X² + X
func twoStepDominance(x [][]float64) []float64 {
	n := len(x)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cell := x[i][j]
			for k := 0; k < n; k++ {
				cell += x[i][k] * x[k][j]
			}
			out[i] += cell
		}
	}
	return out
}
