package standings

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// teamMetrics holds the primary standings numbers of one team as of the cutoff week
type teamMetrics struct {
	id            TeamID
	division      DivisionID
	wins          int
	losses        int
	ties          int
	winPct        float64
	pointsFor     float64
	pointsAgainst float64
}

// computation is the call-local state of one ranking request
type computation struct {
	week           int
	records        map[TeamID]TeamSeasonRecord
	divisionRecord map[TeamID]float64
	rng            RandomSource
}

type scoredTeam struct {
	team  *teamMetrics
	value float64
}

// Rank orders every team as of asOfWeek. Division winners come first, ordered among themselves,
// followed by the rest of the field. Inputs are not modified.
func Rank(teams []TeamSeasonRecord, asOfWeek int, policy Policy, divisions []DivisionID, rng RandomSource) ([]TeamID, error) {
	table, err := Table(teams, asOfWeek, policy, divisions, rng)
	if err != nil {
		return nil, err
	}
	ids := make([]TeamID, len(table))
	for i, row := range table {
		ids[i] = row.TeamID
	}
	return ids, nil
}

// Table performs the same resolution as Rank and returns the standings rows in rank order
func Table(teams []TeamSeasonRecord, asOfWeek int, policy Policy, divisions []DivisionID, rng RandomSource) ([]Standing, error) {
	criteria, err := policy.Criteria()
	if err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.Wrap(ErrConfiguration, "a random source is required for coin flip tiebreaks")
	}
	if asOfWeek < 0 {
		return nil, errors.Wrapf(ErrDataIntegrity, "week %d is negative", asOfWeek)
	}
	if asOfWeek == 0 {
		return nil, errors.Wrap(ErrInsufficientData, "no games have been played as of week 0")
	}
	if err := validate(teams, asOfWeek, divisions); err != nil {
		return nil, err
	}

	c := &computation{
		week:    asOfWeek,
		records: make(map[TeamID]TeamSeasonRecord, len(teams)),
		rng:     rng,
	}
	for _, t := range teams {
		c.records[t.TeamID] = t
	}

	pool := make([]*teamMetrics, 0, len(teams))
	for _, t := range teams {
		m, err := c.deriveMetrics(t)
		if err != nil {
			return nil, err
		}
		pool = append(pool, m)
	}
	c.divisionRecord = c.buildDivisionRecords()

	winners := make([]*teamMetrics, 0, len(divisions))
	isWinner := make(map[TeamID]bool, len(divisions))
	for _, division := range divisions {
		members := make([]*teamMetrics, 0, len(pool))
		for _, m := range pool {
			if m.division == division {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			continue
		}
		winner := c.resolve(members, criteria)[0]
		winners = append(winners, winner)
		isWinner[winner.id] = true
	}

	rest := make([]*teamMetrics, 0, len(pool)-len(winners))
	for _, m := range pool {
		if !isWinner[m.id] {
			rest = append(rest, m)
		}
	}

	ordered := make([]*teamMetrics, 0, len(pool))
	ordered = append(ordered, c.resolve(winners, criteria)...)
	ordered = append(ordered, c.resolve(rest, criteria)...)

	table := make([]Standing, len(ordered))
	for i, m := range ordered {
		table[i] = Standing{
			Rank:           i + 1,
			TeamID:         m.id,
			DivisionID:     m.division,
			DivisionWinner: isWinner[m.id],
			Wins:           m.wins,
			Losses:         m.losses,
			Ties:           m.ties,
			WinPct:         m.winPct,
			PointsFor:      m.pointsFor,
			PointsAgainst:  m.pointsAgainst,
			DivisionRecord: c.divisionRecord[m.id],
		}
	}
	return table, nil
}

// resolve sorts subset by the head criterion, then recursively breaks each tie with the rest
func (c *computation) resolve(subset []*teamMetrics, criteria []Criterion) []*teamMetrics {
	if len(criteria) == 0 || len(subset) <= 1 {
		return subset
	}

	values := criteria[0].metric(c, subset)
	scored := make([]scoredTeam, len(subset))
	for i, t := range subset {
		scored[i] = scoredTeam{team: t, value: values[i]}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].value > scored[j].value
	})

	out := make([]*teamMetrics, 0, len(subset))
	for start := 0; start < len(scored); {
		end := start + 1
		for end < len(scored) && scored[end].value == scored[start].value {
			end++
		}
		group := make([]*teamMetrics, 0, end-start)
		for _, s := range scored[start:end] {
			group = append(group, s.team)
		}
		out = append(out, c.resolve(group, criteria[1:])...)
		start = end
	}
	return out
}

func (c *computation) deriveMetrics(t TeamSeasonRecord) (*teamMetrics, error) {
	m := &teamMetrics{id: t.TeamID, division: t.DivisionID}
	for week := 0; week < c.week; week++ {
		switch t.Outcomes[week] {
		case OutcomeWin:
			m.wins++
		case OutcomeLoss:
			m.losses++
		case OutcomeTie:
			m.ties++
		}
		m.pointsFor += t.ScoresFor[week]
		m.pointsAgainst += c.records[t.Opponents[week]].ScoresFor[week]
	}

	played := m.wins + m.losses + m.ties
	if played == 0 {
		return nil, errors.Wrapf(ErrInsufficientData, "team %d has no decided games through week %d", t.TeamID, c.week)
	}
	m.winPct = (float64(m.wins) + float64(m.ties)/2) / float64(played)
	return m, nil
}

func validate(teams []TeamSeasonRecord, asOfWeek int, divisions []DivisionID) error {
	if len(teams) == 0 {
		return errors.Wrap(ErrDataIntegrity, "no teams to rank")
	}

	known := make(map[DivisionID]bool, len(divisions))
	for _, d := range divisions {
		known[d] = true
	}

	byID := make(map[TeamID]*TeamSeasonRecord, len(teams))
	for i := range teams {
		t := &teams[i]
		if _, dup := byID[t.TeamID]; dup {
			return errors.Wrapf(ErrDataIntegrity, "team %d appears more than once", t.TeamID)
		}
		byID[t.TeamID] = t
	}

	seasonLength := len(teams[0].Outcomes)
	for _, t := range teams {
		if !known[t.DivisionID] {
			return errors.Wrapf(ErrDataIntegrity, "team %d references unknown division %d", t.TeamID, t.DivisionID)
		}
		if len(t.Outcomes) != seasonLength || len(t.ScoresFor) != seasonLength || len(t.Opponents) != seasonLength {
			return errors.Wrapf(ErrDataIntegrity,
				"team %d season length mismatch: outcomes=%d scores=%d opponents=%d, expected %d",
				t.TeamID, len(t.Outcomes), len(t.ScoresFor), len(t.Opponents), seasonLength)
		}
	}
	if asOfWeek > seasonLength {
		return errors.Wrapf(ErrDataIntegrity, "week %d is past the season length of %d", asOfWeek, seasonLength)
	}

	// every game has to be recorded the same way from both sides
	for _, t := range teams {
		for week := 0; week < asOfWeek; week++ {
			opponent := t.Opponents[week]
			if opponent == t.TeamID {
				return errors.Wrapf(ErrDataIntegrity, "team %d is scheduled against itself in week %d", t.TeamID, week+1)
			}
			other, ok := byID[opponent]
			if !ok {
				return errors.Wrapf(ErrDataIntegrity, "team %d has unknown opponent %d in week %d", t.TeamID, opponent, week+1)
			}
			if other.Opponents[week] != t.TeamID {
				return errors.Wrapf(ErrDataIntegrity, "team %d plays %d in week %d but %d plays %d",
					t.TeamID, opponent, week+1, opponent, other.Opponents[week])
			}
			if other.Outcomes[week] != t.Outcomes[week].mirror() {
				return errors.Wrapf(ErrDataIntegrity, "week %d result between %d and %d disagrees: %s vs %s",
					week+1, t.TeamID, opponent, t.Outcomes[week], other.Outcomes[week])
			}
		}
	}
	return nil
}
