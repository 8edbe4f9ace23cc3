package standings

func byWinPct(_ *computation, subset []*teamMetrics) []float64 {
	values := make([]float64, len(subset))
	for i, t := range subset {
		values[i] = t.winPct
	}
	return values
}

func byPointsFor(_ *computation, subset []*teamMetrics) []float64 {
	values := make([]float64, len(subset))
	for i, t := range subset {
		values[i] = t.pointsFor
	}
	return values
}

// byPointsAgainst ranks more points against higher, matching the upstream tiebreak
func byPointsAgainst(_ *computation, subset []*teamMetrics) []float64 {
	values := make([]float64, len(subset))
	for i, t := range subset {
		values[i] = t.pointsAgainst
	}
	return values
}

func byDivisionRecord(c *computation, subset []*teamMetrics) []float64 {
	values := make([]float64, len(subset))
	for i, t := range subset {
		values[i] = c.divisionRecord[t.id]
	}
	return values
}

func byCoinFlip(c *computation, subset []*teamMetrics) []float64 {
	values := make([]float64, len(subset))
	for i := range subset {
		values[i] = c.rng.Float64()
	}
	return values
}

// headToHead holds wins and decided games between members of a tied subset
type headToHead struct {
	wins  map[TeamID]map[TeamID]float64
	games map[TeamID]map[TeamID]int
}

func (c *computation) buildHeadToHead(subset []*teamMetrics) headToHead {
	h2h := headToHead{
		wins:  make(map[TeamID]map[TeamID]float64, len(subset)),
		games: make(map[TeamID]map[TeamID]int, len(subset)),
	}
	for _, t := range subset {
		h2h.wins[t.id] = make(map[TeamID]float64, len(subset))
		h2h.games[t.id] = make(map[TeamID]int, len(subset))
	}

	for _, t := range subset {
		record := c.records[t.id]
		for week := 0; week < c.week; week++ {
			opponent := record.Opponents[week]
			if _, tied := h2h.games[opponent]; !tied || !record.Outcomes[week].Decided() {
				continue
			}
			switch record.Outcomes[week] {
			case OutcomeWin:
				h2h.wins[t.id][opponent]++
			case OutcomeTie:
				h2h.wins[t.id][opponent] += 0.5
			}
			h2h.games[t.id][opponent]++
		}
	}
	return h2h
}

// byHeadToHead scores teams on games played within the subset only. With more than two teams
// every pair must have met equally often; otherwise all teams get the same value.
func byHeadToHead(c *computation, subset []*teamMetrics) []float64 {
	values := make([]float64, len(subset))
	if len(subset) < 2 {
		return values
	}

	h2h := c.buildHeadToHead(subset)

	if len(subset) == 2 {
		a, b := subset[0].id, subset[1].id
		values[0] = h2h.wins[a][b] / floorOne(h2h.games[a][b])
		values[1] = h2h.wins[b][a] / floorOne(h2h.games[b][a])
		return values
	}

	expected := h2h.games[subset[0].id][subset[1].id]
	for i := range subset {
		for j := i + 1; j < len(subset); j++ {
			if h2h.games[subset[i].id][subset[j].id] != expected {
				return values
			}
		}
	}

	for i, t := range subset {
		var wins float64
		var games int
		for _, other := range subset {
			if other.id == t.id {
				continue
			}
			wins += h2h.wins[t.id][other.id]
			games += h2h.games[t.id][other.id]
		}
		values[i] = wins / floorOne(games)
	}
	return values
}

// buildDivisionRecords computes every team's win rate against its own division
func (c *computation) buildDivisionRecords() map[TeamID]float64 {
	out := make(map[TeamID]float64, len(c.records))
	for id, record := range c.records {
		var wins float64
		var games int
		for week := 0; week < c.week; week++ {
			opponent, ok := c.records[record.Opponents[week]]
			if !ok || opponent.DivisionID != record.DivisionID || !record.Outcomes[week].Decided() {
				continue
			}
			switch record.Outcomes[week] {
			case OutcomeWin:
				wins++
			case OutcomeTie:
				wins += 0.5
			}
			games++
		}
		out[id] = wins / floorOne(games)
	}
	return out
}

func floorOne(n int) float64 {
	if n < 1 {
		return 1
	}
	return float64(n)
}
