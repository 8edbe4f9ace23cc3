package standings

import (
	"github.com/cockroachdb/errors"
)

// Policy names the ordered tiebreaker hierarchy configured for a league
type Policy string

const (
	PolicyTotalPointsScored Policy = "TOTAL_POINTS_SCORED"
	PolicyHeadToHead        Policy = "H2H_RECORD"
)

// Criterion is a named metric that orders a subset of teams, higher values first.
type Criterion struct {
	Name   string
	metric metricFunc
}

type metricFunc func(c *computation, subset []*teamMetrics) []float64

var (
	CriterionWinPct         = Criterion{Name: "win_pct", metric: byWinPct}
	CriterionPointsFor      = Criterion{Name: "points_for", metric: byPointsFor}
	CriterionHeadToHead     = Criterion{Name: "h2h_wins", metric: byHeadToHead}
	CriterionDivisionRecord = Criterion{Name: "division_record", metric: byDivisionRecord}
	CriterionPointsAgainst  = Criterion{Name: "points_against", metric: byPointsAgainst}
	CriterionCoinFlip       = Criterion{Name: "coin_flip", metric: byCoinFlip}
)

// ParsePolicy validates a policy name
func ParsePolicy(name string) (Policy, error) {
	p := Policy(name)
	if _, err := p.Criteria(); err != nil {
		return "", err
	}
	return p, nil
}

// Criteria returns the tiebreaker hierarchy for the policy in priority order
func (p Policy) Criteria() ([]Criterion, error) {
	switch p {
	case PolicyTotalPointsScored:
		return []Criterion{
			CriterionWinPct,
			CriterionPointsFor,
			CriterionHeadToHead,
			CriterionDivisionRecord,
			CriterionPointsAgainst,
			CriterionCoinFlip,
		}, nil
	case PolicyHeadToHead:
		return []Criterion{
			CriterionWinPct,
			CriterionHeadToHead,
			CriterionPointsFor,
			CriterionDivisionRecord,
			CriterionPointsAgainst,
			CriterionCoinFlip,
		}, nil
	}
	return nil, errors.Wrapf(ErrConfiguration,
		"unknown tiebreaker policy %q: must be either %q or %q", string(p), PolicyTotalPointsScored, PolicyHeadToHead)
}

// Names lists the criterion names of the policy, or nil for an unknown policy
func (p Policy) Names() []string {
	criteria, err := p.Criteria()
	if err != nil {
		return nil
	}
	names := make([]string, len(criteria))
	for i, c := range criteria {
		names[i] = c.Name
	}
	return names
}
