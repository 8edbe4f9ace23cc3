package standings

import (
	"github.com/cockroachdb/errors"
)

// TeamID identifies a team within a league
type TeamID int

// DivisionID identifies a division within a league
type DivisionID int

// Outcome is the result of a single week for one team
type Outcome int

const (
	OutcomeUndecided Outcome = iota
	OutcomeWin
	OutcomeLoss
	OutcomeTie
)

// String returns the single-letter form used by the upstream API
func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "W"
	case OutcomeLoss:
		return "L"
	case OutcomeTie:
		return "T"
	default:
		return "U"
	}
}

// Decided reports whether the week counts as a game played
func (o Outcome) Decided() bool {
	return o == OutcomeWin || o == OutcomeLoss || o == OutcomeTie
}

// mirror is the outcome the opponent records for the same game
func (o Outcome) mirror() Outcome {
	switch o {
	case OutcomeWin:
		return OutcomeLoss
	case OutcomeLoss:
		return OutcomeWin
	}
	return o
}

// ParseOutcome converts "W", "L", "T" or "U" into an Outcome
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "W":
		return OutcomeWin, nil
	case "L":
		return OutcomeLoss, nil
	case "T":
		return OutcomeTie, nil
	case "U", "":
		return OutcomeUndecided, nil
	}
	return OutcomeUndecided, errors.Wrapf(ErrDataIntegrity, "unknown outcome %q", s)
}

// TeamSeasonRecord is one team's week-by-week season. Index 0 is week 1.
type TeamSeasonRecord struct {
	TeamID     TeamID
	DivisionID DivisionID
	Outcomes   []Outcome
	ScoresFor  []float64
	Opponents  []TeamID
}

// Standing is one row of a resolved standings table
type Standing struct {
	Rank           int        `json:"rank"`
	TeamID         TeamID     `json:"team_id"`
	DivisionID     DivisionID `json:"division_id"`
	DivisionWinner bool       `json:"division_winner"`
	Wins           int        `json:"wins"`
	Losses         int        `json:"losses"`
	Ties           int        `json:"ties"`
	WinPct         float64    `json:"win_pct"`
	PointsFor      float64    `json:"points_for"`
	PointsAgainst  float64    `json:"points_against"`
	DivisionRecord float64    `json:"division_record"`
}

// RandomSource supplies coin flips. *rand.Rand from math/rand and math/rand/v2 both satisfy it.
type RandomSource interface {
	Float64() float64
}

var (
	// ErrConfiguration is returned for an unrecognized tiebreak policy or a missing random source
	ErrConfiguration = errors.New("invalid standings configuration")

	// ErrInsufficientData is returned when standings are requested before any games were played
	ErrInsufficientData = errors.New("insufficient data to rank teams")

	// ErrDataIntegrity is returned when the season records are malformed
	ErrDataIntegrity = errors.New("standings data integrity violation")
)
