package handlers

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/sam-maryland/espn-mcp-server/internal/config"
	"github.com/sam-maryland/espn-mcp-server/internal/espn"
	"github.com/sam-maryland/espn-mcp-server/internal/league"
	"github.com/sam-maryland/espn-mcp-server/internal/standings"
)

const (
	sourceESPN = "espn_api"

	StandingsModeResolved = "resolved"
	StandingsModeESPN     = "espn"
)

// LeagueInfo is the data block of get_league_info
type LeagueInfo struct {
	LeagueID             int              `json:"league_id"`
	Year                 int              `json:"year"`
	Name                 string           `json:"name"`
	Size                 int              `json:"size"`
	CurrentWeek          int              `json:"current_week"`
	CurrentMatchupPeriod int              `json:"current_matchup_period"`
	RegularSeasonWeeks   int              `json:"regular_season_weeks"`
	PlayoffTeamCount     int              `json:"playoff_team_count"`
	TieRule              standings.Policy `json:"tie_rule"`
	TieRuleSource        string           `json:"tie_rule_source"`
	ScoringType          string           `json:"scoring_type,omitempty"`
	Tiebreakers          []string         `json:"tiebreakers,omitempty"`
	Divisions            []DivisionInfo   `json:"divisions"`
	Teams                []*league.Team   `json:"teams"`
	PreviousSeasons      []int            `json:"previous_seasons,omitempty"`
	SettingsNotes        string           `json:"settings_notes,omitempty"`
}

// DivisionInfo lists the teams of one division
type DivisionInfo struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Teams []string `json:"teams"`
}

// StandingsResult is the data block of get_league_standings
type StandingsResult struct {
	Mode        string               `json:"mode"`
	Week        int                  `json:"week,omitempty"`
	TieRule     standings.Policy     `json:"tie_rule,omitempty"`
	Tiebreakers []string             `json:"tiebreakers,omitempty"`
	Seeded      bool                 `json:"coin_flip_seeded"`
	Standings   []league.StandingRow `json:"standings,omitempty"`
	ESPNOrder   []*league.Team       `json:"espn_order,omitempty"`
}

// MatchupEntry is one game of a scoreboard
type MatchupEntry struct {
	HomeTeamID int     `json:"home_team_id"`
	HomeTeam   string  `json:"home_team"`
	HomeScore  float64 `json:"home_score"`
	AwayTeamID int     `json:"away_team_id,omitempty"`
	AwayTeam   string  `json:"away_team,omitempty"`
	AwayScore  float64 `json:"away_score"`
	Winner     string  `json:"winner"`
	IsPlayoff  bool    `json:"is_playoff"`
	Bye        bool    `json:"bye,omitempty"`
}

// MatchupsResult is the data block of get_matchups
type MatchupsResult struct {
	Week     int            `json:"week"`
	Matchups []MatchupEntry `json:"matchups"`
}

// PowerRankingsResult is the data block of get_power_rankings
type PowerRankingsResult struct {
	Week     int                   `json:"week"`
	Rankings []league.PowerRanking `json:"rankings"`
}

// SeasonLeaders is the data block of get_season_leaders
type SeasonLeaders struct {
	TopScorer         *league.Team        `json:"top_scorer,omitempty"`
	LeastScorer       *league.Team        `json:"least_scorer,omitempty"`
	MostPointsAgainst *league.Team        `json:"most_points_against,omitempty"`
	TopScoredWeek     *league.WeeklyScore `json:"top_scored_week,omitempty"`
	LeastScoredWeek   *league.WeeklyScore `json:"least_scored_week,omitempty"`
}

// LeagueHandler handles league-related MCP tools
type LeagueHandler struct {
	client espn.Client
	logger *logrus.Logger
	config *config.LeagueConfig
	now    func() time.Time
}

// NewLeagueHandler creates a new league handler. A nil config is loaded from the settings file.
func NewLeagueHandler(client espn.Client, cfg *config.LeagueConfig, logger *logrus.Logger) *LeagueHandler {
	if cfg == nil {
		loaded, err := config.LoadLeagueSettings()
		if err != nil {
			logger.WithError(err).Warn("Failed to load league settings, using defaults")
			loaded = config.DefaultConfig()
		}
		cfg = loaded
	}

	return &LeagueHandler{
		client: client,
		logger: logger,
		config: cfg,
		now:    time.Now,
	}
}

// leagueRequest is the resolved target of a tool call
type leagueRequest struct {
	ref      espn.LeagueRef
	settings config.LeagueSettings
}

func (h *LeagueHandler) parseLeagueRequest(args map[string]interface{}) (leagueRequest, error) {
	leagueID, err := leagueIDArg(args)
	if err != nil {
		return leagueRequest{}, err
	}
	settings := h.config.GetLeagueSettings(strconv.Itoa(leagueID))

	year, ok, err := intArg(args, "year")
	if err != nil {
		return leagueRequest{}, err
	}
	if !ok || year == 0 {
		year = settings.Year
	}
	if year == 0 {
		year = currentSeason(h.now())
	}

	return leagueRequest{
		ref: espn.LeagueRef{
			ID:          leagueID,
			Year:        year,
			Credentials: espn.Credentials{ESPNS2: settings.ESPNS2, SWID: settings.SWID},
		},
		settings: settings,
	}, nil
}

// fetchLeague loads and converts the league, returning a tool error result on upstream failure
func (h *LeagueHandler) fetchLeague(ctx context.Context, req leagueRequest) (*league.League, *mcp.CallToolResult) {
	raw, err := h.client.GetLeague(ctx, req.ref)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"league_id": req.ref.ID,
			"year":      req.ref.Year,
		}).Error("Failed to get league")
		return nil, errorResult("Failed to get league information: %s", describeError(err))
	}

	lg, err := league.FromESPN(raw)
	if err != nil {
		h.logger.WithError(err).WithField("league_id", req.ref.ID).Error("Failed to read league payload")
		return nil, errorResult("Failed to read league data: %s", err.Error())
	}
	return lg, nil
}

// describeError adds guidance for well-known ESPN failures
func describeError(err error) string {
	var apiErr *espn.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case espn.ErrorTypeAccessDenied:
			return apiErr.Message + " (set espn_s2 and swid for this league, or ESPN_S2 and ESPN_SWID)"
		case espn.ErrorTypeInvalidLeague:
			return apiErr.Message + " (check the league id and year)"
		}
		return apiErr.Message
	}
	return err.Error()
}

func (h *LeagueHandler) metadata(req leagueRequest, calls int) Metadata {
	return Metadata{
		Timestamp:    h.now(),
		Source:       sourceESPN,
		CacheHit:     false,
		APICallsUsed: calls,
		LeagueID:     req.ref.ID,
		Year:         req.ref.Year,
	}
}

// tieRule picks the policy for a call: the tool argument, then local settings, then ESPN's rule
func (h *LeagueHandler) tieRule(arg string, req leagueRequest, lg *league.League) (standings.Policy, string, error) {
	if arg != "" {
		p, err := standings.ParsePolicy(strings.ToUpper(arg))
		if err != nil {
			return "", "", err
		}
		return p, "argument", nil
	}
	if h.config.HasTieRuleOverride(strconv.Itoa(req.ref.ID)) {
		return standings.Policy(req.settings.TieRule), "settings", nil
	}
	return lg.TieRule, "espn", nil
}

// randomSource returns a fresh generator per call, reproducible when the league has a seed
func (h *LeagueHandler) randomSource(req leagueRequest) (standings.RandomSource, bool) {
	if seed := req.settings.CoinFlipSeed; seed != nil {
		return rand.New(rand.NewPCG(*seed, *seed)), true
	}
	seed := uint64(h.now().UnixNano())
	return rand.New(rand.NewPCG(seed, seed>>1)), false
}

func leagueIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "The ESPN fantasy football league ID (numeric, strings are accepted)",
		"required":    true,
	}
}

func yearProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Season year (default: configured year, then the current season)",
		"required":    false,
	}
}

// GetLeagueInfoTool returns the MCP tool definition for get_league_info
func (h *LeagueHandler) GetLeagueInfoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_league_info",
		Description: "Get league information including size, divisions, teams, current week and the playoff tie rule",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"league_id": leagueIDProperty(),
				"year":      yearProperty(),
			},
		},
	}
}

// HandleGetLeagueInfo handles the get_league_info tool call
func (h *LeagueHandler) HandleGetLeagueInfo(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	h.logger.WithField("args", args).Info("Handling get_league_info")

	req, err := h.parseLeagueRequest(args)
	if err != nil {
		return nil, err
	}

	lg, failure := h.fetchLeague(ctx, req)
	if failure != nil {
		return failure, nil
	}

	rule, source, _ := h.tieRule("", req, lg)
	info := LeagueInfo{
		LeagueID:             lg.ID,
		Year:                 lg.Year,
		Name:                 lg.Name,
		Size:                 lg.Size,
		CurrentWeek:          lg.CurrentWeek,
		CurrentMatchupPeriod: lg.CurrentMatchupPeriod,
		RegularSeasonWeeks:   lg.RegularSeasonWeeks,
		PlayoffTeamCount:     lg.PlayoffTeamCount,
		TieRule:              rule,
		TieRuleSource:        source,
		ScoringType:          lg.ScoringType,
		Tiebreakers:          rule.Names(),
		Teams:                lg.Teams,
		PreviousSeasons:      lg.PreviousSeasons,
		SettingsNotes:        req.settings.Notes,
	}
	for _, d := range lg.Divisions {
		div := DivisionInfo{ID: d.ID, Name: d.Name}
		for _, t := range lg.Teams {
			if t.DivisionID == d.ID {
				div.Teams = append(div.Teams, t.Name)
			}
		}
		info.Divisions = append(info.Divisions, div)
	}

	return jsonResult(APIResponse{
		Success: true,
		Data:    info,
		Summary: fmt.Sprintf("League '%s' (%d) - %d season, %d teams, %d divisions, week %d, tie rule %s",
			lg.Name, lg.ID, lg.Year, lg.Size, len(lg.Divisions), lg.CurrentMatchupPeriod, rule),
		Metadata: h.metadata(req, 1),
	}), nil
}

// GetLeagueStandingsTool returns the MCP tool definition for get_league_standings
func (h *LeagueHandler) GetLeagueStandingsTool() mcp.Tool {
	return mcp.Tool{
		Name: "get_league_standings",
		Description: "Get standings as of a week with ESPN's playoff tiebreakers applied: division winners first, " +
			"then win percentage, head-to-head or points for, division record, points against and a coin flip",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"league_id": leagueIDProperty(),
				"year":      yearProperty(),
				"week": map[string]interface{}{
					"type":        "integer",
					"description": "Regular season week to compute standings through (default: current week)",
					"required":    false,
				},
				"tie_rule": map[string]interface{}{
					"type":        "string",
					"description": "Override the league tie rule: TOTAL_POINTS_SCORED or H2H_RECORD",
					"required":    false,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "'resolved' computes the tiebreakers (default), 'espn' returns ESPN's own seeding or final standings",
					"required":    false,
				},
			},
		},
	}
}

// HandleGetLeagueStandings handles the get_league_standings tool call
func (h *LeagueHandler) HandleGetLeagueStandings(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	h.logger.WithField("args", args).Info("Handling get_league_standings")

	req, err := h.parseLeagueRequest(args)
	if err != nil {
		return nil, err
	}
	week, _, err := intArg(args, "week")
	if err != nil {
		return nil, err
	}
	if week < 0 {
		return nil, fmt.Errorf("week must not be negative")
	}

	mode := StandingsModeResolved
	if m := strings.ToLower(stringArg(args, "mode")); m != "" {
		if m != StandingsModeResolved && m != StandingsModeESPN {
			return nil, fmt.Errorf("mode must be %q or %q", StandingsModeResolved, StandingsModeESPN)
		}
		mode = m
	}

	ruleArg := stringArg(args, "tie_rule")
	if ruleArg != "" {
		if _, err := standings.ParsePolicy(strings.ToUpper(ruleArg)); err != nil {
			return nil, fmt.Errorf("invalid tie_rule: %w", err)
		}
	}

	lg, failure := h.fetchLeague(ctx, req)
	if failure != nil {
		return failure, nil
	}

	if mode == StandingsModeESPN {
		order := lg.Standings()
		return jsonResult(APIResponse{
			Success:  true,
			Data:     StandingsResult{Mode: mode, ESPNOrder: order},
			Summary:  fmt.Sprintf("ESPN standings for '%s' (%d teams)", lg.Name, len(order)),
			Metadata: h.metadata(req, 1),
		}), nil
	}

	policy, source, err := h.tieRule(ruleArg, req, lg)
	if err != nil {
		return nil, err
	}
	if week > lg.RegularSeasonWeeks {
		return nil, fmt.Errorf("week %d is past the %d week regular season", week, lg.RegularSeasonWeeks)
	}
	if week == 0 {
		week = lg.DefaultWeek()
	}
	rng, seeded := h.randomSource(req)

	rows, err := lg.StandingsWeekly(week, policy, rng)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"league_id": req.ref.ID,
			"week":      week,
			"tie_rule":  policy,
		}).Warn("Failed to resolve standings")
		return errorResult("Failed to compute standings: %s", standingsErrorMessage(err)), nil
	}

	h.logger.WithFields(logrus.Fields{
		"league_id":       req.ref.ID,
		"week":            week,
		"tie_rule":        policy,
		"tie_rule_source": source,
	}).Debug("Resolved standings")

	summary := fmt.Sprintf("Standings for '%s' through week %d using %s", lg.Name, week, policy)
	if len(rows) > 0 {
		summary += fmt.Sprintf(" - leader: %s (%d-%d-%d)", rows[0].TeamName, rows[0].Wins, rows[0].Losses, rows[0].Ties)
	}

	return jsonResult(APIResponse{
		Success: true,
		Data: StandingsResult{
			Mode:        mode,
			Week:        week,
			TieRule:     policy,
			Tiebreakers: policy.Names(),
			Seeded:      seeded,
			Standings:   rows,
		},
		Summary:  summary,
		Metadata: h.metadata(req, 1),
	}), nil
}

func standingsErrorMessage(err error) string {
	switch {
	case errors.Is(err, standings.ErrConfiguration):
		return "the league tie rule is not supported, pass tie_rule explicitly: " + err.Error()
	case errors.Is(err, standings.ErrInsufficientData):
		return "not enough games have been played yet: " + err.Error()
	case errors.Is(err, standings.ErrDataIntegrity):
		return "the league schedule is inconsistent: " + err.Error()
	}
	return err.Error()
}

// GetMatchupsTool returns the MCP tool definition for get_matchups
func (h *LeagueHandler) GetMatchupsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_matchups",
		Description: "Get the scoreboard for a specific week with team names, scores and winners",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"league_id": leagueIDProperty(),
				"year":      yearProperty(),
				"week": map[string]interface{}{
					"type":        "integer",
					"description": "Matchup period (default: current week)",
					"required":    false,
				},
			},
		},
	}
}

// HandleGetMatchups handles the get_matchups tool call
func (h *LeagueHandler) HandleGetMatchups(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	h.logger.WithField("args", args).Info("Handling get_matchups")

	req, err := h.parseLeagueRequest(args)
	if err != nil {
		return nil, err
	}
	week, _, err := intArg(args, "week")
	if err != nil {
		return nil, err
	}
	if week < 0 {
		return nil, fmt.Errorf("week must not be negative")
	}

	lg, failure := h.fetchLeague(ctx, req)
	if failure != nil {
		return failure, nil
	}
	if week == 0 {
		week = lg.CurrentMatchupPeriod
	}

	// finished weeks are already in the league schedule; only live weeks need the scoreboard
	games := lg.Scoreboard(week)
	calls := 1
	if week >= lg.CurrentMatchupPeriod || len(games) == 0 {
		live, err := h.client.GetScoreboard(ctx, req.ref, week)
		if err != nil {
			h.logger.WithError(err).WithFields(logrus.Fields{
				"league_id": req.ref.ID,
				"week":      week,
			}).Error("Failed to get scoreboard")
			return errorResult("Failed to get matchups: %s", describeError(err)), nil
		}
		calls++
		games = games[:0]
		for _, m := range live {
			if m.Home != nil {
				games = append(games, liveMatchup(m))
			}
		}
	}

	result := MatchupsResult{Week: week, Matchups: make([]MatchupEntry, 0, len(games))}
	for _, m := range games {
		entry := MatchupEntry{
			HomeTeamID: m.HomeTeamID,
			HomeTeam:   teamLabel(lg, m.HomeTeamID),
			HomeScore:  m.HomeScore,
			Winner:     m.Winner,
			IsPlayoff:  m.IsPlayoff,
			Bye:        m.AwayTeamID == 0,
		}
		if !entry.Bye {
			entry.AwayTeamID = m.AwayTeamID
			entry.AwayTeam = teamLabel(lg, m.AwayTeamID)
			entry.AwayScore = m.AwayScore
		}
		result.Matchups = append(result.Matchups, entry)
	}

	return jsonResult(APIResponse{
		Success:  true,
		Data:     result,
		Summary:  fmt.Sprintf("Week %d: %d matchups in '%s'", week, len(result.Matchups), lg.Name),
		Metadata: h.metadata(req, calls),
	}), nil
}

func liveMatchup(m espn.Matchup) league.Matchup {
	out := league.Matchup{
		Week:        m.MatchupPeriodID,
		HomeTeamID:  m.Home.TeamID,
		HomeScore:   m.Home.TotalPoints,
		Winner:      m.Winner,
		PlayoffTier: m.PlayoffTierType,
		IsPlayoff:   m.PlayoffTierType != "" && m.PlayoffTierType != espn.PlayoffTierNone,
	}
	if m.Away != nil {
		out.AwayTeamID = m.Away.TeamID
		out.AwayScore = m.Away.TotalPoints
	}
	return out
}

func teamLabel(lg *league.League, id int) string {
	if t := lg.Team(id); t != nil {
		return t.Name
	}
	return fmt.Sprintf("Team %d", id)
}

// GetPowerRankingsTool returns the MCP tool definition for get_power_rankings
func (h *LeagueHandler) GetPowerRankingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_power_rankings",
		Description: "Get power rankings through a week using two-step dominance, average score and margin of victory",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"league_id": leagueIDProperty(),
				"year":      yearProperty(),
				"week": map[string]interface{}{
					"type":        "integer",
					"description": "Week to rank through (default: current week)",
					"required":    false,
				},
			},
		},
	}
}

// HandleGetPowerRankings handles the get_power_rankings tool call
func (h *LeagueHandler) HandleGetPowerRankings(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	h.logger.WithField("args", args).Info("Handling get_power_rankings")

	req, err := h.parseLeagueRequest(args)
	if err != nil {
		return nil, err
	}
	week, _, err := intArg(args, "week")
	if err != nil {
		return nil, err
	}

	lg, failure := h.fetchLeague(ctx, req)
	if failure != nil {
		return failure, nil
	}

	rankings, err := lg.PowerRankings(week)
	if err != nil {
		return errorResult("Failed to compute power rankings: %s", err.Error()), nil
	}
	if week <= 0 || week > lg.DefaultWeek() {
		week = lg.DefaultWeek()
	}

	return jsonResult(APIResponse{
		Success: true,
		Data:    PowerRankingsResult{Week: week, Rankings: rankings},
		Summary: fmt.Sprintf("Power rankings for '%s' through week %d - #1 %s (%.2f)",
			lg.Name, week, rankings[0].TeamName, rankings[0].Power),
		Metadata: h.metadata(req, 1),
	}), nil
}

// GetSeasonLeadersTool returns the MCP tool definition for get_season_leaders
func (h *LeagueHandler) GetSeasonLeadersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_season_leaders",
		Description: "Get the season's top and bottom scorers, most points against, and the best and worst single weeks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"league_id": leagueIDProperty(),
				"year":      yearProperty(),
			},
		},
	}
}

// HandleGetSeasonLeaders handles the get_season_leaders tool call
func (h *LeagueHandler) HandleGetSeasonLeaders(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	h.logger.WithField("args", args).Info("Handling get_season_leaders")

	req, err := h.parseLeagueRequest(args)
	if err != nil {
		return nil, err
	}

	lg, failure := h.fetchLeague(ctx, req)
	if failure != nil {
		return failure, nil
	}

	var leaders SeasonLeaders
	if leaders.TopScorer, err = lg.TopScorer(); err != nil {
		return errorResult("Failed to compute season leaders: %s", err.Error()), nil
	}
	leaders.LeastScorer, _ = lg.LeastScorer()
	leaders.MostPointsAgainst, _ = lg.MostPointsAgainst()
	if high, err := lg.TopScoredWeek(); err == nil {
		leaders.TopScoredWeek = &high
	}
	if low, err := lg.LeastScoredWeek(); err == nil {
		leaders.LeastScoredWeek = &low
	}

	summary := fmt.Sprintf("Top scorer in '%s': %s (%.2f points)", lg.Name, leaders.TopScorer.Name, leaders.TopScorer.PointsFor)
	if leaders.TopScoredWeek != nil {
		summary += fmt.Sprintf(", best week: %s with %.2f in week %d",
			leaders.TopScoredWeek.Team.Name, leaders.TopScoredWeek.Points, leaders.TopScoredWeek.Week)
	}

	return jsonResult(APIResponse{
		Success:  true,
		Data:     leaders,
		Summary:  summary,
		Metadata: h.metadata(req, 1),
	}), nil
}
