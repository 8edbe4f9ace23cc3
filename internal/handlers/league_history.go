package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sam-maryland/espn-mcp-server/internal/league"
)

const (
	defaultHistorySeasons = 10
	historyConcurrency    = 3
)

// SeasonSummary is one season of a league's history
type SeasonSummary struct {
	Year            int      `json:"year"`
	Name            string   `json:"name,omitempty"`
	Size            int      `json:"size,omitempty"`
	TieRule         string   `json:"tie_rule,omitempty"`
	Champion        string   `json:"champion,omitempty"`
	ChampionOwners  []string `json:"champion_owners,omitempty"`
	TopSeed         string   `json:"top_seed,omitempty"`
	TopScorer       string   `json:"top_scorer,omitempty"`
	TopScorerPoints float64  `json:"top_scorer_points,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// LeagueHistory is the data block of get_league_history
type LeagueHistory struct {
	LeagueID int             `json:"league_id"`
	Seasons  []SeasonSummary `json:"seasons"`
}

// GetLeagueHistoryTool returns the MCP tool definition for get_league_history
func (h *LeagueHandler) GetLeagueHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_league_history",
		Description: "Get past seasons of a league with each season's champion, top seed and top scorer",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"league_id": leagueIDProperty(),
				"year":      yearProperty(),
				"seasons": map[string]interface{}{
					"type":        "integer",
					"description": "Number of previous seasons to include (default: 10)",
					"required":    false,
				},
			},
		},
	}
}

// HandleGetLeagueHistory handles the get_league_history tool call
func (h *LeagueHandler) HandleGetLeagueHistory(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	h.logger.WithField("args", args).Info("Handling get_league_history")

	req, err := h.parseLeagueRequest(args)
	if err != nil {
		return nil, err
	}
	limit, ok, err := intArg(args, "seasons")
	if err != nil {
		return nil, err
	}
	if !ok || limit <= 0 {
		limit = defaultHistorySeasons
	}

	current, failure := h.fetchLeague(ctx, req)
	if failure != nil {
		return failure, nil
	}

	years := append([]int(nil), current.PreviousSeasons...)
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	if len(years) > limit {
		years = years[:limit]
	}

	history := LeagueHistory{
		LeagueID: req.ref.ID,
		Seasons:  make([]SeasonSummary, len(years)+1),
	}
	history.Seasons[0] = summarizeSeason(current)

	if err := h.fetchSeasons(ctx, req, years, history.Seasons[1:]); err != nil {
		return errorResult("Failed to get league history: %s", err.Error()), nil
	}

	champions := 0
	for _, s := range history.Seasons {
		if s.Champion != "" {
			champions++
		}
	}

	return jsonResult(APIResponse{
		Success:  true,
		Data:     history,
		Summary:  fmt.Sprintf("%d seasons of history for '%s', %d with a champion", len(history.Seasons), current.Name, champions),
		Metadata: h.metadata(req, len(history.Seasons)),
	}), nil
}

// fetchSeasons loads each year into out concurrently. Per-season failures are recorded on the
// summary; only cancellation aborts the whole call.
func (h *LeagueHandler) fetchSeasons(ctx context.Context, req leagueRequest, years []int, out []SeasonSummary) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(historyConcurrency)

	for i, year := range years {
		g.Go(func() error {
			ref := req.ref
			ref.Year = year

			raw, err := h.client.GetLeague(gctx, ref)
			if err == nil {
				var lg *league.League
				if lg, err = league.FromESPN(raw); err == nil {
					out[i] = summarizeSeason(lg)
					return nil
				}
			}
			if cerr := gctx.Err(); cerr != nil {
				return cerr
			}

			h.logger.WithError(err).WithFields(logrus.Fields{
				"league_id": ref.ID,
				"year":      year,
			}).Warn("Failed to get historical season")
			out[i] = SeasonSummary{Year: year, Error: describeError(err)}
			return nil
		})
	}
	return g.Wait()
}

func summarizeSeason(lg *league.League) SeasonSummary {
	s := SeasonSummary{
		Year:    lg.Year,
		Name:    lg.Name,
		Size:    lg.Size,
		TieRule: string(lg.TieRule),
	}
	if champ := lg.Champion(); champ != nil {
		s.Champion = champ.Name
		s.ChampionOwners = champ.OwnerNames()
	}
	for _, t := range lg.Teams {
		if t.Standing == 1 {
			s.TopSeed = t.Name
			break
		}
	}
	if top, err := lg.TopScorer(); err == nil {
		s.TopScorer = top.Name
		s.TopScorerPoints = top.PointsFor
	}
	return s
}
