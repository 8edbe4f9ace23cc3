package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/sam-maryland/espn-mcp-server/internal/config"
	"github.com/sam-maryland/espn-mcp-server/internal/espn"
	"github.com/sam-maryland/espn-mcp-server/internal/handlers"
)

const (
	serverName    = "ESPN Fantasy Football"
	serverVersion = "1.0.0"
)

// clientOptions maps the client section of the settings file onto the ESPN client
func clientOptions(cfg *config.LeagueConfig) espn.Options {
	c := cfg.Client
	return espn.Options{
		Credentials: espn.Credentials{
			ESPNS2: cfg.DefaultSettings.ESPNS2,
			SWID:   cfg.DefaultSettings.SWID,
		},
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		MaxRetries:        c.MaxRetries,
		RequestsPerSecond: c.RequestsPerSecond,
		BreakerTimeout:    time.Duration(c.BreakerTimeoutSeconds) * time.Second,
	}
}

func NewESPNMCPServer(cfg *config.LeagueConfig, logger *logrus.Logger) *server.DefaultServer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Create ESPN API client
	espnClient := espn.NewHTTPClient(logger, clientOptions(cfg))

	leagueHandler := handlers.NewLeagueHandler(espnClient, cfg, logger)

	s := server.NewDefaultServer(serverName, serverVersion)
	if s == nil {
		logger.Error("Failed to create MCP server instance")
		return nil
	}

	logger.WithField("leagues_configured", len(cfg.Leagues)).Info("MCP server instance created successfully")

	s.HandleListTools(func(ctx context.Context, cursor *string) (*mcp.ListToolsResult, error) {
		tools := []mcp.Tool{
			leagueHandler.GetLeagueInfoTool(),
			leagueHandler.GetLeagueStandingsTool(),
			leagueHandler.GetMatchupsTool(),
			leagueHandler.GetPowerRankingsTool(),
			leagueHandler.GetSeasonLeadersTool(),
			leagueHandler.GetLeagueHistoryTool(),
		}

		logger.WithField("tools_count", len(tools)).Info("Listing available tools")

		return &mcp.ListToolsResult{
			Tools: tools,
		}, nil
	})

	s.HandleCallTool(func(ctx context.Context, name string, arguments map[string]interface{}) (*mcp.CallToolResult, error) {
		logger.WithFields(logrus.Fields{
			"tool": name,
			"args": arguments,
		}).Info("Tool called")

		switch name {
		case "get_league_info":
			return leagueHandler.HandleGetLeagueInfo(ctx, arguments)
		case "get_league_standings":
			return leagueHandler.HandleGetLeagueStandings(ctx, arguments)
		case "get_matchups":
			return leagueHandler.HandleGetMatchups(ctx, arguments)
		case "get_power_rankings":
			return leagueHandler.HandleGetPowerRankings(ctx, arguments)
		case "get_season_leaders":
			return leagueHandler.HandleGetSeasonLeaders(ctx, arguments)
		case "get_league_history":
			return leagueHandler.HandleGetLeagueHistory(ctx, arguments)
		default:
			logger.WithField("tool", name).Warn("Unknown tool called")
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{
						Type: "text",
						Text: "Unknown tool: " + name,
					},
				},
				IsError: true,
			}, nil
		}
	})

	logger.Info("All tools registered successfully")
	return s
}
