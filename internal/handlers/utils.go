package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// APIResponse is the envelope every tool returns as its text content
type APIResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Summary  string      `json:"summary,omitempty"`
	Error    string      `json:"error,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

// Metadata describes where a response came from
type Metadata struct {
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
	CacheHit     bool      `json:"cache_hit"`
	APICallsUsed int       `json:"api_calls_used"`
	LeagueID     int       `json:"league_id,omitempty"`
	Year         int       `json:"year,omitempty"`
}

// formatJSONResponse converts a response struct to a formatted JSON string
func formatJSONResponse(response interface{}) (string, error) {
	jsonBytes, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}

	return string(jsonBytes), nil
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
		IsError: isError,
	}
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return textResult(fmt.Sprintf(format, args...), true)
}

// jsonResult wraps a response in a text content item, reporting formatting failures as tool errors
func jsonResult(response APIResponse) *mcp.CallToolResult {
	jsonResponse, err := formatJSONResponse(response)
	if err != nil {
		return errorResult("Error formatting response: %s", err.Error())
	}
	return textResult(jsonResponse, false)
}

// intArg reads an integer argument that may arrive as a JSON number or a numeric string
func intArg(args map[string]interface{}, key string) (int, bool, error) {
	raw, exists := args[key]
	if !exists || raw == nil {
		return 0, false, nil
	}

	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false, fmt.Errorf("%s must be a whole number", key)
		}
		return int(v), true, nil
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a whole number", key)
		}
		return n, true, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false, fmt.Errorf("%s must be a whole number, got %q", key, v)
		}
		return n, true, nil
	}
	return 0, false, fmt.Errorf("%s must be a number", key)
}

func stringArg(args map[string]interface{}, key string) string {
	if s, ok := args[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// leagueIDArg reads the required league_id argument
func leagueIDArg(args map[string]interface{}) (int, error) {
	id, ok, err := intArg(args, "league_id")
	if err != nil {
		return 0, fmt.Errorf("league_id must be a numeric ESPN league id: %w", err)
	}
	if !ok || id <= 0 {
		return 0, fmt.Errorf("league_id is required and must be a positive number")
	}
	return id, nil
}

// currentSeason is the fantasy season in progress at now. Seasons finish in early January.
func currentSeason(now time.Time) int {
	if now.Month() < time.March {
		return now.Year() - 1
	}
	return now.Year()
}
