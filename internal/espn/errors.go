package espn

const (
	ErrorTypeAccessDenied  = "access_denied"
	ErrorTypeInvalidLeague = "invalid_league"
	ErrorTypeAPI           = "api_error"
	ErrorTypeUnavailable   = "unavailable"
)

// APIError represents an error from the ESPN fantasy API
type APIError struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	LeagueID   int    `json:"league_id,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}
