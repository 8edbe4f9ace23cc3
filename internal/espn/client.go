package espn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	BaseURL                  = "https://lm-api-reads.fantasy.espn.com/apis/v3/games/ffl"
	DefaultTimeout           = 10 * time.Second
	DefaultMaxRetries        = 2
	DefaultRequestsPerSecond = 5
	DefaultRetryBackoff      = time.Second
	DefaultBreakerTimeout    = 30 * time.Second

	// seasons before this year only exist under the leagueHistory endpoint
	firstCurrentAPISeason = 2018

	maxResponseBytes = 8 << 20
)

var leagueViews = []string{"mTeam", "mMatchup", "mSettings", "mStandings", "mNav"}

// errTransient marks failures that may succeed on retry and that count against the breaker
var errTransient = errors.New("transient upstream failure")

// LeagueRef identifies one league season. Empty credentials fall back to the client defaults.
type LeagueRef struct {
	ID          int
	Year        int
	Credentials Credentials
}

// Client defines the interface for reading the ESPN fantasy football API
type Client interface {
	GetLeague(ctx context.Context, ref LeagueRef) (*League, error)
	GetScoreboard(ctx context.Context, ref LeagueRef, matchupPeriod int) ([]Matchup, error)
}

var _ Client = (*HTTPClient)(nil)

// Options tunes an HTTPClient. Zero values select the defaults; a negative MaxRetries disables retries.
type Options struct {
	BaseURL             string
	Credentials         Credentials
	Timeout             time.Duration
	MaxRetries          int
	RetryBackoff        time.Duration
	RequestsPerSecond   float64
	BreakerTimeout      time.Duration
	BreakerMinRequests  uint32
	BreakerFailureRatio float64
}

// HTTPClient implements Client over HTTP with rate limiting, retries and a circuit breaker
type HTTPClient struct {
	baseURL      string
	httpClient   *http.Client
	logger       *logrus.Logger
	credentials  Credentials
	maxRetries   int
	retryBackoff time.Duration
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
	flight       singleflight.Group
	flightBudget time.Duration
}

// NewHTTPClient creates a new HTTP client for the ESPN fantasy API
func NewHTTPClient(logger *logrus.Logger, opts Options) *HTTPClient {
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	switch {
	case opts.MaxRetries == 0:
		opts.MaxRetries = DefaultMaxRetries
	case opts.MaxRetries < 0:
		opts.MaxRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = DefaultBreakerTimeout
	}
	if opts.BreakerMinRequests == 0 {
		opts.BreakerMinRequests = 3
	}
	if opts.BreakerFailureRatio <= 0 {
		opts.BreakerFailureRatio = 0.6
	}

	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	settings := gobreaker.Settings{
		Name:        "espn",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= opts.BreakerMinRequests && failureRatio >= opts.BreakerFailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
		// permanent failures such as a missing league say nothing about upstream health
		IsSuccessful: func(err error) bool {
			return !isTransient(err)
		},
	}

	return &HTTPClient{
		baseURL: opts.BaseURL,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger:       logger,
		credentials:  opts.Credentials,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
		breaker:      gobreaker.NewCircuitBreaker(settings),
		flightBudget: flightBudget(opts),
	}
}

// flightBudget is the longest a request can take: every attempt timing out plus every backoff
func flightBudget(opts Options) time.Duration {
	attempts := time.Duration(opts.MaxRetries + 1)
	backoffs := time.Duration(opts.MaxRetries*(opts.MaxRetries+1)/2) * opts.RetryBackoff
	return attempts*opts.Timeout + backoffs
}

// GetLeague retrieves teams, members, settings, standings and the full schedule of a league season
func (c *HTTPClient) GetLeague(ctx context.Context, ref LeagueRef) (*League, error) {
	params := url.Values{"view": leagueViews}

	var league League
	if err := c.fetchLeague(ctx, ref, params, nil, &league); err != nil {
		return nil, fmt.Errorf("failed to get league %d season %d: %w", ref.ID, ref.Year, err)
	}
	return &league, nil
}

// GetScoreboard retrieves the matchups of a single matchup period
func (c *HTTPClient) GetScoreboard(ctx context.Context, ref LeagueRef, matchupPeriod int) ([]Matchup, error) {
	params := url.Values{"view": []string{"mMatchupScore", "mScoreboard"}}
	filter := fmt.Sprintf(`{"schedule":{"filterMatchupPeriodIds":{"value":[%d]}}}`, matchupPeriod)
	headers := map[string]string{"x-fantasy-filter": filter}

	var league League
	if err := c.fetchLeague(ctx, ref, params, headers, &league); err != nil {
		return nil, fmt.Errorf("failed to get scoreboard for league %d week %d: %w", ref.ID, matchupPeriod, err)
	}

	matchups := make([]Matchup, 0, len(league.Schedule))
	for _, m := range league.Schedule {
		if m.MatchupPeriodID == matchupPeriod {
			matchups = append(matchups, m)
		}
	}
	return matchups, nil
}

// fetchLeague resolves the endpoint for the season and decodes the league document into target
func (c *HTTPClient) fetchLeague(ctx context.Context, ref LeagueRef, params url.Values, headers map[string]string, target *League) error {
	endpoint := fmt.Sprintf("/seasons/%d/segments/0/leagues/%d", ref.Year, ref.ID)
	history := ref.Year < firstCurrentAPISeason
	if history {
		endpoint = fmt.Sprintf("/leagueHistory/%d", ref.ID)
		params.Set("seasonId", strconv.Itoa(ref.Year))
	}

	creds := ref.Credentials
	if creds.Empty() {
		creds = c.credentials
	}

	raw, err := c.makeRequest(ctx, ref.ID, endpoint, params, headers, creds)
	if err != nil {
		return err
	}

	if !history {
		if err := sonic.Unmarshal(raw, target); err != nil {
			c.logger.WithError(err).WithField("league_id", ref.ID).Error("Failed to unmarshal response")
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	}

	var seasons []League
	if err := sonic.Unmarshal(raw, &seasons); err != nil {
		c.logger.WithError(err).WithField("league_id", ref.ID).Error("Failed to unmarshal history response")
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(seasons) == 0 {
		return &APIError{
			Type:     ErrorTypeInvalidLeague,
			Message:  fmt.Sprintf("league %d has no history for season %d", ref.ID, ref.Year),
			LeagueID: ref.ID,
		}
	}
	*target = seasons[0]
	return nil
}

// makeRequest performs a deduplicated, breaker-guarded GET and returns the raw body
func (c *HTTPClient) makeRequest(ctx context.Context, leagueID int, endpoint string, params url.Values, headers map[string]string, creds Credentials) ([]byte, error) {
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())
	key := fullURL + "|" + headers["x-fantasy-filter"] + "|" + creds.SWID

	// the shared request outlives any single caller, bounded by the full retry schedule;
	// each caller still stops waiting on its own ctx
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightBudget)
		defer cancel()
		return c.breaker.Execute(func() (interface{}, error) {
			return c.executeRequest(shared, fullURL, headers, creds)
		})
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, c.classify(ctx.Err(), leagueID)
	case res = <-ch:
	}
	if res.Shared {
		c.logger.WithField("url", fullURL).Debug("Shared in-flight API request")
	}
	if res.Err != nil {
		return nil, c.classify(res.Err, leagueID)
	}

	raw, ok := res.Val.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", res.Val)
	}
	return raw, nil
}

func (c *HTTPClient) executeRequest(ctx context.Context, fullURL string, headers map[string]string, creds Credentials) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if creds.ESPNS2 != "" {
			req.AddCookie(&http.Cookie{Name: "espn_s2", Value: creds.ESPNS2})
		}
		if creds.SWID != "" {
			req.AddCookie(&http.Cookie{Name: "SWID", Value: creds.SWID})
		}

		c.logger.WithFields(logrus.Fields{
			"url":     fullURL,
			"attempt": attempt + 1,
		}).Debug("Making API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = errors.Wrapf(errTransient, "send request: %v", err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = errors.Wrapf(errTransient, "read response body: %v", readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				c.logger.Debug("API request completed successfully")
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = &statusError{code: resp.StatusCode, body: abbreviateBody(raw), transient: true}
			default:
				return nil, &statusError{code: resp.StatusCode, body: abbreviateBody(raw)}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		c.logger.WithError(lastErr).WithField("attempt", attempt+1).Warn("Retrying API request")

		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WithError(lastErr).WithField("url", fullURL).Error("API request failed")
	return nil, lastErr
}

// classify converts transport level failures into APIErrors
func (c *HTTPClient) classify(err error, leagueID int) error {
	var se *statusError
	if errors.As(err, &se) {
		apiErr := &APIError{
			StatusCode: se.code,
			LeagueID:   leagueID,
		}
		switch {
		case se.code == http.StatusUnauthorized || se.code == http.StatusForbidden:
			apiErr.Type = ErrorTypeAccessDenied
			apiErr.Message = "league is private or the espn_s2/SWID cookies are invalid"
		case se.code == http.StatusNotFound:
			apiErr.Type = ErrorTypeInvalidLeague
			apiErr.Message = fmt.Sprintf("league %d does not exist for the requested season", leagueID)
		case se.transient:
			apiErr.Type = ErrorTypeUnavailable
			apiErr.Message = fmt.Sprintf("ESPN API unavailable after retries: status %d: %s", se.code, se.body)
		default:
			apiErr.Type = ErrorTypeAPI
			apiErr.Message = fmt.Sprintf("API request failed with status %d: %s", se.code, se.body)
		}
		return apiErr
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || isTransient(err) {
		return &APIError{
			Type:     ErrorTypeUnavailable,
			Message:  fmt.Sprintf("ESPN API unavailable: %v", err),
			LeagueID: leagueID,
		}
	}
	return err
}

// statusError is a non-2xx response. Transient ones are retried and count against the breaker.
type statusError struct {
	code      int
	body      string
	transient bool
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream status=%d body=%s", e.code, e.body)
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.transient
	}
	return errors.Is(err, errTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit]) + "..."
}
