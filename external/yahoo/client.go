package yahoo

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/platform/logging"
	"github.com/rostermesh/leaguesync/internal/platform/resilience"
	"github.com/rostermesh/leaguesync/internal/usecase"
)

const (
	defaultBaseURL  = "https://fantasysports.yahooapis.com"
	defaultTokenURL = "https://api.login.yahoo.com/oauth2/get_token"
	defaultGameKey  = "nfl"
)

var errYahooTransient = crerr.New("yahoo transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	TokenURL       string
	ClientID       string
	ClientSecret   string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads fantasy leagues from the Yahoo Fantasy Sports API using
// OAuth2 bearer tokens. An expired access token is refreshed once per run;
// when the refresh also fails the run needs user reauthorization.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	tokenURL       string
	clientID       string
	clientSecret   string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight

	mu          sync.Mutex
	accessToken string
	refreshed   bool
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	tokenURL := strings.TrimSpace(cfg.TokenURL)
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		tokenURL:       tokenURL,
		clientID:       strings.TrimSpace(cfg.ClientID),
		clientSecret:   strings.TrimSpace(cfg.ClientSecret),
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) FetchUserLeagues(ctx context.Context, conn connection.Connection) ([]usecase.NormalizedLeague, error) {
	if strings.TrimSpace(conn.Credentials.AccessToken) == "" {
		return nil, fmt.Errorf("%w: yahoo requires an oauth access token", usecase.ErrReauthRequired)
	}

	c.mu.Lock()
	c.accessToken = strings.TrimSpace(conn.Credentials.AccessToken)
	c.refreshed = false
	c.mu.Unlock()

	leaguesPath := fmt.Sprintf("/fantasy/v2/users;use_login=1/games;game_keys=%s/leagues?format=json_f", defaultGameKey)
	var envelope leaguesEnvelope
	if err := c.doJSON(ctx, leaguesPath, conn.Credentials.RefreshToken, &envelope); err != nil {
		return nil, fmt.Errorf("fetch leagues: %w", wrapFetchError(err))
	}

	items := collectLeagueItems(envelope)
	out := make([]usecase.NormalizedLeague, 0, len(items))
	for _, item := range items {
		normalized, err := c.fetchLeague(ctx, item, conn.Credentials.RefreshToken)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ProviderLeagueID < out[j].ProviderLeagueID })
	return out, nil
}

func collectLeagueItems(envelope leaguesEnvelope) []leagueItem {
	out := make([]leagueItem, 0, 4)
	for _, userWrap := range envelope.FantasyContent.Users {
		for _, gameWrap := range userWrap.User.Games {
			for _, leagueWrap := range gameWrap.Game.Leagues {
				if strings.TrimSpace(leagueWrap.League.LeagueKey) == "" {
					continue
				}
				out = append(out, leagueWrap.League)
			}
		}
	}
	return out
}

func (c *Client) fetchLeague(ctx context.Context, item leagueItem, refreshToken string) (usecase.NormalizedLeague, error) {
	teamsPath := fmt.Sprintf("/fantasy/v2/league/%s/teams;out=roster,standings?format=json_f", item.LeagueKey)
	var envelope teamsEnvelope
	if err := c.doJSON(ctx, teamsPath, refreshToken, &envelope); err != nil {
		return usecase.NormalizedLeague{}, fmt.Errorf("fetch teams league=%s: %w", item.LeagueKey, wrapFetchError(err))
	}

	teams := make([]usecase.NormalizedTeam, 0, len(envelope.FantasyContent.League.Teams))
	for _, teamWrap := range envelope.FantasyContent.League.Teams {
		teams = append(teams, mapTeamItem(teamWrap.Team))
	}

	return usecase.NormalizedLeague{
		ProviderLeagueID: item.LeagueKey,
		Name:             strings.TrimSpace(item.Name),
		Season:           strings.TrimSpace(item.Season),
		Sport:            "football",
		Settings: map[string]any{
			"league_id":    item.LeagueID,
			"num_teams":    item.NumTeams,
			"scoring_type": item.ScoringType,
		},
		Teams: teams,
	}, nil
}

func mapTeamItem(item teamItem) usecase.NormalizedTeam {
	ownerID := ""
	if len(item.Managers) > 0 {
		ownerID = strings.TrimSpace(item.Managers[0].Manager.GUID)
	}

	players := make([]usecase.NormalizedPlayer, 0, len(item.Roster.Players))
	for _, playerWrap := range item.Roster.Players {
		p := playerWrap.Player
		if strings.TrimSpace(p.PlayerKey) == "" || strings.TrimSpace(p.Name.Full) == "" {
			continue
		}

		slot := "starter"
		if strings.EqualFold(p.SelectedPosition.Position, "BN") || strings.EqualFold(p.SelectedPosition.Position, "IR") {
			slot = "bench"
		}
		players = append(players, usecase.NormalizedPlayer{
			ProviderPlayerID: p.PlayerKey,
			Name:             strings.TrimSpace(p.Name.Full),
			Team:             strings.ToUpper(strings.TrimSpace(p.EditorialTeamAbbr)),
			Position:         primaryPosition(p.DisplayPosition),
			JerseyNumber:     parseUniformNumber(p.UniformNumber),
			Slot:             slot,
		})
	}

	pointsFor := parseFloat(item.TeamStandings.PointsFor)
	pointsAgainst := parseFloat(item.TeamStandings.PointsAgainst)

	return usecase.NormalizedTeam{
		ProviderTeamID: item.TeamKey,
		OwnerID:        ownerID,
		Name:           strings.TrimSpace(item.Name),
		Roster:         players,
		Standings: usecase.NormalizedStandings{
			Wins:          item.TeamStandings.OutcomeTotals.Wins,
			Losses:        item.TeamStandings.OutcomeTotals.Losses,
			Ties:          item.TeamStandings.OutcomeTotals.Ties,
			Rank:          item.TeamStandings.Rank,
			PointsFor:     pointsFor,
			PointsAgainst: pointsAgainst,
		},
		Stats: map[string]any{
			"points_for":     pointsFor,
			"points_against": pointsAgainst,
		},
	}
}

func (c *Client) doJSON(ctx context.Context, path, refreshToken string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "yahoo circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: yahoo is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL, refreshToken)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errYahooTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode yahoo payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL, refreshToken string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.currentToken())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errYahooTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errYahooTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				if refreshErr := c.refreshAccessToken(ctx, refreshToken); refreshErr != nil {
					return nil, refreshErr
				}
				// Token replaced; retry immediately without burning backoff.
				continue
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: yahoo status=%d", errYahooTransient, resp.StatusCode)
			default:
				return nil, fmt.Errorf("yahoo status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("yahoo request failed")
	}
	c.logger.WarnContext(ctx, "yahoo request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// refreshAccessToken exchanges the refresh token once per run. A second
// rejection after a successful refresh means the grant itself is dead.
func (c *Client) refreshAccessToken(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || c.clientID == "" || c.clientSecret == "" {
		return fmt.Errorf("%w: yahoo access token was rejected and no refresh grant is available", usecase.ErrReauthRequired)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshed {
		return fmt.Errorf("%w: yahoo rejected a freshly refreshed access token", usecase.ErrReauthRequired)
	}
	c.refreshed = true

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: refresh yahoo token: %v", usecase.ErrConnectionFailed, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read token refresh response: %v", usecase.ErrConnectionFailed, err)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: yahoo token refresh status=%d", usecase.ErrReauthRequired, resp.StatusCode)
	}

	var token tokenEnvelope
	if err := sonic.Unmarshal(raw, &token); err != nil {
		return fmt.Errorf("decode token refresh payload: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return fmt.Errorf("%w: yahoo token refresh returned no access token", usecase.ErrReauthRequired)
	}

	c.accessToken = token.AccessToken
	c.logger.InfoContext(ctx, "yahoo access token refreshed")
	return nil
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func wrapFetchError(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, usecase.ErrReauthRequired) || stderrors.Is(err, usecase.ErrConnectionFailed) {
		return err
	}
	if stderrors.Is(err, errYahooTransient) || stderrors.Is(err, usecase.ErrDependencyUnavailable) {
		return fmt.Errorf("%w: %v", usecase.ErrConnectionFailed, err)
	}
	return err
}

func primaryPosition(display string) string {
	parts := strings.Split(display, ",")
	if len(parts) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(parts[0]))
}

func parseUniformNumber(raw string) *int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return nil
	}
	return &value
}

func parseFloat(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return value
}

func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

func abbreviateBody(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > 512 {
		return text[:512] + "...(truncated)"
	}
	return text
}
