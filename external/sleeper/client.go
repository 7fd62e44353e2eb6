package sleeper

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/platform/cache"
	"github.com/rostermesh/leaguesync/internal/platform/logging"
	"github.com/rostermesh/leaguesync/internal/platform/resilience"
	"github.com/rostermesh/leaguesync/internal/usecase"
)

const (
	defaultBaseURL = "https://api.sleeper.app"
	defaultSport   = "nfl"

	playerCatalogCacheKey = "sleeper:players:" + defaultSport
)

var errSleeperTransient = crerr.New("sleeper transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Season         string
	Timeout        time.Duration
	MaxRetries     int
	CatalogTTL     time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads leagues, rosters and the player catalog from the Sleeper
// public API. The full-sport player catalog is a multi-megabyte payload that
// Sleeper asks callers to fetch at most once per day, so it is cached.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	season         string
	maxRetries     int
	catalog        *cache.Store
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
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
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	season := strings.TrimSpace(cfg.Season)
	if season == "" {
		season = strconv.Itoa(time.Now().UTC().Year())
	}
	catalogTTL := cfg.CatalogTTL
	if catalogTTL <= 0 {
		catalogTTL = 24 * time.Hour
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		season:         season,
		maxRetries:     cfg.MaxRetries,
		catalog:        cache.NewStore(catalogTTL),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) FetchUserLeagues(ctx context.Context, conn connection.Connection) ([]usecase.NormalizedLeague, error) {
	userID := strings.TrimSpace(conn.Credentials.ProviderUserID)
	if userID == "" {
		resolved, err := c.resolveUserID(ctx, conn.Credentials.Username)
		if err != nil {
			return nil, err
		}
		userID = resolved
	}

	var leagues []leagueEnvelope
	path := fmt.Sprintf("/v1/user/%s/leagues/%s/%s", userID, defaultSport, c.season)
	if err := c.doJSON(ctx, path, &leagues); err != nil {
		return nil, fmt.Errorf("fetch leagues user=%s: %w", userID, wrapFetchError(err))
	}

	catalog, err := c.playerCatalog(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]usecase.NormalizedLeague, 0, len(leagues))
	for _, item := range leagues {
		if strings.TrimSpace(item.LeagueID) == "" {
			continue
		}
		normalized, err := c.fetchLeague(ctx, item, catalog)
		if err != nil {
			return nil, err
		}
		out = append(out, normalized)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ProviderLeagueID < out[j].ProviderLeagueID })
	return out, nil
}

func (c *Client) resolveUserID(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: sleeper user id or username is required", usecase.ErrReauthRequired)
	}

	var user userEnvelope
	if err := c.doJSON(ctx, "/v1/user/"+username, &user); err != nil {
		return "", fmt.Errorf("resolve user %s: %w", username, wrapFetchError(err))
	}
	if strings.TrimSpace(user.UserID) == "" {
		return "", fmt.Errorf("%w: sleeper user %s was not found", usecase.ErrReauthRequired, username)
	}
	return user.UserID, nil
}

func (c *Client) fetchLeague(ctx context.Context, item leagueEnvelope, catalog map[string]catalogPlayer) (usecase.NormalizedLeague, error) {
	var rosters []rosterEnvelope
	if err := c.doJSON(ctx, fmt.Sprintf("/v1/league/%s/rosters", item.LeagueID), &rosters); err != nil {
		return usecase.NormalizedLeague{}, fmt.Errorf("fetch rosters league=%s: %w", item.LeagueID, wrapFetchError(err))
	}

	var members []leagueUserEnvelope
	if err := c.doJSON(ctx, fmt.Sprintf("/v1/league/%s/users", item.LeagueID), &members); err != nil {
		return usecase.NormalizedLeague{}, fmt.Errorf("fetch league users league=%s: %w", item.LeagueID, wrapFetchError(err))
	}

	memberByID := make(map[string]leagueUserEnvelope, len(members))
	for _, member := range members {
		memberByID[member.UserID] = member
	}

	teams := make([]usecase.NormalizedTeam, 0, len(rosters))
	for _, roster := range rosters {
		teams = append(teams, mapRosterToTeam(roster, memberByID, catalog))
	}

	settings := item.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	settings["scoring_type"] = item.ScoringType
	settings["status"] = item.Status
	settings["total_rosters"] = item.TotalTeams

	season := strings.TrimSpace(item.Season)
	if season == "" {
		season = c.season
	}

	return usecase.NormalizedLeague{
		ProviderLeagueID: item.LeagueID,
		Name:             strings.TrimSpace(item.Name),
		Season:           season,
		Sport:            "football",
		Settings:         settings,
		Teams:            teams,
	}, nil
}

// playerCatalog returns the cached full-sport player directory, fetching it
// at most once per TTL window even under concurrent imports.
func (c *Client) playerCatalog(ctx context.Context) (map[string]catalogPlayer, error) {
	value, err := c.catalog.GetOrFill(ctx, playerCatalogCacheKey, func() (any, error) {
		var catalog map[string]catalogPlayer
		if err := c.doJSON(ctx, "/v1/players/"+defaultSport, &catalog); err != nil {
			return nil, fmt.Errorf("fetch player catalog: %w", wrapFetchError(err))
		}
		return catalog, nil
	})
	if err != nil {
		return nil, err
	}

	catalog, ok := value.(map[string]catalogPlayer)
	if !ok {
		return nil, fmt.Errorf("unexpected player catalog type %T", value)
	}
	return catalog, nil
}

func mapRosterToTeam(roster rosterEnvelope, memberByID map[string]leagueUserEnvelope, catalog map[string]catalogPlayer) usecase.NormalizedTeam {
	member := memberByID[roster.OwnerID]
	name := strings.TrimSpace(member.Metadata.TeamName)
	if name == "" {
		name = strings.TrimSpace(member.DisplayName)
	}
	if name == "" {
		name = fmt.Sprintf("Roster %d", roster.RosterID)
	}

	starters := make(map[string]struct{}, len(roster.Starters))
	for _, id := range roster.Starters {
		starters[id] = struct{}{}
	}

	players := make([]usecase.NormalizedPlayer, 0, len(roster.Players))
	for _, playerID := range roster.Players {
		info, ok := catalog[playerID]
		if !ok {
			continue
		}
		fullName := strings.TrimSpace(info.FullName)
		if fullName == "" {
			fullName = strings.TrimSpace(info.FirstName + " " + info.LastName)
		}
		if fullName == "" {
			continue
		}

		slot := "bench"
		if _, ok := starters[playerID]; ok {
			slot = "starter"
		}
		players = append(players, usecase.NormalizedPlayer{
			ProviderPlayerID: playerID,
			Name:             fullName,
			Team:             strings.TrimSpace(info.Team),
			Position:         strings.TrimSpace(info.Position),
			JerseyNumber:     info.Number,
			Slot:             slot,
		})
	}

	pointsFor := float64(roster.Settings.Fpts) + float64(roster.Settings.FptsDecimal)/100
	pointsAgainst := float64(roster.Settings.FptsAgainst) + float64(roster.Settings.FptsAgainstDecim)/100

	return usecase.NormalizedTeam{
		ProviderTeamID: strconv.Itoa(roster.RosterID),
		OwnerID:        roster.OwnerID,
		Name:           name,
		Roster:         players,
		Standings: usecase.NormalizedStandings{
			Wins:          roster.Settings.Wins,
			Losses:        roster.Settings.Losses,
			Ties:          roster.Settings.Ties,
			PointsFor:     pointsFor,
			PointsAgainst: pointsAgainst,
		},
		Stats: map[string]any{
			"fpts":         pointsFor,
			"fpts_against": pointsAgainst,
		},
	}
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "sleeper circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: sleeper is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errSleeperTransient) {
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
		return fmt.Errorf("decode sleeper payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errSleeperTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errSleeperTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				return nil, fmt.Errorf("%w: sleeper rejected request status=%d", usecase.ErrReauthRequired, resp.StatusCode)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: sleeper status=%d", errSleeperTransient, resp.StatusCode)
			default:
				return nil, fmt.Errorf("sleeper status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
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
		lastErr = fmt.Errorf("sleeper request failed")
	}
	c.logger.WarnContext(ctx, "sleeper request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// wrapFetchError folds transient exhaustion into the connection failure the
// orchestrator aborts on; auth rejections pass through untouched.
func wrapFetchError(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, usecase.ErrReauthRequired) || stderrors.Is(err, usecase.ErrConnectionFailed) {
		return err
	}
	if stderrors.Is(err, errSleeperTransient) || stderrors.Is(err, usecase.ErrDependencyUnavailable) {
		return fmt.Errorf("%w: %v", usecase.ErrConnectionFailed, err)
	}
	return err
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
