package espn

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
	"github.com/rostermesh/leaguesync/internal/platform/logging"
	"github.com/rostermesh/leaguesync/internal/platform/resilience"
	"github.com/rostermesh/leaguesync/internal/usecase"
	"github.com/sourcegraph/conc/pool"
)

const (
	defaultBaseURL    = "https://lm-api-reads.fantasy.espn.com"
	defaultFanBaseURL = "https://fan.espn.com"
	defaultGameKey    = "ffl"

	leagueFetchParallelism = 4
)

var errEspnTransient = crerr.New("espn transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	FanBaseURL     string
	Season         int
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads private fantasy leagues from the ESPN API. Authentication is
// cookie based: the espn_s2 session token plus the SWID account id.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	fanBaseURL     string
	season         int
	maxRetries     int
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
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	fanBaseURL := strings.TrimRight(strings.TrimSpace(cfg.FanBaseURL), "/")
	if fanBaseURL == "" {
		fanBaseURL = defaultFanBaseURL
	}
	season := cfg.Season
	if season <= 0 {
		season = time.Now().UTC().Year()
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		fanBaseURL:     fanBaseURL,
		season:         season,
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) FetchUserLeagues(ctx context.Context, conn connection.Connection) ([]usecase.NormalizedLeague, error) {
	swid := normalizeSWID(conn.Credentials.ProviderUserID)
	sessionToken := strings.TrimSpace(conn.Credentials.AccessToken)
	if swid == "" || sessionToken == "" {
		return nil, fmt.Errorf("%w: espn requires the SWID and espn_s2 cookies", usecase.ErrReauthRequired)
	}
	cookie := fmt.Sprintf("espn_s2=%s; SWID=%s", sessionToken, swid)

	leagueIDs, err := c.fetchLeagueIDs(ctx, swid, cookie)
	if err != nil {
		return nil, err
	}
	if len(leagueIDs) == 0 {
		return nil, nil
	}

	// League details are independent reads, so hydrate them in parallel.
	workers := pool.NewWithResults[usecase.NormalizedLeague]().
		WithContext(ctx).
		WithMaxGoroutines(leagueFetchParallelism).
		WithCancelOnError()

	for _, leagueID := range leagueIDs {
		leagueID := leagueID
		workers.Go(func(ctx context.Context) (usecase.NormalizedLeague, error) {
			return c.fetchLeague(ctx, leagueID, cookie)
		})
	}

	out, err := workers.Wait()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ProviderLeagueID < out[j].ProviderLeagueID })
	return out, nil
}

// fetchLeagueIDs lists the fantasy football leagues on the user's fan
// profile for the configured season.
func (c *Client) fetchLeagueIDs(ctx context.Context, swid, cookie string) ([]int64, error) {
	var fan fanEnvelope
	fanURL := fmt.Sprintf("%s/apis/v2/fans/%s?view=chui_default_fan", c.fanBaseURL, swid)
	if err := c.doJSON(ctx, fanURL, cookie, &fan); err != nil {
		return nil, fmt.Errorf("fetch fan profile: %w", wrapFetchError(err))
	}

	seen := make(map[int64]struct{}, len(fan.Preferences))
	out := make([]int64, 0, len(fan.Preferences))
	for _, pref := range fan.Preferences {
		if pref.MetaData.Entry.SeasonID != c.season {
			continue
		}
		for _, group := range pref.MetaData.Entry.Groups {
			if group.GroupID <= 0 {
				continue
			}
			if _, dup := seen[group.GroupID]; dup {
				continue
			}
			seen[group.GroupID] = struct{}{}
			out = append(out, group.GroupID)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (c *Client) fetchLeague(ctx context.Context, leagueID int64, cookie string) (usecase.NormalizedLeague, error) {
	var envelope leagueEnvelope
	leagueURL := fmt.Sprintf(
		"%s/apis/v3/games/%s/seasons/%d/segments/0/leagues/%d?view=mSettings&view=mTeam&view=mRoster",
		c.baseURL, defaultGameKey, c.season, leagueID,
	)
	if err := c.doJSON(ctx, leagueURL, cookie, &envelope); err != nil {
		return usecase.NormalizedLeague{}, fmt.Errorf("fetch league %d: %w", leagueID, wrapFetchError(err))
	}

	memberByID := make(map[string]string, len(envelope.Members))
	for _, member := range envelope.Members {
		memberByID[member.ID] = member.DisplayName
	}

	teams := make([]usecase.NormalizedTeam, 0, len(envelope.Teams))
	for _, entry := range envelope.Teams {
		teams = append(teams, mapTeamEntry(entry, memberByID))
	}

	return usecase.NormalizedLeague{
		ProviderLeagueID: strconv.FormatInt(envelope.ID, 10),
		Name:             strings.TrimSpace(envelope.Settings.Name),
		Season:           strconv.Itoa(envelope.SeasonID),
		Sport:            "football",
		Settings: map[string]any{
			"size":              envelope.Settings.Size,
			"scoring_period_id": envelope.ScoringPeriodID,
		},
		Teams: teams,
	}, nil
}

func mapTeamEntry(entry teamEntry, memberByID map[string]string) usecase.NormalizedTeam {
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		name = strings.TrimSpace(strings.TrimSpace(entry.Location) + " " + strings.TrimSpace(entry.Nickname))
	}

	ownerID := ""
	if len(entry.Owners) > 0 {
		ownerID = normalizeSWID(entry.Owners[0])
	}

	players := make([]usecase.NormalizedPlayer, 0, len(entry.Roster.Entries))
	for _, slot := range entry.Roster.Entries {
		p := slot.PlayerPoolEntry.Player
		if p.ID <= 0 || strings.TrimSpace(p.FullName) == "" {
			continue
		}

		slotName := "bench"
		if isStarterSlot(slot.LineupSlotID) {
			slotName = "starter"
		}
		players = append(players, usecase.NormalizedPlayer{
			ProviderPlayerID: strconv.FormatInt(p.ID, 10),
			Name:             strings.TrimSpace(p.FullName),
			Team:             proTeamAbbrevByID[p.ProTeamID],
			Position:         positionByID[p.DefaultPositionID],
			JerseyNumber:     parseJersey(p.Jersey),
			Slot:             slotName,
		})
	}

	stats := map[string]any{
		"points_for":     entry.Record.Overall.PointsFor,
		"points_against": entry.Record.Overall.PointsAgainst,
	}
	if owner, ok := memberByID[firstOwner(entry.Owners)]; ok && owner != "" {
		stats["owner_display_name"] = owner
	}

	return usecase.NormalizedTeam{
		ProviderTeamID: strconv.FormatInt(entry.ID, 10),
		OwnerID:        ownerID,
		Name:           name,
		Roster:         players,
		Standings: usecase.NormalizedStandings{
			Wins:          entry.Record.Overall.Wins,
			Losses:        entry.Record.Overall.Losses,
			Ties:          entry.Record.Overall.Ties,
			Rank:          entry.PlayoffSeed,
			PointsFor:     entry.Record.Overall.PointsFor,
			PointsAgainst: entry.Record.Overall.PointsAgainst,
		},
		Stats: stats,
	}
}

func (c *Client) doJSON(ctx context.Context, fullURL, cookie string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "espn circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: espn is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL, cookie)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errEspnTransient) {
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
		return fmt.Errorf("decode espn payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL, cookie string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		req.Header.Set("cookie", cookie)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errEspnTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errEspnTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				return nil, fmt.Errorf("%w: espn rejected the session cookies status=%d", usecase.ErrReauthRequired, resp.StatusCode)
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: espn status=%d", errEspnTransient, resp.StatusCode)
			default:
				return nil, fmt.Errorf("espn status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
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
		lastErr = fmt.Errorf("espn request failed")
	}
	c.logger.WarnContext(ctx, "espn request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func wrapFetchError(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, usecase.ErrReauthRequired) || stderrors.Is(err, usecase.ErrConnectionFailed) {
		return err
	}
	if stderrors.Is(err, errEspnTransient) || stderrors.Is(err, usecase.ErrDependencyUnavailable) {
		return fmt.Errorf("%w: %v", usecase.ErrConnectionFailed, err)
	}
	return err
}

// normalizeSWID keeps the braces ESPN wraps around the account id.
func normalizeSWID(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "{") {
		value = "{" + strings.Trim(value, "{}") + "}"
	}
	return value
}

func firstOwner(owners []string) string {
	if len(owners) == 0 {
		return ""
	}
	return owners[0]
}

func parseJersey(raw string) *int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return nil
	}
	return &value
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
