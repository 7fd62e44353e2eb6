package espn

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/platform/resilience"
	"github.com/rostermesh/leaguesync/internal/usecase"
)

const testFanJSON = `{
	"preferences": [
		{"metaData": {"entry": {"seasonId": 2025, "groups": [{"groupID": 111, "groupName": "Office League"}, {"groupID": 111, "groupName": "Office League"}, {"groupID": 0}]}}},
		{"metaData": {"entry": {"seasonId": 2024, "groups": [{"groupID": 999, "groupName": "Old League"}]}}}
	]
}`

const testLeagueJSON = `{
	"id": 111,
	"seasonId": 2025,
	"scoringPeriodId": 3,
	"settings": {"name": "Office League", "size": 10},
	"members": [{"id": "{ABC}", "displayName": "Alice"}],
	"teams": [
		{
			"id": 7,
			"location": "Flying",
			"nickname": "Elvises",
			"owners": ["{ABC}"],
			"playoffSeed": 2,
			"record": {"overall": {"wins": 6, "losses": 2, "ties": 0, "pointsFor": 812.5, "pointsAgainst": 700.25}},
			"roster": {"entries": [
				{"lineupSlotId": 0, "playerPoolEntry": {"player": {"id": 4046, "fullName": "Patrick Mahomes", "defaultPositionId": 1, "proTeamId": 12, "jersey": "15"}}},
				{"lineupSlotId": 20, "playerPoolEntry": {"player": {"id": 3139, "fullName": "Travis Kelce", "defaultPositionId": 4, "proTeamId": 12, "jersey": "87"}}},
				{"lineupSlotId": 0, "playerPoolEntry": {"player": {"id": 0, "fullName": ""}}}
			]}
		}
	]
}`

type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(ClientConfig{
		BaseURL:        srv.URL,
		FanBaseURL:     srv.URL,
		Season:         2025,
		MaxRetries:     0,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})
}

func TestClient_FetchUserLeagues(t *testing.T) {
	t.Parallel()

	log := &requestLog{}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)

		cookie := r.Header.Get("cookie")
		if !strings.Contains(cookie, "espn_s2=s2token") || !strings.Contains(cookie, "SWID={ABC}") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/apis/v2/fans/"):
			_, _ = w.Write([]byte(testFanJSON))
		case strings.HasPrefix(r.URL.Path, "/apis/v3/games/ffl/seasons/2025/segments/0/leagues/111"):
			_, _ = w.Write([]byte(testLeagueJSON))
		default:
			http.NotFound(w, r)
		}
	})

	client := newTestClient(t, handler)
	leagues, err := client.FetchUserLeagues(t.Context(), connection.Connection{
		// SWID arrives without braces; the client adds them back.
		Credentials: connection.Credentials{ProviderUserID: "ABC", AccessToken: "s2token"},
	})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(leagues) != 1 {
		t.Fatalf("expected one league, got %d", len(leagues))
	}
	league := leagues[0]
	if league.ProviderLeagueID != "111" || league.Name != "Office League" || league.Season != "2025" {
		t.Fatalf("unexpected league: %+v", league)
	}
	if league.Settings["size"] != 10 {
		t.Fatalf("league size missing from settings: %+v", league.Settings)
	}

	if len(league.Teams) != 1 {
		t.Fatalf("expected one team, got %d", len(league.Teams))
	}
	team := league.Teams[0]
	if team.Name != "Flying Elvises" || team.ProviderTeamID != "7" || team.OwnerID != "{ABC}" {
		t.Fatalf("unexpected team: %+v", team)
	}
	if team.Standings.Wins != 6 || team.Standings.Rank != 2 || team.Standings.PointsFor != 812.5 {
		t.Fatalf("unexpected standings: %+v", team.Standings)
	}

	// The empty player entry is dropped.
	if len(team.Roster) != 2 {
		t.Fatalf("expected two rostered players, got %d", len(team.Roster))
	}
	mahomes := team.Roster[0]
	if mahomes.Name != "Patrick Mahomes" || mahomes.Team != "KC" || mahomes.Position != "QB" {
		t.Fatalf("unexpected player: %+v", mahomes)
	}
	if mahomes.JerseyNumber == nil || *mahomes.JerseyNumber != 15 {
		t.Fatalf("jersey not parsed: %+v", mahomes.JerseyNumber)
	}
	if mahomes.Slot != "starter" || team.Roster[1].Slot != "bench" {
		t.Fatalf("unexpected slots: %s, %s", mahomes.Slot, team.Roster[1].Slot)
	}

	// Only the 2025 league is hydrated; the 2024 group never gets requested.
	for _, path := range log.all() {
		if strings.Contains(path, "999") {
			t.Fatalf("league outside the configured season was fetched: %s", path)
		}
	}
}

func TestClient_MissingCookiesMeanReauth(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false}})

	_, err := client.FetchUserLeagues(t.Context(), connection.Connection{
		Credentials: connection.Credentials{ProviderUserID: "ABC"},
	})
	if !errors.Is(err, usecase.ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
}

func TestClient_RejectedCookiesMeanReauth(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client := newTestClient(t, handler)
	_, err := client.FetchUserLeagues(t.Context(), connection.Connection{
		Credentials: connection.Credentials{ProviderUserID: "ABC", AccessToken: "stale"},
	})
	if !errors.Is(err, usecase.ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
}

func TestClient_UnreachableHostMeansConnectionFailed(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	client := newTestClient(t, handler)
	_, err := client.FetchUserLeagues(t.Context(), connection.Connection{
		Credentials: connection.Credentials{ProviderUserID: "ABC", AccessToken: "s2token"},
	})
	if !errors.Is(err, usecase.ErrConnectionFailed) {
		t.Fatalf("expected ErrConnectionFailed, got %v", err)
	}
}

func TestNormalizeSWID(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":        "",
		"ABC":     "{ABC}",
		"{ABC}":   "{ABC}",
		"  ABC  ": "{ABC}",
	}
	for input, want := range cases {
		if got := normalizeSWID(input); got != want {
			t.Fatalf("normalizeSWID(%q) = %q, want %q", input, got, want)
		}
	}
}
