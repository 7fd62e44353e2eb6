package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/domain/importrun"
	"github.com/rostermesh/leaguesync/internal/domain/player"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	"github.com/rostermesh/leaguesync/internal/infrastructure/repository/memory"
	"github.com/rostermesh/leaguesync/internal/usecase"
)

type stubAdapter struct {
	leagues []usecase.NormalizedLeague
	err     error
	calls   int
}

func (a *stubAdapter) FetchUserLeagues(_ context.Context, _ connection.Connection) ([]usecase.NormalizedLeague, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.leagues, nil
}

type stubNotifier struct {
	runs []importrun.Run
}

func (n *stubNotifier) NotifyRunCompleted(_ context.Context, run importrun.Run) error {
	n.runs = append(n.runs, run)
	return nil
}

func newImportService(store *memory.Store, adapter usecase.ProviderAdapter, notifier usecase.RunNotifier) *usecase.ImportService {
	resolver := usecase.NewResolverService(store.Players(), store.Mappings(), nil)
	writer := usecase.NewBatchWriter(store.Sync(), nil, nil)
	registry := usecase.NewAdapterRegistry(map[provider.Provider]usecase.ProviderAdapter{
		provider.Sleeper: adapter,
	})
	return usecase.NewImportService(registry, store.Connections(), resolver, writer, store.ImportRuns(), notifier, nil, 2, nil)
}

func testLeague(id, name string, teams ...usecase.NormalizedTeam) usecase.NormalizedLeague {
	return usecase.NormalizedLeague{
		ProviderLeagueID: id,
		Name:             name,
		Season:           "2025",
		Sport:            "football",
		Teams:            teams,
	}
}

func testTeam(id, name string, roster ...usecase.NormalizedPlayer) usecase.NormalizedTeam {
	return usecase.NormalizedTeam{
		ProviderTeamID: id,
		Name:           name,
		Roster:         roster,
	}
}

func TestImportService_ImportLeagues_Success(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddPlayers(player.Player{
		ID:        "cat-allen",
		FirstName: "Josh",
		FullName:  "Josh Allen",
		Positions: []string{"QB"},
	})

	adapter := &stubAdapter{
		leagues: []usecase.NormalizedLeague{
			testLeague("L1", "Dynasty",
				testTeam("1", "Team One", usecase.NormalizedPlayer{ProviderPlayerID: "p1", Name: "Josh Allen", Position: "QB"}),
				testTeam("2", "Team Two"),
			),
		},
	}
	notifier := &stubNotifier{}
	svc := newImportService(store, adapter, notifier)

	result, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{
		UserID:      "user-1",
		Provider:    "sleeper",
		Credentials: connection.Credentials{ProviderUserID: "sl-123"},
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if !result.Success {
		t.Fatalf("expected successful run: %+v", result)
	}
	if result.LeaguesImported != 1 || result.LeaguesFailed != 0 {
		t.Fatalf("unexpected league counts: %+v", result)
	}
	if result.TeamsImported != 2 {
		t.Fatalf("expected two teams imported, got %d", result.TeamsImported)
	}
	if result.RunID == "" {
		t.Fatalf("expected a run id on the result")
	}
	if len(result.Leagues) != 1 || result.Leagues[0].Status != importrun.LeagueStatusImported {
		t.Fatalf("unexpected league outcomes: %+v", result.Leagues)
	}
	if result.Leagues[0].PlayersMapped != 1 {
		t.Fatalf("expected one mapped player, got %d", result.Leagues[0].PlayersMapped)
	}

	if _, ok := store.LeagueByProviderKey(provider.Sleeper, "L1", "user-1"); !ok {
		t.Fatalf("league was not persisted")
	}
	if _, ok := store.Mapping(provider.Sleeper, "p1"); !ok {
		t.Fatalf("player mapping was not persisted")
	}

	ledger := store.RunLedger()
	if len(ledger) != 1 {
		t.Fatalf("expected one ledger record, got %d", len(ledger))
	}
	if ledger[0].ID != result.RunID || !ledger[0].Success {
		t.Fatalf("unexpected ledger record: %+v", ledger[0])
	}
	if len(notifier.runs) != 1 || notifier.runs[0].ID != result.RunID {
		t.Fatalf("notifier was not told about the run: %+v", notifier.runs)
	}

	conn, found, err := store.Connections().GetByUserProvider(t.Context(), "user-1", provider.Sleeper)
	if err != nil || !found {
		t.Fatalf("connection lookup failed: found=%t err=%v", found, err)
	}
	if conn.LastSyncedAt == nil {
		t.Fatalf("connection last synced timestamp was not touched")
	}
}

func TestImportService_AuthRejectionAbortsWithoutLedgerRecord(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedConnection(t, store, "user-1", connection.StatusActive)

	adapter := &stubAdapter{err: fmt.Errorf("%w: sleeper rejected request status=401", usecase.ErrReauthRequired)}
	svc := newImportService(store, adapter, nil)

	_, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{UserID: "user-1", Provider: "sleeper"})
	if !errors.Is(err, usecase.ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}

	if ledger := store.RunLedger(); len(ledger) != 0 {
		t.Fatalf("auth abort must not write a ledger record, got %d", len(ledger))
	}

	conn, _, err := store.Connections().GetByUserProvider(t.Context(), "user-1", provider.Sleeper)
	if err != nil {
		t.Fatalf("connection lookup failed: %v", err)
	}
	if conn.Status != connection.StatusExpired {
		t.Fatalf("expected expired connection, got %s", conn.Status)
	}
}

func TestImportService_TransientFailureMapsToConnectionFailed(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedConnection(t, store, "user-1", connection.StatusActive)

	adapter := &stubAdapter{err: errors.New("dial tcp: connection refused")}
	svc := newImportService(store, adapter, nil)

	_, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{UserID: "user-1", Provider: "sleeper"})
	if !errors.Is(err, usecase.ErrConnectionFailed) {
		t.Fatalf("expected ErrConnectionFailed, got %v", err)
	}
	if ledger := store.RunLedger(); len(ledger) != 0 {
		t.Fatalf("fetch abort must not write a ledger record, got %d", len(ledger))
	}
}

func TestImportService_MissingConnectionNeedsCredentials(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	adapter := &stubAdapter{}
	svc := newImportService(store, adapter, nil)

	_, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{UserID: "user-1", Provider: "sleeper"})
	if !errors.Is(err, usecase.ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
	if adapter.calls != 0 {
		t.Fatalf("adapter must not be called without a usable connection")
	}
}

func TestImportService_ExpiredConnectionNeedsCredentials(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedConnection(t, store, "user-1", connection.StatusExpired)

	svc := newImportService(store, &stubAdapter{}, nil)
	_, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{UserID: "user-1", Provider: "sleeper"})
	if !errors.Is(err, usecase.ErrReauthRequired) {
		t.Fatalf("expected ErrReauthRequired, got %v", err)
	}
}

func TestImportService_FreshCredentialsReactivateConnection(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	seedConnection(t, store, "user-1", connection.StatusExpired)

	svc := newImportService(store, &stubAdapter{}, nil)
	result, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{
		UserID:      "user-1",
		Provider:    "sleeper",
		Credentials: connection.Credentials{ProviderUserID: "sl-456"},
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("empty import should still succeed: %+v", result)
	}

	conn, _, err := store.Connections().GetByUserProvider(t.Context(), "user-1", provider.Sleeper)
	if err != nil {
		t.Fatalf("connection lookup failed: %v", err)
	}
	if conn.Status != connection.StatusActive {
		t.Fatalf("expected reactivated connection, got %s", conn.Status)
	}
	if conn.Credentials.ProviderUserID != "sl-456" {
		t.Fatalf("credentials were not replaced: %+v", conn.Credentials)
	}
}

func TestImportService_OneFailedLeagueDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	adapter := &stubAdapter{
		leagues: []usecase.NormalizedLeague{
			testLeague("L1", "Good League", testTeam("1", "Team One")),
			// Missing name fails validation inside the league worker.
			{ProviderLeagueID: "L2", Season: "2025", Sport: "football"},
		},
	}
	svc := newImportService(store, adapter, nil)

	result, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{
		UserID:      "user-1",
		Provider:    "sleeper",
		Credentials: connection.Credentials{ProviderUserID: "sl-123"},
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	if result.Success {
		t.Fatalf("run with a failed league must not be marked successful")
	}
	if result.LeaguesImported != 1 || result.LeaguesFailed != 1 {
		t.Fatalf("unexpected league counts: %+v", result)
	}
	if len(result.Leagues) != 2 {
		t.Fatalf("expected two league outcomes, got %d", len(result.Leagues))
	}
	if result.Leagues[0].ProviderLeagueID != "L1" || result.Leagues[1].ProviderLeagueID != "L2" {
		t.Fatalf("outcomes not ordered by provider league id: %+v", result.Leagues)
	}
	if result.Leagues[1].Status != importrun.LeagueStatusFailed || result.Leagues[1].Error == "" {
		t.Fatalf("failed league outcome missing error detail: %+v", result.Leagues[1])
	}

	if _, ok := store.LeagueByProviderKey(provider.Sleeper, "L1", "user-1"); !ok {
		t.Fatalf("healthy league was not persisted")
	}
	if _, ok := store.LeagueByProviderKey(provider.Sleeper, "L2", "user-1"); ok {
		t.Fatalf("failed league must not be persisted")
	}

	ledger := store.RunLedger()
	if len(ledger) != 1 || ledger[0].Success {
		t.Fatalf("expected one failed ledger record, got %+v", ledger)
	}
	if len(ledger[0].Results) != 2 {
		t.Fatalf("ledger record missing league outcomes: %+v", ledger[0])
	}
}

func TestImportService_WorkerCountIsBounded(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	adapter := &stubAdapter{
		leagues: []usecase.NormalizedLeague{
			testLeague("L1", "One", testTeam("1", "A")),
			testLeague("L2", "Two", testTeam("1", "B")),
		},
	}
	svc := newImportService(store, adapter, nil)

	result, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{
		UserID:      "user-1",
		Provider:    "sleeper",
		Credentials: connection.Credentials{ProviderUserID: "sl-123"},
		MaxWorkers:  16,
	})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.WorkerCount != 2 {
		t.Fatalf("worker count must be capped at the league count, got %d", result.WorkerCount)
	}
}

func TestImportService_RejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := newImportService(store, &stubAdapter{}, nil)

	_, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{UserID: "user-1", Provider: "myspace"})
	if !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestImportService_RejectsUnregisteredProvider(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := newImportService(store, &stubAdapter{}, nil)

	_, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{UserID: "user-1", Provider: "espn"})
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestImportService_RejectsMissingUserID(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := newImportService(store, &stubAdapter{}, nil)

	_, err := svc.ImportLeagues(t.Context(), usecase.ImportInput{Provider: "sleeper"})
	if !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func seedConnection(t *testing.T, store *memory.Store, userID string, status connection.Status) {
	t.Helper()

	_, err := store.Connections().Upsert(t.Context(), connection.Connection{
		ID:          "conn-" + userID,
		UserID:      userID,
		Provider:    provider.Sleeper,
		Credentials: connection.Credentials{ProviderUserID: "sl-123"},
		Status:      status,
	})
	if err != nil {
		t.Fatalf("seed connection: %v", err)
	}
}
