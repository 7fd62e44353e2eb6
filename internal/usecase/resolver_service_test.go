package usecase_test

import (
	"errors"
	"math"
	"testing"

	"github.com/rostermesh/leaguesync/internal/domain/player"
	"github.com/rostermesh/leaguesync/internal/domain/playermap"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	"github.com/rostermesh/leaguesync/internal/infrastructure/repository/memory"
	"github.com/rostermesh/leaguesync/internal/usecase"
)

func intPtr(v int) *int {
	return &v
}

func newResolver(store *memory.Store) *usecase.ResolverService {
	return usecase.NewResolverService(store.Players(), store.Mappings(), nil)
}

func TestResolverService_FullSignalMatchIsVerified(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddPlayers(player.Player{
		ID:           "cat-mahomes",
		FirstName:    "Patrick",
		LastName:     "Mahomes",
		FullName:     "Patrick Mahomes",
		Positions:    []string{"QB"},
		CurrentTeam:  "Kansas City Chiefs",
		JerseyNumber: intPtr(15),
	})

	res, err := newResolver(store).ResolveLeaguePlayers(t.Context(), provider.Sleeper, []usecase.NormalizedPlayer{
		{
			ProviderPlayerID: "4046",
			Name:             "Patrick Mahomes",
			Team:             "Kansas City",
			Position:         "QB",
			JerseyNumber:     intPtr(15),
		},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(res.Inserts) != 1 {
		t.Fatalf("expected one insert, got %d", len(res.Inserts))
	}
	mapping := res.Inserts[0]
	if mapping.PlayerID != "cat-mahomes" {
		t.Fatalf("unexpected catalog player: %s", mapping.PlayerID)
	}
	if math.Abs(mapping.Confidence-1.0) > 1e-9 {
		t.Fatalf("expected confidence 1.0, got %v", mapping.Confidence)
	}
	if !mapping.Verified {
		t.Fatalf("expected verified mapping at confidence %v", mapping.Confidence)
	}
	if res.Mapped != 1 || res.Unmatched != 0 {
		t.Fatalf("unexpected counters mapped=%d unmatched=%d", res.Mapped, res.Unmatched)
	}
}

func TestResolverService_ScoreAtThresholdStaysUnmatched(t *testing.T) {
	t.Parallel()

	// Team and position agree (0.3 + 0.2) but the first token of the roster
	// name differs from the catalog first name, so the score sits exactly on
	// the threshold and must not map.
	store := memory.NewStore()
	store.AddPlayers(player.Player{
		ID:             "cat-mahomes",
		FirstName:      "Patrick",
		FullName:       "Patrick Mahomes",
		AlternateNames: []string{"Pat Mahomes"},
		Positions:      []string{"QB"},
		CurrentTeam:    "Kansas City Chiefs",
	})

	res, err := newResolver(store).ResolveLeaguePlayers(t.Context(), provider.Sleeper, []usecase.NormalizedPlayer{
		{
			ProviderPlayerID: "4046",
			Name:             "Pat Mahomes",
			Team:             "Kansas City",
			Position:         "QB",
		},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(res.Inserts) != 0 || len(res.Updates) != 0 {
		t.Fatalf("expected empty write set, got %d inserts %d updates", len(res.Inserts), len(res.Updates))
	}
	if res.Unmatched != 1 {
		t.Fatalf("expected one unmatched player, got %d", res.Unmatched)
	}
}

func TestResolverService_TieBreaksOnSmallestCatalogID(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddPlayers(
		player.Player{ID: "cat-200", FirstName: "Chris", FullName: "Chris Jones", Positions: []string{"DT"}},
		player.Player{ID: "cat-100", FirstName: "Chris", FullName: "Chris Jones", Positions: []string{"DT"}},
	)

	res, err := newResolver(store).ResolveLeaguePlayers(t.Context(), provider.ESPN, []usecase.NormalizedPlayer{
		{ProviderPlayerID: "9", Name: "Chris Jones", Position: "DT"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(res.Inserts) != 1 {
		t.Fatalf("expected one insert, got %d", len(res.Inserts))
	}
	if res.Inserts[0].PlayerID != "cat-100" {
		t.Fatalf("tie should pick smallest catalog id, got %s", res.Inserts[0].PlayerID)
	}
	if res.Inserts[0].Verified {
		t.Fatalf("confidence %v must not be verified", res.Inserts[0].Confidence)
	}
}

func TestResolverService_TeamSignalDisambiguatesSameName(t *testing.T) {
	t.Parallel()

	// Two catalog players share a name. The one whose current team matches
	// the roster team must win, even though the other would win a tie break
	// on catalog id.
	store := memory.NewStore()
	store.AddPlayers(
		player.Player{
			ID:          "cat-aaa",
			FirstName:   "Mike",
			FullName:    "Mike Williams",
			Positions:   []string{"WR"},
			CurrentTeam: "NYJ Jets",
		},
		player.Player{
			ID:          "cat-zzz",
			FirstName:   "Mike",
			FullName:    "Mike Williams",
			Positions:   []string{"WR"},
			CurrentTeam: "LAC Chargers",
		},
	)

	res, err := newResolver(store).ResolveLeaguePlayers(t.Context(), provider.Sleeper, []usecase.NormalizedPlayer{
		{ProviderPlayerID: "7", Name: "Mike Williams", Team: "LAC", Position: "WR"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(res.Inserts) != 1 {
		t.Fatalf("expected one insert, got %d", len(res.Inserts))
	}
	if res.Inserts[0].PlayerID != "cat-zzz" {
		t.Fatalf("team signal should pick the LAC player, got %s", res.Inserts[0].PlayerID)
	}
	if math.Abs(res.Inserts[0].Confidence-0.9) > 1e-9 {
		t.Fatalf("expected confidence 0.9, got %v", res.Inserts[0].Confidence)
	}
}

func TestResolverService_MoreSignalsNeverLowerScore(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddPlayers(player.Player{
		ID:           "cat-mahomes",
		FirstName:    "Patrick",
		FullName:     "Patrick Mahomes",
		Positions:    []string{"QB"},
		CurrentTeam:  "Kansas City Chiefs",
		JerseyNumber: intPtr(15),
	})
	resolver := newResolver(store)

	// Name alone sits below the threshold; every superset of signals must
	// score at least as high as the roster it extends.
	nameOnly, err := resolver.ResolveLeaguePlayers(t.Context(), provider.Sleeper, []usecase.NormalizedPlayer{
		{ProviderPlayerID: "4046", Name: "Patrick Mahomes"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(nameOnly.Inserts) != 0 || nameOnly.Unmatched != 1 {
		t.Fatalf("name-only signal must stay unmatched, got %+v", nameOnly)
	}

	rosters := [][]usecase.NormalizedPlayer{
		{{ProviderPlayerID: "4046", Name: "Patrick Mahomes", Team: "Kansas City"}},
		{{ProviderPlayerID: "4046", Name: "Patrick Mahomes", Team: "Kansas City", Position: "QB"}},
		{{ProviderPlayerID: "4046", Name: "Patrick Mahomes", Team: "Kansas City", Position: "QB", JerseyNumber: intPtr(15)}},
	}

	previous := 0.0
	for i, roster := range rosters {
		res, err := resolver.ResolveLeaguePlayers(t.Context(), provider.Sleeper, roster)
		if err != nil {
			t.Fatalf("resolve %d failed: %v", i, err)
		}
		if len(res.Inserts) != 1 {
			t.Fatalf("resolve %d: expected one insert, got %d", i, len(res.Inserts))
		}
		score := res.Inserts[0].Confidence
		if score < previous {
			t.Fatalf("resolve %d: score %v dropped below %v after adding a signal", i, score, previous)
		}
		previous = score
	}
	if math.Abs(previous-1.0) > 1e-9 {
		t.Fatalf("all signals agreeing should score 1.0, got %v", previous)
	}
}

func TestResolverService_BatchMatchesIndividualResolution(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddPlayers(
		player.Player{ID: "cat-allen", FirstName: "Josh", FullName: "Josh Allen", Positions: []string{"QB"}, CurrentTeam: "Buffalo Bills"},
		player.Player{ID: "cat-kelce", FirstName: "Travis", FullName: "Travis Kelce", Positions: []string{"TE"}, CurrentTeam: "Kansas City Chiefs"},
		player.Player{ID: "cat-jones", FirstName: "Chris", FullName: "Chris Jones", Positions: []string{"DT"}},
	)
	resolver := newResolver(store)

	roster := []usecase.NormalizedPlayer{
		{ProviderPlayerID: "p1", Name: "Josh Allen", Team: "Buffalo", Position: "QB"},
		{ProviderPlayerID: "p2", Name: "Travis Kelce", Team: "Kansas City", Position: "TE"},
		{ProviderPlayerID: "p3", Name: "Chris Jones", Position: "DT"},
	}

	batch, err := resolver.ResolveLeaguePlayers(t.Context(), provider.Sleeper, roster)
	if err != nil {
		t.Fatalf("batch resolve failed: %v", err)
	}
	if len(batch.Inserts) != 3 {
		t.Fatalf("expected three inserts from batch, got %d", len(batch.Inserts))
	}
	batched := make(map[string]playermap.Mapping, len(batch.Inserts))
	for _, m := range batch.Inserts {
		batched[m.ProviderPlayerID] = m
	}

	for _, np := range roster {
		single, err := resolver.ResolveLeaguePlayers(t.Context(), provider.Sleeper, []usecase.NormalizedPlayer{np})
		if err != nil {
			t.Fatalf("single resolve %s failed: %v", np.ProviderPlayerID, err)
		}
		if len(single.Inserts) != 1 {
			t.Fatalf("single resolve %s: expected one insert, got %d", np.ProviderPlayerID, len(single.Inserts))
		}
		want := batched[np.ProviderPlayerID]
		got := single.Inserts[0]
		if got.PlayerID != want.PlayerID || got.Confidence != want.Confidence || got.Verified != want.Verified {
			t.Fatalf("single resolve %s diverged from batch: got %+v, want %+v", np.ProviderPlayerID, got, want)
		}
	}
}

func TestResolverService_ConfidenceNeverDegrades(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddPlayers(player.Player{
		ID:        "cat-jones",
		FirstName: "Chris",
		FullName:  "Chris Jones",
		Positions: []string{"DT"},
	})
	store.AddMappings(playermap.Mapping{
		ID:               "map-1",
		Provider:         provider.ESPN,
		ProviderPlayerID: "9",
		PlayerID:         "cat-jones",
		Confidence:       0.9,
		Verified:         false,
	})

	// New score would be 0.6; the stored 0.9 wins.
	res, err := newResolver(store).ResolveLeaguePlayers(t.Context(), provider.ESPN, []usecase.NormalizedPlayer{
		{ProviderPlayerID: "9", Name: "Chris Jones", Position: "DT"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(res.Inserts) != 0 || len(res.Updates) != 0 {
		t.Fatalf("expected empty write set, got %d inserts %d updates", len(res.Inserts), len(res.Updates))
	}
	if res.Mapped != 1 {
		t.Fatalf("already-mapped player should count as mapped, got %d", res.Mapped)
	}
}

func TestResolverService_RepeatedResolveProducesEmptyWriteSet(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddPlayers(player.Player{
		ID:           "cat-mahomes",
		FirstName:    "Patrick",
		FullName:     "Patrick Mahomes",
		Positions:    []string{"QB"},
		CurrentTeam:  "Kansas City Chiefs",
		JerseyNumber: intPtr(15),
	})

	roster := []usecase.NormalizedPlayer{
		{ProviderPlayerID: "4046", Name: "Patrick Mahomes", Team: "Kansas City", Position: "QB", JerseyNumber: intPtr(15)},
	}
	resolver := newResolver(store)

	first, err := resolver.ResolveLeaguePlayers(t.Context(), provider.Sleeper, roster)
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if len(first.Inserts) != 1 {
		t.Fatalf("expected one insert on first pass, got %d", len(first.Inserts))
	}
	store.AddMappings(first.Inserts[0])

	second, err := resolver.ResolveLeaguePlayers(t.Context(), provider.Sleeper, roster)
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if len(second.Inserts) != 0 || len(second.Updates) != 0 {
		t.Fatalf("re-resolve over unchanged data must be empty, got %d inserts %d updates",
			len(second.Inserts), len(second.Updates))
	}
	if second.Mapped != 1 {
		t.Fatalf("expected player to stay mapped, got %d", second.Mapped)
	}
}

func TestResolverService_HigherScoreRefreshesMapping(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddPlayers(player.Player{
		ID:           "cat-mahomes",
		FirstName:    "Patrick",
		FullName:     "Patrick Mahomes",
		Positions:    []string{"QB"},
		CurrentTeam:  "Kansas City Chiefs",
		JerseyNumber: intPtr(15),
	})
	store.AddMappings(playermap.Mapping{
		ID:               "map-1",
		Provider:         provider.Sleeper,
		ProviderPlayerID: "4046",
		PlayerID:         "cat-mahomes",
		Confidence:       0.6,
	})

	res, err := newResolver(store).ResolveLeaguePlayers(t.Context(), provider.Sleeper, []usecase.NormalizedPlayer{
		{ProviderPlayerID: "4046", Name: "Patrick Mahomes", Team: "Kansas City", Position: "QB", JerseyNumber: intPtr(15)},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(res.Updates) != 1 {
		t.Fatalf("expected one update, got %d", len(res.Updates))
	}
	updated := res.Updates[0]
	if updated.ID != "map-1" {
		t.Fatalf("update must keep the stored mapping id, got %s", updated.ID)
	}
	if updated.Confidence <= 0.6 {
		t.Fatalf("expected refreshed confidence above 0.6, got %v", updated.Confidence)
	}
	if !updated.Verified {
		t.Fatalf("expected verified mapping at confidence %v", updated.Confidence)
	}
}

func TestResolverService_WriteSetOrderedByProviderPlayerID(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddPlayers(
		player.Player{ID: "cat-a", FirstName: "Josh", FullName: "Josh Allen", Positions: []string{"QB"}},
		player.Player{ID: "cat-b", FirstName: "Travis", FullName: "Travis Kelce", Positions: []string{"TE"}},
	)

	res, err := newResolver(store).ResolveLeaguePlayers(t.Context(), provider.Yahoo, []usecase.NormalizedPlayer{
		{ProviderPlayerID: "zz-9", Name: "Travis Kelce", Position: "TE"},
		{ProviderPlayerID: "aa-1", Name: "Josh Allen", Position: "QB"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(res.Inserts) != 2 {
		t.Fatalf("expected two inserts, got %d", len(res.Inserts))
	}
	if res.Inserts[0].ProviderPlayerID != "aa-1" || res.Inserts[1].ProviderPlayerID != "zz-9" {
		t.Fatalf("inserts not ordered by provider player id: %s, %s",
			res.Inserts[0].ProviderPlayerID, res.Inserts[1].ProviderPlayerID)
	}
}

func TestResolverService_UnknownNameStaysUnmatched(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	res, err := newResolver(store).ResolveLeaguePlayers(t.Context(), provider.Sleeper, []usecase.NormalizedPlayer{
		{ProviderPlayerID: "1", Name: "Totally Unknown"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if res.Unmatched != 1 || res.Mapped != 0 {
		t.Fatalf("unexpected counters mapped=%d unmatched=%d", res.Mapped, res.Unmatched)
	}
}

func TestResolverService_RejectsInvalidProvider(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	_, err := newResolver(store).ResolveLeaguePlayers(t.Context(), provider.Provider("myspace"), []usecase.NormalizedPlayer{
		{ProviderPlayerID: "1", Name: "Someone"},
	})
	if !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
