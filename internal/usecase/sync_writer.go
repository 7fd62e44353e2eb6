package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/rostermesh/leaguesync/internal/domain/league"
	"github.com/rostermesh/leaguesync/internal/domain/playermap"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	"github.com/rostermesh/leaguesync/internal/domain/team"
	"github.com/rostermesh/leaguesync/internal/platform/id"
	"github.com/rostermesh/leaguesync/internal/platform/logging"
)

// SyncTx is one transaction scoped to a single league import. Either every
// write in it lands or none do.
type SyncTx interface {
	UpsertLeague(ctx context.Context, l league.League) (league.League, error)
	ExistingTeamIDs(ctx context.Context, leagueID string, providerTeamIDs []string) (map[string]string, error)
	InsertTeams(ctx context.Context, teams []team.Team) error
	UpdateTeam(ctx context.Context, t team.Team) error
	InsertMappings(ctx context.Context, mappings []playermap.Mapping) error
	UpdateMapping(ctx context.Context, m playermap.Mapping) error
	Commit() error
	Rollback() error
}

// SyncStore opens sync transactions.
type SyncStore interface {
	Begin(ctx context.Context) (SyncTx, error)
}

// PersistedLeague summarizes what one committed transaction wrote.
type PersistedLeague struct {
	LeagueID        string
	TeamsImported   int
	MappingsWritten int
}

// BatchWriter persists one normalized league inside a single transaction.
// It partitions teams into creates and updates up front so inserts go out
// as one multi-row statement instead of a statement per team.
type BatchWriter struct {
	store  SyncStore
	idgen  id.Generator
	logger *logging.Logger
}

func NewBatchWriter(store SyncStore, idgen id.Generator, logger *logging.Logger) *BatchWriter {
	if idgen == nil {
		idgen = id.NewRandomGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &BatchWriter{
		store:  store,
		idgen:  idgen,
		logger: logger,
	}
}

func (w *BatchWriter) PersistLeague(ctx context.Context, userID string, p provider.Provider, nl NormalizedLeague, res Resolution) (PersistedLeague, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BatchWriter.PersistLeague")
	defer span.End()

	tx, err := w.store.Begin(ctx)
	if err != nil {
		return PersistedLeague{}, fmt.Errorf("begin sync transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	leagueID, err := w.idgen.NewID()
	if err != nil {
		return PersistedLeague{}, fmt.Errorf("generate league id: %w", err)
	}

	candidate := league.League{
		ID:               leagueID,
		UserID:           userID,
		Provider:         p,
		ProviderLeagueID: nl.ProviderLeagueID,
		Name:             nl.Name,
		Season:           nl.Season,
		Sport:            league.Sport(nl.Sport),
		Settings:         nl.Settings,
	}
	if err := candidate.Validate(); err != nil {
		return PersistedLeague{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	saved, err := tx.UpsertLeague(ctx, candidate)
	if err != nil {
		return PersistedLeague{}, fmt.Errorf("upsert league %s: %w", nl.ProviderLeagueID, err)
	}

	creates, updates, err := w.partitionTeams(ctx, tx, saved.ID, nl.Teams)
	if err != nil {
		return PersistedLeague{}, err
	}

	if len(creates) > 0 {
		if err := tx.InsertTeams(ctx, creates); err != nil {
			return PersistedLeague{}, fmt.Errorf("insert teams: %w", err)
		}
	}
	for _, t := range updates {
		if err := tx.UpdateTeam(ctx, t); err != nil {
			return PersistedLeague{}, fmt.Errorf("update team %s: %w", t.ProviderTeamID, err)
		}
	}

	inserts, err := w.assignMappingIDs(res.Inserts)
	if err != nil {
		return PersistedLeague{}, err
	}
	if len(inserts) > 0 {
		if err := tx.InsertMappings(ctx, inserts); err != nil {
			return PersistedLeague{}, fmt.Errorf("insert player mappings: %w", err)
		}
	}
	for _, m := range res.Updates {
		if err := tx.UpdateMapping(ctx, m); err != nil {
			return PersistedLeague{}, fmt.Errorf("update player mapping %s: %w", m.ProviderPlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return PersistedLeague{}, fmt.Errorf("commit league %s: %w", nl.ProviderLeagueID, err)
	}

	return PersistedLeague{
		LeagueID:        saved.ID,
		TeamsImported:   len(creates) + len(updates),
		MappingsWritten: len(inserts) + len(res.Updates),
	}, nil
}

func (w *BatchWriter) partitionTeams(ctx context.Context, tx SyncTx, leagueID string, teams []NormalizedTeam) ([]team.Team, []team.Team, error) {
	if len(teams) == 0 {
		return nil, nil, nil
	}

	providerTeamIDs := make([]string, 0, len(teams))
	for _, nt := range teams {
		providerTeamIDs = append(providerTeamIDs, nt.ProviderTeamID)
	}

	existing, err := tx.ExistingTeamIDs(ctx, leagueID, providerTeamIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("list existing teams: %w", err)
	}

	creates := make([]team.Team, 0, len(teams))
	updates := make([]team.Team, 0, len(teams))
	seen := make(map[string]struct{}, len(teams))
	for _, nt := range teams {
		if _, dup := seen[nt.ProviderTeamID]; dup {
			continue
		}
		seen[nt.ProviderTeamID] = struct{}{}

		built := buildTeam(leagueID, nt)
		if err := built.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}

		if teamID, ok := existing[nt.ProviderTeamID]; ok {
			built.ID = teamID
			updates = append(updates, built)
			continue
		}

		teamID, err := w.idgen.NewID()
		if err != nil {
			return nil, nil, fmt.Errorf("generate team id: %w", err)
		}
		built.ID = teamID
		creates = append(creates, built)
	}

	sort.SliceStable(creates, func(i, j int) bool { return creates[i].ProviderTeamID < creates[j].ProviderTeamID })
	sort.SliceStable(updates, func(i, j int) bool { return updates[i].ProviderTeamID < updates[j].ProviderTeamID })

	return creates, updates, nil
}

func (w *BatchWriter) assignMappingIDs(mappings []playermap.Mapping) ([]playermap.Mapping, error) {
	if len(mappings) == 0 {
		return nil, nil
	}

	assigned := make([]playermap.Mapping, 0, len(mappings))
	for _, m := range mappings {
		mappingID, err := w.idgen.NewID()
		if err != nil {
			return nil, fmt.Errorf("generate mapping id: %w", err)
		}
		m.ID = mappingID
		assigned = append(assigned, m)
	}
	return assigned, nil
}

func buildTeam(leagueID string, nt NormalizedTeam) team.Team {
	roster := make([]team.RosterEntry, 0, len(nt.Roster))
	for _, np := range nt.Roster {
		roster = append(roster, team.RosterEntry{
			ProviderPlayerID: np.ProviderPlayerID,
			Name:             np.Name,
			Team:             np.Team,
			Position:         np.Position,
			JerseyNumber:     np.JerseyNumber,
			Slot:             np.Slot,
		})
	}

	return team.Team{
		LeagueID:       leagueID,
		ProviderTeamID: nt.ProviderTeamID,
		OwnerID:        nt.OwnerID,
		Name:           nt.Name,
		Roster:         roster,
		Standings: team.Standings{
			Wins:          nt.Standings.Wins,
			Losses:        nt.Standings.Losses,
			Ties:          nt.Standings.Ties,
			Rank:          nt.Standings.Rank,
			PointsFor:     nt.Standings.PointsFor,
			PointsAgainst: nt.Standings.PointsAgainst,
		},
		Stats: nt.Stats,
	}
}
