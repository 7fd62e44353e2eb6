package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/rostermesh/leaguesync/internal/domain/league"
	"github.com/rostermesh/leaguesync/internal/domain/playermap"
	"github.com/rostermesh/leaguesync/internal/domain/team"
	"github.com/rostermesh/leaguesync/internal/usecase"
)

// SyncStore implements the sync unit of work on top of Store. Writes are
// staged on the transaction and applied together on Commit, so a rolled
// back league leaves the store untouched.
type SyncStore struct {
	store *Store
}

func (s *Store) Sync() *SyncStore {
	return &SyncStore{store: s}
}

func (s *SyncStore) Begin(_ context.Context) (usecase.SyncTx, error) {
	return &syncTx{store: s.store}, nil
}

type syncTx struct {
	store *Store
	done  bool
	ops   []func(*Store)
}

func (t *syncTx) UpsertLeague(_ context.Context, l league.League) (league.League, error) {
	if t.done {
		return league.League{}, fmt.Errorf("sync tx is closed")
	}

	key := leagueKey(l.Provider, l.ProviderLeagueID, l.UserID)

	t.store.mu.RLock()
	if existingID, ok := t.store.leagueIDs[key]; ok {
		l.ID = existingID
		if existing, found := t.store.leagues[existingID]; found {
			l.CreatedAt = existing.CreatedAt
		}
	}
	t.store.mu.RUnlock()

	saved := l
	t.ops = append(t.ops, func(s *Store) {
		now := time.Now().UTC()
		stored := saved
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		stored.LastSyncedAt = &now
		s.leagueIDs[key] = stored.ID
		s.leagues[stored.ID] = stored
	})

	return saved, nil
}

func (t *syncTx) ExistingTeamIDs(_ context.Context, leagueID string, providerTeamIDs []string) (map[string]string, error) {
	if t.done {
		return nil, fmt.Errorf("sync tx is closed")
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	out := make(map[string]string, len(providerTeamIDs))
	for _, providerTeamID := range providerTeamIDs {
		if id, ok := t.store.teamIDs[teamKey(leagueID, providerTeamID)]; ok {
			out[providerTeamID] = id
		}
	}
	return out, nil
}

func (t *syncTx) InsertTeams(_ context.Context, teams []team.Team) error {
	if t.done {
		return fmt.Errorf("sync tx is closed")
	}

	staged := append([]team.Team(nil), teams...)
	t.ops = append(t.ops, func(s *Store) {
		now := time.Now().UTC()
		for _, item := range staged {
			item.CreatedAt = now
			item.UpdatedAt = now
			s.teamIDs[teamKey(item.LeagueID, item.ProviderTeamID)] = item.ID
			s.teams[item.ID] = item
		}
	})
	return nil
}

func (t *syncTx) UpdateTeam(_ context.Context, item team.Team) error {
	if t.done {
		return fmt.Errorf("sync tx is closed")
	}

	t.ops = append(t.ops, func(s *Store) {
		existing, ok := s.teams[item.ID]
		if !ok {
			return
		}
		item.CreatedAt = existing.CreatedAt
		item.UpdatedAt = time.Now().UTC()
		s.teams[item.ID] = item
	})
	return nil
}

func (t *syncTx) InsertMappings(_ context.Context, mappings []playermap.Mapping) error {
	if t.done {
		return fmt.Errorf("sync tx is closed")
	}

	staged := append([]playermap.Mapping(nil), mappings...)
	t.ops = append(t.ops, func(s *Store) {
		now := time.Now().UTC()
		for _, m := range staged {
			key := mappingKey(m.Provider, m.ProviderPlayerID)
			if existing, ok := s.mappings[key]; ok && existing.Confidence >= m.Confidence {
				continue
			}
			m.CreatedAt = now
			m.UpdatedAt = now
			s.mappings[key] = m
		}
	})
	return nil
}

func (t *syncTx) UpdateMapping(_ context.Context, m playermap.Mapping) error {
	if t.done {
		return fmt.Errorf("sync tx is closed")
	}

	t.ops = append(t.ops, func(s *Store) {
		key := mappingKey(m.Provider, m.ProviderPlayerID)
		existing, ok := s.mappings[key]
		if !ok || existing.Confidence >= m.Confidence {
			return
		}
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
		m.UpdatedAt = time.Now().UTC()
		s.mappings[key] = m
	})
	return nil
}

func (t *syncTx) Commit() error {
	if t.done {
		return fmt.Errorf("sync tx is closed")
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, op := range t.ops {
		op(t.store)
	}
	t.ops = nil
	return nil
}

func (t *syncTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.ops = nil
	return nil
}
