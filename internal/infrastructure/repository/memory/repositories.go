package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/domain/importrun"
	"github.com/rostermesh/leaguesync/internal/domain/league"
	"github.com/rostermesh/leaguesync/internal/domain/player"
	"github.com/rostermesh/leaguesync/internal/domain/playermap"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	"github.com/rostermesh/leaguesync/internal/domain/team"
)

type ConnectionRepository struct {
	store *Store
}

func (r *ConnectionRepository) GetByUserProvider(_ context.Context, userID string, p provider.Provider) (connection.Connection, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	conn, ok := r.store.connections[connectionKey(userID, p)]
	return conn, ok, nil
}

func (r *ConnectionRepository) Upsert(_ context.Context, conn connection.Connection) (connection.Connection, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	key := connectionKey(conn.UserID, conn.Provider)
	if existing, ok := r.store.connections[key]; ok {
		conn.ID = existing.ID
		conn.CreatedAt = existing.CreatedAt
		conn.LastSyncedAt = existing.LastSyncedAt
	} else if conn.CreatedAt.IsZero() {
		conn.CreatedAt = time.Now().UTC()
	}
	conn.UpdatedAt = time.Now().UTC()

	r.store.connections[key] = conn
	return conn, nil
}

func (r *ConnectionRepository) SetStatus(_ context.Context, connID string, status connection.Status) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for key, conn := range r.store.connections {
		if conn.ID == connID {
			conn.Status = status
			conn.UpdatedAt = time.Now().UTC()
			r.store.connections[key] = conn
			return nil
		}
	}
	return nil
}

func (r *ConnectionRepository) TouchLastSynced(_ context.Context, connID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := time.Now().UTC()
	for key, conn := range r.store.connections {
		if conn.ID == connID {
			conn.LastSyncedAt = &now
			conn.UpdatedAt = now
			r.store.connections[key] = conn
			return nil
		}
	}
	return nil
}

type LeagueRepository struct {
	store *Store
}

func (r *LeagueRepository) GetByID(_ context.Context, leagueID string) (league.League, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	l, ok := r.store.leagues[leagueID]
	return l, ok, nil
}

func (r *LeagueRepository) ListByUser(_ context.Context, userID string) ([]league.League, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]league.League, 0)
	for _, l := range r.store.leagues {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type TeamRepository struct {
	store *Store
}

func (r *TeamRepository) ListByLeague(_ context.Context, leagueID string) ([]team.Team, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]team.Team, 0)
	for _, t := range r.store.teams {
		if t.LeagueID == leagueID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type PlayerRepository struct {
	store *Store
}

func (r *PlayerRepository) FindByNames(_ context.Context, names []string) ([]player.Player, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]player.Player, 0)
	for _, p := range r.store.players {
		for _, name := range names {
			if p.MatchesName(strings.TrimSpace(name)) {
				out = append(out, p)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type PlayerMappingRepository struct {
	store *Store
}

func (r *PlayerMappingRepository) ListByProviderPlayerIDs(_ context.Context, p provider.Provider, providerPlayerIDs []string) ([]playermap.Mapping, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]playermap.Mapping, 0)
	for _, id := range providerPlayerIDs {
		if m, ok := r.store.mappings[mappingKey(p, id)]; ok {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ProviderPlayerID < out[j].ProviderPlayerID })
	return out, nil
}

type ImportRunRepository struct {
	store *Store
}

func (r *ImportRunRepository) Insert(_ context.Context, run importrun.Run) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.runs = append(r.store.runs, run)
	return nil
}

func (r *ImportRunRepository) ListByUser(_ context.Context, userID string, limit int) ([]importrun.Run, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]importrun.Run, 0)
	for i := len(r.store.runs) - 1; i >= 0; i-- {
		if r.store.runs[i].UserID != userID {
			continue
		}
		out = append(out, r.store.runs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
