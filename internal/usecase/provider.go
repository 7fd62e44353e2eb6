package usecase

import (
	"context"

	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
)

// NormalizedPlayer is one rostered player in provider-neutral shape.
type NormalizedPlayer struct {
	ProviderPlayerID string `validate:"required"`
	Name             string `validate:"required"`
	Team             string
	Position         string
	JerseyNumber     *int
	Slot             string
}

// NormalizedStandings carries the team record as reported by the provider.
type NormalizedStandings struct {
	Wins          int
	Losses        int
	Ties          int
	Rank          int
	PointsFor     float64
	PointsAgainst float64
}

// NormalizedTeam is one fantasy team in provider-neutral shape.
type NormalizedTeam struct {
	ProviderTeamID string `validate:"required"`
	OwnerID        string
	Name           string `validate:"required"`
	Roster         []NormalizedPlayer `validate:"dive"`
	Standings      NormalizedStandings
	Stats          map[string]any
}

// NormalizedLeague is one league in provider-neutral shape. Adapters must
// return complete leagues: teams and rosters included.
type NormalizedLeague struct {
	ProviderLeagueID string `validate:"required"`
	Name             string `validate:"required"`
	Season           string `validate:"required"`
	Sport            string `validate:"required,oneof=football baseball basketball hockey"`
	Settings         map[string]any
	Teams            []NormalizedTeam `validate:"dive"`
}

// ProviderAdapter fetches everything the engine needs for one user from one
// provider. Implementations translate provider payloads and auth schemes into
// the normalized shape; they must return ErrReauthRequired when the provider
// rejects the stored credentials and ErrConnectionFailed when it is
// unreachable.
type ProviderAdapter interface {
	FetchUserLeagues(ctx context.Context, conn connection.Connection) ([]NormalizedLeague, error)
}

// AdapterRegistry holds one adapter per supported provider.
type AdapterRegistry struct {
	adapters map[provider.Provider]ProviderAdapter
}

func NewAdapterRegistry(adapters map[provider.Provider]ProviderAdapter) *AdapterRegistry {
	registry := &AdapterRegistry{adapters: make(map[provider.Provider]ProviderAdapter, len(adapters))}
	for p, adapter := range adapters {
		if adapter == nil {
			continue
		}
		registry.adapters[p] = adapter
	}
	return registry
}

func (r *AdapterRegistry) Lookup(p provider.Provider) (ProviderAdapter, bool) {
	adapter, ok := r.adapters[p]
	return adapter, ok
}
