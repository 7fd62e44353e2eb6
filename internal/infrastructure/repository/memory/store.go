package memory

import (
	"sync"

	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/domain/importrun"
	"github.com/rostermesh/leaguesync/internal/domain/league"
	"github.com/rostermesh/leaguesync/internal/domain/player"
	"github.com/rostermesh/leaguesync/internal/domain/playermap"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	"github.com/rostermesh/leaguesync/internal/domain/team"
)

// Store is an in-memory backing store for every repository the sync engine
// needs. It serves tests and local development without postgres; per-entity
// repository views hang off it so interface method sets stay separate.
type Store struct {
	mu sync.RWMutex

	connections map[string]connection.Connection
	leagues     map[string]league.League
	leagueIDs   map[string]string
	teams       map[string]team.Team
	teamIDs     map[string]string
	players     map[string]player.Player
	mappings    map[string]playermap.Mapping
	runs        []importrun.Run
}

func NewStore() *Store {
	return &Store{
		connections: make(map[string]connection.Connection),
		leagues:     make(map[string]league.League),
		leagueIDs:   make(map[string]string),
		teams:       make(map[string]team.Team),
		teamIDs:     make(map[string]string),
		players:     make(map[string]player.Player),
		mappings:    make(map[string]playermap.Mapping),
	}
}

func (s *Store) Connections() *ConnectionRepository {
	return &ConnectionRepository{store: s}
}

func (s *Store) Leagues() *LeagueRepository {
	return &LeagueRepository{store: s}
}

func (s *Store) Teams() *TeamRepository {
	return &TeamRepository{store: s}
}

func (s *Store) Players() *PlayerRepository {
	return &PlayerRepository{store: s}
}

func (s *Store) Mappings() *PlayerMappingRepository {
	return &PlayerMappingRepository{store: s}
}

func (s *Store) ImportRuns() *ImportRunRepository {
	return &ImportRunRepository{store: s}
}

// AddPlayers seeds the canonical player catalog.
func (s *Store) AddPlayers(players ...player.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range players {
		s.players[p.ID] = p
	}
}

// AddMappings seeds existing player mappings.
func (s *Store) AddMappings(mappings ...playermap.Mapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range mappings {
		s.mappings[mappingKey(m.Provider, m.ProviderPlayerID)] = m
	}
}

// Mapping returns the stored mapping for one provider player id.
func (s *Store) Mapping(p provider.Provider, providerPlayerID string) (playermap.Mapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[mappingKey(p, providerPlayerID)]
	return m, ok
}

// LeagueByProviderKey returns the stored league for one provider league key.
func (s *Store) LeagueByProviderKey(p provider.Provider, providerLeagueID, userID string) (league.League, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.leagueIDs[leagueKey(p, providerLeagueID, userID)]
	if !ok {
		return league.League{}, false
	}
	l, ok := s.leagues[id]
	return l, ok
}

// RunLedger returns a copy of the run ledger in insertion order.
func (s *Store) RunLedger() []importrun.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]importrun.Run(nil), s.runs...)
}

func connectionKey(userID string, p provider.Provider) string {
	return userID + "|" + p.String()
}

func leagueKey(p provider.Provider, providerLeagueID, userID string) string {
	return p.String() + "|" + providerLeagueID + "|" + userID
}

func teamKey(leagueID, providerTeamID string) string {
	return leagueID + "|" + providerTeamID
}

func mappingKey(p provider.Provider, providerPlayerID string) string {
	return p.String() + "|" + providerPlayerID
}
