package team

import (
	"fmt"
	"time"
)

// RosterEntry is one rostered player as reported by the provider. It keeps
// the provider player id so the slot can be joined against player mappings.
type RosterEntry struct {
	ProviderPlayerID string `json:"provider_player_id"`
	Name             string `json:"name"`
	Team             string `json:"team,omitempty"`
	Position         string `json:"position,omitempty"`
	JerseyNumber     *int   `json:"jersey_number,omitempty"`
	Slot             string `json:"slot,omitempty"`
}

type Standings struct {
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Ties          int     `json:"ties"`
	Rank          int     `json:"rank"`
	PointsFor     float64 `json:"points_for"`
	PointsAgainst float64 `json:"points_against"`
}

// Team is the canonical snapshot of one fantasy team within a league.
// Roster, standings and stats are replaced wholesale on every import.
type Team struct {
	ID             string
	LeagueID       string
	ProviderTeamID string
	OwnerID        string
	Name           string
	Roster         []RosterEntry
	Standings      Standings
	Stats          map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (t Team) Validate() error {
	if t.LeagueID == "" {
		return fmt.Errorf("team league id is required")
	}
	if t.ProviderTeamID == "" {
		return fmt.Errorf("provider team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}
	return nil
}
