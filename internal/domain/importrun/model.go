package importrun

import (
	"fmt"
	"time"

	"github.com/rostermesh/leaguesync/internal/domain/provider"
)

type LeagueStatus string

const (
	LeagueStatusImported LeagueStatus = "imported"
	LeagueStatusFailed   LeagueStatus = "failed"
)

// LeagueOutcome records what happened to one league within a run.
type LeagueOutcome struct {
	LeagueID         string       `json:"league_id,omitempty"`
	ProviderLeagueID string       `json:"provider_league_id"`
	Name             string       `json:"name"`
	Status           LeagueStatus `json:"status"`
	TeamsImported    int          `json:"teams_imported"`
	PlayersMapped    int          `json:"players_mapped"`
	PlayersUnmatched int          `json:"players_unmatched"`
	Error            string       `json:"error,omitempty"`
}

// Run is one append-only audit record of an import attempt. Runs are never
// updated or deleted after insert.
type Run struct {
	ID              string
	UserID          string
	Provider        provider.Provider
	Success         bool
	LeaguesImported int
	LeaguesFailed   int
	TeamsImported   int
	Results         []LeagueOutcome
	StartedAt       time.Time
	CompletedAt     time.Time
}

func (r Run) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("import run user id is required")
	}
	if !r.Provider.Valid() {
		return fmt.Errorf("import run provider is invalid")
	}
	if r.CompletedAt.Before(r.StartedAt) {
		return fmt.Errorf("import run completed before it started")
	}
	return nil
}
