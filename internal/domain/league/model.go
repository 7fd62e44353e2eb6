package league

import (
	"fmt"
	"time"

	"github.com/rostermesh/leaguesync/internal/domain/provider"
)

type Sport string

const (
	SportFootball   Sport = "football"
	SportBaseball   Sport = "baseball"
	SportBasketball Sport = "basketball"
	SportHockey     Sport = "hockey"
)

func (s Sport) Valid() bool {
	switch s {
	case SportFootball, SportBaseball, SportBasketball, SportHockey:
		return true
	default:
		return false
	}
}

// League is the canonical record for one provider league owned by one user.
// A league is unique per (provider, provider league id, user).
type League struct {
	ID               string
	UserID           string
	Provider         provider.Provider
	ProviderLeagueID string
	Name             string
	Season           string
	Sport            Sport
	Settings         map[string]any
	LastSyncedAt     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (l League) Validate() error {
	if l.UserID == "" {
		return fmt.Errorf("league user id is required")
	}
	if !l.Provider.Valid() {
		return fmt.Errorf("league provider is invalid")
	}
	if l.ProviderLeagueID == "" {
		return fmt.Errorf("provider league id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("league name is required")
	}
	if l.Season == "" {
		return fmt.Errorf("league season is required")
	}
	if !l.Sport.Valid() {
		return fmt.Errorf("league sport %q is invalid", l.Sport)
	}
	return nil
}
