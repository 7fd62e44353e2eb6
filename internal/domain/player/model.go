package player

import (
	"strings"
	"time"
)

// Player is one entry in the canonical player catalog. The catalog is
// long-lived reference data shared by every league; imports read it to
// resolve provider rosters but never create or mutate catalog rows.
type Player struct {
	ID             string
	FirstName      string
	LastName       string
	FullName       string
	Positions      []string
	CurrentTeam    string
	JerseyNumber   *int
	AlternateNames []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MatchesName reports whether name equals the player's full name or one of
// the alternate names, ignoring case.
func (p Player) MatchesName(name string) bool {
	if strings.EqualFold(p.FullName, name) {
		return true
	}
	for _, alt := range p.AlternateNames {
		if strings.EqualFold(alt, name) {
			return true
		}
	}
	return false
}

// HasPosition reports whether the player is listed at the given position,
// ignoring case.
func (p Player) HasPosition(position string) bool {
	for _, pos := range p.Positions {
		if strings.EqualFold(pos, position) {
			return true
		}
	}
	return false
}
