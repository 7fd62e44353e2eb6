package team

import "context"

// Repository covers read access to canonical teams. Writes happen
// through the sync unit of work together with their league.
type Repository interface {
	ListByLeague(ctx context.Context, leagueID string) ([]Team, error)
}
