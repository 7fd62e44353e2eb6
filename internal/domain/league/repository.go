package league

import "context"

// Repository covers read access to canonical leagues. Writes happen
// through the sync unit of work so a whole league lands atomically.
type Repository interface {
	GetByID(ctx context.Context, leagueID string) (League, bool, error)
	ListByUser(ctx context.Context, userID string) ([]League, error)
}
