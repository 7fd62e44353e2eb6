package player

import "context"

// Repository covers catalog reads needed by the resolver. FindByNames takes
// the full set of distinct names from a league and returns every candidate
// whose full name or alternate name matches, in one round trip.
type Repository interface {
	FindByNames(ctx context.Context, names []string) ([]Player, error)
}
