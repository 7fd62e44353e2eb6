package importrun

import "context"

// Repository is the append-only run ledger. There is no update or delete.
type Repository interface {
	Insert(ctx context.Context, run Run) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Run, error)
}
