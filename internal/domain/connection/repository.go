package connection

import (
	"context"

	"github.com/rostermesh/leaguesync/internal/domain/provider"
)

// Repository describes connection persistence needs from use cases.
type Repository interface {
	GetByUserProvider(ctx context.Context, userID string, p provider.Provider) (Connection, bool, error)
	Upsert(ctx context.Context, conn Connection) (Connection, error)
	SetStatus(ctx context.Context, connID string, status Status) error
	TouchLastSynced(ctx context.Context, connID string) error
}
