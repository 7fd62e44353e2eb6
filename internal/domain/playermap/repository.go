package playermap

import (
	"context"

	"github.com/rostermesh/leaguesync/internal/domain/provider"
)

// Repository covers mapping reads needed by the resolver. Writes happen
// through the sync unit of work together with the league that produced them.
type Repository interface {
	ListByProviderPlayerIDs(ctx context.Context, p provider.Provider, providerPlayerIDs []string) ([]Mapping, error)
}
