package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rostermesh/leaguesync/internal/domain/playermap"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	qb "github.com/rostermesh/leaguesync/internal/platform/querybuilder"
)

type playerMappingTableModel struct {
	ID               int64     `db:"id"`
	PublicID         string    `db:"public_id"`
	Provider         string    `db:"provider"`
	ProviderPlayerID string    `db:"provider_player_id"`
	PlayerID         string    `db:"player_public_id"`
	Confidence       float64   `db:"confidence"`
	Verified         bool      `db:"verified"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

type PlayerMappingRepository struct {
	db *sqlx.DB
}

func NewPlayerMappingRepository(db *sqlx.DB) *PlayerMappingRepository {
	return &PlayerMappingRepository{db: db}
}

func (r *PlayerMappingRepository) ListByProviderPlayerIDs(ctx context.Context, p provider.Provider, providerPlayerIDs []string) ([]playermap.Mapping, error) {
	if len(providerPlayerIDs) == 0 {
		return nil, nil
	}

	ids := make([]any, 0, len(providerPlayerIDs))
	for _, id := range providerPlayerIDs {
		ids = append(ids, id)
	}

	query, args, err := qb.Select("*").From("player_mappings").
		Where(
			qb.Eq("provider", p.String()),
			qb.In("provider_player_id", ids),
		).
		OrderBy("provider_player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select player mappings query: %w", err)
	}

	var rows []playerMappingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select player mappings: %w", err)
	}

	out := make([]playermap.Mapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, playermap.Mapping{
			ID:               row.PublicID,
			Provider:         provider.Provider(row.Provider),
			ProviderPlayerID: row.ProviderPlayerID,
			PlayerID:         row.PlayerID,
			Confidence:       row.Confidence,
			Verified:         row.Verified,
			CreatedAt:        row.CreatedAt,
			UpdatedAt:        row.UpdatedAt,
		})
	}
	return out, nil
}
