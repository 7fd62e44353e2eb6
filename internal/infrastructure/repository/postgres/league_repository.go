package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rostermesh/leaguesync/internal/domain/league"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	qb "github.com/rostermesh/leaguesync/internal/platform/querybuilder"
)

type leagueTableModel struct {
	ID               int64      `db:"id"`
	PublicID         string     `db:"public_id"`
	UserID           string     `db:"user_id"`
	Provider         string     `db:"provider"`
	ProviderLeagueID string     `db:"provider_league_id"`
	Name             string     `db:"name"`
	Season           string     `db:"season"`
	Sport            string     `db:"sport"`
	Settings         []byte     `db:"settings"`
	LastSyncedAt     *time.Time `db:"last_synced_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.League, bool, error) {
	query, args, err := qb.Select("*").From("leagues").
		Where(qb.Eq("public_id", leagueID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build select league query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("select league: %w", err)
	}

	out, err := leagueFromRow(row)
	if err != nil {
		return league.League{}, false, err
	}
	return out, true, nil
}

func (r *LeagueRepository) ListByUser(ctx context.Context, userID string) ([]league.League, error) {
	query, args, err := qb.Select("*").From("leagues").
		Where(qb.Eq("user_id", userID)).
		OrderBy("provider", "name", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select leagues by user query: %w", err)
	}

	var rows []leagueTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select leagues by user: %w", err)
	}

	out := make([]league.League, 0, len(rows))
	for _, row := range rows {
		item, err := leagueFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func leagueFromRow(row leagueTableModel) (league.League, error) {
	var settings map[string]any
	if err := unmarshalJSONB(row.Settings, &settings); err != nil {
		return league.League{}, fmt.Errorf("decode league settings id=%s: %w", row.PublicID, err)
	}

	return league.League{
		ID:               row.PublicID,
		UserID:           row.UserID,
		Provider:         provider.Provider(row.Provider),
		ProviderLeagueID: row.ProviderLeagueID,
		Name:             row.Name,
		Season:           row.Season,
		Sport:            league.Sport(row.Sport),
		Settings:         settings,
		LastSyncedAt:     row.LastSyncedAt,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}
