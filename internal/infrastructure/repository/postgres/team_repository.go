package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rostermesh/leaguesync/internal/domain/team"
	qb "github.com/rostermesh/leaguesync/internal/platform/querybuilder"
)

type teamTableModel struct {
	ID             int64     `db:"id"`
	PublicID       string    `db:"public_id"`
	LeagueID       string    `db:"league_public_id"`
	ProviderTeamID string    `db:"provider_team_id"`
	OwnerID        string    `db:"owner_id"`
	Name           string    `db:"name"`
	Roster         []byte    `db:"roster"`
	Standings      []byte    `db:"standings"`
	Stats          []byte    `db:"stats"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) ListByLeague(ctx context.Context, leagueID string) ([]team.Team, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.Eq("league_public_id", leagueID)).
		OrderBy("name", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams by league query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams by league: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		item, err := teamFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func teamFromRow(row teamTableModel) (team.Team, error) {
	var roster []team.RosterEntry
	if err := unmarshalJSONB(row.Roster, &roster); err != nil {
		return team.Team{}, fmt.Errorf("decode team roster id=%s: %w", row.PublicID, err)
	}
	var standings team.Standings
	if err := unmarshalJSONB(row.Standings, &standings); err != nil {
		return team.Team{}, fmt.Errorf("decode team standings id=%s: %w", row.PublicID, err)
	}
	var stats map[string]any
	if err := unmarshalJSONB(row.Stats, &stats); err != nil {
		return team.Team{}, fmt.Errorf("decode team stats id=%s: %w", row.PublicID, err)
	}

	return team.Team{
		ID:             row.PublicID,
		LeagueID:       row.LeagueID,
		ProviderTeamID: row.ProviderTeamID,
		OwnerID:        row.OwnerID,
		Name:           row.Name,
		Roster:         roster,
		Standings:      standings,
		Stats:          stats,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}
