package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rostermesh/leaguesync/internal/domain/player"
	qb "github.com/rostermesh/leaguesync/internal/platform/querybuilder"
)

type playerTableModel struct {
	ID             int64          `db:"id"`
	PublicID       string         `db:"public_id"`
	FirstName      string         `db:"first_name"`
	LastName       string         `db:"last_name"`
	FullName       string         `db:"full_name"`
	Positions      pq.StringArray `db:"positions"`
	CurrentTeam    string         `db:"current_team"`
	JerseyNumber   sql.NullInt64  `db:"jersey_number"`
	AlternateNames pq.StringArray `db:"alternate_names"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// FindByNames returns every catalog player whose full name or alternate
// name matches one of the given names, case-insensitively, in one query.
func (r *PlayerRepository) FindByNames(ctx context.Context, names []string) ([]player.Player, error) {
	if len(names) == 0 {
		return nil, nil
	}

	lowered := make([]string, 0, len(names))
	for _, name := range names {
		lowered = append(lowered, strings.ToLower(strings.TrimSpace(name)))
	}

	query, args, err := qb.Select("*").From("players").
		Where(
			qb.Or(
				qb.InFold("full_name", names),
				qb.Expr("EXISTS (SELECT 1 FROM unnest(alternate_names) AS alt WHERE LOWER(alt) = ANY(?))", pq.Array(lowered)),
			),
		).
		OrderBy("public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by names query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players by names: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.Player{
			ID:             row.PublicID,
			FirstName:      row.FirstName,
			LastName:       row.LastName,
			FullName:       row.FullName,
			Positions:      append([]string(nil), row.Positions...),
			CurrentTeam:    row.CurrentTeam,
			JerseyNumber:   nullIntToIntPtr(row.JerseyNumber),
			AlternateNames: append([]string(nil), row.AlternateNames...),
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
		})
	}
	return out, nil
}
