package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rostermesh/leaguesync/internal/domain/importrun"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	qb "github.com/rostermesh/leaguesync/internal/platform/querybuilder"
)

type importRunTableModel struct {
	ID              int64     `db:"id"`
	PublicID        string    `db:"public_id"`
	UserID          string    `db:"user_id"`
	Provider        string    `db:"provider"`
	Success         bool      `db:"success"`
	LeaguesImported int       `db:"leagues_imported"`
	LeaguesFailed   int       `db:"leagues_failed"`
	TeamsImported   int       `db:"teams_imported"`
	Results         []byte    `db:"results"`
	StartedAt       time.Time `db:"started_at"`
	CompletedAt     time.Time `db:"completed_at"`
}

type importRunInsertModel struct {
	PublicID        string    `db:"public_id"`
	UserID          string    `db:"user_id"`
	Provider        string    `db:"provider"`
	Success         bool      `db:"success"`
	LeaguesImported int       `db:"leagues_imported"`
	LeaguesFailed   int       `db:"leagues_failed"`
	TeamsImported   int       `db:"teams_imported"`
	Results         []byte    `db:"results"`
	StartedAt       time.Time `db:"started_at"`
	CompletedAt     time.Time `db:"completed_at"`
}

// ImportRunRepository is append-only: inserts and reads, no update path.
type ImportRunRepository struct {
	db *sqlx.DB
}

func NewImportRunRepository(db *sqlx.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

func (r *ImportRunRepository) Insert(ctx context.Context, run importrun.Run) error {
	results, err := marshalJSONB(run.Results)
	if err != nil {
		return err
	}

	insertModel := importRunInsertModel{
		PublicID:        run.ID,
		UserID:          run.UserID,
		Provider:        run.Provider.String(),
		Success:         run.Success,
		LeaguesImported: run.LeaguesImported,
		LeaguesFailed:   run.LeaguesFailed,
		TeamsImported:   run.TeamsImported,
		Results:         results,
		StartedAt:       run.StartedAt,
		CompletedAt:     run.CompletedAt,
	}

	query, args, err := qb.InsertModel("import_runs", insertModel, "")
	if err != nil {
		return fmt.Errorf("build insert import run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert import run id=%s: %w", run.ID, err)
	}
	return nil
}

func (r *ImportRunRepository) ListByUser(ctx context.Context, userID string, limit int) ([]importrun.Run, error) {
	query, args, err := qb.Select("*").From("import_runs").
		Where(qb.Eq("user_id", userID)).
		OrderBy("started_at DESC", "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select import runs query: %w", err)
	}

	var rows []importRunTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select import runs: %w", err)
	}

	out := make([]importrun.Run, 0, len(rows))
	for _, row := range rows {
		var results []importrun.LeagueOutcome
		if err := unmarshalJSONB(row.Results, &results); err != nil {
			return nil, fmt.Errorf("decode import run results id=%s: %w", row.PublicID, err)
		}
		out = append(out, importrun.Run{
			ID:              row.PublicID,
			UserID:          row.UserID,
			Provider:        provider.Provider(row.Provider),
			Success:         row.Success,
			LeaguesImported: row.LeaguesImported,
			LeaguesFailed:   row.LeaguesFailed,
			TeamsImported:   row.TeamsImported,
			Results:         results,
			StartedAt:       row.StartedAt,
			CompletedAt:     row.CompletedAt,
		})
	}
	return out, nil
}
