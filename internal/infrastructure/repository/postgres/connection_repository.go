package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	qb "github.com/rostermesh/leaguesync/internal/platform/querybuilder"
)

type connectionTableModel struct {
	ID           int64      `db:"id"`
	PublicID     string     `db:"public_id"`
	UserID       string     `db:"user_id"`
	Provider     string     `db:"provider"`
	Credentials  []byte     `db:"credentials"`
	Status       string     `db:"status"`
	LastSyncedAt *time.Time `db:"last_synced_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

type connectionInsertModel struct {
	PublicID    string `db:"public_id"`
	UserID      string `db:"user_id"`
	Provider    string `db:"provider"`
	Credentials []byte `db:"credentials"`
	Status      string `db:"status"`
}

type ConnectionRepository struct {
	db *sqlx.DB
}

func NewConnectionRepository(db *sqlx.DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func (r *ConnectionRepository) GetByUserProvider(ctx context.Context, userID string, p provider.Provider) (connection.Connection, bool, error) {
	query, args, err := qb.Select("*").From("platform_connections").
		Where(
			qb.Eq("user_id", userID),
			qb.Eq("provider", p.String()),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return connection.Connection{}, false, fmt.Errorf("build select connection query: %w", err)
	}

	var row connectionTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return connection.Connection{}, false, nil
		}
		return connection.Connection{}, false, fmt.Errorf("select connection: %w", err)
	}

	conn, err := connectionFromRow(row)
	if err != nil {
		return connection.Connection{}, false, err
	}
	return conn, true, nil
}

func (r *ConnectionRepository) Upsert(ctx context.Context, conn connection.Connection) (connection.Connection, error) {
	credentials, err := marshalJSONB(conn.Credentials)
	if err != nil {
		return connection.Connection{}, err
	}

	insertModel := connectionInsertModel{
		PublicID:    conn.ID,
		UserID:      conn.UserID,
		Provider:    conn.Provider.String(),
		Credentials: credentials,
		Status:      string(conn.Status),
	}

	query, args, err := qb.InsertModel("platform_connections", insertModel, `ON CONFLICT (user_id, provider)
DO UPDATE SET
    credentials = EXCLUDED.credentials,
    status = EXCLUDED.status,
    updated_at = NOW()
RETURNING public_id`)
	if err != nil {
		return connection.Connection{}, fmt.Errorf("build upsert connection query: %w", err)
	}

	var publicID string
	if err := r.db.GetContext(ctx, &publicID, query, args...); err != nil {
		return connection.Connection{}, fmt.Errorf("upsert connection user=%s provider=%s: %w", conn.UserID, conn.Provider, err)
	}

	conn.ID = publicID
	return conn, nil
}

func (r *ConnectionRepository) SetStatus(ctx context.Context, connID string, status connection.Status) error {
	query, args, err := qb.Update("platform_connections").
		Set("status", string(status)).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", connID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update connection status query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update connection status id=%s: %w", connID, err)
	}
	return nil
}

func (r *ConnectionRepository) TouchLastSynced(ctx context.Context, connID string) error {
	query, args, err := qb.Update("platform_connections").
		SetExpr("last_synced_at", "NOW()").
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", connID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build touch connection query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("touch connection id=%s: %w", connID, err)
	}
	return nil
}

func connectionFromRow(row connectionTableModel) (connection.Connection, error) {
	var credentials connection.Credentials
	if err := unmarshalJSONB(row.Credentials, &credentials); err != nil {
		return connection.Connection{}, fmt.Errorf("decode connection credentials id=%s: %w", row.PublicID, err)
	}

	return connection.Connection{
		ID:           row.PublicID,
		UserID:       row.UserID,
		Provider:     provider.Provider(row.Provider),
		Credentials:  credentials,
		Status:       connection.Status(row.Status),
		LastSyncedAt: row.LastSyncedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}
