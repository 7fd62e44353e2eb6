package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rostermesh/leaguesync/internal/domain/league"
	"github.com/rostermesh/leaguesync/internal/domain/playermap"
	"github.com/rostermesh/leaguesync/internal/domain/team"
	qb "github.com/rostermesh/leaguesync/internal/platform/querybuilder"
	"github.com/rostermesh/leaguesync/internal/usecase"
)

type leagueInsertModel struct {
	PublicID         string `db:"public_id"`
	UserID           string `db:"user_id"`
	Provider         string `db:"provider"`
	ProviderLeagueID string `db:"provider_league_id"`
	Name             string `db:"name"`
	Season           string `db:"season"`
	Sport            string `db:"sport"`
	Settings         []byte `db:"settings"`
}

type teamInsertModel struct {
	PublicID       string `db:"public_id"`
	LeagueID       string `db:"league_public_id"`
	ProviderTeamID string `db:"provider_team_id"`
	OwnerID        string `db:"owner_id"`
	Name           string `db:"name"`
	Roster         []byte `db:"roster"`
	Standings      []byte `db:"standings"`
	Stats          []byte `db:"stats"`
}

type playerMappingInsertModel struct {
	PublicID         string  `db:"public_id"`
	Provider         string  `db:"provider"`
	ProviderPlayerID string  `db:"provider_player_id"`
	PlayerID         string  `db:"player_public_id"`
	Confidence       float64 `db:"confidence"`
	Verified         bool    `db:"verified"`
}

// SyncStore opens per-league sync transactions against postgres.
type SyncStore struct {
	db *sqlx.DB
}

func NewSyncStore(db *sqlx.DB) *SyncStore {
	return &SyncStore{db: db}
}

func (s *SyncStore) Begin(ctx context.Context) (usecase.SyncTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sync tx: %w", err)
	}
	return &syncTx{tx: tx}, nil
}

type syncTx struct {
	tx *sqlx.Tx
}

func (t *syncTx) UpsertLeague(ctx context.Context, l league.League) (league.League, error) {
	settings, err := marshalJSONB(l.Settings)
	if err != nil {
		return league.League{}, err
	}

	insertModel := leagueInsertModel{
		PublicID:         l.ID,
		UserID:           l.UserID,
		Provider:         l.Provider.String(),
		ProviderLeagueID: l.ProviderLeagueID,
		Name:             l.Name,
		Season:           l.Season,
		Sport:            string(l.Sport),
		Settings:         settings,
	}

	query, args, err := qb.InsertModel("leagues", insertModel, `ON CONFLICT (provider, provider_league_id, user_id)
DO UPDATE SET
    name = EXCLUDED.name,
    season = EXCLUDED.season,
    sport = EXCLUDED.sport,
    settings = EXCLUDED.settings,
    last_synced_at = NOW(),
    updated_at = NOW()
RETURNING public_id`)
	if err != nil {
		return league.League{}, fmt.Errorf("build upsert league query: %w", err)
	}

	var publicID string
	if err := t.tx.GetContext(ctx, &publicID, query, args...); err != nil {
		return league.League{}, fmt.Errorf("upsert league provider_league_id=%s: %w", l.ProviderLeagueID, err)
	}

	l.ID = publicID
	return l, nil
}

func (t *syncTx) ExistingTeamIDs(ctx context.Context, leagueID string, providerTeamIDs []string) (map[string]string, error) {
	if len(providerTeamIDs) == 0 {
		return map[string]string{}, nil
	}

	ids := make([]any, 0, len(providerTeamIDs))
	for _, id := range providerTeamIDs {
		ids = append(ids, id)
	}

	query, args, err := qb.Select("provider_team_id", "public_id").From("teams").
		Where(
			qb.Eq("league_public_id", leagueID),
			qb.In("provider_team_id", ids),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select existing teams query: %w", err)
	}

	var rows []struct {
		ProviderTeamID string `db:"provider_team_id"`
		PublicID       string `db:"public_id"`
	}
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select existing teams league=%s: %w", leagueID, err)
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.ProviderTeamID] = row.PublicID
	}
	return out, nil
}

func (t *syncTx) InsertTeams(ctx context.Context, teams []team.Team) error {
	if len(teams) == 0 {
		return nil
	}

	rows := make([]teamInsertModel, 0, len(teams))
	for _, item := range teams {
		row, err := teamToInsertModel(item)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	query, args, err := qb.InsertModels("teams", rows, `ON CONFLICT (league_public_id, provider_team_id)
DO UPDATE SET
    owner_id = EXCLUDED.owner_id,
    name = EXCLUDED.name,
    roster = EXCLUDED.roster,
    standings = EXCLUDED.standings,
    stats = EXCLUDED.stats,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build insert teams query: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert teams league=%s: %w", teams[0].LeagueID, err)
	}
	return nil
}

func (t *syncTx) UpdateTeam(ctx context.Context, item team.Team) error {
	row, err := teamToInsertModel(item)
	if err != nil {
		return err
	}

	query, args, err := qb.Update("teams").
		Set("owner_id", row.OwnerID).
		Set("name", row.Name).
		Set("roster", row.Roster).
		Set("standings", row.Standings).
		Set("stats", row.Stats).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", item.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update team query: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update team id=%s: %w", item.ID, err)
	}
	return nil
}

func (t *syncTx) InsertMappings(ctx context.Context, mappings []playermap.Mapping) error {
	if len(mappings) == 0 {
		return nil
	}

	rows := make([]playerMappingInsertModel, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, playerMappingInsertModel{
			PublicID:         m.ID,
			Provider:         m.Provider.String(),
			ProviderPlayerID: m.ProviderPlayerID,
			PlayerID:         m.PlayerID,
			Confidence:       m.Confidence,
			Verified:         m.Verified,
		})
	}

	// The conflict guard keeps a concurrent higher-confidence mapping intact.
	query, args, err := qb.InsertModels("player_mappings", rows, `ON CONFLICT (provider, provider_player_id)
DO UPDATE SET
    player_public_id = EXCLUDED.player_public_id,
    confidence = EXCLUDED.confidence,
    verified = EXCLUDED.verified,
    updated_at = NOW()
WHERE EXCLUDED.confidence > player_mappings.confidence`)
	if err != nil {
		return fmt.Errorf("build insert player mappings query: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert player mappings: %w", err)
	}
	return nil
}

func (t *syncTx) UpdateMapping(ctx context.Context, m playermap.Mapping) error {
	query, args, err := qb.Update("player_mappings").
		Set("player_public_id", m.PlayerID).
		Set("confidence", m.Confidence).
		Set("verified", m.Verified).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("provider", m.Provider.String()),
			qb.Eq("provider_player_id", m.ProviderPlayerID),
			qb.Expr("confidence < ?", m.Confidence),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update player mapping query: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update player mapping provider_player_id=%s: %w", m.ProviderPlayerID, err)
	}
	return nil
}

func (t *syncTx) Commit() error {
	return t.tx.Commit()
}

func (t *syncTx) Rollback() error {
	return t.tx.Rollback()
}

func teamToInsertModel(item team.Team) (teamInsertModel, error) {
	roster, err := marshalJSONB(item.Roster)
	if err != nil {
		return teamInsertModel{}, err
	}
	standings, err := marshalJSONB(item.Standings)
	if err != nil {
		return teamInsertModel{}, err
	}
	stats, err := marshalJSONB(item.Stats)
	if err != nil {
		return teamInsertModel{}, err
	}

	return teamInsertModel{
		PublicID:       item.ID,
		LeagueID:       item.LeagueID,
		ProviderTeamID: item.ProviderTeamID,
		OwnerID:        item.OwnerID,
		Name:           item.Name,
		Roster:         roster,
		Standings:      standings,
		Stats:          stats,
	}, nil
}
