package usecase

import (
	"context"
	"fmt"

	"github.com/rostermesh/leaguesync/internal/domain/importrun"
	"github.com/rostermesh/leaguesync/internal/domain/league"
	"github.com/rostermesh/leaguesync/internal/domain/team"
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

// QueryService serves read paths: synced leagues, team snapshots and the
// import run ledger.
type QueryService struct {
	leagues league.Repository
	teams   team.Repository
	runs    importrun.Repository
}

func NewQueryService(leagues league.Repository, teams team.Repository, runs importrun.Repository) *QueryService {
	return &QueryService{
		leagues: leagues,
		teams:   teams,
		runs:    runs,
	}
}

func (s *QueryService) ListUserLeagues(ctx context.Context, userID string) ([]league.League, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.ListUserLeagues")
	defer span.End()

	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	leagues, err := s.leagues.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list leagues user=%s: %w", userID, err)
	}
	return leagues, nil
}

func (s *QueryService) ListLeagueTeams(ctx context.Context, leagueID string) ([]team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.ListLeagueTeams")
	defer span.End()

	if leagueID == "" {
		return nil, fmt.Errorf("%w: league id is required", ErrInvalidInput)
	}

	if _, found, err := s.leagues.GetByID(ctx, leagueID); err != nil {
		return nil, fmt.Errorf("load league %s: %w", leagueID, err)
	} else if !found {
		return nil, fmt.Errorf("%w: league %s", ErrNotFound, leagueID)
	}

	teams, err := s.teams.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list teams league=%s: %w", leagueID, err)
	}
	return teams, nil
}

func (s *QueryService) ListImportRuns(ctx context.Context, userID string, limit int) ([]importrun.Run, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.QueryService.ListImportRuns")
	defer span.End()

	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	if limit > maxRunListLimit {
		limit = maxRunListLimit
	}

	runs, err := s.runs.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list import runs user=%s: %w", userID, err)
	}
	return runs, nil
}
