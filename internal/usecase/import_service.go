package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/panjf2000/ants/v2"
	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/domain/importrun"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	"github.com/rostermesh/leaguesync/internal/platform/id"
	"github.com/rostermesh/leaguesync/internal/platform/logging"
)

type ImportInput struct {
	UserID   string `validate:"required"`
	Provider string `validate:"required"`
	// Credentials are optional when an active connection already exists.
	Credentials connection.Credentials
	MaxWorkers  int
}

type ImportResult struct {
	RunID           string                    `json:"run_id,omitempty"`
	Provider        string                    `json:"provider"`
	Success         bool                      `json:"success"`
	LeaguesImported int                       `json:"leagues_imported"`
	LeaguesFailed   int                       `json:"leagues_failed"`
	TeamsImported   int                       `json:"teams_imported"`
	WorkerCount     int                       `json:"worker_count"`
	Leagues         []importrun.LeagueOutcome `json:"leagues"`
}

// RunNotifier is told about completed runs. Delivery is best effort and
// never affects the import outcome.
type RunNotifier interface {
	NotifyRunCompleted(ctx context.Context, run importrun.Run) error
}

// ImportService orchestrates one full import: credential check, provider
// fetch, per-league resolution and persistence, then the ledger record.
// Leagues are independent; one failed league never blocks the others.
type ImportService struct {
	registry    *AdapterRegistry
	connections connection.Repository
	resolver    *ResolverService
	writer      *BatchWriter
	runs        importrun.Repository
	notifier    RunNotifier
	idgen       id.Generator
	validate    *validator.Validate
	maxWorkers  int
	logger      *logging.Logger
}

func NewImportService(
	registry *AdapterRegistry,
	connections connection.Repository,
	resolver *ResolverService,
	writer *BatchWriter,
	runs importrun.Repository,
	notifier RunNotifier,
	idgen id.Generator,
	maxWorkers int,
	logger *logging.Logger,
) *ImportService {
	if idgen == nil {
		idgen = id.NewRandomGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &ImportService{
		registry:    registry,
		connections: connections,
		resolver:    resolver,
		writer:      writer,
		runs:        runs,
		notifier:    notifier,
		idgen:       idgen,
		validate:    validator.New(),
		maxWorkers:  maxWorkers,
		logger:      logger,
	}
}

// ImportLeagues runs one import for one user against one provider.
//
// Credential failures abort before anything is written: no league changes
// and no ledger record. Once leagues start flowing, each league commits or
// rolls back on its own and the run always ends with a ledger record.
func (s *ImportService) ImportLeagues(ctx context.Context, input ImportInput) (ImportResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.ImportLeagues")
	defer span.End()

	if s.registry == nil || s.connections == nil || s.resolver == nil || s.writer == nil || s.runs == nil {
		return ImportResult{}, fmt.Errorf("%w: import service is not fully configured", ErrDependencyUnavailable)
	}
	if err := s.validate.StructCtx(ctx, input); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	p, err := provider.Parse(input.Provider)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	adapter, ok := s.registry.Lookup(p)
	if !ok {
		return ImportResult{}, fmt.Errorf("%w: no adapter registered for provider %s", ErrDependencyUnavailable, p)
	}

	conn, err := s.ensureConnection(ctx, input.UserID, p, input.Credentials)
	if err != nil {
		return ImportResult{}, err
	}

	startedAt := time.Now().UTC()
	leagues, err := adapter.FetchUserLeagues(ctx, conn)
	if err != nil {
		return ImportResult{}, s.handleFetchFailure(ctx, conn, p, err)
	}

	workerCount := normalizeImportWorkerCount(firstPositive(input.MaxWorkers, s.maxWorkers), len(leagues))
	result := ImportResult{
		Provider:    p.String(),
		WorkerCount: workerCount,
		Leagues:     make([]importrun.LeagueOutcome, 0, len(leagues)),
	}

	outcomes := make(chan importrun.LeagueOutcome, len(leagues))
	var importedCount atomic.Int32
	var failedCount atomic.Int32
	var teamCount atomic.Int32

	if len(leagues) > 0 {
		pool, err := ants.NewPool(workerCount)
		if err != nil {
			return ImportResult{}, fmt.Errorf("create worker pool: %w", err)
		}
		defer pool.Release()

		var workers sync.WaitGroup
		for _, nl := range leagues {
			nl := nl
			workers.Add(1)
			if err := pool.Submit(func() {
				defer workers.Done()

				outcome := s.importOneLeague(ctx, input.UserID, p, nl)
				switch outcome.Status {
				case importrun.LeagueStatusImported:
					importedCount.Add(1)
					teamCount.Add(int32(outcome.TeamsImported))
				default:
					failedCount.Add(1)
				}
				outcomes <- outcome
			}); err != nil {
				workers.Done()
				return ImportResult{}, fmt.Errorf("submit league to worker pool: %w", err)
			}
		}

		workers.Wait()
	}
	close(outcomes)

	for outcome := range outcomes {
		result.Leagues = append(result.Leagues, outcome)
	}
	sort.SliceStable(result.Leagues, func(i, j int) bool {
		return result.Leagues[i].ProviderLeagueID < result.Leagues[j].ProviderLeagueID
	})

	result.LeaguesImported = int(importedCount.Load())
	result.LeaguesFailed = int(failedCount.Load())
	result.TeamsImported = int(teamCount.Load())
	result.Success = result.LeaguesFailed == 0

	if err := s.connections.TouchLastSynced(ctx, conn.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to record connection sync time",
			"connection_id", conn.ID,
			"error", err,
		)
	}

	run := importrun.Run{
		UserID:          input.UserID,
		Provider:        p,
		Success:         result.Success,
		LeaguesImported: result.LeaguesImported,
		LeaguesFailed:   result.LeaguesFailed,
		TeamsImported:   result.TeamsImported,
		Results:         result.Leagues,
		StartedAt:       startedAt,
		CompletedAt:     time.Now().UTC(),
	}
	result.RunID = s.recordRun(ctx, run)

	return result, nil
}

// ensureConnection returns the usable connection for this user and provider,
// creating or refreshing one from the supplied credentials when needed.
func (s *ImportService) ensureConnection(ctx context.Context, userID string, p provider.Provider, creds connection.Credentials) (connection.Connection, error) {
	conn, found, err := s.connections.GetByUserProvider(ctx, userID, p)
	if err != nil {
		return connection.Connection{}, fmt.Errorf("load connection: %w", err)
	}

	if found && conn.Active() && creds.Empty() {
		return conn, nil
	}
	if !found && creds.Empty() {
		return connection.Connection{}, fmt.Errorf("%w: no connection exists for provider %s and no credentials supplied", ErrReauthRequired, p)
	}
	if found && !conn.Active() && creds.Empty() {
		return connection.Connection{}, fmt.Errorf("%w: connection for provider %s is expired", ErrReauthRequired, p)
	}

	candidate := connection.Connection{
		ID:          conn.ID,
		UserID:      userID,
		Provider:    p,
		Credentials: creds,
		Status:      connection.StatusActive,
	}
	if candidate.ID == "" {
		connID, err := s.idgen.NewID()
		if err != nil {
			return connection.Connection{}, fmt.Errorf("generate connection id: %w", err)
		}
		candidate.ID = connID
	}
	if err := candidate.Validate(); err != nil {
		return connection.Connection{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	saved, err := s.connections.Upsert(ctx, candidate)
	if err != nil {
		return connection.Connection{}, fmt.Errorf("save connection: %w", err)
	}
	return saved, nil
}

// handleFetchFailure translates an adapter failure that happened before any
// league was touched. Auth failures expire the connection; nothing is
// written to the run ledger either way.
func (s *ImportService) handleFetchFailure(ctx context.Context, conn connection.Connection, p provider.Provider, fetchErr error) error {
	if errors.Is(fetchErr, ErrReauthRequired) {
		if err := s.connections.SetStatus(ctx, conn.ID, connection.StatusExpired); err != nil {
			s.logger.WarnContext(ctx, "failed to expire connection after auth rejection",
				"connection_id", conn.ID,
				"error", err,
			)
		}
		return fmt.Errorf("fetch leagues from %s: %w", p, fetchErr)
	}
	if errors.Is(fetchErr, ErrConnectionFailed) {
		return fmt.Errorf("fetch leagues from %s: %w", p, fetchErr)
	}
	return fmt.Errorf("fetch leagues from %s: %w: %v", p, ErrConnectionFailed, fetchErr)
}

func (s *ImportService) importOneLeague(ctx context.Context, userID string, p provider.Provider, nl NormalizedLeague) importrun.LeagueOutcome {
	outcome := importrun.LeagueOutcome{
		ProviderLeagueID: nl.ProviderLeagueID,
		Name:             nl.Name,
	}

	if err := s.validate.StructCtx(ctx, nl); err != nil {
		return s.failOutcome(ctx, outcome, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	rostered := make([]NormalizedPlayer, 0, len(nl.Teams)*16)
	for _, nt := range nl.Teams {
		rostered = append(rostered, nt.Roster...)
	}

	resolution, err := s.resolver.ResolveLeaguePlayers(ctx, p, rostered)
	if err != nil {
		return s.failOutcome(ctx, outcome, fmt.Errorf("resolve players: %w", err))
	}

	persisted, err := s.writer.PersistLeague(ctx, userID, p, nl, resolution)
	if err != nil {
		return s.failOutcome(ctx, outcome, fmt.Errorf("persist league: %w", err))
	}

	outcome.LeagueID = persisted.LeagueID
	outcome.Status = importrun.LeagueStatusImported
	outcome.TeamsImported = persisted.TeamsImported
	outcome.PlayersMapped = resolution.Mapped
	outcome.PlayersUnmatched = resolution.Unmatched
	return outcome
}

func (s *ImportService) failOutcome(ctx context.Context, outcome importrun.LeagueOutcome, err error) importrun.LeagueOutcome {
	s.logger.WarnContext(ctx, "league import failed",
		"provider_league_id", outcome.ProviderLeagueID,
		"league_name", outcome.Name,
		"error", err,
	)
	outcome.Status = importrun.LeagueStatusFailed
	outcome.Error = err.Error()
	return outcome
}

// recordRun appends the ledger record and fans out the notification. Both
// are best effort: a ledger write failure is logged, never returned.
func (s *ImportService) recordRun(ctx context.Context, run importrun.Run) string {
	runID, err := s.idgen.NewID()
	if err != nil {
		s.logger.WarnContext(ctx, "failed to generate import run id", "error", err)
		return ""
	}
	run.ID = runID

	if err := run.Validate(); err != nil {
		s.logger.WarnContext(ctx, "import run record is invalid", "run_id", run.ID, "error", err)
		return ""
	}
	if err := s.runs.Insert(ctx, run); err != nil {
		s.logger.WarnContext(ctx, "failed to append import run record",
			"run_id", run.ID,
			"user_id", run.UserID,
			"error", err,
		)
		return ""
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRunCompleted(ctx, run); err != nil {
			s.logger.WarnContext(ctx, "failed to notify import run completion",
				"run_id", run.ID,
				"error", err,
			)
		}
	}
	return run.ID
}

func normalizeImportWorkerCount(value int, leagueCount int) int {
	if leagueCount <= 0 {
		return 1
	}
	if value <= 0 {
		value = 2
	}
	if value > 4 {
		value = 4
	}
	if value > leagueCount {
		value = leagueCount
	}
	return value
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
