package app

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/rostermesh/leaguesync/external/espn"
	"github.com/rostermesh/leaguesync/external/notify"
	"github.com/rostermesh/leaguesync/external/sleeper"
	"github.com/rostermesh/leaguesync/external/yahoo"
	"github.com/rostermesh/leaguesync/internal/config"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	"github.com/rostermesh/leaguesync/internal/infrastructure/repository/postgres"
	"github.com/rostermesh/leaguesync/internal/interfaces/httpapi"
	idgen "github.com/rostermesh/leaguesync/internal/platform/id"
	"github.com/rostermesh/leaguesync/internal/platform/logging"
	"github.com/rostermesh/leaguesync/internal/platform/resilience"
	"github.com/rostermesh/leaguesync/internal/usecase"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

// App owns the HTTP server and the shared resources behind it.
type App struct {
	Server *http.Server

	db *sqlx.DB
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Connect("postgres", dbURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(dbURL)),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	connectionRepo := postgres.NewConnectionRepository(db)
	leagueRepo := postgres.NewLeagueRepository(db)
	teamRepo := postgres.NewTeamRepository(db)
	playerRepo := postgres.NewPlayerRepository(db)
	mappingRepo := postgres.NewPlayerMappingRepository(db)
	runRepo := postgres.NewImportRunRepository(db)
	syncStore := postgres.NewSyncStore(db)

	generator := idgen.NewRandomGenerator()
	resolver := usecase.NewResolverService(playerRepo, mappingRepo, logger)
	writer := usecase.NewBatchWriter(syncStore, generator, logger)

	registry := usecase.NewAdapterRegistry(map[provider.Provider]usecase.ProviderAdapter{
		provider.ESPN:    newESPNAdapter(cfg, logger),
		provider.Sleeper: newSleeperAdapter(cfg, logger),
		provider.Yahoo:   newYahooAdapter(cfg, logger),
	})

	var notifier usecase.RunNotifier
	if cfg.WebhookEnabled {
		notifier = notify.NewWebhookNotifier(notify.WebhookConfig{
			URL:     cfg.WebhookURL,
			Token:   cfg.WebhookToken,
			Timeout: cfg.WebhookTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.WebhookCircuitEnabled,
				FailureThreshold: cfg.WebhookCircuitFailureCount,
				OpenTimeout:      cfg.WebhookCircuitOpenTimeout,
				HalfOpenMaxReq:   cfg.WebhookCircuitHalfOpenMax,
			},
		}, logger)
	}

	importSvc := usecase.NewImportService(
		registry,
		connectionRepo,
		resolver,
		writer,
		runRepo,
		notifier,
		generator,
		cfg.ImportMaxWorkers,
		logger,
	)
	querySvc := usecase.NewQueryService(leagueRepo, teamRepo, runRepo)

	handler := httpapi.NewHandler(importSvc, querySvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &App{
		Server: server,
		db:     db,
	}, nil
}

func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func newESPNAdapter(cfg config.Config, logger *logging.Logger) *espn.Client {
	return espn.NewClient(espn.ClientConfig{
		BaseURL:    cfg.ESPNBaseURL,
		FanBaseURL: cfg.ESPNFanBaseURL,
		Season:     cfg.ESPNSeason,
		Timeout:    cfg.ESPNTimeout,
		MaxRetries: cfg.ESPNMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.ESPNCircuitEnabled,
			FailureThreshold: cfg.ESPNCircuitFailureCount,
			OpenTimeout:      cfg.ESPNCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ESPNCircuitHalfOpenMaxReq,
		},
	})
}

func newSleeperAdapter(cfg config.Config, logger *logging.Logger) *sleeper.Client {
	return sleeper.NewClient(sleeper.ClientConfig{
		BaseURL:    cfg.SleeperBaseURL,
		Season:     cfg.SleeperSeason,
		Timeout:    cfg.SleeperTimeout,
		MaxRetries: cfg.SleeperMaxRetries,
		CatalogTTL: cfg.SleeperCatalogTTL,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SleeperCircuitEnabled,
			FailureThreshold: cfg.SleeperCircuitFailureCount,
			OpenTimeout:      cfg.SleeperCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SleeperCircuitHalfOpenMaxReq,
		},
	})
}

func newYahooAdapter(cfg config.Config, logger *logging.Logger) *yahoo.Client {
	return yahoo.NewClient(yahoo.ClientConfig{
		BaseURL:      cfg.YahooBaseURL,
		TokenURL:     cfg.YahooTokenURL,
		ClientID:     cfg.YahooClientID,
		ClientSecret: cfg.YahooClientSecret,
		Timeout:      cfg.YahooTimeout,
		MaxRetries:   cfg.YahooMaxRetries,
		Logger:       logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.YahooCircuitEnabled,
			FailureThreshold: cfg.YahooCircuitFailureCount,
			OpenTimeout:      cfg.YahooCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.YahooCircuitHalfOpenMaxReq,
		},
	})
}
