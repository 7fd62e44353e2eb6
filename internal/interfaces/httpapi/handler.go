package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rostermesh/leaguesync/internal/domain/connection"
	"github.com/rostermesh/leaguesync/internal/domain/importrun"
	"github.com/rostermesh/leaguesync/internal/domain/league"
	"github.com/rostermesh/leaguesync/internal/domain/team"
	"github.com/rostermesh/leaguesync/internal/platform/logging"
	"github.com/rostermesh/leaguesync/internal/usecase"
)

type Handler struct {
	importService *usecase.ImportService
	queryService  *usecase.QueryService
	logger        *logging.Logger
	validator     *validator.Validate
}

func NewHandler(
	importService *usecase.ImportService,
	queryService *usecase.QueryService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		importService: importService,
		queryService:  queryService,
		logger:        logger,
		validator:     validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type startImportRequest struct {
	UserID      string             `json:"user_id" validate:"required"`
	Credentials credentialsPayload `json:"credentials"`
	MaxWorkers  int                `json:"max_workers" validate:"gte=0,lte=16"`
}

type credentialsPayload struct {
	AccessToken    string `json:"access_token,omitempty"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	ProviderUserID string `json:"provider_user_id,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	APIToken       string `json:"api_token,omitempty"`
}

func (p credentialsPayload) toDomain() connection.Credentials {
	return connection.Credentials{
		AccessToken:    p.AccessToken,
		RefreshToken:   p.RefreshToken,
		ProviderUserID: p.ProviderUserID,
		Username:       p.Username,
		Password:       p.Password,
		APIToken:       p.APIToken,
	}
}

type leagueDTO struct {
	ID               string         `json:"id"`
	Provider         string         `json:"provider"`
	ProviderLeagueID string         `json:"providerLeagueId"`
	Name             string         `json:"name"`
	Season           string         `json:"season"`
	Sport            string         `json:"sport"`
	Settings         map[string]any `json:"settings,omitempty"`
	LastSyncedAt     string         `json:"lastSyncedAt,omitempty"`
	UpdatedAt        string         `json:"updatedAt"`
}

type teamDTO struct {
	ID             string             `json:"id"`
	LeagueID       string             `json:"leagueId"`
	ProviderTeamID string             `json:"providerTeamId"`
	OwnerID        string             `json:"ownerId,omitempty"`
	Name           string             `json:"name"`
	Roster         []team.RosterEntry `json:"roster"`
	Standings      team.Standings     `json:"standings"`
	Stats          map[string]any     `json:"stats,omitempty"`
	UpdatedAt      string             `json:"updatedAt"`
}

type importRunDTO struct {
	ID              string                    `json:"id"`
	Provider        string                    `json:"provider"`
	Success         bool                      `json:"success"`
	LeaguesImported int                       `json:"leaguesImported"`
	LeaguesFailed   int                       `json:"leaguesFailed"`
	TeamsImported   int                       `json:"teamsImported"`
	Results         []importrun.LeagueOutcome `json:"results"`
	StartedAt       string                    `json:"startedAt"`
	CompletedAt     string                    `json:"completedAt"`
}

func leagueToDTO(ctx context.Context, v league.League) leagueDTO {
	ctx, span := startSpan(ctx, "httpapi.leagueToDTO")
	defer span.End()

	return leagueDTO{
		ID:               v.ID,
		Provider:         v.Provider.String(),
		ProviderLeagueID: v.ProviderLeagueID,
		Name:             v.Name,
		Season:           v.Season,
		Sport:            string(v.Sport),
		Settings:         v.Settings,
		LastSyncedAt:     formatOptionalTime(v.LastSyncedAt),
		UpdatedAt:        v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func teamToDTO(ctx context.Context, v team.Team) teamDTO {
	ctx, span := startSpan(ctx, "httpapi.teamToDTO")
	defer span.End()

	roster := v.Roster
	if roster == nil {
		roster = []team.RosterEntry{}
	}

	return teamDTO{
		ID:             v.ID,
		LeagueID:       v.LeagueID,
		ProviderTeamID: v.ProviderTeamID,
		OwnerID:        v.OwnerID,
		Name:           v.Name,
		Roster:         roster,
		Standings:      v.Standings,
		Stats:          v.Stats,
		UpdatedAt:      v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func importRunToDTO(ctx context.Context, v importrun.Run) importRunDTO {
	ctx, span := startSpan(ctx, "httpapi.importRunToDTO")
	defer span.End()

	results := v.Results
	if results == nil {
		results = []importrun.LeagueOutcome{}
	}

	return importRunDTO{
		ID:              v.ID,
		Provider:        v.Provider.String(),
		Success:         v.Success,
		LeaguesImported: v.LeaguesImported,
		LeaguesFailed:   v.LeaguesFailed,
		TeamsImported:   v.TeamsImported,
		Results:         results,
		StartedAt:       v.StartedAt.UTC().Format(time.RFC3339),
		CompletedAt:     v.CompletedAt.UTC().Format(time.RFC3339),
	}
}

func formatOptionalTime(v *time.Time) string {
	if v == nil || v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
