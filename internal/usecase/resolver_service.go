package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rostermesh/leaguesync/internal/domain/player"
	"github.com/rostermesh/leaguesync/internal/domain/playermap"
	"github.com/rostermesh/leaguesync/internal/domain/provider"
	"github.com/rostermesh/leaguesync/internal/platform/logging"
)

// Confidence weights for the identity signals. A candidate that matches on
// every signal scores exactly 1.0.
const (
	firstNameWeight = 0.4
	teamWeight      = 0.3
	positionWeight  = 0.2
	jerseyWeight    = 0.1

	// Scores at or below mapThreshold leave the player unmapped.
	mapThreshold = 0.5
	// Scores above verifiedThreshold mark the mapping verified.
	verifiedThreshold = 0.95
)

// Resolution is the write set produced by resolving one league's rosters.
// Inserts and Updates are ordered by provider player id.
type Resolution struct {
	Inserts   []playermap.Mapping
	Updates   []playermap.Mapping
	Mapped    int
	Unmatched int
}

// ResolverService matches provider roster entries against the canonical
// player catalog. It reads the catalog and the existing mappings in one
// batch query each, regardless of roster size, and produces mapping writes
// for the sync transaction to apply.
type ResolverService struct {
	players  player.Repository
	mappings playermap.Repository
	logger   *logging.Logger
}

func NewResolverService(players player.Repository, mappings playermap.Repository, logger *logging.Logger) *ResolverService {
	if logger == nil {
		logger = logging.Default()
	}

	return &ResolverService{
		players:  players,
		mappings: mappings,
		logger:   logger,
	}
}

// ResolveLeaguePlayers resolves every distinct rostered player in a league.
// Re-running it over unchanged rosters and an unchanged catalog produces an
// empty write set.
func (s *ResolverService) ResolveLeaguePlayers(ctx context.Context, p provider.Provider, players []NormalizedPlayer) (Resolution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ResolverService.ResolveLeaguePlayers")
	defer span.End()

	if !p.Valid() {
		return Resolution{}, fmt.Errorf("%w: provider %q", ErrInvalidInput, p)
	}

	distinct := dedupePlayers(players)
	if len(distinct) == 0 {
		return Resolution{}, nil
	}

	names := make([]string, 0, len(distinct))
	ids := make([]string, 0, len(distinct))
	seenNames := make(map[string]struct{}, len(distinct))
	for _, np := range distinct {
		ids = append(ids, np.ProviderPlayerID)
		key := strings.ToLower(np.Name)
		if _, ok := seenNames[key]; ok {
			continue
		}
		seenNames[key] = struct{}{}
		names = append(names, np.Name)
	}

	candidates, err := s.players.FindByNames(ctx, names)
	if err != nil {
		return Resolution{}, fmt.Errorf("find catalog candidates: %w", err)
	}
	byName := indexCandidatesByName(candidates)

	existing, err := s.mappings.ListByProviderPlayerIDs(ctx, p, ids)
	if err != nil {
		return Resolution{}, fmt.Errorf("list existing mappings: %w", err)
	}
	current := make(map[string]playermap.Mapping, len(existing))
	for _, m := range existing {
		current[m.ProviderPlayerID] = m
	}

	resolution := Resolution{}
	for _, np := range distinct {
		best, score := bestCandidate(np, byName[strings.ToLower(np.Name)])
		prior, hasPrior := current[np.ProviderPlayerID]

		if best == nil || score <= mapThreshold {
			if hasPrior {
				resolution.Mapped++
			} else {
				resolution.Unmatched++
			}
			continue
		}

		mapping := playermap.Mapping{
			Provider:         p,
			ProviderPlayerID: np.ProviderPlayerID,
			PlayerID:         best.ID,
			Confidence:       score,
			Verified:         score > verifiedThreshold,
		}

		switch {
		case !hasPrior:
			resolution.Inserts = append(resolution.Inserts, mapping)
			resolution.Mapped++
		case score > prior.Confidence:
			mapping.ID = prior.ID
			resolution.Updates = append(resolution.Updates, mapping)
			resolution.Mapped++
		default:
			// Existing mapping wins; confidence never degrades.
			resolution.Mapped++
		}
	}

	sort.SliceStable(resolution.Inserts, func(i, j int) bool {
		return resolution.Inserts[i].ProviderPlayerID < resolution.Inserts[j].ProviderPlayerID
	})
	sort.SliceStable(resolution.Updates, func(i, j int) bool {
		return resolution.Updates[i].ProviderPlayerID < resolution.Updates[j].ProviderPlayerID
	})

	if resolution.Unmatched > 0 {
		s.logger.DebugContext(ctx, "roster players left unmatched",
			"provider", p.String(),
			"unmatched", resolution.Unmatched,
			"total", len(distinct),
		)
	}

	return resolution, nil
}

// scoreCandidate computes the additive confidence score for one candidate.
// Every candidate already matched the roster entry by name; the score
// measures how strongly the remaining signals agree.
func scoreCandidate(np NormalizedPlayer, candidate player.Player) float64 {
	score := 0.0

	if first := firstToken(np.Name); first != "" && strings.EqualFold(first, candidate.FirstName) {
		score += firstNameWeight
	}
	if np.Team != "" && candidate.CurrentTeam != "" &&
		strings.Contains(strings.ToLower(candidate.CurrentTeam), strings.ToLower(np.Team)) {
		score += teamWeight
	}
	if np.Position != "" && candidate.HasPosition(np.Position) {
		score += positionWeight
	}
	if np.JerseyNumber != nil && candidate.JerseyNumber != nil && *np.JerseyNumber == *candidate.JerseyNumber {
		score += jerseyWeight
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// bestCandidate picks the highest-scoring candidate. Ties break on the
// lexically smallest catalog id so repeated runs pick the same player.
func bestCandidate(np NormalizedPlayer, candidates []player.Player) (*player.Player, float64) {
	var best *player.Player
	bestScore := -1.0

	for i := range candidates {
		candidate := candidates[i]
		score := scoreCandidate(np, candidate)
		if score > bestScore || (score == bestScore && best != nil && candidate.ID < best.ID) {
			best = &candidates[i]
			bestScore = score
		}
	}

	if best == nil {
		return nil, 0
	}
	return best, bestScore
}

func dedupePlayers(players []NormalizedPlayer) []NormalizedPlayer {
	distinct := make([]NormalizedPlayer, 0, len(players))
	seen := make(map[string]struct{}, len(players))
	for _, np := range players {
		if np.ProviderPlayerID == "" || np.Name == "" {
			continue
		}
		if _, ok := seen[np.ProviderPlayerID]; ok {
			continue
		}
		seen[np.ProviderPlayerID] = struct{}{}
		distinct = append(distinct, np)
	}
	return distinct
}

func indexCandidatesByName(candidates []player.Player) map[string][]player.Player {
	byName := make(map[string][]player.Player, len(candidates))
	add := func(name string, c player.Player) {
		key := strings.ToLower(name)
		if key == "" {
			return
		}
		for _, existing := range byName[key] {
			if existing.ID == c.ID {
				return
			}
		}
		byName[key] = append(byName[key], c)
	}

	for _, c := range candidates {
		add(c.FullName, c)
		for _, alt := range c.AlternateNames {
			add(alt, c)
		}
	}
	return byName
}

func firstToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
