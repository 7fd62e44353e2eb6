package playermap

import (
	"fmt"
	"time"

	"github.com/rostermesh/leaguesync/internal/domain/provider"
)

// Mapping links a provider-scoped player id to a canonical catalog player,
// with the confidence score that produced the link. A mapping is unique per
// (provider, provider player id) and shared across leagues and users.
type Mapping struct {
	ID               string
	Provider         provider.Provider
	ProviderPlayerID string
	PlayerID         string
	Confidence       float64
	Verified         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (m Mapping) Validate() error {
	if !m.Provider.Valid() {
		return fmt.Errorf("mapping provider is invalid")
	}
	if m.ProviderPlayerID == "" {
		return fmt.Errorf("mapping provider player id is required")
	}
	if m.PlayerID == "" {
		return fmt.Errorf("mapping player id is required")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("mapping confidence %v is out of range", m.Confidence)
	}
	return nil
}
