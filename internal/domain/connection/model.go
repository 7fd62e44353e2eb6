package connection

import (
	"fmt"
	"time"

	"github.com/rostermesh/leaguesync/internal/domain/provider"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Credentials is opaque credential material for one provider account.
// Providers use different subsets; unused fields stay empty.
type Credentials struct {
	AccessToken    string `json:"access_token,omitempty"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	ProviderUserID string `json:"provider_user_id,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	APIToken       string `json:"api_token,omitempty"`
}

func (c Credentials) Empty() bool {
	return c.AccessToken == "" &&
		c.RefreshToken == "" &&
		c.ProviderUserID == "" &&
		c.Username == "" &&
		c.Password == "" &&
		c.APIToken == ""
}

// Connection links one user to one provider account. Connections are never
// deleted by the sync engine; they only flip between active and expired.
type Connection struct {
	ID           string
	UserID       string
	Provider     provider.Provider
	Credentials  Credentials
	Status       Status
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c Connection) Active() bool {
	return c.Status == StatusActive
}

func (c Connection) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("connection user id is required")
	}
	if !c.Provider.Valid() {
		return fmt.Errorf("connection provider is invalid")
	}
	if c.Credentials.Empty() {
		return fmt.Errorf("connection credentials are required")
	}
	return nil
}
