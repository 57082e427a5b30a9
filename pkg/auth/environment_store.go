package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only and meant for CI or container use.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based credential store.
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables.
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets credentials from environment variables.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	envUsername := os.Getenv("IGARCHIVE_USERNAME")
	password := os.Getenv("IGARCHIVE_PASSWORD")
	sessionID := os.Getenv("IGARCHIVE_SESSION_ID")

	if password == "" && sessionID == "" {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && envUsername != "" && username != envUsername {
		return nil, ErrCredentialsNotFound
	}
	if envUsername == "" {
		envUsername = username
	}
	if envUsername == "" {
		envUsername = "default"
	}

	return &Account{
		Username:     envUsername,
		Password:     password,
		SessionID:    sessionID,
		UserAgent:    os.Getenv("IGARCHIVE_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set.
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables.
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist.
func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv("IGARCHIVE_PASSWORD") != "" || os.Getenv("IGARCHIVE_SESSION_ID") != ""
}
