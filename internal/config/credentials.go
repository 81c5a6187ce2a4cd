package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"taskboard/internal/models"
)

// Credentials is what the client remembers between runs.
type Credentials struct {
	UserID       string    `yaml:"user_id"`
	Email        string    `yaml:"email"`
	RefreshToken string    `yaml:"refresh_token"`
	SavedAt      time.Time `yaml:"saved_at"`
}

// CredentialsFile stores Credentials as YAML with owner-only permissions.
type CredentialsFile struct {
	path string
}

// NewCredentialsFile returns a CredentialsFile at path.
func NewCredentialsFile(path string) *CredentialsFile {
	return &CredentialsFile{path: path}
}

// Load returns the saved credentials, or nil when none are saved.
func (f *CredentialsFile) Load() (*Credentials, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &creds, nil
}

// Save writes the refresh token and identity of session.
func (f *CredentialsFile) Save(session models.Session) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := yaml.Marshal(Credentials{
		UserID:       session.User.ID,
		Email:        session.User.Email,
		RefreshToken: session.RefreshToken,
		SavedAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	return os.WriteFile(f.path, data, 0o600)
}

// Clear removes the saved credentials.
func (f *CredentialsFile) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
