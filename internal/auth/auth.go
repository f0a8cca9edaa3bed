// Package auth remembers which user the taskdesk CLI acts as.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// VerifyTimeout bounds the round trip that checks a new identity.
const VerifyTimeout = 10 * time.Second

// Identity is the user the CLI sends in its requests.
type Identity struct {
	ActorID   int64  `json:"actor_id"`
	ContextID int64  `json:"context_id,omitempty"`
	Handle    string `json:"handle,omitempty"`
}

// Credentials stores the saved identity.
type Credentials struct {
	Identity  Identity `json:"identity"`
	CreatedAt int64    `json:"created_at"`
}

// Verifier asks the daemon whether an identity is on the allow-list.
type Verifier func(ctx context.Context, id Identity) error

// Manager handles the saved identity.
type Manager struct {
	configDir   string
	credentials *Credentials
	mu          sync.RWMutex
}

// NewManager creates a manager backed by ~/.config/taskdesk.
func NewManager() (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewManagerAt(filepath.Join(homeDir, ".config", "taskdesk"))
}

// NewManagerAt creates a manager that keeps its file in configDir.
func NewManagerAt(configDir string) (*Manager, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{configDir: configDir}

	// Missing or unreadable credentials just mean "logged out".
	_ = m.loadCredentials()

	return m, nil
}

// IsAuthenticated reports whether an identity is saved.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.credentials != nil && m.credentials.Identity.ActorID > 0
}

// Identity returns the saved identity, or nil.
func (m *Manager) Identity() *Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.credentials == nil {
		return nil
	}
	id := m.credentials.Identity
	return &id
}

// Login checks id with verify, when given, and saves it.
func (m *Manager) Login(ctx context.Context, id Identity, verify Verifier) (*Identity, error) {
	if id.ActorID <= 0 {
		return nil, fmt.Errorf("user id must be a positive number")
	}
	if id.ContextID == 0 {
		id.ContextID = id.ActorID
	}

	if verify != nil {
		vctx, cancel := context.WithTimeout(ctx, VerifyTimeout)
		defer cancel()
		if err := verify(vctx, id); err != nil {
			return nil, fmt.Errorf("user %d was not accepted: %w", id.ActorID, err)
		}
	}

	m.mu.Lock()
	m.credentials = &Credentials{
		Identity:  id,
		CreatedAt: time.Now().Unix(),
	}
	m.mu.Unlock()

	if err := m.saveCredentials(); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return &id, nil
}

// Logout clears the saved identity.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.credentials = nil
	m.mu.Unlock()

	if err := os.Remove(m.credentialsPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	return nil
}

// credentialsPath returns the path to the credentials file.
func (m *Manager) credentialsPath() string {
	return filepath.Join(m.configDir, "credentials.json")
}

// loadCredentials loads credentials from disk.
func (m *Manager) loadCredentials() error {
	data, err := os.ReadFile(m.credentialsPath())
	if err != nil {
		return err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return err
	}

	m.mu.Lock()
	m.credentials = &creds
	m.mu.Unlock()

	return nil
}

// saveCredentials saves credentials to disk.
func (m *Manager) saveCredentials() error {
	m.mu.RLock()
	creds := m.credentials
	m.mu.RUnlock()

	if creds == nil {
		return nil
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(m.credentialsPath(), data, 0600)
}
