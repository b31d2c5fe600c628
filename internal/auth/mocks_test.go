// AngelaMos | 2026
// mocks_test.go

package auth

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lumennodes/portal/internal/config"
	"github.com/lumennodes/portal/internal/core"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]*UserInfo
	email map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{
		byID:  make(map[string]*UserInfo),
		email: make(map[string]string),
	}
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.email[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	u := *m.byID[id]
	return &u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(
	_ context.Context,
	email, passwordHash, name string,
) (*UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	if _, exists := m.email[email]; exists {
		return nil, fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}

	u := &UserInfo{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         "USER",
		CreatedAt:    time.Now(),
	}
	m.byID[u.ID] = u
	m.email[email] = u.ID

	cp := *u
	return &cp, nil
}

func (m *memUsers) IncrementTokenVersion(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.TokenVersion++
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[userID]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUsers) setRole(userID, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[userID].Role = role
	m.byID[userID].TokenVersion++
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{revoked: make(map[string]time.Time)}
}

func (m *memRevocations) Revoke(_ context.Context, id string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[id] = exp
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.revoked[id]
	return ok, nil
}

func newTestSigner(t *testing.T, ttl time.Duration) *SessionSigner {
	t.Helper()

	dir := t.TempDir()
	priv := filepath.Join(dir, "private.pem")
	pub := filepath.Join(dir, "public.pem")
	require.NoError(t, WriteKeyPair(priv, pub))

	m, err := NewSessionSigner(config.JWTConfig{
		PrivateKeyPath: priv,
		PublicKeyPath:  pub,
		SessionExpire:  ttl,
		Issuer:         "lumennodes-test",
		Audience:       "lumennodes-portal",
	})
	require.NoError(t, err)
	return m
}
