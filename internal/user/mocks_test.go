// AngelaMos | 2026
// mocks_test.go

package user

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lumennodes/portal/internal/core"
)

type memRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemRepo(users ...*User) *memRepo {
	m := &memRepo{users: make(map[string]*User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memRepo) get(id string) (*User, error) {
	u, ok := m.users[id]
	if !ok || u.IsDeleted() {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return u, nil
}

func (m *memRepo) Create(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email && !u.IsDeleted() {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && !u.IsDeleted() {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
}

func (m *memRepo) Update(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(user.ID)
	if err != nil {
		return err
	}
	u.Name = user.Name
	return nil
}

func (m *memRepo) UpdateRole(_ context.Context, id, role string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	u.TokenVersion++
	cp := *u
	return &cp, nil
}

func (m *memRepo) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (m *memRepo) IncrementTokenVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return err
	}
	u.TokenVersion++
	return nil
}

func (m *memRepo) SetPanelUserID(_ context.Context, id string, panelID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return false, err
	}
	if u.PanelUserID != nil {
		return false, nil
	}
	u.PanelUserID = &panelID
	return true, nil
}

func (m *memRepo) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.get(id)
	if err != nil {
		return err
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

func (m *memRepo) List(_ context.Context, _ ListUsersParams) ([]Summary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Summary, 0, len(m.users))
	for _, u := range m.users {
		if !u.IsDeleted() {
			out = append(out, Summary{User: *u})
		}
	}
	return out, len(out), nil
}

func (m *memRepo) Count(ctx context.Context) (int, error) {
	_, n, err := m.List(ctx, ListUsersParams{})
	return n, err
}
