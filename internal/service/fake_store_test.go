package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/store"
)

// memStore is an in-memory store.Store. It copies records in and out so
// tests observe only what was saved.
type memStore struct {
	mu         sync.Mutex
	nextID     int64
	categories map[int64]models.Category
	issues     map[int64]models.Issue
	users      map[int64]models.User

	// Optional error injection.
	listIssuesErr error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		categories: map[int64]models.Category{},
		issues:     map[int64]models.Issue{},
		users:      map[int64]models.User{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func sortedKeys[V any](in map[int64]V) []int64 {
	keys := make([]int64, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func notFoundErr(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, store.ErrNotFound)
}

// --- Categories ---

func (m *memStore) ListCategories(_ context.Context) ([]*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Category
	for _, id := range sortedKeys(m.categories) {
		c := m.categories[id]
		out = append(out, &c)
	}
	return out, nil
}

func (m *memStore) GetCategory(_ context.Context, id int64) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, notFoundErr("category", id)
	}
	return &c, nil
}

func (m *memStore) SaveCategory(_ context.Context, c *models.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.id()
	} else if _, ok := m.categories[c.ID]; !ok {
		return notFoundErr("category", c.ID)
	}
	m.categories[c.ID] = *c
	return nil
}

func (m *memStore) CategoryExists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.categories[id]
	return ok, nil
}

func (m *memStore) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return notFoundErr("category", id)
	}
	for _, i := range m.issues {
		if i.CategoryID == id {
			return &store.Error{Sentinel: store.ErrForeignKeyViolation, Cause: errors.New("FOREIGN KEY constraint failed")}
		}
	}
	delete(m.categories, id)
	return nil
}

func (m *memStore) CountIssuesByCategory(_ context.Context, categoryID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, i := range m.issues {
		if i.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// --- Issues ---

// loadIssue returns a copy of the stored issue with its category attached.
func (m *memStore) loadIssue(i models.Issue) *models.Issue {
	c := m.categories[i.CategoryID]
	i.Category = &c
	return &i
}

func (m *memStore) ListIssues(_ context.Context) ([]*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listIssuesErr != nil {
		return nil, m.listIssuesErr
	}
	var out []*models.Issue
	for _, id := range sortedKeys(m.issues) {
		out = append(out, m.loadIssue(m.issues[id]))
	}
	return out, nil
}

func (m *memStore) ListIssuesByCategory(_ context.Context, categoryID int64) ([]*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Issue
	for _, id := range sortedKeys(m.issues) {
		if i := m.issues[id]; i.CategoryID == categoryID {
			out = append(out, m.loadIssue(i))
		}
	}
	return out, nil
}

func (m *memStore) GetIssue(_ context.Context, id int64) (*models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.issues[id]
	if !ok {
		return nil, notFoundErr("issue", id)
	}
	return m.loadIssue(i), nil
}

func (m *memStore) SaveIssue(_ context.Context, issue *models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[issue.CategoryID]; !ok {
		return &store.Error{Sentinel: store.ErrForeignKeyViolation, Cause: errors.New("FOREIGN KEY constraint failed")}
	}
	if issue.ID == 0 {
		issue.ID = m.id()
	} else if _, ok := m.issues[issue.ID]; !ok {
		return notFoundErr("issue", issue.ID)
	}
	stored := *issue
	stored.Category = nil
	m.issues[issue.ID] = stored
	return nil
}

func (m *memStore) IssueExists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.issues[id]
	return ok, nil
}

func (m *memStore) DeleteIssue(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issues[id]; !ok {
		return notFoundErr("issue", id)
	}
	delete(m.issues, id)
	return nil
}

// --- Users ---

func (m *memStore) ListUsers(_ context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.User
	for _, id := range sortedKeys(m.users) {
		u := m.users[id]
		out = append(out, &u)
	}
	return out, nil
}

func (m *memStore) GetUser(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, notFoundErr("user", id)
	}
	return &u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range sortedKeys(m.users) {
		if u := m.users[id]; u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, store.ErrNotFound)
}

func (m *memStore) SaveUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, other := range m.users {
		if other.Email == u.Email && id != u.ID {
			return &store.Error{Sentinel: store.ErrDuplicateKey, Cause: errors.New("UNIQUE constraint failed: users.email")}
		}
	}
	if u.ID == 0 {
		u.ID = m.id()
	} else if _, ok := m.users[u.ID]; !ok {
		return notFoundErr("user", u.ID)
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) UserExists(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *memStore) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return notFoundErr("user", id)
	}
	delete(m.users, id)
	return nil
}

func (m *memStore) Migrate(_ context.Context) error { return nil }
func (m *memStore) Close() error                    { return nil }

// stepClock advances one second on every reading.
type stepClock struct {
	t time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}
