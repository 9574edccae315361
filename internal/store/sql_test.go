package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/urbaneyes/internal/models"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func seedCategory(t *testing.T, s *SQLStore, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, s.SaveCategory(context.Background(), c))
	return c
}

func newIssue(title string, categoryID int64) *models.Issue {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Issue{
		Title:       title,
		Description: "reported by a resident",
		Status:      models.IssueStatusPending,
		CategoryID:  categoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpen_PostgresRequiresDSN(t *testing.T) {
	_, err := Open(DriverPostgres, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.dsn")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

func TestRebindPlaceholders(t *testing.T) {
	pg := &SQLStore{dialect: DriverPostgres}
	assert.Equal(t, "UPDATE users SET username=$1, email=$2 WHERE id=$3",
		pg.q("UPDATE users SET username=?, email=? WHERE id=?"))

	lite := &SQLStore{dialect: DriverSQLite}
	assert.Equal(t, "SELECT * FROM users WHERE id = ?", lite.q("SELECT * FROM users WHERE id = ?"))
}

// --- Category CRUD ---

func TestCategoryCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Create
	c := &models.Category{Name: "Infrastructure"}
	require.NoError(t, s.SaveCategory(ctx, c))
	assert.NotZero(t, c.ID)

	// Get
	got, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Infrastructure", got.Name)

	// Update in place keeps the id
	got.Name = "Roads"
	require.NoError(t, s.SaveCategory(ctx, got))
	got2, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got2.ID)
	assert.Equal(t, "Roads", got2.Name)

	// List
	seedCategory(t, s, "Environment")
	categories, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Roads", categories[0].Name)
	assert.Equal(t, "Environment", categories[1].Name)

	// Exists
	ok, err := s.CategoryExists(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Delete
	require.NoError(t, s.DeleteCategory(ctx, c.ID))
	_, err = s.GetCategory(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = s.CategoryExists(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCategory_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetCategory(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SaveCategory(ctx, &models.Category{ID: 999, Name: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteCategory(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategory_ReferencedByIssue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := seedCategory(t, s, "Lighting")
	require.NoError(t, s.SaveIssue(ctx, newIssue("Broken streetlight", c.ID)))

	n, err := s.CountIssuesByCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = s.DeleteCategory(ctx, c.ID)
	assert.ErrorIs(t, err, ErrForeignKeyViolation)
}

// --- Issue CRUD ---

func TestIssueCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedCategory(t, s, "Roads")

	// Create
	issue := newIssue("Pothole on Main St", c.ID)
	require.NoError(t, s.SaveIssue(ctx, issue))
	assert.NotZero(t, issue.ID)

	// Get populates the category
	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pothole on Main St", got.Title)
	assert.Equal(t, models.IssueStatusPending, got.Status)
	assert.Equal(t, c.ID, got.CategoryID)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Roads", got.Category.Name)
	assert.True(t, issue.CreatedAt.Equal(got.CreatedAt), "created_at round trip")

	// Update
	got.Status = models.IssueStatusClosed
	got.Title = "Pothole filled"
	got.UpdatedAt = got.UpdatedAt.Add(time.Minute)
	require.NoError(t, s.SaveIssue(ctx, got))

	got2, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusClosed, got2.Status)
	assert.Equal(t, "Pothole filled", got2.Title)
	assert.True(t, got2.UpdatedAt.After(got2.CreatedAt))

	// Exists / Delete
	ok, err := s.IssueExists(ctx, issue.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.DeleteIssue(ctx, issue.ID))
	_, err = s.GetIssue(ctx, issue.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err = s.IssueExists(ctx, issue.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.DeleteIssue(ctx, issue.ID), ErrNotFound)
}

func TestSaveIssue_UnknownCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.SaveIssue(ctx, newIssue("Graffiti on wall", 42))
	assert.ErrorIs(t, err, ErrForeignKeyViolation)
}

func TestListIssuesByCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	roads := seedCategory(t, s, "Roads")
	parks := seedCategory(t, s, "Parks")
	empty := seedCategory(t, s, "Empty")

	for _, title := range []string{"Pothole A", "Pothole B", "Cracked curb"} {
		require.NoError(t, s.SaveIssue(ctx, newIssue(title, roads.ID)))
	}
	require.NoError(t, s.SaveIssue(ctx, newIssue("Broken bench", parks.ID)))

	all, err := s.ListIssues(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	got, err := s.ListIssuesByCategory(ctx, roads.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, i := range got {
		assert.Equal(t, roads.ID, i.CategoryID)
	}

	got, err = s.ListIssuesByCategory(ctx, parks.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Broken bench", got[0].Title)

	got, err = s.ListIssuesByCategory(ctx, empty.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// --- User CRUD ---

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &models.User{Username: "testuser", Email: "test@example.com", PasswordHash: "hash"}
	require.NoError(t, s.SaveUser(ctx, u))
	assert.NotZero(t, u.ID)

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "testuser", got.Username)
	assert.Equal(t, "hash", got.PasswordHash)

	got, err = s.GetUserByEmail(ctx, "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.GetUserByEmail(ctx, "unknown@x")
	assert.ErrorIs(t, err, ErrNotFound)

	got.Username = "renamed"
	require.NoError(t, s.SaveUser(ctx, got))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "renamed", users[0].Username)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	ok, err := s.UserExists(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveUser(ctx, &models.User{Username: "a", Email: "dup@example.com", PasswordHash: "x"}))
	err := s.SaveUser(ctx, &models.User{Username: "b", Email: "dup@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}
