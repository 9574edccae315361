package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joescharf/urbaneyes/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// Supported values for the db.driver setting.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql. SQLite goes through
// modernc.org/sqlite (pure Go, no CGO); PostgreSQL through pgx's stdlib driver.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// Open opens a store for the given driver. For sqlite, source is a file
// path; for postgres, a connection string.
func Open(driver, source string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(source)
	case DriverPostgres:
		return NewPostgresStore(source)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single connection
	// serializes all DB access through Go's connection pool, preventing
	// "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	pragmas := []struct{ stmt, what string }{
		{"PRAGMA journal_mode=WAL", "enable WAL mode"},
		{"PRAGMA busy_timeout=5000", "set busy timeout"},
		{"PRAGMA foreign_keys=ON", "enable foreign keys"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p.what, err)
		}
	}

	return &SQLStore{db: db, dialect: DriverSQLite}, nil
}

// NewPostgresStore connects to PostgreSQL using the given DSN.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres driver requires db.dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &SQLStore{db: db, dialect: DriverPostgres}, nil
}

// q rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) q(query string) string {
	if s.dialect != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) migrationsTableDDL() string {
	if s.dialect == DriverPostgres {
		return `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	}
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`
}

// Migrate runs all embedded SQL migration files for the store's dialect in order.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.migrationsTableDDL()); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	dir := "migrations/" + s.dialect
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM schema_migrations WHERE filename = ?"), name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, s.q("INSERT INTO schema_migrations (filename) VALUES (?)"), name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// exists runs a COUNT query for a single id.
func (s *SQLStore) exists(ctx context.Context, table string, id int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM "+table+" WHERE id = ?"), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check %s exists: %w", table, err)
	}
	return n > 0, nil
}

// deleteByID removes one row, returning ErrNotFound when nothing matched.
func (s *SQLStore) deleteByID(ctx context.Context, table string, id int64) error {
	result, err := s.db.ExecContext(ctx, s.q("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, mapErr(err))
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

// checkUpdated turns a zero-row UPDATE into ErrNotFound.
func checkUpdated(result sql.Result, table string, id int64) error {
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

// --- Categories ---

func (s *SQLStore) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *SQLStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c := &models.Category{}
	err := s.db.QueryRowContext(ctx, s.q(`SELECT id, name FROM categories WHERE id = ?`), id).Scan(&c.ID, &c.Name)
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, mapErr(err))
	}
	return c, nil
}

func (s *SQLStore) SaveCategory(ctx context.Context, c *models.Category) error {
	if c.ID == 0 {
		err := s.db.QueryRowContext(ctx, s.q(`INSERT INTO categories (name) VALUES (?) RETURNING id`), c.Name).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("create category: %w", mapErr(err))
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, s.q(`UPDATE categories SET name=? WHERE id=?`), c.Name, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", mapErr(err))
	}
	return checkUpdated(result, "category", c.ID)
}

func (s *SQLStore) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, "categories", id)
}

func (s *SQLStore) DeleteCategory(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "categories", id)
}

func (s *SQLStore) CountIssuesByCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM issues WHERE category_id = ?`), categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count issues by category: %w", err)
	}
	return n, nil
}

// --- Issues ---

const issueSelect = `SELECT i.id, i.title, i.description, i.status, i.category_id, c.name, i.created_at, i.updated_at
	FROM issues i JOIN categories c ON c.id = i.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*models.Issue, error) {
	issue := &models.Issue{Category: &models.Category{}}
	var status string
	if err := row.Scan(&issue.ID, &issue.Title, &issue.Description, &status,
		&issue.CategoryID, &issue.Category.Name, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
		return nil, err
	}
	issue.Status = models.IssueStatus(status)
	issue.Category.ID = issue.CategoryID
	return issue, nil
}

func (s *SQLStore) listIssues(ctx context.Context, query string, args ...any) ([]*models.Issue, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []*models.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (s *SQLStore) ListIssues(ctx context.Context) ([]*models.Issue, error) {
	return s.listIssues(ctx, issueSelect+` ORDER BY i.id`)
}

func (s *SQLStore) ListIssuesByCategory(ctx context.Context, categoryID int64) ([]*models.Issue, error) {
	return s.listIssues(ctx, issueSelect+` WHERE i.category_id = ? ORDER BY i.id`, categoryID)
}

func (s *SQLStore) GetIssue(ctx context.Context, id int64) (*models.Issue, error) {
	issue, err := scanIssue(s.db.QueryRowContext(ctx, s.q(issueSelect+` WHERE i.id = ?`), id))
	if err != nil {
		return nil, fmt.Errorf("get issue %d: %w", id, mapErr(err))
	}
	return issue, nil
}

// SaveIssue persists the issue as given; timestamps are the caller's to set.
func (s *SQLStore) SaveIssue(ctx context.Context, issue *models.Issue) error {
	if issue.ID == 0 {
		err := s.db.QueryRowContext(ctx, s.q(
			`INSERT INTO issues (title, description, status, category_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			issue.Title, issue.Description, string(issue.Status), issue.CategoryID, issue.CreatedAt, issue.UpdatedAt,
		).Scan(&issue.ID)
		if err != nil {
			return fmt.Errorf("create issue: %w", mapErr(err))
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, s.q(
		`UPDATE issues SET title=?, description=?, status=?, category_id=?, created_at=?, updated_at=?
		WHERE id=?`),
		issue.Title, issue.Description, string(issue.Status), issue.CategoryID, issue.CreatedAt, issue.UpdatedAt, issue.ID,
	)
	if err != nil {
		return fmt.Errorf("update issue: %w", mapErr(err))
	}
	return checkUpdated(result, "issue", issue.ID)
}

func (s *SQLStore) IssueExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, "issues", id)
}

func (s *SQLStore) DeleteIssue(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "issues", id)
}

// --- Users ---

const userSelect = `SELECT id, username, email, password_hash FROM users`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *SQLStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, userSelect+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q(userSelect+` WHERE id = ?`), id))
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, mapErr(err))
	}
	return u, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q(userSelect+` WHERE email = ?`), email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", mapErr(err))
	}
	return u, nil
}

func (s *SQLStore) SaveUser(ctx context.Context, u *models.User) error {
	if u.ID == 0 {
		err := s.db.QueryRowContext(ctx, s.q(
			`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?) RETURNING id`),
			u.Username, u.Email, u.PasswordHash,
		).Scan(&u.ID)
		if err != nil {
			return fmt.Errorf("create user: %w", mapErr(err))
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, s.q(`UPDATE users SET username=?, email=?, password_hash=? WHERE id=?`),
		u.Username, u.Email, u.PasswordHash, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", mapErr(err))
	}
	return checkUpdated(result, "user", u.ID)
}

func (s *SQLStore) UserExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, "users", id)
}

func (s *SQLStore) DeleteUser(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "users", id)
}
