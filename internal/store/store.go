package store

import (
	"context"

	"github.com/joescharf/urbaneyes/internal/models"
)

// Store defines the persistence interface for urbaneyes.
//
// Get and Delete return ErrNotFound when the id does not resolve. Save
// inserts when the record has no id (populating it) and otherwise updates
// the existing row, returning ErrNotFound if that row is gone.
type Store interface {
	// Categories
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	SaveCategory(ctx context.Context, c *models.Category) error
	CategoryExists(ctx context.Context, id int64) (bool, error)
	DeleteCategory(ctx context.Context, id int64) error
	CountIssuesByCategory(ctx context.Context, categoryID int64) (int, error)

	// Issues
	ListIssues(ctx context.Context) ([]*models.Issue, error)
	ListIssuesByCategory(ctx context.Context, categoryID int64) ([]*models.Issue, error)
	GetIssue(ctx context.Context, id int64) (*models.Issue, error)
	SaveIssue(ctx context.Context, issue *models.Issue) error
	IssueExists(ctx context.Context, id int64) (bool, error)
	DeleteIssue(ctx context.Context, id int64) error

	// Users
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	UserExists(ctx context.Context, id int64) (bool, error)
	DeleteUser(ctx context.Context, id int64) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
