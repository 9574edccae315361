package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/store"
)

// IssueManager owns the issue lifecycle: creation defaults, wholesale
// updates, status changes and the category reference.
//
// Update and UpdateStatus read the current row and write it back without
// a version check, so two concurrent writers to the same issue can lose
// one of the updates.
type IssueManager struct {
	store store.Store
	now   Clock
}

// NewIssueManager creates an IssueManager. A nil clock means SystemClock.
func NewIssueManager(s store.Store, clock Clock) *IssueManager {
	if clock == nil {
		clock = SystemClock
	}
	return &IssueManager{store: s, now: clock}
}

// List returns every issue.
func (m *IssueManager) List(ctx context.Context) ([]*models.Issue, error) {
	return m.store.ListIssues(ctx)
}

// ListByCategory returns the issues filed under categoryID.
func (m *IssueManager) ListByCategory(ctx context.Context, categoryID int64) ([]*models.Issue, error) {
	return m.store.ListIssuesByCategory(ctx, categoryID)
}

// Get returns the issue with the given id, or nil if there is none.
func (m *IssueManager) Get(ctx context.Context, id int64) (*models.Issue, error) {
	issue, err := m.store.GetIssue(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return issue, err
}

// Create files a new issue. Status is always PENDING and both timestamps
// are set to the current time; caller-supplied values for them are ignored.
func (m *IssueManager) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	now := m.now()
	created := &models.Issue{
		Title:       issue.Title,
		Description: issue.Description,
		Status:      models.IssueStatusPending,
		CategoryID:  issue.CategoryRef(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate(created); err != nil {
		return nil, err
	}
	if err := m.attachCategory(ctx, created); err != nil {
		return nil, err
	}

	if err := m.store.SaveIssue(ctx, created); err != nil {
		return nil, categoryErr(created.CategoryID, err)
	}
	return created, nil
}

// Update replaces title, description, status and category of an existing
// issue. The id and CreatedAt are preserved; UpdatedAt is refreshed.
func (m *IssueManager) Update(ctx context.Context, id int64, patch *models.Issue) (*models.Issue, error) {
	existing, err := m.store.GetIssue(ctx, id)
	if err != nil {
		return nil, notFound("issue", id, err)
	}

	existing.Title = patch.Title
	existing.Description = patch.Description
	existing.Status = patch.Status
	existing.CategoryID = patch.CategoryRef()
	existing.UpdatedAt = m.now()

	if err := validate(existing); err != nil {
		return nil, err
	}
	if err := m.attachCategory(ctx, existing); err != nil {
		return nil, err
	}

	if err := m.store.SaveIssue(ctx, existing); err != nil {
		return nil, notFound("issue", id, categoryErr(existing.CategoryID, err))
	}
	return existing, nil
}

// UpdateStatus changes only the status (and UpdatedAt) of an issue. Any
// known status may follow any other.
func (m *IssueManager) UpdateStatus(ctx context.Context, id int64, status models.IssueStatus) (*models.Issue, error) {
	existing, err := m.store.GetIssue(ctx, id)
	if err != nil {
		return nil, notFound("issue", id, err)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	existing.Status = status
	existing.UpdatedAt = m.now()

	if err := m.store.SaveIssue(ctx, existing); err != nil {
		return nil, notFound("issue", id, err)
	}
	return existing, nil
}

// Delete removes an issue.
func (m *IssueManager) Delete(ctx context.Context, id int64) error {
	err := mustExist("issue", id, func() (bool, error) { return m.store.IssueExists(ctx, id) })
	if err != nil {
		return err
	}
	return notFound("issue", id, m.store.DeleteIssue(ctx, id))
}

// attachCategory resolves the issue's category reference, failing with
// ErrCategoryNotFound when it does not exist.
func (m *IssueManager) attachCategory(ctx context.Context, issue *models.Issue) error {
	c, err := m.store.GetCategory(ctx, issue.CategoryID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("category %d: %w", issue.CategoryID, ErrCategoryNotFound)
	}
	if err != nil {
		return err
	}
	issue.Category = c
	return nil
}

// categoryErr maps a foreign key failure on save (the category vanished
// between the check and the write) to ErrCategoryNotFound.
func categoryErr(categoryID int64, err error) error {
	if errors.Is(err, store.ErrForeignKeyViolation) {
		return fmt.Errorf("category %d: %w", categoryID, ErrCategoryNotFound)
	}
	return err
}
