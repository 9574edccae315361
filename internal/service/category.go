package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/store"
)

// CategoryManager owns the category lifecycle.
type CategoryManager struct {
	store store.Store
}

// NewCategoryManager creates a CategoryManager over s.
func NewCategoryManager(s store.Store) *CategoryManager {
	return &CategoryManager{store: s}
}

// List returns every category.
func (m *CategoryManager) List(ctx context.Context) ([]*models.Category, error) {
	return m.store.ListCategories(ctx)
}

// Get returns the category with the given id, or nil if there is none.
func (m *CategoryManager) Get(ctx context.Context, id int64) (*models.Category, error) {
	c, err := m.store.GetCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// Create persists a new category. Any caller-supplied id is ignored.
func (m *CategoryManager) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	created := &models.Category{Name: c.Name}
	if err := m.store.SaveCategory(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

// Update renames an existing category, keeping its id.
func (m *CategoryManager) Update(ctx context.Context, id int64, patch *models.Category) (*models.Category, error) {
	existing, err := m.store.GetCategory(ctx, id)
	if err != nil {
		return nil, notFound("category", id, err)
	}

	existing.Name = patch.Name
	if err := validate(existing); err != nil {
		return nil, err
	}
	if err := m.store.SaveCategory(ctx, existing); err != nil {
		return nil, notFound("category", id, err)
	}
	return existing, nil
}

// Delete removes a category. Categories still referenced by issues are
// refused with ErrCategoryInUse.
func (m *CategoryManager) Delete(ctx context.Context, id int64) error {
	err := mustExist("category", id, func() (bool, error) { return m.store.CategoryExists(ctx, id) })
	if err != nil {
		return err
	}

	n, err := m.store.CountIssuesByCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("category %d has %d issue(s): %w", id, n, ErrCategoryInUse)
	}

	if err := m.store.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, store.ErrForeignKeyViolation) {
			return fmt.Errorf("category %d: %w", id, ErrCategoryInUse)
		}
		return notFound("category", id, err)
	}
	return nil
}
