// Package service holds the entity lifecycle rules for categories, issues
// and users. Each manager receives a store.Store at construction and
// performs one independent read or write per call.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/store"
)

// Clock returns the current time. Managers use it to stamp timestamps.
type Clock func() time.Time

// SystemClock returns the current UTC time at microsecond precision, the
// finest resolution both database dialects store.
func SystemClock() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// Managers bundles the three entity managers over one store.
type Managers struct {
	Categories *CategoryManager
	Issues     *IssueManager
	Users      *UserManager
}

// New builds all managers over s. A nil clock means SystemClock.
func New(s store.Store, clock Clock) *Managers {
	return &Managers{
		Categories: NewCategoryManager(s),
		Issues:     NewIssueManager(s, clock),
		Users:      NewUserManager(s),
	}
}

func validate(record any) error {
	if err := models.Validate(record); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// notFound converts a store miss into the service sentinel.
func notFound(kind string, id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return err
}

// mustExist is the existence check update and delete run before acting.
func mustExist(kind string, id int64, exists func() (bool, error)) error {
	ok, err := exists()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
