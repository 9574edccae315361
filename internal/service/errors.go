package service

import "errors"

var (
	// ErrNotFound is returned when an id (or login email) does not resolve
	// to an existing record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned by Login on a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrValidation wraps field-level validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrCategoryNotFound is returned when an issue references a category
	// that does not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrCategoryInUse is returned when deleting a category that issues
	// still reference.
	ErrCategoryInUse = errors.New("category is referenced by issues")

	// ErrEmailTaken is returned when registering or updating a user with
	// an email that already belongs to another account.
	ErrEmailTaken = errors.New("email already registered")
)
