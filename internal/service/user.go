package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/joescharf/urbaneyes/internal/models"
	"github.com/joescharf/urbaneyes/internal/store"
)

// LoginSuccessful is the message Login returns on a password match.
const LoginSuccessful = "Login successful"

// UserManager owns registration, login and user CRUD. Passwords are stored
// as bcrypt hashes.
type UserManager struct {
	store store.Store
	cost  int
}

// NewUserManager creates a UserManager over s.
func NewUserManager(s store.Store) *UserManager {
	return &UserManager{store: s, cost: bcrypt.DefaultCost}
}

// Register creates a new account.
func (m *UserManager) Register(ctx context.Context, u *models.User) (*models.User, error) {
	if err := validate(u); err != nil {
		return nil, err
	}
	hash, err := m.hash(u.Password)
	if err != nil {
		return nil, err
	}

	created := &models.User{Username: u.Username, Email: u.Email, PasswordHash: hash}
	if err := m.store.SaveUser(ctx, created); err != nil {
		return nil, emailErr(u.Email, err)
	}
	return created, nil
}

// Login checks a password against the account registered under email.
func (m *UserManager) Login(ctx context.Context, email, password string) (string, error) {
	u, err := m.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return LoginSuccessful, nil
}

// List returns every user.
func (m *UserManager) List(ctx context.Context) ([]*models.User, error) {
	return m.store.ListUsers(ctx)
}

// Get returns the user with the given id, or nil if there is none.
func (m *UserManager) Get(ctx context.Context, id int64) (*models.User, error) {
	u, err := m.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

// Update replaces username, email and password of an existing user.
func (m *UserManager) Update(ctx context.Context, id int64, patch *models.User) (*models.User, error) {
	existing, err := m.store.GetUser(ctx, id)
	if err != nil {
		return nil, notFound("user", id, err)
	}
	if err := validate(patch); err != nil {
		return nil, err
	}
	hash, err := m.hash(patch.Password)
	if err != nil {
		return nil, err
	}

	existing.Username = patch.Username
	existing.Email = patch.Email
	existing.PasswordHash = hash

	if err := m.store.SaveUser(ctx, existing); err != nil {
		return nil, notFound("user", id, emailErr(patch.Email, err))
	}
	return existing, nil
}

// Delete removes a user.
func (m *UserManager) Delete(ctx context.Context, id int64) error {
	err := mustExist("user", id, func() (bool, error) { return m.store.UserExists(ctx, id) })
	if err != nil {
		return err
	}
	return notFound("user", id, m.store.DeleteUser(ctx, id))
}

func (m *UserManager) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most 72 bytes", ErrValidation)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func emailErr(email string, err error) error {
	if errors.Is(err, store.ErrDuplicateKey) {
		return fmt.Errorf("%s: %w", email, ErrEmailTaken)
	}
	return err
}
