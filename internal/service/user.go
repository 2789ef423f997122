package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hanbit-dev/fleamart/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// UserStore handles registration and credential checks over the persisted
// user collection.
type UserStore struct {
	kv          domain.KeyValueStore
	validator   *Validator
	bcryptCost  int
	adminEmails map[string]bool
	now         func() time.Time
}

// NewUserStore creates a new UserStore. Accounts registered with one of
// adminEmails are granted the admin role.
func NewUserStore(kv domain.KeyValueStore, validator *Validator, bcryptCost int, adminEmails []string) *UserStore {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = true
		}
	}
	return &UserStore{
		kv:          kv,
		validator:   validator,
		bcryptCost:  bcryptCost,
		adminEmails: admins,
		now:         time.Now,
	}
}

// Register creates a new user after re-validating every field; callers are
// expected to have validated already, but the store does not trust them.
// The email must not be present among stored users. The password is stored
// only as a one-way digest.
func (s *UserStore) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	if !s.validator.Validate(ctx, username, KindUsername) {
		return nil, fmt.Errorf("%w: username must be 2-20 letters, digits, or Hangul", domain.ErrInvalidInput)
	}
	if !s.validator.Validate(ctx, email, KindEmail) {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrInvalidInput)
	}
	if !s.validator.Validate(ctx, password, KindPassword) {
		return nil, fmt.Errorf("%w: password must be at least 8 characters with a letter, a digit, and a special character", domain.ErrInvalidInput)
	}

	users, err := loadCollection[domain.User](ctx, s.kv, domain.KeyUsers)
	if err != nil {
		return nil, err
	}

	// Linear scan is fine at this scale; a real backend would use a unique
	// index instead. The check-then-act window is accepted under the
	// single-actor model.
	var maxID int64
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return nil, domain.ErrDuplicateEmail
		}
		if u.ID > maxID {
			maxID = u.ID
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := domain.RoleUser
	if s.adminEmails[strings.ToLower(email)] {
		role = domain.RoleAdmin
	}

	user := domain.User{
		ID:           maxID + 1,
		Username:     Sanitize(username),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}

	users = append(users, user)
	if err := saveCollection(ctx, s.kv, domain.KeyUsers, users); err != nil {
		return nil, err
	}

	return &user, nil
}

// Authenticate verifies an email/password pair against the stored digest.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

// GetByID retrieves a user by id.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	users, err := loadCollection[domain.User](ctx, s.kv, domain.KeyUsers)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *UserStore) findByEmail(ctx context.Context, email string) (*domain.User, error) {
	users, err := loadCollection[domain.User](ctx, s.kv, domain.KeyUsers)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, domain.ErrUnauthorized
}
