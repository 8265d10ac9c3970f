package users

import (
	"context"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]User // id -> user
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]User)}
}

// Create stores a new user, enforcing email uniqueness.
func (r *MemoryRepo) Create(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	r.data[user.ID] = user
	return nil
}

// Upsert inserts or replaces a user by ID.
func (r *MemoryRepo) Upsert(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.data {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	if existing, ok := r.data[user.ID]; ok {
		if user.PasswordHash == "" {
			user.PasswordHash = existing.PasswordHash
		}
		user.CreatedAt = existing.CreatedAt
	}
	r.data[user.ID] = user
	return nil
}

// GetByID returns a user by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.data[userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

// GetByEmail returns a user by email, case-insensitive.
func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.data {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

// Update replaces mutable fields of an existing user.
func (r *MemoryRepo) Update(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[user.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range r.data {
		if id != user.ID && strings.EqualFold(other.Email, user.Email) {
			return ErrEmailTaken
		}
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.UpdatedAt = user.UpdatedAt
	r.data[user.ID] = existing
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
