package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nits830/pdf-mechanic/internal/shared/auth"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// Service contains account business logic.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Signup creates an account and issues a bearer token.
func (s *Service) Signup(ctx context.Context, name, email, password string) (User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return User{}, "", fmt.Errorf("%w: name and a valid email are required", ErrInvalidInput)
	}
	if len(password) < 6 {
		return User{}, "", fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", err
	}

	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// Signin authenticates by email and password and issues a bearer token.
func (s *Service) Signin(ctx context.Context, email, password string) (User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}

	if user.PasswordHash == "" {
		return User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// GetByID returns a user profile.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// UpdateProfile changes name and/or email; empty fields keep their value.
func (s *Service) UpdateProfile(ctx context.Context, userID, name, email string) (User, error) {
	user, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}

	if trimmed := strings.TrimSpace(name); trimmed != "" {
		user.Name = trimmed
	}
	if trimmed := strings.ToLower(strings.TrimSpace(email)); trimmed != "" {
		if !strings.Contains(trimmed, "@") {
			return User{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
		}
		user.Email = trimmed
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.Repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpsertFromAuth persists the identity delivered by an external sign-in
// provider and issues the same bearer token a password signin would.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) (string, error) {
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return "", errors.New("user id and email are required")
	}
	if err := s.Repo.Upsert(ctx, user); err != nil {
		return "", err
	}
	return s.issueToken(user)
}

func (s *Service) issueToken(user User) (string, error) {
	return auth.SignJWT(auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.Name,
	})
}
