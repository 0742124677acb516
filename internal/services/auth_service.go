package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/chatstack/go-chat-api/internal/auth"
	"github.com/chatstack/go-chat-api/internal/domain"
	"github.com/chatstack/go-chat-api/internal/repo"
)

// AuthService implements account signup, credential login, and identity
// lookup. Passwords are stored as bcrypt hashes only; tokens are stateless
// JWTs minted by the injected Issuer.
type AuthService struct {
	DB     *gorm.DB
	Tokens *auth.Issuer
}

// NewAuthService wires the service to its database handle and token issuer.
func NewAuthService(db *gorm.DB, tokens *auth.Issuer) *AuthService {
	return &AuthService{DB: db, Tokens: tokens}
}

// normalizeEmail lowercases and trims so lookups are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new account and returns the created user together with
// a freshly minted session token, so the client is logged in immediately.
// Duplicate emails surface as ErrDuplicateEmail; the uniqueness check is the
// database constraint, not a read-then-write race.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := repo.CreateUser(ctx, s.DB, name, email, string(hash))
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, "", ErrDuplicateEmail
		}
		return nil, "", err
	}

	token, err := s.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login verifies credentials and mints a session token. An unknown email
// yields ErrUserNotFound and a bad password ErrIncorrectPassword; the two
// are distinct on purpose, matching the error surface clients already
// depend on.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := repo.GetUserByEmail(ctx, s.DB, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrIncorrectPassword
	}

	token, err := s.Tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Status returns the account behind an already-verified token subject.
func (s *AuthService) Status(ctx context.Context, userID string) (*domain.User, error) {
	user, err := repo.GetUserByID(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
