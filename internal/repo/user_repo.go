// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model,
// including the legacy embedded chat log.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return ErrNotFound.
//   - CreateUser returns ErrDuplicateEmail on a unique-index violation, so
//     duplicate signups are caught by the constraint rather than by a racy
//     check-then-insert.
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chatstack/go-chat-api/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicateEmail is returned by CreateUser when the email is already taken.
var ErrDuplicateEmail = errors.New("email already registered")

// CreateUser inserts a new User row with the given (already hashed) password.
// The user ID is a randomly generated UUID and CreatedAt is set to UTC. The
// legacy chat log starts as an empty array.
//
// A unique violation on the email index is reported as ErrDuplicateEmail.
func CreateUser(ctx context.Context, db *gorm.DB, name, email, passwordHash string) (*domain.User, error) {
	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Chats:        datatypes.NewJSONSlice([]domain.ChatMessage{}),
		CreatedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// GetUserByEmail fetches a user by email, or ErrNotFound.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID fetches a user by primary key, or ErrNotFound.
func GetUserByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsers returns all users ordered by creation time ascending.
func ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).Order("created_at ASC").Find(&out).Error
	return out, err
}

// AppendLegacyMessages appends messages to the user's embedded legacy chat
// log, preserving insertion order, and returns the full updated log. The
// legacy log and the session store are independent histories; nothing here
// touches chat_sessions.
func AppendLegacyMessages(ctx context.Context, db *gorm.DB, userID string, msgs ...domain.ChatMessage) ([]domain.ChatMessage, error) {
	u, err := GetUserByID(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	log := append([]domain.ChatMessage(u.Chats), msgs...)
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"chats":      datatypes.NewJSONSlice(log),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return log, nil
}

// GetLegacyMessages returns the user's embedded legacy chat log in insertion
// order. A user with no history yields an empty slice, never nil.
func GetLegacyMessages(ctx context.Context, db *gorm.DB, userID string) ([]domain.ChatMessage, error) {
	u, err := GetUserByID(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	if u.Chats == nil {
		return []domain.ChatMessage{}, nil
	}
	return u.Chats, nil
}

// ClearLegacyMessages empties the user's legacy chat log. Clearing an already
// empty log is not an error.
func ClearLegacyMessages(ctx context.Context, db *gorm.DB, userID string) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"chats":      datatypes.NewJSONSlice([]domain.ChatMessage{}),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation sniffs driver errors for unique-index failures.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
