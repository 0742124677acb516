// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatSession
// model.
//
// Every read and write here is scoped by the owning userID: a session id on
// its own is not sufficient authorization. A lookup that matches no owned row
// reports ErrNotFound regardless of whether the session exists for somebody
// else, so callers cannot probe for other users' session ids.
//
// Functions:
//
//   - CreateSession(ctx, db, userID, title) -> *domain.ChatSession, error
//     Inserts a new session with UUID primary key and an empty message array.
//
//   - ListSessionSummaries / CountSessions / ListSessionSummariesPage
//     Summary projections (no message bodies), ordered updated_at DESC.
//
//   - GetSession(ctx, db, id, userID) -> *domain.ChatSession, error
//     Fetches a single owned session, or ErrNotFound.
//
//   - AppendMessages(ctx, db, id, userID, msgs...) -> *domain.ChatSession, error
//     Appends to the embedded message array and refreshes updated_at.
//
//   - UpdateSessionTitle(ctx, db, id, userID, title) -> error
//
//   - DeleteSession(ctx, db, id, userID) -> error
//     ErrNotFound when nothing owned matched.
//
//   - DeleteAllSessions(ctx, db, userID) -> (int64, error)
//     Idempotent bulk delete; zero rows is not an error.
//
//   - SessionsStats(ctx, db, userID) -> (count, maxUpdatedAt, error)
//     Aggregate metadata used for weak ETags on list responses.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chatstack/go-chat-api/internal/domain"
)

// CreateSession inserts a new ChatSession owned by userID with the given
// title. Messages start as an empty array so a fresh session serializes as
// "messages": [] rather than null.
func CreateSession(ctx context.Context, db *gorm.DB, userID, title string) (*domain.ChatSession, error) {
	now := time.Now().UTC()
	s := &domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Messages:  datatypes.NewJSONSlice([]domain.ChatMessage{}),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ListSessionSummaries returns summary projections of all sessions belonging
// to userID, most recently updated first. Message bodies are not selected.
func ListSessionSummaries(ctx context.Context, db *gorm.DB, userID string) ([]domain.SessionSummary, error) {
	out := []domain.SessionSummary{}
	err := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Select("id", "title", "created_at", "updated_at").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Scan(&out).Error
	return out, err
}

// CountSessions returns the total number of sessions owned by userID.
func CountSessions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListSessionSummariesPage returns a paginated slice of session summaries for
// userID, ordered updated_at DESC. The caller computes offset and limit.
func ListSessionSummariesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.SessionSummary, error) {
	out := []domain.SessionSummary{}
	err := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Select("id", "title", "created_at", "updated_at").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Offset(offset).
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// GetSession fetches a single session by its ID and owner. If no owned row
// matches, it returns ErrNotFound.
func GetSession(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	if s.Messages == nil {
		s.Messages = datatypes.NewJSONSlice([]domain.ChatMessage{})
	}
	return &s, nil
}

// AppendMessages appends msgs to the session's embedded transcript in call
// order and refreshes updated_at. It returns the updated session, or
// ErrNotFound when the session does not exist or is not owned by userID.
func AppendMessages(ctx context.Context, db *gorm.DB, id, userID string, msgs ...domain.ChatMessage) (*domain.ChatSession, error) {
	s, err := GetSession(ctx, db, id, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	transcript := append([]domain.ChatMessage(s.Messages), msgs...)
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"messages":   datatypes.NewJSONSlice(transcript),
			"updated_at": now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	s.Messages = datatypes.NewJSONSlice(transcript)
	s.UpdatedAt = now
	return s, nil
}

// UpdateSessionTitle updates the title of a session identified by id and
// owned by userID, refreshing updated_at. If no rows are affected it returns
// ErrNotFound.
func UpdateSessionTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"title":      title,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteSession removes a single owned session. ErrNotFound when nothing
// owned matched, so cross-user delete attempts are indistinguishable from
// deleting a session that never existed.
func DeleteSession(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.ChatSession{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteAllSessions removes every session owned by userID and returns how
// many rows were deleted. Deleting when none exist succeeds with zero.
func DeleteAllSessions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.ChatSession{})
	return res.RowsAffected, res.Error
}

// SessionsStats returns aggregate metadata for a user's sessions: the total
// number of rows and the maximum updated_at among them. Used for weak ETag
// generation on list responses. When the user has no sessions, count is 0 and
// maxUpdatedAt is nil.
func SessionsStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ChatSession{}).Where("user_id = ?", userID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
