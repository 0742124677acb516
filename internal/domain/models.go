// Package domain defines the persistence models for users, chat sessions, and
// the messages they embed. These types are mapped with GORM and form the core
// data layer of the chat backend.
//
// The storage layout intentionally mirrors a document store: there are exactly
// two collections (users and chat_sessions) and messages never get rows of
// their own. A user's legacy chat log is embedded in the user record; a
// session's transcript is embedded in the session record. The two histories
// are independent and are never reconciled.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Message roles. Every ChatMessage carries exactly one of these.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultSessionTitle is the placeholder title given to freshly created
// sessions and considered eligible for auto-titling.
const DefaultSessionTitle = "New Chat"

// ChatMessage is a single utterance, authored either by the "user" or by the
// "assistant". Messages are immutable once appended and live embedded inside
// their container (User.Chats or ChatSession.Messages) as a JSON array, so
// they have no identity of their own.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// User is an account identity. Besides credentials it carries the legacy
// embedded chat log (Chats), the flat per-user history that predates
// first-class sessions and is kept alongside them for compatibility.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique across all users; uniqueness is enforced by the DB index
//     so duplicate signups fail at insert time, not via check-then-insert.
//   - PasswordHash: bcrypt digest; the plaintext never reaches this type.
//   - Chats: legacy ordered message log, embedded as JSON.
type User struct {
	ID           string                           `json:"id"         gorm:"type:char(36);primaryKey"`
	Name         string                           `json:"name"       gorm:"type:varchar(255);not null"`
	Email        string                           `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string                           `json:"-"          gorm:"type:varchar(100);not null"`
	Chats        datatypes.JSONSlice[ChatMessage] `json:"chats"`
	CreatedAt    time.Time                        `json:"created_at"`
	UpdatedAt    time.Time                        `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// ChatSession is a titled conversation thread owned by exactly one user. The
// full transcript is embedded as an ordered JSON array; ordering is insertion
// order and is never rewritten. UpdatedAt is refreshed on every persist, so
// UpdatedAt >= CreatedAt always holds.
//
// The FK association to User means orphaned sessions cannot be created and
// sessions are cascade-deleted with their owner.
type ChatSession struct {
	ID        string                           `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string                           `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_sessions"`
	Title     string                           `json:"title"      gorm:"type:varchar(255);not null;default:'New Chat'"`
	Messages  datatypes.JSONSlice[ChatMessage] `json:"messages"`
	CreatedAt time.Time                        `json:"created_at"`
	UpdatedAt time.Time                        `json:"updated_at"`

	// User is the owning account.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// SessionSummary is the projection of a ChatSession used by list responses.
// Message bodies are deliberately excluded, both to keep payloads small and to
// avoid shipping transcript content where only metadata was asked for.
type SessionSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
