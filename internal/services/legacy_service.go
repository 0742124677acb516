package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/chatstack/go-chat-api/internal/domain"
	"github.com/chatstack/go-chat-api/internal/llm"
	"github.com/chatstack/go-chat-api/internal/repo"
)

// LegacyChatService serves the original single-conversation chat log that
// lives embedded on the user record. It predates named sessions and stays
// separate from them; older clients still read and write it directly.
type LegacyChatService struct {
	DB        *gorm.DB
	Completer llm.Completer

	MaxMessageRunes int
}

// NewLegacyChatService wires the legacy chat-log service.
func NewLegacyChatService(db *gorm.DB, completer llm.Completer, maxMessageRunes int) *LegacyChatService {
	if maxMessageRunes <= 0 {
		maxMessageRunes = 4000
	}
	return &LegacyChatService{DB: db, Completer: completer, MaxMessageRunes: maxMessageRunes}
}

// Send appends the user's message to the legacy log, completes over the full
// log, and appends the reply. As with sessions, the user message is durable
// before the upstream call and survives an upstream failure.
func (s *LegacyChatService) Send(ctx context.Context, userID, content string) ([]domain.ChatMessage, error) {
	content, err := validateMessage(content, s.MaxMessageRunes)
	if err != nil {
		return nil, err
	}

	userMsg := domain.ChatMessage{
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	history, err := repo.AppendLegacyMessages(ctx, s.DB, userID, userMsg)
	if err != nil {
		return nil, mapLegacyErr(err)
	}

	reply, err := s.Completer.Complete(ctx, history)
	if err != nil {
		return nil, err
	}

	assistantMsg := domain.ChatMessage{
		Role:      domain.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	}
	history, err = repo.AppendLegacyMessages(ctx, s.DB, userID, assistantMsg)
	if err != nil {
		return nil, mapLegacyErr(err)
	}
	return history, nil
}

// List returns the whole legacy log in insertion order.
func (s *LegacyChatService) List(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	history, err := repo.GetLegacyMessages(ctx, s.DB, userID)
	if err != nil {
		return nil, mapLegacyErr(err)
	}
	return history, nil
}

// Clear empties the legacy log. Clearing an already-empty log succeeds.
func (s *LegacyChatService) Clear(ctx context.Context, userID string) error {
	if err := repo.ClearLegacyMessages(ctx, s.DB, userID); err != nil {
		return mapLegacyErr(err)
	}
	return nil
}

func mapLegacyErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
