package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/chatstack/go-chat-api/internal/domain"
	"github.com/chatstack/go-chat-api/internal/llm"
	"github.com/chatstack/go-chat-api/internal/repo"
)

// SessionRepo is the persistence surface SessionService depends on. The
// default implementation delegates to the free functions in internal/repo;
// tests swap in fakes.
type SessionRepo interface {
	Create(ctx context.Context, db *gorm.DB, userID, title string) (*domain.ChatSession, error)
	ListSummaries(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.SessionSummary, error)
	Count(ctx context.Context, db *gorm.DB, userID string) (int64, error)
	Get(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatSession, error)
	AppendMessages(ctx context.Context, db *gorm.DB, id, userID string, msgs ...domain.ChatMessage) (*domain.ChatSession, error)
	UpdateTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error
	Delete(ctx context.Context, db *gorm.DB, id, userID string) error
	DeleteAll(ctx context.Context, db *gorm.DB, userID string) (int64, error)
}

type gormSessionRepo struct{}

func (gormSessionRepo) Create(ctx context.Context, db *gorm.DB, userID, title string) (*domain.ChatSession, error) {
	return repo.CreateSession(ctx, db, userID, title)
}
func (gormSessionRepo) ListSummaries(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.SessionSummary, error) {
	return repo.ListSessionSummariesPage(ctx, db, userID, offset, limit)
}
func (gormSessionRepo) Count(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountSessions(ctx, db, userID)
}
func (gormSessionRepo) Get(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatSession, error) {
	return repo.GetSession(ctx, db, id, userID)
}
func (gormSessionRepo) AppendMessages(ctx context.Context, db *gorm.DB, id, userID string, msgs ...domain.ChatMessage) (*domain.ChatSession, error) {
	return repo.AppendMessages(ctx, db, id, userID, msgs...)
}
func (gormSessionRepo) UpdateTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return repo.UpdateSessionTitle(ctx, db, id, userID, title)
}
func (gormSessionRepo) Delete(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteSession(ctx, db, id, userID)
}
func (gormSessionRepo) DeleteAll(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.DeleteAllSessions(ctx, db, userID)
}

// SessionService owns the chat-session lifecycle and the send-message flow.
// The send flow persists the user's message before contacting the completion
// provider, so an upstream failure never loses what the user typed.
type SessionService struct {
	DB        *gorm.DB
	Repo      SessionRepo
	Completer llm.Completer

	// MaxMessageRunes caps a single message, counted in runes.
	MaxMessageRunes int
	// TitleMaxRunes caps auto-derived session titles.
	TitleMaxRunes int

	titleCaser cases.Caser
}

// NewSessionService wires the service with the default GORM-backed repo.
func NewSessionService(db *gorm.DB, completer llm.Completer, maxMessageRunes int) *SessionService {
	if maxMessageRunes <= 0 {
		maxMessageRunes = 4000
	}
	return &SessionService{
		DB:              db,
		Repo:            gormSessionRepo{},
		Completer:       completer,
		MaxMessageRunes: maxMessageRunes,
		TitleMaxRunes:   48,
		titleCaser:      cases.Title(language.English),
	}
}

// Create opens a new, empty session. A blank title falls back to the
// placeholder that the first message will later overwrite.
func (s *SessionService) Create(ctx context.Context, userID, title string) (*domain.ChatSession, error) {
	title = s.normalizeTitle(title)
	if title == "" {
		title = domain.DefaultSessionTitle
	}
	return s.Repo.Create(ctx, s.DB, userID, title)
}

// List returns one page of session summaries, newest activity first, plus
// the total count for pagination.
func (s *SessionService) List(ctx context.Context, userID string, page, perPage int) ([]domain.SessionSummary, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	total, err := s.Repo.Count(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.Repo.ListSummaries(ctx, s.DB, userID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get returns one session with its full transcript, scoped to the owner.
func (s *SessionService) Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	sess, err := s.Repo.Get(ctx, s.DB, sessionID, userID)
	if err != nil {
		return nil, mapSessionErr(err)
	}
	return sess, nil
}

// Rename sets a session title chosen by the user.
func (s *SessionService) Rename(ctx context.Context, userID, sessionID, title string) error {
	title = s.normalizeTitle(title)
	if title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if err := s.Repo.UpdateTitle(ctx, s.DB, sessionID, userID, title); err != nil {
		return mapSessionErr(err)
	}
	return nil
}

// Delete removes one session and its embedded transcript.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID string) error {
	if err := s.Repo.Delete(ctx, s.DB, sessionID, userID); err != nil {
		return mapSessionErr(err)
	}
	return nil
}

// DeleteAll removes every session the user owns and reports how many went.
// Deleting zero sessions is not an error.
func (s *SessionService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	return s.Repo.DeleteAll(ctx, s.DB, userID)
}

// SendMessage appends the user's message to the session, asks the completion
// provider for a reply over the full history, and appends the reply. The
// user message is committed before the upstream call; if the provider fails,
// the transcript keeps the user message and the error is returned as-is for
// the handler to classify.
func (s *SessionService) SendMessage(ctx context.Context, userID, sessionID, content string) (*domain.ChatSession, error) {
	content, err := validateMessage(content, s.MaxMessageRunes)
	if err != nil {
		return nil, err
	}

	sess, err := s.Repo.Get(ctx, s.DB, sessionID, userID)
	if err != nil {
		return nil, mapSessionErr(err)
	}

	userMsg := domain.ChatMessage{
		Role:      domain.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	sess, err = s.Repo.AppendMessages(ctx, s.DB, sessionID, userID, userMsg)
	if err != nil {
		return nil, mapSessionErr(err)
	}

	// First real message on a placeholder-titled session names the session.
	if sess.Title == domain.DefaultSessionTitle {
		if title := s.deriveTitle(content); title != "" {
			if err := s.Repo.UpdateTitle(ctx, s.DB, sessionID, userID, title); err == nil {
				sess.Title = title
			}
		}
	}

	reply, err := s.Completer.Complete(ctx, sess.Messages)
	if err != nil {
		return nil, err
	}

	assistantMsg := domain.ChatMessage{
		Role:      domain.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	}
	sess, err = s.Repo.AppendMessages(ctx, s.DB, sessionID, userID, assistantMsg)
	if err != nil {
		return nil, mapSessionErr(err)
	}
	return sess, nil
}

// validateMessage trims and bounds-checks a message body.
func validateMessage(content string, maxRunes int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxRunes {
		return "", fmt.Errorf("%w: limit is %d characters", ErrTooLong, maxRunes)
	}
	return content, nil
}

// deriveTitle builds a short title from the first message, title-cased and
// clipped at a word boundary where possible.
func (s *SessionService) deriveTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if title == "" {
		return ""
	}
	if utf8.RuneCountInString(title) > s.TitleMaxRunes {
		runes := []rune(title)
		clipped := string(runes[:s.TitleMaxRunes])
		if i := strings.LastIndex(clipped, " "); i > s.TitleMaxRunes/2 {
			clipped = clipped[:i]
		}
		title = clipped + "…"
	}
	return s.titleCaser.String(title)
}

// normalizeTitle collapses whitespace and clips user-supplied titles.
func (s *SessionService) normalizeTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if utf8.RuneCountInString(title) > 120 {
		title = string([]rune(title)[:120])
	}
	return title
}

// mapSessionErr folds repo not-found results into the service sentinel.
func mapSessionErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	return err
}
