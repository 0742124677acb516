// Chat-session HTTP handlers.
//
// This file exposes the session endpoints:
//   - POST   /sessions                (create)
//   - GET    /sessions                (list summaries, paginated, ETag)
//   - GET    /sessions/{id}           (full transcript)
//   - PUT    /sessions/{id}/title     (rename)
//   - POST   /sessions/{id}/messages  (append message, get completion)
//   - DELETE /sessions/{id}           (delete one)
//   - DELETE /sessions                (delete all, also clears legacy log)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. Ownership is enforced
// in the repo layer; a session belonging to another user is indistinguishable
// from a missing one and yields 404.
//
// Idempotency: when POST /sessions/{id}/messages carries an Idempotency-Key
// already recorded for (user, session, key), the handler skips the append and
// the upstream call, returns the current session state, and sets
// `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatstack/go-chat-api/internal/auth"
	"github.com/chatstack/go-chat-api/internal/domain"
	"github.com/chatstack/go-chat-api/internal/http/middleware"
	"github.com/chatstack/go-chat-api/internal/llm"
	"github.com/chatstack/go-chat-api/internal/repo"
	"github.com/chatstack/go-chat-api/internal/services"
	"github.com/chatstack/go-chat-api/internal/utils"
)

//
// Service contracts (context-aware)
//

// SessionService defines the chat-session operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor ctx.
type SessionService interface {
	Create(ctx context.Context, userID, title string) (*domain.ChatSession, error)
	List(ctx context.Context, userID string, page, perPage int) ([]domain.SessionSummary, int64, error)
	Get(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error)
	Rename(ctx context.Context, userID, sessionID, title string) error
	Delete(ctx context.Context, userID, sessionID string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
	SendMessage(ctx context.Context, userID, sessionID, content string) (*domain.ChatSession, error)
}

// LegacyChatService defines operations on the embedded single-conversation
// chat log kept for older clients.
type LegacyChatService interface {
	Send(ctx context.Context, userID, content string) ([]domain.ChatMessage, error)
	List(ctx context.Context, userID string) ([]domain.ChatMessage, error)
	Clear(ctx context.Context, userID string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints and their service dependencies.
type Handlers struct {
	authSvc    AuthService
	sessionSvc SessionService
	legacySvc  LegacyChatService
	cookies    auth.CookiePolicy

	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(authSvc AuthService, sessionSvc SessionService, legacySvc LegacyChatService, cookies auth.CookiePolicy) *Handlers {
	return &Handlers{
		authSvc:        authSvc,
		sessionSvc:     sessionSvc,
		legacySvc:      legacySvc,
		cookies:        cookies,
		IdempotencyTTL: 24 * time.Hour,
	}
}

//
// DTOs
//

// CreateSessionRequest is the JSON payload for creating a session.
type CreateSessionRequest struct {
	// Title optionally names the session; empty selects the placeholder
	// that the first message will overwrite.
	Title string `json:"title" example:"Trip planning"`
}

// RenameSessionRequest is the JSON payload for renaming a session.
type RenameSessionRequest struct {
	Title string `json:"title" binding:"required,min=1,max=120" example:"Weekend in Lisbon"`
}

// PostSessionMessageRequest is the JSON payload for sending a message.
type PostSessionMessageRequest struct {
	// Message is the user's prompt. It must be non-empty after trimming.
	Message string `json:"message" binding:"required,min=1" example:"What should I pack?"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListSessionsResponse wraps a page of session summaries.
type ListSessionsResponse struct {
	Sessions   []domain.SessionSummary `json:"sessions"`
	Pagination Pagination              `json:"pagination"`
}

// DeleteSessionResponse confirms which session was removed.
type DeleteSessionResponse struct {
	SessionID string `json:"session_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// DeleteAllSessionsResponse reports the purge result. Chats carries the
// legacy log state after clearing, which is always empty, echoed so older
// clients can refresh their local copy in one round trip.
type DeleteAllSessionsResponse struct {
	Deleted int64                `json:"deleted"`
	Chats   []domain.ChatMessage `json:"chats"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), 20), 1, 100)
	return
}

// sessionDB exposes the concrete service's DB handle for ETag pre-checks and
// idempotency records. Fake services in tests return nil and skip both.
func (h *Handlers) sessionDB() *gorm.DB {
	if svc, ok := h.sessionSvc.(*services.SessionService); ok {
		return svc.DB
	}
	return nil
}

//
// Handlers
//

// CreateSession godoc
// @ID          createSession
// @Summary     Create a chat session
// @Description Creates an empty session for the current user.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateSessionRequest  false  "Optional title"
//
// @Success     201  {object}  domain.ChatSession
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	// Bind whenever a body is present. ContentLength is unreliable for
	// chunked requests, so an empty body is detected by the EOF from the
	// decoder instead.
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	sess, err := h.sessionSvc.Create(c.Request.Context(), userID(c), req.Title)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create session")
		return
	}
	ok(c, http.StatusCreated, sess)
}

// ListSessions godoc
// @ID          listSessions
// @Summary     List chat sessions (paginated)
// @Description Returns session summaries ordered by last activity, newest
// @Description first. Transcripts are not included. Supports weak ETag via
// @Description If-None-Match and may return 304.
// @Tags        Sessions
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"      minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"   minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListSessionsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions [get]
func (h *Handlers) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check, best effort.
	if db := h.sessionDB(); db != nil {
		count, maxTS, err := repo.SessionsStats(ctx, db, uid)
		if err == nil {
			// Nanosecond granularity: an append landing in the same
			// second as the previous list must still change the tag.
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"sessions:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.sessionSvc.List(ctx, uid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list sessions")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListSessionsResponse{
		Sessions: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetSession godoc
// @ID          getSession
// @Summary     Get one session
// @Description Returns the session with its full transcript. A session owned
// @Description by another user yields the same 404 as a missing one.
// @Tags        Sessions
// @Produce     json
//
// @Param       id  path  string  true  "Session ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.ChatSession
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions/{id} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	sess, err := h.sessionSvc.Get(c.Request.Context(), userID(c), sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load session")
		return
	}
	ok(c, http.StatusOK, sess)
}

// RenameSession godoc
// @ID          renameSession
// @Summary     Rename a session
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Session ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RenameSessionRequest  true  "New title"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     404  {object} handlers.ErrorResponse "Session not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /sessions/{id}/title [put]
func (h *Handlers) RenameSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	var req RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required (1-120 chars)")
		return
	}

	if err := h.sessionSvc.Rename(c.Request.Context(), userID(c), sessionID, req.Title); err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat session not found")
		case errors.Is(err, services.ErrInvalidInput):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not rename session")
		}
		return
	}
	noContent(c)
}

// PostSessionMessage godoc
// @ID          postSessionMessage
// @Summary     Send a message and get the assistant reply
// @Description Appends the user message to the session, requests a completion
// @Description over the full history, and appends the reply. The user message
// @Description is persisted before the upstream call; on upstream failure it
// @Description is kept and the error is reported. Supports idempotent retries
// @Description via the Idempotency-Key header.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Key for safe retries (UUID recommended)"
// @Param       id               path    string  true  "Session ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostSessionMessageRequest  true  "Message payload"
//
// @Success     200  {object}  domain.ChatSession  "Updated session"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Completion failed"
// @Router      /sessions/{id}/messages [post]
func (h *Handlers) PostSessionMessage(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	var req PostSessionMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	uid := userID(c)

	// Replay path: a recorded key means the append and completion already
	// happened; return the current session state without repeating either.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if db := h.sessionDB(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, uid, sessionID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if sess, err2 := h.sessionSvc.Get(ctx, uid, sessionID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, sess)
					return
				}
			}
		}
	}

	sess, err := h.sessionSvc.SendMessage(ctx, uid, sessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat session not found")
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, llm.ErrUpstreamAuth):
			middleware.ObserveCompletion("upstream_auth")
			fail(c, http.StatusInternalServerError, ErrCodeCompletionFailed, err.Error())
		case errors.Is(err, llm.ErrUpstream):
			middleware.ObserveCompletion("upstream_error")
			fail(c, http.StatusInternalServerError, ErrCodeCompletionFailed, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not process message")
		}
		return
	}
	middleware.ObserveCompletion("ok")

	// Store path, best effort. A failed write only means a retry will do
	// the work again.
	if idemKey != "" {
		if db := h.sessionDB(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, uid, sessionID, idemKey, http.StatusOK, h.IdempotencyTTL)
		}
	}

	ok(c, http.StatusOK, sess)
}

// DeleteSession godoc
// @ID          deleteSession
// @Summary     Delete a session
// @Tags        Sessions
// @Produce     json
//
// @Param       id  path  string  true  "Session ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.DeleteSessionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Session not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions/{id} [delete]
func (h *Handlers) DeleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "session id must be a UUID")
		return
	}

	if err := h.sessionSvc.Delete(c.Request.Context(), userID(c), sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat session not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete session")
		return
	}
	ok(c, http.StatusOK, DeleteSessionResponse{SessionID: sessionID})
}

// DeleteAllSessions godoc
// @ID          deleteAllSessions
// @Summary     Delete all sessions
// @Description Removes every session the user owns and clears the legacy
// @Description chat log. Deleting when no sessions exist succeeds.
// @Tags        Sessions
// @Produce     json
//
// @Success     200  {object}  handlers.DeleteAllSessionsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /sessions [delete]
func (h *Handlers) DeleteAllSessions(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	deleted, err := h.sessionSvc.DeleteAll(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete sessions")
		return
	}
	if err := h.legacySvc.Clear(ctx, uid); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not clear chat log")
		return
	}

	ok(c, http.StatusOK, DeleteAllSessionsResponse{
		Deleted: deleted,
		Chats:   []domain.ChatMessage{},
	})
}
