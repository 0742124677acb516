// Legacy chat-log HTTP handlers.
//
// This file exposes the original single-conversation endpoints that predate
// named sessions:
//   - POST   /chats  (send a message, returns the full updated log)
//   - GET    /chats  (read the full log)
//   - DELETE /chats  (clear the log)
//
// The log lives embedded on the user record and is never merged with
// sessions; older clients depend on it staying a flat array.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatstack/go-chat-api/internal/domain"
	"github.com/chatstack/go-chat-api/internal/http/middleware"
	"github.com/chatstack/go-chat-api/internal/llm"
	"github.com/chatstack/go-chat-api/internal/services"
)

// LegacyChatRequest is the JSON payload for sending a legacy chat message.
type LegacyChatRequest struct {
	Message string `json:"message" binding:"required,min=1" example:"Hello"`
}

// LegacyChatResponse wraps the full chat log after an operation.
type LegacyChatResponse struct {
	Chats []domain.ChatMessage `json:"chats"`
}

// PostChat godoc
// @ID          postChat
// @Summary     Send a message on the legacy chat log
// @Description Appends the user message to the embedded log, requests a
// @Description completion over the full log, appends the reply, and returns
// @Description the updated log. The user message survives upstream failure.
// @Tags        Legacy
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LegacyChatRequest  true  "Message payload"
//
// @Success     200  {object}  handlers.LegacyChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Completion failed"
// @Router      /chats [post]
func (h *Handlers) PostChat(c *gin.Context) {
	var req LegacyChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	history, err := h.legacySvc.Send(c.Request.Context(), userID(c), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
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

	ok(c, http.StatusOK, LegacyChatResponse{Chats: history})
}

// ListChats godoc
// @ID          listChats
// @Summary     Read the legacy chat log
// @Tags        Legacy
// @Produce     json
//
// @Success     200  {object}  handlers.LegacyChatResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	history, err := h.legacySvc.List(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load chat log")
		return
	}
	ok(c, http.StatusOK, LegacyChatResponse{Chats: history})
}

// ClearChats godoc
// @ID          clearChats
// @Summary     Clear the legacy chat log
// @Description Empties the embedded log. Clearing an empty log succeeds.
// @Tags        Legacy
// @Produce     json
//
// @Success     200  {object}  handlers.LegacyChatResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chats [delete]
func (h *Handlers) ClearChats(c *gin.Context) {
	if err := h.legacySvc.Clear(c.Request.Context(), userID(c)); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not clear chat log")
		return
	}
	ok(c, http.StatusOK, LegacyChatResponse{Chats: []domain.ChatMessage{}})
}
