// Auth HTTP handlers.
//
// This file exposes the account endpoints:
//   - POST /auth/signup   (register)
//   - POST /auth/login    (verify credentials, set identity cookie)
//   - POST /auth/logout   (clear identity cookie)
//   - GET  /auth/status   (identify the current user)
//
// The identity token is delivered as an HttpOnly cookie so browser scripts
// never see it. Logout clears the cookie with identical attributes; the
// token itself stays valid until expiry since there is no server-side
// revocation list.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatstack/go-chat-api/internal/domain"
	"github.com/chatstack/go-chat-api/internal/services"
)

// AuthService defines the account operations consumed by HTTP handlers.
// Implementations must be safe for concurrent use and honor ctx.
type AuthService interface {
	// Signup registers a new account and returns it with a fresh token.
	Signup(ctx context.Context, name, email, password string) (*domain.User, string, error)
	// Login verifies credentials and returns the account with a fresh token.
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	// Status returns the account for an authenticated user ID.
	Status(ctx context.Context, userID string) (*domain.User, error)
}

//
// DTOs
//

// SignupRequest is the JSON payload for registering an account.
type SignupRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=120" example:"Ann"`
	Email    string `json:"email" binding:"required,email" example:"ann@example.com"`
	Password string `json:"password" binding:"required,max=128"`
}

// LoginRequest is the JSON payload for logging in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"ann@example.com"`
	Password string `json:"password" binding:"required"`
}

// IdentityResponse is the public view of an account. The password hash
// never appears in any response.
type IdentityResponse struct {
	Name  string `json:"name" example:"Ann"`
	Email string `json:"email" example:"ann@example.com"`
}

// userID extracts the authenticated user ID placed in the Gin context by the
// auth middleware. Empty when the route is not behind RequireAuth.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

//
// Handlers
//

// Signup godoc
// @ID          signup
// @Summary     Register a new account
// @Description Creates an account. The email must not already be registered.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.SignupRequest  true  "Signup payload"
//
// @Success     201  {object}  handlers.IdentityResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Email already registered"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/signup [post]
func (h *Handlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, email and password are required")
		return
	}

	user, _, err := h.authSvc.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateEmail):
			fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
		case errors.Is(err, services.ErrInvalidInput):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSignupFailed, "could not create account")
		}
		return
	}

	ok(c, http.StatusCreated, IdentityResponse{Name: user.Name, Email: user.Email})
}

// Login godoc
// @ID          login
// @Summary     Log in
// @Description Verifies credentials and sets the identity cookie. An unknown
// @Description email yields 404 while a wrong password yields 403.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.LoginRequest  true  "Login payload"
//
// @Success     200  {object}  handlers.IdentityResponse
// @Header      200  {string}  Set-Cookie  "Identity cookie"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Incorrect password"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown email"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	user, token, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case errors.Is(err, services.ErrIncorrectPassword):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "incorrect password")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeLoginFailed, "could not log in")
		}
		return
	}

	h.cookies.Set(c.Writer, token)
	ok(c, http.StatusOK, IdentityResponse{Name: user.Name, Email: user.Email})
}

// Logout godoc
// @ID          logout
// @Summary     Log out
// @Description Clears the identity cookie. The token remains valid until its
// @Description natural expiry; there is no server-side revocation.
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object}  map[string]bool
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /auth/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	h.cookies.Clear(c.Writer)
	ok(c, http.StatusOK, gin.H{"ok": true})
}

// AuthStatus godoc
// @ID          authStatus
// @Summary     Current user
// @Description Returns the name and email of the authenticated user.
// @Tags        Auth
// @Produce     json
//
// @Success     200  {object}  handlers.IdentityResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Account gone"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/status [get]
func (h *Handlers) AuthStatus(c *gin.Context) {
	user, err := h.authSvc.Status(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			// Token valid but the account no longer exists.
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load account")
		return
	}
	ok(c, http.StatusOK, IdentityResponse{Name: user.Name, Email: user.Email})
}
