package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/konohovalex/MachineNotesServer/internal/core/domain"
	"github.com/konohovalex/MachineNotesServer/internal/infra/logger"
	"github.com/konohovalex/MachineNotesServer/internal/infra/security"
	"github.com/konohovalex/MachineNotesServer/internal/transport/http/middleware"
	"github.com/konohovalex/MachineNotesServer/internal/usecase"
)

// AccountHandler exposes the account lifecycle endpoints.
type AccountHandler struct {
	accounts *usecase.AccountService
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes binds the account routes. SignUp, signIn, and refreshToken
// stay outside the auth gate so first-contact and expired-token callers can
// reach them; delete requires a verified bearer token.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	r.POST("/signUp", h.signUp)
	r.POST("/signIn", h.signIn)
	r.POST("/refreshToken", h.refreshToken)
	r.DELETE("/delete", authMiddleware, h.deleteAccount)
}

func (h *AccountHandler) signUp(c *gin.Context) {
	creds, ok := bindOptionalCredentials(c)
	if !ok {
		return
	}

	profile, err := h.accounts.SignUp(c.Request.Context(), creds, presentedToken(c))
	if err != nil {
		respondWithAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(profile))
}

func (h *AccountHandler) signIn(c *gin.Context) {
	creds, ok := bindOptionalCredentials(c)
	if !ok {
		return
	}

	profile, err := h.accounts.SignIn(c.Request.Context(), creds, presentedToken(c))
	if err != nil {
		respondWithAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(profile))
}

func (h *AccountHandler) refreshToken(c *gin.Context) {
	var oldRefreshToken string
	if err := c.ShouldBindJSON(&oldRefreshToken); err != nil || strings.TrimSpace(oldRefreshToken) == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh token payload is required"))
		return
	}

	accessToken := presentedToken(c)
	if accessToken == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing authorization header"))
		return
	}

	pair, err := h.accounts.Refresh(c.Request.Context(), accessToken, oldRefreshToken)
	if err != nil {
		respondWithAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *AccountHandler) deleteAccount(c *gin.Context) {
	token, ok := middleware.GetAccessToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	profile, err := h.accounts.Delete(c.Request.Context(), token)
	if err != nil {
		respondWithAccountError(c, err)
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(profile))
}

// bindOptionalCredentials reads the request body as credentials. An empty
// body is a valid request for a guest identity and yields nil credentials.
// Reports false after writing an error response for malformed payloads.
func bindOptionalCredentials(c *gin.Context) (*domain.Credentials, bool) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, true
	}

	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid credentials payload"))
		return nil, false
	}

	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserName == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "userName is required"))
		return nil, false
	}

	return &domain.Credentials{
		UserName: req.UserName,
		Password: req.Password,
	}, true
}

// presentedToken extracts the bearer token from the Authorization header if
// one was supplied. Lifecycle endpoints outside the auth gate treat an
// absent or malformed header as no token at all.
func presentedToken(c *gin.Context) string {
	token, err := security.TokenFromBearer(c.GetHeader("Authorization"))
	if err != nil {
		return ""
	}
	return token
}

// respondWithAccountError translates the lifecycle error taxonomy into HTTP
// responses. Anything outside the taxonomy is a storage or wiring fault; it
// is logged with the request id and surfaces as an opaque 500.
func respondWithAccountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "password does not meet requirements"))
	case errors.Is(err, usecase.ErrUserNameTaken):
		c.JSON(http.StatusConflict, NewErrorResponse(c, "user name already taken"))
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
	case errors.Is(err, usecase.ErrTokenMismatch):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "refresh token mismatch"))
	case errors.Is(err, usecase.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid or expired token"))
	case errors.Is(err, usecase.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "account not found"))
	default:
		logger.WithContext(c.Request.Context()).Error("account operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
	}
}
