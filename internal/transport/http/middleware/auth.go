package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/konohovalex/MachineNotesServer/internal/infra/security"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: requestIDFromContext(c.Request.Context()),
	}
}

// RequireAuth validates the Authorization bearer token signature and expiry.
// Validation stops there: the token is not checked against the account store,
// so handlers that need the owning account resolve it themselves. Header
// parsing goes through security.TokenFromBearer so the gate and the lifecycle
// endpoints agree on what counts as a presented token.
func RequireAuth(issuer *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := security.TokenFromBearer(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authorization header must be 'Bearer <token>'"))
			return
		}

		claims, err := issuer.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid or expired access token"))
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(AccessTokenKey, token)

		c.Next()
	}
}
