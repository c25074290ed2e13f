package middleware

import "github.com/gin-gonic/gin"

const (
	// UserIDKey stores the authenticated account identifier on the gin context.
	UserIDKey = "user_id"
	// AccessTokenKey stores the raw presented access token on the gin context.
	AccessTokenKey = "access_token"
)

// GetAuthenticatedUserID retrieves the user ID placed on the context by the
// auth middleware.
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}

	if id, ok := userID.(string); ok {
		return id, true
	}

	return "", false
}

// GetAccessToken retrieves the raw bearer token placed on the context by the
// auth middleware.
func GetAccessToken(c *gin.Context) (string, bool) {
	token, exists := c.Get(AccessTokenKey)
	if !exists {
		return "", false
	}

	if t, ok := token.(string); ok {
		return t, true
	}

	return "", false
}
