package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/presence-app/presence/internal/auth"
	"github.com/presence-app/presence/pkg/models"
)

const (
	AuthContextKey = "user_id"
	RoleContextKey = "user_role"

	// AccessTokenCookie is the HTTP-only cookie carrying the access token
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie is the HTTP-only cookie carrying the refresh token
	RefreshTokenCookie = "refreshToken"
)

// TokenVerifier validates an access token and returns its claims
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

// CookieAuth middleware requires a valid access token cookie
func CookieAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(AccessTokenCookie)
		if err != nil || token == "" {
			c.JSON(http.StatusUnauthorized, models.Fail("Authentication required"))
			c.Abort()
			return
		}

		claims, err := verifier.VerifyAccessToken(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Token expired, please log in again"
			}
			c.JSON(http.StatusUnauthorized, models.Fail(msg))
			c.Abort()
			return
		}

		c.Set(AuthContextKey, claims.UserID)
		c.Set(RoleContextKey, claims.Role)
		c.Next()
	}
}

// OptionalCookieAuth sets the user in context when a valid access token
// cookie is present and continues unauthenticated otherwise. Used by
// endpoints like /me and the meditation routes that serve both audiences.
func OptionalCookieAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(AccessTokenCookie)
		if err == nil && token != "" {
			if claims, err := verifier.VerifyAccessToken(token); err == nil {
				c.Set(AuthContextKey, claims.UserID)
				c.Set(RoleContextKey, claims.Role)
			}
		}
		c.Next()
	}
}

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(AuthContextKey)
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	return userIDStr, ok
}

// QuotaIdentity returns the quota identity for the request: the
// authenticated user id, or failing that, the client IP.
func QuotaIdentity(c *gin.Context) models.Identity {
	if userID, ok := GetUserID(c); ok {
		return models.UserIdentity(userID)
	}
	return models.IPIdentity(c.ClientIP())
}
