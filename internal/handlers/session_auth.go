package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-assistant-service/internal/auth"
	"github.com/SAP-F-2025/study-assistant-service/internal/services"
)

const (
	contextUserID     = "user_id"
	contextExternalID = "external_id"
	contextAuthMethod = "auth_method"
	contextClaims     = "claims"
)

// SessionAuthMiddleware authenticates requests against locally issued sessions.
// The token is read from the session cookie, or from a Bearer header for
// non-browser clients.
type SessionAuthMiddleware struct {
	auth         services.AuthService
	secureCookie bool
}

func NewSessionAuthMiddleware(authService services.AuthService, secureCookie bool) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{
		auth:         authService,
		secureCookie: secureCookie,
	}
}

// AuthMiddleware rejects requests without a valid, unrevoked session
func (m *SessionAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := sessionToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
				Details: err.Error(),
			})
			c.Abort()
			return
		}

		claims, err := m.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Invalid or expired session",
			})
			c.Abort()
			return
		}

		c.Set(contextUserID, claims.Subject)
		c.Set(contextExternalID, claims.ExternalID)
		c.Set(contextAuthMethod, claims.AuthMethod)
		c.Set(contextClaims, claims)

		c.Next()
	}
}

// RequireAuthMethod only admits sessions established by one of methods
func (m *SessionAuthMiddleware) RequireAuthMethod(methods ...auth.Method) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(contextAuthMethod)
		method, ok := value.(auth.Method)
		if !exists || !ok {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Message: "session method not found in context",
			})
			c.Abort()
			return
		}

		for _, allowed := range methods {
			if method == allowed {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: fmt.Sprintf("this action requires a %v session", methods),
		})
		c.Abort()
	}
}

// SetSessionCookie stores token in an HttpOnly cookie that expires with the session
func (m *SessionAuthMiddleware) SetSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, maxAge, "/", "", m.secureCookie, true)
}

func (m *SessionAuthMiddleware) ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", m.secureCookie, true)
}

func sessionToken(c *gin.Context) (string, error) {
	if cookie, err := c.Cookie(auth.CookieName); err == nil && cookie != "" {
		return cookie, nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("session cookie or authorization header missing")
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" || tokenParts[1] == "" {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return tokenParts[1], nil
}

// GetUserIDFromContext extracts the local user id from the Gin context
func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get(contextUserID)
	if !exists {
		return "", fmt.Errorf("user ID not found in context")
	}

	id, ok := userID.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("invalid user ID type in context")
	}

	return id, nil
}

// GetClaimsFromContext extracts the session claims from the Gin context
func GetClaimsFromContext(c *gin.Context) (*auth.Claims, error) {
	value, exists := c.Get(contextClaims)
	if !exists {
		return nil, fmt.Errorf("session claims not found in context")
	}

	claims, ok := value.(*auth.Claims)
	if !ok {
		return nil, fmt.Errorf("invalid session claims type in context")
	}

	return claims, nil
}
