package middleware

import (
	"strings"

	"wiki-engine/helper"
	"wiki-engine/models"
	"wiki-engine/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	identityKey = "identity"
	// SessionCookie keeps an anonymous caller's edit lease across requests.
	SessionCookie = "wiki_session"
)

// Auth resolves bearer tokens into identities for the handlers.
type Auth struct {
	authService services.AuthService
	Helper      *helper.HTTPHelper
}

func NewAuth(authService services.AuthService, h *helper.HTTPHelper) *Auth {
	return &Auth{authService: authService, Helper: h}
}

// Required rejects requests without a valid bearer token.
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			a.Helper.SendUnauthorizedError(c, "Authorization header required", a.Helper.EmptyJsonMap())
			c.Abort()
			return
		}

		identity, err := a.identify(authHeader)
		if err != nil {
			a.Helper.SendUnauthorizedError(c, err.Error(), a.Helper.EmptyJsonMap())
			c.Abort()
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// Optional lets anonymous requests through but still rejects bad tokens.
// Anonymous callers are tagged with a session id from SessionCookie.
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Set(identityKey, models.Identity{Session: anonymousSession(c)})
			c.Next()
			return
		}

		identity, err := a.identify(authHeader)
		if err != nil {
			a.Helper.SendUnauthorizedError(c, err.Error(), a.Helper.EmptyJsonMap())
			c.Abort()
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

func (a *Auth) identify(authHeader string) (models.Identity, error) {
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return models.Identity{}, models.ErrorUnauthorized{Message: "Bearer token required"}
	}
	return a.authService.ParseToken(tokenString)
}

func anonymousSession(c *gin.Context) string {
	if session, err := c.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(session); err == nil {
			return session
		}
	}
	session := uuid.NewString()
	c.SetCookie(SessionCookie, session, 0, "/", "", false, true)
	return session
}

func setIdentity(c *gin.Context, identity models.Identity) {
	c.Set(identityKey, identity)
	c.Set("user_id", identity.UserID)
	c.Set("username", identity.Username)
	c.Set("role", string(identity.Role))
}

// Identity returns the caller's identity, anonymous when none was set.
func Identity(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(models.Identity); ok {
			return identity
		}
	}
	return models.Anonymous()
}

func RequireRole(h *helper.HTTPHelper, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("role")
		if !exists {
			h.SendUnauthorizedError(c, "User role not found", h.EmptyJsonMap())
			c.Abort()
			return
		}

		roleStr := userRole.(string)
		for _, role := range roles {
			if roleStr == role {
				c.Next()
				return
			}
		}

		h.SendModelError(c, models.ErrorPermissionDenied{Message: "Insufficient permissions"})
		c.Abort()
	}
}
