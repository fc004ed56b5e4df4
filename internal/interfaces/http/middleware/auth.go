package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	speciesapp "github.com/turtacn/flame-data/internal/application/species"
	"github.com/turtacn/flame-data/internal/domain/user"
	"github.com/turtacn/flame-data/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/flame-data/pkg/errors"
)

const userContextKey = "flamedata.user"

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*user.User, error)
}

// AuthMiddleware attaches the session user to requests that carry a valid
// session cookie.
type AuthMiddleware struct {
	auth       Authenticator
	cookieName string
	logger     logging.Logger
}

func NewAuthMiddleware(auth Authenticator, cookieName string, logger logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, cookieName: cookieName, logger: logger.Named("auth")}
}

// Session resolves the cookie if present. Missing, invalid and revoked
// sessions continue as anonymous.
func (m *AuthMiddleware) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(m.cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}
		u, err := m.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !errors.IsCode(err, errors.ErrCodeUnauthorized) {
				m.logger.Warn("session lookup failed", logging.Err(err))
			}
			c.Next()
			return
		}
		c.Set(userContextKey, u)
		c.Request = c.Request.WithContext(speciesapp.WithUserID(c.Request.Context(), u.ID))
		c.Next()
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errors.PublicMessage(errors.Unauthorized())})
			return
		}
		c.Next()
	}
}

// RequireUserForWrites rejects anonymous requests unless they only read.
func RequireUserForWrites() gin.HandlerFunc {
	require := RequireUser()
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			require(c)
		}
	}
}

// CurrentUser returns the session user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *user.User {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	u, _ := v.(*user.User)
	return u
}
