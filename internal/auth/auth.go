package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/promptlib/internal/models"
)

// UserContextKey is the Gin context key every authenticator stores the
// resolved *models.User under.
const UserContextKey = "user"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the session token handed back by every login path
// (password, OIDC callback).
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Authenticator is implemented by the basic, oidc and proxy providers
// selected through auth.type.
type Authenticator interface {
	// Login exchanges a local username and password for a session token.
	// The oidc and proxy providers delegate to the basic one.
	Login(username, password string) (*LoginResponse, error)

	// Middleware rejects the request with 401 unless a user can be
	// resolved, and stores that user under UserContextKey.
	Middleware() gin.HandlerFunc

	GetUserFromContext(c *gin.Context) (*models.User, error)
}

// UserFromContext returns the user stored by an authentication middleware.
func UserFromContext(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil, ErrUnauthorized
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, errors.New("invalid user in context")
	}
	return user, nil
}

// bearerToken returns the token from "Authorization: Bearer <token>".
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", false
	}
	return token, true
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
