package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/rbac"
	"gorm.io/gorm"
)

// ProxyTokenClaims represents claims extracted from an IdToken cookie
// set by an authenticating proxy (e.g., Envoy Gateway after Keycloak OIDC).
type ProxyTokenClaims struct {
	Sub               string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	Picture           string   `json:"picture"`
	Groups            []string `json:"groups"`
}

// ProxyAuthenticator trusts the identity asserted by an authenticating
// reverse proxy. Requests carrying a Bearer session token are still
// accepted so API clients keep working behind the proxy.
type ProxyAuthenticator struct {
	basic       *BasicAuthenticator
	db          *gorm.DB
	adminGroups []string
}

// NewProxyAuthenticator creates a proxy authenticator. adminGroups is a
// comma-separated list of groups whose members are promptlib admins.
func NewProxyAuthenticator(db *gorm.DB, basic *BasicAuthenticator, adminGroups string) *ProxyAuthenticator {
	return &ProxyAuthenticator{basic: basic, db: db, adminGroups: parseAdminGroups(adminGroups)}
}

// Login delegates to the local account store.
func (a *ProxyAuthenticator) Login(username, password string) (*LoginResponse, error) {
	return a.basic.Login(username, password)
}

// GetUserFromContext extracts the authenticated user from the Gin context
func (a *ProxyAuthenticator) GetUserFromContext(c *gin.Context) (*models.User, error) {
	return UserFromContext(c)
}

// Middleware accepts a Bearer session token or, failing that, the proxy's
// IdToken cookie.
func (a *ProxyAuthenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearerToken(c.GetHeader("Authorization")); ok {
			user, err := a.basic.validateAndLoadUser(tokenString)
			if err != nil {
				slog.Warn("Invalid token", "error", err)
				abortUnauthorized(c, "invalid or expired token")
				return
			}
			c.Set(UserContextKey, user)
			c.Next()
			return
		}

		claims, err := parseIdTokenCookie(c.Request)
		if err != nil {
			abortUnauthorized(c, "missing authorization")
			return
		}
		user, err := findOrCreateProxyUser(a.db, claims)
		if err != nil {
			slog.Warn("Failed to resolve proxy user", "error", err)
			abortUnauthorized(c, "unusable proxy identity")
			return
		}
		if len(a.adminGroups) > 0 {
			syncRolesFromGroups(user.ID, claims.Groups, a.adminGroups)
		}

		c.Set(UserContextKey, user)
		c.Next()
	}
}

// parseIdTokenCookie finds a cookie whose name starts with "IdToken" and
// decodes the JWT payload (middle segment). The signature is not checked;
// the proxy in front of the server has already validated it.
func parseIdTokenCookie(r *http.Request) (*ProxyTokenClaims, error) {
	var rawToken string
	for _, c := range r.Cookies() {
		if strings.HasPrefix(c.Name, "IdToken") {
			rawToken = c.Value
			break
		}
	}
	if rawToken == "" {
		return nil, errors.New("no IdToken cookie found")
	}

	parts := strings.Split(rawToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("IdToken cookie is not a valid JWT (got %d parts)", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to base64-decode JWT payload: %w", err)
	}

	var claims ProxyTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JWT claims: %w", err)
	}

	return &claims, nil
}

// findOrCreateProxyUser looks up a user by username or email from proxy
// claims, creating one on first sight. The avatar follows the claims.
func findOrCreateProxyUser(db *gorm.DB, claims *ProxyTokenClaims) (*models.User, error) {
	username := claims.PreferredUsername
	if username == "" {
		username = claims.Email
	}
	if username == "" {
		username = claims.Sub
	}
	if username == "" {
		return nil, errors.New("proxy token has no usable identity claim")
	}

	email := claims.Email
	if email == "" {
		email = username + "@proxy.promptlib.local"
	}

	var user models.User
	result := db.Where("username = ? OR email = ?", username, email).First(&user)
	if result.Error == nil {
		if user.AvatarURL != claims.Picture {
			if err := db.Model(&user).Update("avatar_url", claims.Picture).Error; err != nil {
				slog.Warn("Failed to update avatar", "user_id", user.ID, "error", err)
			}
		}
		return &user, nil
	}

	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	user = models.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		AvatarURL: claims.Picture,
		Provider:  models.ProviderProxy,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create proxy user: %w", err)
	}

	slog.Info("Created new user from proxy auth", "user_id", user.ID, "username", user.Username, "email", email)
	return &user, nil
}

// inAdminGroup reports whether any of groups is an admin group. Keycloak
// prefixes group paths with "/".
func inAdminGroup(groups, adminGroups []string) bool {
	for _, g := range groups {
		g = strings.TrimPrefix(g, "/")
		for _, admin := range adminGroups {
			if g == admin {
				return true
			}
		}
	}
	return false
}

// syncRolesFromGroups grants or revokes admin to match proxy group membership.
func syncRolesFromGroups(userID uuid.UUID, groups []string, adminGroups []string) {
	shouldBeAdmin := inAdminGroup(groups, adminGroups)

	isAdmin, err := rbac.IsAdmin(userID)
	if err != nil {
		slog.Warn("Failed to check admin status during proxy sync", "user_id", userID, "error", err)
		return
	}

	switch {
	case shouldBeAdmin && !isAdmin:
		if err := rbac.MakeAdmin(userID); err != nil {
			slog.Warn("Failed to grant admin from proxy groups", "user_id", userID, "error", err)
			return
		}
		slog.Info("Granted admin via proxy group membership", "user_id", userID)
	case !shouldBeAdmin && isAdmin:
		if err := rbac.RevokeAdmin(userID); err != nil {
			slog.Warn("Failed to revoke admin from proxy groups", "user_id", userID, "error", err)
			return
		}
		slog.Info("Revoked admin via proxy group membership", "user_id", userID)
	}
}

// parseAdminGroups splits a comma-separated string into a slice of group names.
func parseAdminGroups(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
