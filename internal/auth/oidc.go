package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// OIDCAuthenticator signs users in through an OpenID Connect provider and
// then issues the same session tokens as BasicAuthenticator. Local
// username/password accounts keep working alongside it.
type OIDCAuthenticator struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
	db       *gorm.DB
	basic    *BasicAuthenticator
}

// idClaims are the ID token claims used to provision users.
type idClaims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Sub               string `json:"sub"`
	Picture           string `json:"picture"`
}

// NewOIDCAuthenticator discovers the provider at cfg.IssuerURL.
func NewOIDCAuthenticator(ctx context.Context, cfg config.OIDCConfig, db *gorm.DB, basic *BasicAuthenticator) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &OIDCAuthenticator{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		db:       db,
		basic:    basic,
	}, nil
}

// Login delegates to the local account store.
func (a *OIDCAuthenticator) Login(username, password string) (*LoginResponse, error) {
	return a.basic.Login(username, password)
}

// Middleware accepts the session tokens issued after either login path.
func (a *OIDCAuthenticator) Middleware() gin.HandlerFunc {
	return a.basic.Middleware()
}

func (a *OIDCAuthenticator) GetUserFromContext(c *gin.Context) (*models.User, error) {
	return UserFromContext(c)
}

// GetAuthURL returns the URL to redirect users to for authentication
func (a *OIDCAuthenticator) GetAuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// HandleCallback exchanges the authorization code, verifies the ID token and
// returns a session for the matching (possibly new) user.
func (a *OIDCAuthenticator) HandleCallback(ctx context.Context, code string) (*LoginResponse, error) {
	oauth2Token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("no id_token in token response")
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	user, err := findOrCreateOIDCUser(a.db, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create user: %w", err)
	}

	token, err := a.basic.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	slog.Info("User logged in via OIDC", "user_id", user.ID, "username", user.Username)
	return &LoginResponse{Token: token, User: user}, nil
}

// username picks email, then preferred_username, then sub.
func (c idClaims) username() string {
	switch {
	case c.Email != "":
		return c.Email
	case c.PreferredUsername != "":
		return c.PreferredUsername
	default:
		return c.Sub
	}
}

func findOrCreateOIDCUser(db *gorm.DB, claims idClaims) (*models.User, error) {
	username := claims.username()
	if username == "" {
		return nil, errors.New("ID token carries no usable identity")
	}
	email := claims.Email
	if email == "" {
		email = username + "@oidc.promptlib.local"
	}

	var user models.User
	result := db.Where("username = ? OR email = ?", username, email).First(&user)
	if result.Error == nil {
		if user.AvatarURL != claims.Picture {
			user.AvatarURL = claims.Picture
			if err := db.Model(&user).Update("avatar_url", claims.Picture).Error; err != nil {
				slog.Warn("Failed to update avatar", "user_id", user.ID, "error", err)
			}
		}
		return &user, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}

	// OIDC users have no local password
	user = models.User{
		Username:  username,
		Email:     email,
		AvatarURL: claims.Picture,
		Provider:  models.ProviderOIDC,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("Created new user from OIDC", "user_id", user.ID, "username", user.Username)
	return &user, nil
}
