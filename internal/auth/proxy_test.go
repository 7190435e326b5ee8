package auth

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/nebari-dev/promptlib/internal/rbac"
)

// makeJWT builds an unsigned-looking JWT with the given claims payload.
// Only the payload matters to the proxy authenticator.
func makeJWT(t *testing.T, claims any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("failed to marshal claims: %v", err)
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(payload)
	sig := base64.RawURLEncoding.EncodeToString([]byte("fake-signature"))
	return header + "." + payloadB64 + "." + sig
}

func TestParseIdTokenCookie_HappyPath(t *testing.T) {
	claims := ProxyTokenClaims{
		Sub:               "sub-123",
		PreferredUsername: "alice",
		Email:             "alice@example.com",
		Groups:            []string{"admin", "dev"},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "IdToken-promptlib", Value: makeJWT(t, claims)})

	got, err := parseIdTokenCookie(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(&claims, got); diff != "" {
		t.Errorf("claims mismatch (-want +got):\n%s", diff)
	}
}

func TestParseIdTokenCookie_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := parseIdTokenCookie(req); err == nil {
		t.Error("expected error when no IdToken cookie present")
	}

	req.AddCookie(&http.Cookie{Name: "IdToken-promptlib", Value: "not-a-jwt"})
	if _, err := parseIdTokenCookie(req); err == nil {
		t.Error("expected error for invalid JWT format")
	}
}

func TestFindOrCreateProxyUser(t *testing.T) {
	db := setupAuthDB(t)

	user, err := findOrCreateProxyUser(db, &ProxyTokenClaims{PreferredUsername: "bob", Picture: "a.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "bob" || user.Email != "bob@proxy.promptlib.local" || user.Provider != models.ProviderProxy {
		t.Errorf("unexpected user %+v", user)
	}

	again, err := findOrCreateProxyUser(db, &ProxyTokenClaims{PreferredUsername: "bob", Picture: "b.png"})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != user.ID {
		t.Error("expected the existing user to be found")
	}
	var stored models.User
	db.First(&stored, "id = ?", user.ID)
	if stored.AvatarURL != "b.png" {
		t.Errorf("expected avatar to follow claims, got %q", stored.AvatarURL)
	}

	tests := []struct {
		name   string
		claims ProxyTokenClaims
		want   string
	}{
		{"email fallback", ProxyTokenClaims{Email: "dave@example.com"}, "dave@example.com"},
		{"sub fallback", ProxyTokenClaims{Sub: "sub-xyz"}, "sub-xyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := findOrCreateProxyUser(db, &tt.claims)
			if err != nil {
				t.Fatal(err)
			}
			if u.Username != tt.want {
				t.Errorf("expected username %s, got %s", tt.want, u.Username)
			}
		})
	}

	if _, err := findOrCreateProxyUser(db, &ProxyTokenClaims{}); err == nil {
		t.Error("expected error when no identity claim present")
	}
}

func TestParseAdminGroups(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"admin", []string{"admin"}},
		{"admin,prompt-admin", []string{"admin", "prompt-admin"}},
		{" admin , prompt-admin , ", []string{"admin", "prompt-admin"}},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseAdminGroups(tt.input)); diff != "" {
			t.Errorf("parseAdminGroups(%q) mismatch (-want +got):\n%s", tt.input, diff)
		}
	}
}

func TestInAdminGroup(t *testing.T) {
	admins := []string{"admin"}
	if !inAdminGroup([]string{"/admin", "/dev"}, admins) {
		t.Error("expected Keycloak-style /admin to match")
	}
	if inAdminGroup([]string{"dev"}, admins) {
		t.Error("expected dev not to match")
	}
	if inAdminGroup(nil, admins) {
		t.Error("expected no groups not to match")
	}
}

func TestProxyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupAuthDB(t)
	if err := rbac.InitEnforcer(db, slog.Default()); err != nil {
		t.Fatal(err)
	}
	basic := NewBasicAuthenticator(db, testSecret)
	a := NewProxyAuthenticator(db, basic, "prompt-admins")

	var seen *models.User
	router := gin.New()
	router.GET("/", a.Middleware(), func(c *gin.Context) {
		seen, _ = a.GetUserFromContext(c)
		c.Status(http.StatusOK)
	})
	serve := func(req *http.Request) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	// Group membership grants admin, and losing it revokes admin.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "IdToken", Value: makeJWT(t, ProxyTokenClaims{PreferredUsername: "erin", Groups: []string{"/prompt-admins"}})})
	if code := serve(req); code != http.StatusOK {
		t.Fatalf("cookie: expected 200, got %d", code)
	}
	if isAdmin, _ := rbac.IsAdmin(seen.ID); !isAdmin {
		t.Error("expected erin to be admin")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "IdToken", Value: makeJWT(t, ProxyTokenClaims{PreferredUsername: "erin"})})
	serve(req)
	if isAdmin, _ := rbac.IsAdmin(seen.ID); isAdmin {
		t.Error("expected erin's admin to be revoked")
	}

	// Bearer tokens still work.
	local := createUser(t, db, "frank", "pw")
	token, err := basic.IssueToken(local)
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if code := serve(req); code != http.StatusOK || seen.ID != local.ID {
		t.Errorf("bearer: expected 200 as frank, got %d", code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+uuid.NewString())
	if code := serve(req); code != http.StatusUnauthorized {
		t.Errorf("bad bearer: expected 401, got %d", code)
	}

	if code := serve(httptest.NewRequest(http.MethodGet, "/", nil)); code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", code)
	}
}
