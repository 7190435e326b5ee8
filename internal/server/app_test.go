package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/nebari-dev/promptlib/internal/auth"
	"github.com/nebari-dev/promptlib/internal/bundle"
	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/models"
)

const validBundle = `
workspaces:
  - slug: research
    name: Research
libraries:
  - name: Paper summary
    template: "Summarize {{title}}"
    workspaces: [research]
    questions:
      - variable: title
        label: Title
        required: true
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "app.db")},
		Cache:    config.CacheConfig{Type: "memory", TTLSeconds: 60},
		Log:      config.LogConfig{Level: "error"},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpen_PropagatesLogLevel(t *testing.T) {
	cfg := testConfig(t)
	app, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer app.Close()

	if cfg.Database.LogLevel != "error" {
		t.Errorf("expected database log level to follow log.level, got %q", cfg.Database.LogLevel)
	}
	if app.Services.Libraries == nil || app.Services.Bundles == nil {
		t.Fatal("expected services to be wired")
	}
}

func TestImportStartupBundles(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "team", "research.yaml"), validBundle)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	cfg.Bundles = config.BundlesConfig{Dir: dir}

	app, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer app.Close()

	if err := app.importStartupBundles(context.Background()); err != nil {
		t.Fatalf("importStartupBundles: %v", err)
	}

	libs, err := app.Services.Libraries.ListAccessible(context.Background(), "research")
	if err != nil {
		t.Fatal(err)
	}
	if len(libs) != 1 || libs[0].Name != "Paper summary" {
		t.Fatalf("expected imported library, got %+v", libs)
	}

	// Startup imports are idempotent.
	if err := app.importStartupBundles(context.Background()); err != nil {
		t.Fatal(err)
	}
	var count int64
	app.DB.Model(&models.PromptLibrary{}).Count(&count)
	if count != 1 {
		t.Errorf("expected one library after re-import, got %d", count)
	}
}

func TestImportFiles_ContinuesAfterFailure(t *testing.T) {
	app, err := Open(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	good, err := bundle.Decode([]byte(validBundle), bundle.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	bad, err := bundle.Decode([]byte(`
libraries:
  - name: Orphan
    template: "x"
    workspaces: [nowhere]
`), bundle.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}

	results := app.ImportFiles(context.Background(), []bundle.File{
		{Path: "bad.yaml", Bundle: bad},
		{Path: "good.yaml", Bundle: good},
	}, uuid.Nil)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Error("expected unknown workspace slug to fail")
	}
	if results[1].Err != nil || results[1].Summary.Libraries.Created != 1 {
		t.Errorf("expected good bundle to import, got %+v", results[1])
	}
}

func TestNewAuthenticator(t *testing.T) {
	cfg := testConfig(t)
	app, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer app.Close()

	cfg.Auth = config.AuthConfig{Type: "basic", JWTSecret: "secret"}
	a, oidcAuth, err := newAuthenticator(context.Background(), cfg, app.DB)
	if err != nil || a == nil || oidcAuth != nil {
		t.Errorf("basic: got %v %v %v", a, oidcAuth, err)
	}

	cfg.Auth = config.AuthConfig{Type: "proxy", JWTSecret: "secret", ProxyAdminGroups: "admins"}
	a, _, err = newAuthenticator(context.Background(), cfg, app.DB)
	if _, ok := a.(*auth.ProxyAuthenticator); err != nil || !ok {
		t.Errorf("proxy: got %T %v", a, err)
	}

	cfg.Auth = config.AuthConfig{Type: "saml", JWTSecret: "secret"}
	if _, _, err := newAuthenticator(context.Background(), cfg, app.DB); err == nil {
		t.Error("expected unsupported auth type to fail")
	}

	cfg.Auth = config.AuthConfig{Type: "basic"}
	if _, _, err := newAuthenticator(context.Background(), cfg, app.DB); err == nil {
		t.Error("expected empty secret to fail")
	}
}
