package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
)

func TestParseGitDescribe(t *testing.T) {
	type build struct{ Version, Commit string }
	tests := map[string]build{
		"dev":                      {"dev", ""},
		"v1.4":                     {"1.4", ""},
		"v1.4.2":                   {"1.4.2", ""},
		"1.4.2":                    {"1.4.2", ""},
		"v1.4-dirty":               {"1.4.dev", ""},
		"v1.4.2-rc2":               {"1.4.2-rc2", ""},
		"v1.4-3-g0a1b2c3":          {"1.4.dev+0a1b2c3", "0a1b2c3"},
		"v1.4-3-g0a1b2c3-dirty":    {"1.4.dev+0a1b2c3", "0a1b2c3"},
		"v1.4.2-rc2-7-gdeadbee":    {"1.4.2-rc2.dev+deadbee", "deadbee"},
		"v2.0.0-beta.1-1-g1234567": {"2.0.0-beta.1.dev+1234567", "1234567"},
		"0a1b2c3":                  {"dev+0a1b2c3", "0a1b2c3"},
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			var got build
			got.Version, got.Commit = parseGitDescribe(in)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("parseGitDescribe(%q) mismatch (-want +got):\n%s", in, diff)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	old := Version
	Version = "v0.3-2-gabcdef0"
	t.Cleanup(func() { Version = old })

	r := gin.New()
	r.GET("/version", GetVersion)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["version"] != "0.3.dev+abcdef0" || body["commit"] != "abcdef0" {
		t.Errorf("unexpected version body: %v", body)
	}
	if body["go_version"] == "" {
		t.Error("expected go_version to be set")
	}
}
