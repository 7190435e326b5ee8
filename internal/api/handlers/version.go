package handlers

import (
	"net/http"
	"regexp"
	"runtime"
	"strings"

	"github.com/gin-gonic/gin"
)

// Version is set via ldflags at build time, usually to `git describe --tags --dirty` output
var Version = "dev"

var (
	describeRe = regexp.MustCompile(`^(.+)-(\d+)-g([0-9a-f]+)$`)
	hashRe     = regexp.MustCompile(`^[0-9a-f]{7,40}$`)
)

// parseGitDescribe turns git describe output into a version string and commit hash.
func parseGitDescribe(s string) (version, commit string) {
	s, dirty := strings.CutSuffix(s, "-dirty")

	if m := describeRe.FindStringSubmatch(s); m != nil {
		return strings.TrimPrefix(m[1], "v") + ".dev+" + m[3], m[3]
	}
	if hashRe.MatchString(s) {
		return "dev+" + s, s
	}
	version = strings.TrimPrefix(s, "v")
	if dirty {
		version += ".dev"
	}
	return version, ""
}

// BuildInfo returns the normalized build version and commit.
func BuildInfo() (version, commit string) {
	return parseGitDescribe(Version)
}

// GetVersion godoc
// @Summary Get version information
// @Description Returns version information about the promptlib server
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /version [get]
func GetVersion(c *gin.Context) {
	version, commit := BuildInfo()
	c.JSON(http.StatusOK, gin.H{
		"version":    version,
		"commit":     commit,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	})
}
