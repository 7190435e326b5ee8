package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern matches every supported bundle file below a directory.
const DefaultPattern = "**/*.{yaml,yml,toml,json}"

// File is a decoded bundle and the path it came from.
type File struct {
	Path   string
	Bundle *Bundle
}

// LoadDir decodes every file below dir matching pattern, in path order.
// The first file that fails to decode aborts the load.
func LoadDir(dir, pattern string) ([]File, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid bundle pattern: %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list bundles in %s: %w", dir, err)
	}
	sort.Strings(matches)

	files := make([]File, 0, len(matches))
	for _, m := range matches {
		path := filepath.Join(dir, filepath.FromSlash(m))
		b, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: path, Bundle: b})
	}
	return files, nil
}

// Load decodes path, which may be a single file or a directory searched
// with DefaultPattern.
func Load(path string) ([]File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadDir(path, DefaultPattern)
	}
	b, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []File{{Path: path, Bundle: b}}, nil
}
