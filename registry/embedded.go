package registry

import (
	_ "embed"
	"os"
	"path/filepath"
)

// defaultEmbedded is the bundled last-resort catalog, used when neither
// the network nor the on-disk cache yields a registry and the host did not
// supply its own embedded document.
//
//go:embed registry.default.json
var defaultEmbedded []byte

// DefaultEmbedded returns a copy of the bundled fallback document.
func DefaultEmbedded() []byte {
	out := make([]byte, len(defaultEmbedded))
	copy(out, defaultEmbedded)
	return out
}

// findUpward resolves a relative path by walking from start toward the
// filesystem root, returning the first existing match. Hosts that ship
// their fallback document outside the binary (e.g. docs/models.example.json
// next to or above the working directory) are found this way.
func findUpward(start, rel string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, rel)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
