package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrRootNotFound is returned by FindRoot when no marker exists up the tree.
var ErrRootNotFound = errors.New("vault root not found")

// rootMarkers identify a vault: a settings file, an Obsidian vault, or a git
// work tree.
var rootMarkers = []string{".sprintboard.yaml", ".obsidian", ".git"}

// FindRoot walks up from startDir and returns the first directory holding a
// vault marker.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, m := range rootMarkers {
			if hasFile(dir, m) {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
