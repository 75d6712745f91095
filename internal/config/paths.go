package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gcornut/automation/internal/dirs"
)

// ResolvePath joins parts, expands a leading tilde and makes the result
// absolute.
func ResolvePath(parts ...string) (string, error) {
	joined := filepath.Join(parts...)
	if joined == "" {
		return "", fmt.Errorf("empty path")
	}
	expanded, err := ExpandTilde(joined)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

// ExpandTilde replaces "~" or "~user" at the start of path with the
// corresponding home directory.
func ExpandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	name, rest, _ := strings.Cut(path[1:], string(filepath.Separator))
	var home string
	if name == "" {
		home = dirs.HomeDir()
		if home == "" {
			return "", fmt.Errorf("expanding %s: home directory unknown", path)
		}
	} else {
		var err error
		home, err = dirs.UserHomeDir(name)
		if err != nil {
			return "", fmt.Errorf("expanding %s: %w", path, err)
		}
	}
	return filepath.Join(home, rest), nil
}

// ResolveProgram resolves a program location from common.yaml. Bare names
// such as "rsync" are left for PATH lookup; anything with a directory part
// or a tilde goes through ResolvePath.
func ResolveProgram(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("program path not set")
	}
	if !strings.HasPrefix(p, "~") && !strings.ContainsRune(p, filepath.Separator) {
		return p, nil
	}
	return ResolvePath(p)
}
