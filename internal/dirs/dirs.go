// Package dirs provides standard directory resolution for automation.
// It follows the XDG base directory layout with a fallback to the home
// directory when XDG variables are unset.
package dirs

import (
	"os"
	"os/user"
	"path/filepath"
)

// App is the directory name used under the XDG base directories.
const App = "automation"

// ConfigDir returns the directory holding common.yaml and the per-target
// documents.
// Priority: $AUTOMATION_CONFIG_DIR > $XDG_CONFIG_HOME/automation > ~/.config/automation
func ConfigDir() string {
	if v := os.Getenv("AUTOMATION_CONFIG_DIR"); v != "" {
		return v
	}
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, App)
	}
	if home := HomeDir(); home != "" {
		return filepath.Join(home, ".config", App)
	}
	return filepath.Join(os.TempDir(), App+"-config")
}

// HomeDir returns the current user's home directory, or "" if unknown.
// Priority: $HOME > passwd entry
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if u, err := user.Current(); err == nil {
		return u.HomeDir
	}
	return ""
}

// UserHomeDir returns the home directory of the named user.
func UserHomeDir(name string) (string, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}
