// Package config loads the YAML documents describing tool locations and
// backup/synchronize targets.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gcornut/automation/internal/dirs"
)

const (
	// Extension is the suffix of every configuration document.
	Extension = ".yaml"
	// CommonName is the document holding tool paths.
	CommonName = "common"
)

// Common holds program locations shared by every target.
type Common struct {
	BorgPath   string `yaml:"borgPath"`
	RclonePath string `yaml:"rclonePath"`
	RsyncPath  string `yaml:"rsyncPath"`
}

// Target is one per-target document.
type Target struct {
	Repository  string                 `yaml:"repository"`
	Backup      OneOrMany[Backup]      `yaml:"backup"`
	Synchronize OneOrMany[Destination] `yaml:"synchronize"`
}

// Backup describes one borg archive source.
type Backup struct {
	Name        string   `yaml:"name"`
	Dir         string   `yaml:"dir"`
	Excludes    []string `yaml:"excludes"`
	Compression string   `yaml:"compression"`
	Passphrase  string   `yaml:"passphrase"`
	// Retention is a shell-style flag string such as "--keep-daily=7 --keep-weekly=4".
	Retention string `yaml:"retention"`
}

// Destination describes one synchronize target.
type Destination struct {
	// Path has the form scheme://host:remotePath.
	Path      string `yaml:"path"`
	SizeLimit string `yaml:"sizeLimit"`
}

// OneOrMany decodes either a single mapping or a sequence of mappings.
type OneOrMany[T any] []T

func (o *OneOrMany[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*o = nil
		return nil
	}
	if node.Kind == yaml.SequenceNode {
		var items []T
		if err := node.Decode(&items); err != nil {
			return err
		}
		*o = items
		return nil
	}
	var item T
	if err := node.Decode(&item); err != nil {
		return err
	}
	*o = []T{item}
	return nil
}

// NormalizeName strips a trailing ".yaml" from a config name.
func NormalizeName(name string) string {
	return strings.TrimSuffix(name, Extension)
}

// FileName returns the document file name for a config name.
func FileName(name string) string {
	return NormalizeName(name) + Extension
}

// Loader reads documents from a configuration root.
type Loader struct {
	Dir string
}

// NewLoader returns a Loader rooted at dir, or at dirs.ConfigDir() when dir
// is empty.
func NewLoader(dir string) *Loader {
	if dir == "" {
		dir = dirs.ConfigDir()
	}
	return &Loader{Dir: dir}
}

// Path returns the file path of the named document.
func (l *Loader) Path(name string) string {
	return filepath.Join(l.Dir, FileName(name))
}

// Load decodes the named document into v.
func (l *Loader) Load(name string, v any) error {
	path := l.Path(name)
	slog.Debug("loading config", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Common loads common.yaml. RsyncPath defaults to "rsync".
func (l *Loader) Common() (*Common, error) {
	var c Common
	if err := l.Load(CommonName, &c); err != nil {
		return nil, err
	}
	if c.RsyncPath == "" {
		c.RsyncPath = "rsync"
	}
	return &c, nil
}

// Target loads the named target document.
func (l *Loader) Target(name string) (*Target, error) {
	var t Target
	if err := l.Load(name, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
