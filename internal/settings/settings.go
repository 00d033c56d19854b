// Package settings loads and saves the sync settings file.
//
// Lookup order: an explicit --config path, then ./.sprintboard.yaml, then the
// user config directory (sprintboard/config.yaml). Environment variables
// prefixed with SPRINTBOARD_ override file values.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sprintboard/pkg/core"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. SPRINTBOARD_ACCESS_TOKEN.
	EnvPrefix = "SPRINTBOARD"
	// LocalFile is the per-directory settings file name.
	LocalFile = ".sprintboard.yaml"
)

var keys = []string{
	"backend", "instance", "collection", "project", "team", "username",
	"access_token", "target_folder", "board_file", "status_map", "timeout", "commit",
}

// ErrNotConfigured is returned when no settings file exists and none was named.
var ErrNotConfigured = errors.New("sprintboard is not configured; run 'sprintboard configure'")

// UserPath returns the settings file inside the user config directory.
func UserPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "sprintboard", "config.yaml")
}

// Locate returns the settings file to use. When nothing exists yet it returns
// the path a new file should be written to.
func Locate(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(LocalFile); err == nil {
		return LocalFile
	}
	if user := UserPath(); user != "" {
		return user
	}
	return LocalFile
}

// Load reads the settings. A missing file is only an error when the path was
// given explicitly; otherwise defaults plus environment are returned together
// with ErrNotConfigured so callers may still proceed on env-only setups.
func Load(explicit string) (core.Settings, string, error) {
	path := Locate(explicit)

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return core.Settings{}, path, err
		}
	}
	def := core.DefaultSettings()
	v.SetDefault("backend", def.Backend)
	v.SetDefault("collection", def.Collection)
	v.SetDefault("timeout", def.Timeout)

	var missing error
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return core.Settings{}, path, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && explicit == "":
		missing = ErrNotConfigured
	default:
		return core.Settings{}, path, fmt.Errorf("failed to read settings: %w", err)
	}

	var s core.Settings
	if err := v.Unmarshal(&s); err != nil {
		return core.Settings{}, path, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, path, missing
}

// Save writes the settings as YAML with owner-only permissions, since the
// file holds an access token.
func Save(path string, s core.Settings) error {
	var doc yaml.Node
	if err := doc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	// Durations read better as "45s" than as nanoseconds.
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "timeout" {
			doc.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Timeout.String()}
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return os.Chmod(path, 0600)
}
