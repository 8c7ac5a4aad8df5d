package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Filename is the settings file looked up in the workspace root.
const Filename = "naclws.toml"

// Settings configures a workspace. Zero values mean "use the default".
type Settings struct {
	// Extension of source files, including the dot.
	Extension string `toml:"extension"`

	// SourceDir holds the source files, relative to the workspace root.
	SourceDir string `toml:"source_dir"`

	// StaticDir holds static file blobs, relative to the workspace root.
	StaticDir string `toml:"static_dir"`

	// CachePath locates the persistent parse cache. Empty disables it in
	// favor of an in-memory cache.
	CachePath string `toml:"cache_path"`

	// Includes restricts the visible source files to these doublestar
	// patterns. Empty means everything with the right extension.
	Includes []string `toml:"includes"`

	// ParseConcurrency bounds parallel parsing.
	ParseConcurrency int `toml:"parse_concurrency"`

	// WatchDebounceMs is the quiet period for watch mode batches.
	WatchDebounceMs int `toml:"watch_debounce_ms"`
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		Extension:        ".nacl",
		SourceDir:        ".",
		StaticDir:        "static",
		CachePath:        filepath.Join(".naclws", "cache.db"),
		ParseConcurrency: 20,
		WatchDebounceMs:  250,
	}
}

// Load reads settings from root/naclws.toml, filling unset fields with
// defaults. A missing file yields the defaults.
func Load(root string) (Settings, error) {
	s := Default()

	buf, err := os.ReadFile(filepath.Join(root, Filename))
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading %s: %w", Filename, err)
	}

	var fromFile Settings
	if err := toml.Unmarshal(buf, &fromFile); err != nil {
		return s, fmt.Errorf("decoding %s: %w", Filename, err)
	}
	s.merge(fromFile)
	return s, nil
}

func (s *Settings) merge(o Settings) {
	if o.Extension != "" {
		s.Extension = o.Extension
	}
	if o.SourceDir != "" {
		s.SourceDir = o.SourceDir
	}
	if o.StaticDir != "" {
		s.StaticDir = o.StaticDir
	}
	if o.CachePath != "" {
		s.CachePath = o.CachePath
	}
	if len(o.Includes) > 0 {
		s.Includes = o.Includes
	}
	if o.ParseConcurrency > 0 {
		s.ParseConcurrency = o.ParseConcurrency
	}
	if o.WatchDebounceMs > 0 {
		s.WatchDebounceMs = o.WatchDebounceMs
	}
}
