package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// SessionSize is the number of items in a practice session when none is requested
	SessionSize int `json:"session_size"`

	// MaxItemsPerPassage caps how many items of one passage a session may contain
	MaxItemsPerPassage int `json:"max_items_per_passage"`

	// MinUniquePassagePercent is the advisory diversity target reported by session builds.
	MinUniquePassagePercent int `json:"min_unique_passage_percent"`

	// DisableGenreDiversity turns off genre round-robin during selection.
	DisableGenreDiversity bool `json:"disable_genre_diversity,omitempty"`

	// AccuracyWindow is how many recent attempts feed the rolling accuracy
	// used for adaptive difficulty.
	AccuracyWindow int `json:"accuracy_window"`

	// ReviewLimit caps the number of due reviews returned at once.
	ReviewLimit int `json:"review_limit"`

	// ExtraConnectives extends the quality filter's connective vocabulary.
	ExtraConnectives []string `json:"extra_connectives,omitempty"`

	// AllowedPaths lists extra directories where export/import files may live.
	// Paths outside ~/.drill/exports require being listed here or AllowUnsafePaths.
	// Relative entries are ignored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction for export/import.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// WebAddr is the listen address for `drill ui`.
	WebAddr string `json:"web_addr,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "passage", "item", "session", "review", "progress", "library".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SessionSize:             20,
		MaxItemsPerPassage:      2,
		MinUniquePassagePercent: 60,
		AccuracyWindow:          100,
		ReviewLimit:             50,
		WebAddr:                 "127.0.0.1:8377",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.drill.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.drill) and repo (.drill) directories.
// Repo config is found by walking upward from startDir to find the nearest .drill/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would make every session build or review query fail.
func (c *Config) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}
	check(c.SessionSize > 0, "session_size must be positive, got %d", c.SessionSize)
	check(c.MaxItemsPerPassage >= 1, "max_items_per_passage must be at least 1, got %d", c.MaxItemsPerPassage)
	check(c.MinUniquePassagePercent >= 0 && c.MinUniquePassagePercent <= 100,
		"min_unique_passage_percent must be 0..100, got %d", c.MinUniquePassagePercent)
	check(c.AccuracyWindow > 0, "accuracy_window must be positive, got %d", c.AccuracyWindow)
	check(c.ReviewLimit > 0, "review_limit must be positive, got %d", c.ReviewLimit)
	check(c.DBMaxOpenConns >= 0, "db_max_open_conns must not be negative, got %d", c.DBMaxOpenConns)
	check(c.DBMaxIdleConns >= 0, "db_max_idle_conns must not be negative, got %d", c.DBMaxIdleConns)
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(problems...))
	}
	return nil
}

// FindRepoConfig walks upward from startDir to find the nearest .drill/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".drill", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	merged := Merge(DefaultConfig(), cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.SessionSize = pick(overlay.SessionSize, base.SessionSize)
	result.MaxItemsPerPassage = pick(overlay.MaxItemsPerPassage, base.MaxItemsPerPassage)
	result.MinUniquePassagePercent = pick(overlay.MinUniquePassagePercent, base.MinUniquePassagePercent)
	result.AccuracyWindow = pick(overlay.AccuracyWindow, base.AccuracyWindow)
	result.ReviewLimit = pick(overlay.ReviewLimit, base.ReviewLimit)
	result.DBMaxOpenConns = pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns)
	result.WebAddr = pick(overlay.WebAddr, base.WebAddr)

	// Booleans: overlay wins if true, else base
	result.DisableGenreDiversity = base.DisableGenreDiversity || overlay.DisableGenreDiversity
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.ExtraConnectives = mergeStringSlice(base.ExtraConnectives, overlay.ExtraConnectives)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string(nil), a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
