package config

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Thread store backends.
const (
	ThreadStoreSQLite = "sqlite"
	ThreadStoreRedis  = "redis"
)

// DirName is the name of both the global base directory (under $HOME) and
// the repo-local overlay directory.
const DirName = ".docxagent"

// Config holds application configuration.
type Config struct {
	// DocumentPath is the default document for operations that do not name one.
	DocumentPath string `json:"document_path,omitempty"`

	// PreviewMaxChars bounds the new-text preview in approval descriptions.
	PreviewMaxChars int `json:"preview_max_chars"`

	// ApprovalTTLSeconds expires pending approvals after this many seconds.
	// An expired approval resolves as a rejection. 0 disables expiry.
	ApprovalTTLSeconds int `json:"approval_ttl_seconds,omitempty"`

	// ThreadStore selects the thread registry backend: "sqlite" (default) or "redis".
	ThreadStore string `json:"thread_store,omitempty"`

	// RedisURL is used when ThreadStore is "redis", e.g. redis://localhost:6379/0.
	RedisURL string `json:"redis_url,omitempty"`

	// WatchDocuments reloads an index when its file is changed by another program.
	WatchDocuments bool `json:"watch_documents,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// AllowedPaths is an allowlist of directories for index exports.
	// Paths outside ~/.docxagent/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for exports.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "document", "approval", "thread".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PreviewMaxChars: 100,
		ThreadStore:     ThreadStoreSQLite,
		LogLevel:        "info",
	}
}

// DefaultBaseDir returns ~/.docxagent.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both the global directory and the
// nearest .docxagent/config.json found walking upward from startDir.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// DOCXAGENT_* environment variables are applied last.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	ApplyEnv(cfg)
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .docxagent/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, DirName, "config.json")
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

// ApplyEnv overrides fields from DOCXAGENT_* environment variables.
func ApplyEnv(cfg *Config) {
	cfg.DocumentPath = getenv("DOCXAGENT_DOCUMENT", cfg.DocumentPath)
	cfg.ThreadStore = getenv("DOCXAGENT_THREAD_STORE", cfg.ThreadStore)
	cfg.RedisURL = getenv("DOCXAGENT_REDIS_URL", cfg.RedisURL)
	cfg.LogLevel = getenv("DOCXAGENT_LOG_LEVEL", cfg.LogLevel)
	cfg.ApprovalTTLSeconds = getenvInt("DOCXAGENT_APPROVAL_TTL_SECONDS", cfg.ApprovalTTLSeconds)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
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
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.DocumentPath = firstString(overlay.DocumentPath, base.DocumentPath)
	result.ThreadStore = firstString(overlay.ThreadStore, base.ThreadStore)
	result.RedisURL = firstString(overlay.RedisURL, base.RedisURL)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.PreviewMaxChars = firstInt(overlay.PreviewMaxChars, base.PreviewMaxChars)
	result.ApprovalTTLSeconds = firstInt(overlay.ApprovalTTLSeconds, base.ApprovalTTLSeconds)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths
	result.WatchDocuments = base.WatchDocuments || overlay.WatchDocuments

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
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
