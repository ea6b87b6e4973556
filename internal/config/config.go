package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// UnresponsiveMultiplier is the number of consecutive missed check
	// cycles before a service's heartbeat classifies as unresponsive.
	UnresponsiveMultiplier int `json:"unresponsive_multiplier"`

	// CacheMaxAgeHours is how long a meeting cache snapshot stays valid.
	CacheMaxAgeHours int `json:"cache_max_age_hours"`

	// OverlapWindowSeconds is the window within which meetings starting
	// near the first meeting of a group count as overlapping.
	OverlapWindowSeconds int `json:"overlap_window_seconds"`

	// AlertRetentionHours is how long alert state for events no longer in
	// the active set is kept before cleanup may drop it.
	AlertRetentionHours int `json:"alert_retention_hours"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is
	// locked" errors). 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		UnresponsiveMultiplier: 3,
		CacheMaxAgeHours:       24,
		OverlapWindowSeconds:   120,
		AlertRetentionHours:    2,
	}
}

// CacheMaxAge returns the meeting cache validity window as a duration.
func (c *Config) CacheMaxAge() time.Duration {
	return time.Duration(c.CacheMaxAgeHours) * time.Hour
}

// OverlapWindow returns the meeting overlap window as a duration.
func (c *Config) OverlapWindow() time.Duration {
	return time.Duration(c.OverlapWindowSeconds) * time.Second
}

// AlertRetention returns the alert-state retention window as a duration.
func (c *Config) AlertRetention() time.Duration {
	return time.Duration(c.AlertRetentionHours) * time.Hour
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.nudge.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
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

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.UnresponsiveMultiplier = overlay.UnresponsiveMultiplier
	if result.UnresponsiveMultiplier == 0 {
		result.UnresponsiveMultiplier = base.UnresponsiveMultiplier
	}

	result.CacheMaxAgeHours = overlay.CacheMaxAgeHours
	if result.CacheMaxAgeHours == 0 {
		result.CacheMaxAgeHours = base.CacheMaxAgeHours
	}

	result.OverlapWindowSeconds = overlay.OverlapWindowSeconds
	if result.OverlapWindowSeconds == 0 {
		result.OverlapWindowSeconds = base.OverlapWindowSeconds
	}

	result.AlertRetentionHours = overlay.AlertRetentionHours
	if result.AlertRetentionHours == 0 {
		result.AlertRetentionHours = base.AlertRetentionHours
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
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
