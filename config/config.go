package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/brettbedarf/minifs/internal/util"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultDiskSize is the total size of the simulated disk arena in bytes
	DefaultDiskSize = 8192

	// DefaultBlockSize is the size of each block in bytes
	DefaultBlockSize = 64

	// DefaultMaxFileBlocks bounds the block list of a single file, so the
	// largest file holds DefaultMaxFileBlocks * DefaultBlockSize bytes
	DefaultMaxFileBlocks = 16

	// DefaultMaxChildren bounds the subdirectories and, separately, the files
	// of one directory
	DefaultMaxChildren = 32

	// DefaultMaxNameLen is the longest name kept for a file or directory;
	// longer names are truncated
	DefaultMaxNameLen = 63

	// DefaultMode is the permission mode of files created by touch
	DefaultMode = 644

	// DefaultUser is the user class a new session acts as
	DefaultUser = "owner"

	DefaultLogLvl = util.InfoLevel
)

// CLI style log verbosity, 1 (error) through 5 (trace)
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Env keys understood in .env override files
const (
	EnvDiskSize      = "MINIFS_DISK_SIZE"
	EnvBlockSize     = "MINIFS_BLOCK_SIZE"
	EnvMaxFileBlocks = "MINIFS_MAX_FILE_BLOCKS"
	EnvMaxChildren   = "MINIFS_MAX_CHILDREN"
	EnvMaxNameLen    = "MINIFS_MAX_NAME_LEN"
	EnvDefaultMode   = "MINIFS_DEFAULT_MODE"
	EnvDefaultUser   = "MINIFS_DEFAULT_USER"
	EnvLogLvl        = "MINIFS_LOG_LVL"
)

// ErrInvalidConfig is returned by [Config.Validate] for unusable values.
var ErrInvalidConfig = errors.New("invalid config")

// Config contains runtime configuration values for the filesystem.
type Config struct {
	LogLvl        util.LogLevel
	DiskSize      int    // Total bytes of the simulated disk (Default 8192)
	BlockSize     int    // Bytes per block (Default 64)
	MaxFileBlocks int    // Block list capacity of one file (Default 16)
	MaxChildren   int    // Capacity of a directory's subdirectory set and of its file set (Default 32)
	MaxNameLen    int    // Longest kept name (Default 63)
	DefaultMode   int    // Mode for touch and echo-created files (Default 644)
	DefaultUser   string // User class of new sessions: owner, group or other (Default owner)
}

// NumBlocks returns the number of blocks derived from DiskSize / BlockSize.
// Returns 0 if BlockSize is 0 to avoid division by zero.
func (c *Config) NumBlocks() int {
	if c.BlockSize == 0 {
		return 0
	}
	return c.DiskSize / c.BlockSize
}

// MaxFileSize is the largest logical file content in bytes.
func (c *Config) MaxFileSize() int {
	return c.MaxFileBlocks * c.BlockSize
}

// Validate reports the first unusable value wrapped in [ErrInvalidConfig].
func (c *Config) Validate() error {
	switch {
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidConfig, c.BlockSize)
	case c.DiskSize <= 0 || c.DiskSize%c.BlockSize != 0:
		return fmt.Errorf("%w: disk size %d must be a positive multiple of block size %d",
			ErrInvalidConfig, c.DiskSize, c.BlockSize)
	case c.MaxFileBlocks <= 0:
		return fmt.Errorf("%w: max file blocks must be positive, got %d", ErrInvalidConfig, c.MaxFileBlocks)
	case c.MaxChildren <= 0:
		return fmt.Errorf("%w: max children must be positive, got %d", ErrInvalidConfig, c.MaxChildren)
	case c.MaxNameLen <= 0:
		return fmt.Errorf("%w: max name length must be positive, got %d", ErrInvalidConfig, c.MaxNameLen)
	case !ValidMode(c.DefaultMode):
		return fmt.Errorf("%w: default mode %d", ErrInvalidConfig, c.DefaultMode)
	}
	switch c.DefaultUser {
	case "owner", "group", "other":
	default:
		return fmt.Errorf("%w: default user %q", ErrInvalidConfig, c.DefaultUser)
	}
	return nil
}

// ValidMode reports whether mode is a decimal permission mode: at most three
// digits, each 0-7. filesystem.Mode validates through it.
func ValidMode(mode int) bool {
	if mode < 0 || mode > 777 {
		return false
	}
	for ; mode > 0; mode /= 10 {
		if mode%10 > 7 {
			return false
		}
	}
	return true
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	// LogLvl is a CLI style verbosity from ErrorVerbose (1) to TraceVerbose (5)
	LogLvl        *int    `yaml:"log_lvl,omitempty" json:"log_lvl,omitempty"`
	DiskSize      *int    `yaml:"disk_size,omitempty" json:"disk_size,omitempty"`
	BlockSize     *int    `yaml:"block_size,omitempty" json:"block_size,omitempty"`
	MaxFileBlocks *int    `yaml:"max_file_blocks,omitempty" json:"max_file_blocks,omitempty"`
	MaxChildren   *int    `yaml:"max_children,omitempty" json:"max_children,omitempty"`
	MaxNameLen    *int    `yaml:"max_name_len,omitempty" json:"max_name_len,omitempty"`
	DefaultMode   *int    `yaml:"default_mode,omitempty" json:"default_mode,omitempty"`
	DefaultUser   *string `yaml:"default_user,omitempty" json:"default_user,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		LogLvl:        DefaultLogLvl,
		DiskSize:      DefaultDiskSize,
		BlockSize:     DefaultBlockSize,
		MaxFileBlocks: DefaultMaxFileBlocks,
		MaxChildren:   DefaultMaxChildren,
		MaxNameLen:    DefaultMaxNameLen,
		DefaultMode:   DefaultMode,
		DefaultUser:   DefaultUser,
	}
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = util.LevelFromVerbosity(*override.LogLvl)
	}
	if override.DiskSize != nil {
		c.DiskSize = *override.DiskSize
	}
	if override.BlockSize != nil {
		c.BlockSize = *override.BlockSize
	}
	if override.MaxFileBlocks != nil {
		c.MaxFileBlocks = *override.MaxFileBlocks
	}
	if override.MaxChildren != nil {
		c.MaxChildren = *override.MaxChildren
	}
	if override.MaxNameLen != nil {
		c.MaxNameLen = *override.MaxNameLen
	}
	if override.DefaultMode != nil {
		c.DefaultMode = *override.DefaultMode
	}
	if override.DefaultUser != nil {
		c.DefaultUser = *override.DefaultUser
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports YAML (.yaml, .yml), JSON (.json) and dotenv (.env) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".env" || filepath.Base(path) == ".env" {
		env, err := godotenv.Read(path)
		if err != nil {
			return nil, err
		}
		return overrideFromEnv(env)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// overrideFromEnv reads MINIFS_* keys; absent keys stay unset.
func overrideFromEnv(env map[string]string) (*ConfigOverride, error) {
	var override ConfigOverride

	ints := []struct {
		key string
		dst **int
	}{
		{EnvLogLvl, &override.LogLvl},
		{EnvDiskSize, &override.DiskSize},
		{EnvBlockSize, &override.BlockSize},
		{EnvMaxFileBlocks, &override.MaxFileBlocks},
		{EnvMaxChildren, &override.MaxChildren},
		{EnvMaxNameLen, &override.MaxNameLen},
		{EnvDefaultMode, &override.DefaultMode},
	}
	for _, f := range ints {
		raw, ok := env[f.key]
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", f.key, err)
		}
		*f.dst = util.Pointer(v)
	}
	if user, ok := env[EnvDefaultUser]; ok && user != "" {
		override.DefaultUser = util.Pointer(strings.TrimSpace(user))
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
