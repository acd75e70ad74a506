// Package engineconfig loads and validates the engine's runtime tunables
// through a layered pipeline: viper reads a file plus environment
// overrides, mapstructure decodes into a typed struct, go-playground/
// validator checks the result, and a subset of fields can be
// hot-reloaded via fsnotify.
package engineconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete set of tunables for one engine instance.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (VFSCORE_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values
type Config struct {
	// PageSize is the fixed page size, in bytes, used by every byte store
	// created by this engine instance. Must be a power of two.
	PageSize int `mapstructure:"page_size" validate:"required,gt=0"`

	// FreePagePoolBound is the maximum number of released pages a byte
	// store's free-page pool retains before pages are simply dropped.
	FreePagePoolBound int `mapstructure:"free_page_pool_bound" validate:"gte=0"`

	// MaxOpenChannels caps the number of simultaneously open channels a
	// single Registry accepts. Zero means unbounded.
	MaxOpenChannels int `mapstructure:"max_open_channels" validate:"gte=0"`

	// DefaultFileMode is the Unix permission bits applied to a newly
	// created regular file when the caller does not specify one.
	DefaultFileMode uint32 `mapstructure:"default_file_mode" validate:"lte=511"`

	// Snapshot selects and configures the opt-in snapshot backend.
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
}

// SnapshotConfig selects the pkg/snapshot backend, if any.
type SnapshotConfig struct {
	// Backend selects the snapshot store implementation.
	// Valid values: none, badger, s3.
	Backend string `mapstructure:"backend" validate:"required,oneof=none badger s3"`

	Badger BadgerSnapshotConfig `mapstructure:"badger"`
	S3     S3SnapshotConfig     `mapstructure:"s3"`
}

// BadgerSnapshotConfig configures pkg/snapshot/badgerstore. Only used
// when Snapshot.Backend == "badger".
type BadgerSnapshotConfig struct {
	// Path is the directory Badger stores its files under.
	Path string `mapstructure:"path"`
}

// S3SnapshotConfig configures pkg/snapshot/s3store. Only used when
// Snapshot.Backend == "s3".
type S3SnapshotConfig struct {
	Bucket string `mapstructure:"bucket"`
	Region string `mapstructure:"region"`
	Prefix string `mapstructure:"prefix"`
}

// Load reads configuration from configPath (or the default search
// location if empty), from VFSCORE_* environment variables, applies
// defaults for anything left unset, and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("VFSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees environment variables for keys viper already
	// knows, so every key is bound explicitly.
	for _, key := range []string{
		"page_size", "free_page_pool_bound", "max_open_channels", "default_file_mode",
		"snapshot.backend", "snapshot.badger.path",
		"snapshot.s3.bucket", "snapshot.s3.region", "snapshot.s3.prefix",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the directory Load searches for config.yaml when
// no explicit path is given: $XDG_CONFIG_HOME/vfscore, or ~/.config/vfscore,
// or "." if the home directory cannot be determined.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vfscore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "vfscore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
