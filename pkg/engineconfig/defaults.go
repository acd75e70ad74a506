package engineconfig

import "github.com/vfscore/engine/pkg/bytestore"

// ApplyDefaults fills in any fields left at their zero value after
// loading. Zero values are treated as "unspecified", so an explicit zero
// for FreePagePoolBound is replaced by the default of 16; non-zero values
// are preserved. MaxOpenChannels defaults to zero, so a zero there stays
// zero.
func ApplyDefaults(cfg *Config) {
	applyCoreDefaults(cfg)
	applySnapshotDefaults(&cfg.Snapshot)
}

func applyCoreDefaults(cfg *Config) {
	if cfg.PageSize == 0 {
		cfg.PageSize = bytestore.DefaultPageSize
	}
	if cfg.FreePagePoolBound == 0 {
		cfg.FreePagePoolBound = 16
	}
	if cfg.DefaultFileMode == 0 {
		cfg.DefaultFileMode = 0644
	}
	// MaxOpenChannels defaults to 0 (unbounded).
}

func applySnapshotDefaults(cfg *SnapshotConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "none"
	}
	if cfg.Badger.Path == "" {
		cfg.Badger.Path = "./vfscore-snapshots"
	}
}

// GetDefaultConfig returns a Config with every field set to its default.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
