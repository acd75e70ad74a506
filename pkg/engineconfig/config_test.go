package engineconfig_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/engine/pkg/engineconfig"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := engineconfig.GetDefaultConfig()
	require.NoError(t, engineconfig.Validate(cfg))
	require.Equal(t, "none", cfg.Snapshot.Backend)
	require.Greater(t, cfg.PageSize, 0)
}

func TestValidateRejectsNonPowerOfTwoPageSize(t *testing.T) {
	cfg := engineconfig.GetDefaultConfig()
	cfg.PageSize = 100
	err := engineconfig.Validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsBadgerBackendWithoutPath(t *testing.T) {
	cfg := engineconfig.GetDefaultConfig()
	cfg.Snapshot.Backend = "badger"
	cfg.Snapshot.Badger.Path = ""
	require.Error(t, engineconfig.Validate(cfg))
}

func TestValidateRejectsS3BackendWithoutBucket(t *testing.T) {
	cfg := engineconfig.GetDefaultConfig()
	cfg.Snapshot.Backend = "s3"
	require.Error(t, engineconfig.Validate(cfg))
}

func TestApplyDefaultsPreservesExplicitValues(t *testing.T) {
	cfg := &engineconfig.Config{
		PageSize:          4096,
		FreePagePoolBound: 8,
		MaxOpenChannels:   100,
	}
	engineconfig.ApplyDefaults(cfg)
	require.Equal(t, 4096, cfg.PageSize)
	require.Equal(t, 8, cfg.FreePagePoolBound)
	require.Equal(t, 100, cfg.MaxOpenChannels)
}

func TestLoadWithNoConfigFileFallsBackToDefaults(t *testing.T) {
	// No config file at the search location: Load must fall back to
	// ApplyDefaults rather than error.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := engineconfig.Load("")
	require.NoError(t, err)
	require.Equal(t, "none", cfg.Snapshot.Backend)
}
