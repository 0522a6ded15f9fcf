package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultMarketplaceRoundtrip(t *testing.T) {
	def := DefaultMarketplace()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteFile(path, def))

	cfg, err := FromFile(path, DefaultMarketplace())
	require.NoError(t, err)
	require.Equal(t, def, cfg)
}

func TestFromFileMissingFallsBackToDefault(t *testing.T) {
	def := DefaultMarketplace()
	cfg, err := FromFile(filepath.Join(t.TempDir(), "nope.toml"), def)
	require.NoError(t, err)
	require.Equal(t, def, cfg)
}

func TestFromReaderOverridesDefaults(t *testing.T) {
	src := `
[API]
ListenAddress = "0.0.0.0:9876"
Timeout = "1m0s"

[Market]
Owner = "t0555"
`
	cfg, err := FromReader(bytes.NewReader([]byte(src)), DefaultMarketplace())
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:9876", cfg.API.ListenAddress)
	require.Equal(t, Duration(time.Minute), cfg.API.Timeout)
	require.Equal(t, "t0555", cfg.Market.Owner)
	// untouched sections keep their defaults
	require.Equal(t, "t0101", cfg.Market.Beneficiary)
	require.Equal(t, "t090", cfg.Market.Escrow)
}

func TestFromFileBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0644))

	_, err := FromFile(path, DefaultMarketplace())
	require.Error(t, err)
}
