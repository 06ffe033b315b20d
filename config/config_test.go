package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	require.NoError(t, err)
	assert.Equal(t, *DefaultLedgerConfig(), cfg.Ledger)
	assert.Equal(t, *DefaultStegoConfig(), cfg.Stego)
	assert.Equal(t, *DefaultLogConfig(), cfg.Log)
	assert.Equal(t, *DefaultAPIConfig(), cfg.API)
}

func TestLoadSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	content := `[ledger]
backend = image
path = ledger.png
cover_size = 256

[stego]
fill = 1, 2, 3
workers = 0

[api]
listen_addr = 127.0.0.1:9000
metrics = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "image", cfg.Ledger.Backend)
	assert.Equal(t, "ledger.png", cfg.Ledger.Path)
	assert.Equal(t, 256, cfg.Ledger.CoverSize)
	assert.Equal(t, 32, cfg.Stego.MinSide)
	assert.Equal(t, 1, cfg.Stego.Workers)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.ListenAddr)
	assert.False(t, cfg.API.Metrics)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)

	fill, err := cfg.Stego.FillColor()
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 255}, fill)
}

func TestLoadStegoRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"fill":     "[stego]\nfill = 300,0,0\n",
		"min_side": "[stego]\nmin_side = 0\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".ini")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, err := LoadStegoConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load("config.ini")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Ledger.Backend)
	assert.Equal(t, "localhost:6379", cfg.Ledger.RedisAddr)
}
