package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, 15*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, c.Server.AllowedOrigins)
	assert.Equal(t, 2000.0, c.Chart.BinSize)
	assert.Equal(t, 200, c.Chart.KDEPoints)
	assert.Equal(t, 5, c.Chart.PreviewRows)
	assert.Equal(t, "json", c.Log.Format)
	assert.True(t, c.Metrics.Enabled)
	assert.False(t, c.Tracing.Enabled)
	assert.NoError(t, c.Validate())
	assert.Equal(t, ',', c.DelimiterRune())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carsales.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  rate_limit: 20
data:
  path: /data/sales.xlsx
  sheet: Sales
chart:
  bin_size: 500
log:
  level: debug
`), 0o644))
	t.Setenv("CARSALES_LOG_FORMAT", "text")
	t.Setenv("CARSALES_DATA_DELIMITER", ";")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Server.Addr)
	assert.Equal(t, 20.0, c.Server.RateLimit)
	assert.Equal(t, "/data/sales.xlsx", c.Data.Path)
	assert.Equal(t, "Sales", c.Data.Sheet)
	assert.Equal(t, 500.0, c.Chart.BinSize)
	assert.Equal(t, 200, c.Chart.KDEPoints)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "text", c.Log.Format)
	assert.Equal(t, ';', c.DelimiterRune())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carsales.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chart:\n  bin_size: -1\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chart.bin_size")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"addr":       func(c *Config) { c.Server.Addr = "" },
		"rate_limit": func(c *Config) { c.Server.RateLimit = -1 },
		"path":       func(c *Config) { c.Data.Path = "" },
		"delimiter":  func(c *Config) { c.Data.Delimiter = ";;" },
		"kde_points": func(c *Config) { c.Chart.KDEPoints = 1 },
		"preview":    func(c *Config) { c.Chart.PreviewRows = -1 },
		"log.format": func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "carsales.yaml")
	c := Default()
	c.Data.Path = "other.csv"
	c.Server.ShutdownTimeout = 3 * time.Second
	require.NoError(t, Save(c, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.csv", loaded.Data.Path)
	assert.Equal(t, 3*time.Second, loaded.Server.ShutdownTimeout)
}
