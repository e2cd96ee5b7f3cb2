package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	require.Equal(t, "pricing", cfg.ServiceName)
	require.Equal(t, 8080, cfg.HTTP.Port)
	require.Equal(t, 600, cfg.Pricing.LatticeSteps)
	require.Equal(t, 100, cfg.Pricing.PayoffSteps)
	require.Equal(t, 200, cfg.Pricing.SurfaceMaxSteps)
	require.False(t, cfg.Redis.Enabled)
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.toml")
	content := `
service_name = "pricing-test"
environment = "prod"

[http]
port = 9000

[pricing]
lattice_steps = 400
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "pricing-test", cfg.ServiceName)
	require.Equal(t, "prod", cfg.Environment)
	require.Equal(t, 9000, cfg.HTTP.Port)
	require.Equal(t, 400, cfg.Pricing.LatticeSteps)
	// 未覆盖的键保持默认
	require.Equal(t, 100, cfg.Pricing.PayoffSteps)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_PRICING_LATTICE_STEPS", "800")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, 800, cfg.Pricing.LatticeSteps)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.toml")
	content := `
[pricing]
lattice_steps = 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
