package robot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendMock, cfg.Backend)
	assert.Equal(t, RangeConfig{Min: 0, Max: 120}, cfg.Limits.Elbow)
	assert.Equal(t, RangeConfig{Min: -90, Max: 90}, cfg.Limits.Wrist)
	assert.True(t, cfg.IsCalibrated())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "brickpi" }},
		{"feetech without port", func(c *Config) { c.Backend = BackendFeetech }},
		{"inverted elbow limits", func(c *Config) { c.Limits.Elbow = RangeConfig{Min: 120, Max: 0} }},
		{"empty wrist range", func(c *Config) { c.Limits.Wrist = RangeConfig{Min: 10, Max: 10} }},
		{"zero reset speed", func(c *Config) { c.ResetSpeed = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exo.json")

	cfg := DefaultConfig()
	cfg.Backend = BackendFeetech
	cfg.Port = "/dev/ttyACM0"
	cfg.Calibration = FeetechCalibration()
	cfg.Limits.Elbow.Max = 100
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigFrom_MissingFileUsesDefaults(t *testing.T) {
	loaded, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}

func TestLoadConfigFrom_FeetechDefaultCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exo.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"backend":"feetech","port":"/dev/ttyUSB0","reset_speed":30}`), 0644))

	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, FeetechCalibration(), loaded.Calibration)
}

func TestLoadConfigFrom_EnvOverrides(t *testing.T) {
	t.Setenv("EXO_BACKEND", "feetech")
	t.Setenv("EXO_PORT", "/dev/ttyUSB1")
	t.Setenv("EXO_LOG_LEVEL", "debug")

	loaded, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, BackendFeetech, loaded.Backend)
	assert.Equal(t, "/dev/ttyUSB1", loaded.Port)
	assert.Equal(t, "debug", loaded.LogLevel)
}

func TestLoadConfigFrom_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exo.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"limits":{"elbow":{"min":50,"max":10}}}`), 0644))

	_, err := LoadConfigFrom(path)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))
	_, err = LoadConfigFrom(path)
	assert.Error(t, err)
}

func TestNewActuator_Mock(t *testing.T) {
	a, closer, err := NewActuator(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.IsType(t, &MockActuator{}, a)
	assert.NoError(t, closer.Close())
}

func TestNewActuator_UnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "brickpi"

	_, _, err := NewActuator(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
