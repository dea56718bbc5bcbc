package robot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const DefaultConfigFile = "exo.json"

// Backend selects the actuator implementation.
type Backend string

const (
	BackendMock    Backend = "mock"
	BackendFeetech Backend = "feetech"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds the exoskeleton configuration
type Config struct {
	Backend     Backend      `json:"backend" validate:"oneof=mock feetech"`
	Port        string       `json:"port,omitempty" validate:"required_if=Backend feetech"`
	Calibration Calibration  `json:"calibration,omitempty"`
	Limits      LimitsConfig `json:"limits"`
	ResetSpeed  float64      `json:"reset_speed" validate:"gt=0"`
	LogLevel    string       `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
}

// LimitsConfig holds the safety range of both joints in degrees
type LimitsConfig struct {
	Elbow RangeConfig `json:"elbow"`
	Wrist RangeConfig `json:"wrist"`
}

// RangeConfig is a closed angular interval
type RangeConfig struct {
	Min float64 `json:"min" validate:"ltfield=Max"`
	Max float64 `json:"max"`
}

// DefaultConfig returns a simulated exoskeleton with the standard safety limits.
func DefaultConfig() *Config {
	return &Config{
		Backend:     BackendMock,
		Calibration: DefaultCalibration(),
		Limits: LimitsConfig{
			Elbow: RangeConfig{Min: 0, Max: 120},
			Wrist: RangeConfig{Min: -90, Max: 90},
		},
		ResetSpeed: 30,
		LogLevel:   "info",
	}
}

// IsCalibrated returns true if every motor has calibration data
func (c *Config) IsCalibrated() bool {
	for _, m := range AllMotors() {
		if _, ok := c.Calibration[m]; !ok {
			return false
		}
	}
	return true
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. A missing file
// yields the default configuration. Environment overrides are applied last.
func LoadConfigFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Calibration = nil

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()

	if cfg.Calibration == nil {
		cfg.Calibration = cfg.defaultCalibration()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("EXO_BACKEND"); v != "" {
		c.Backend = Backend(v)
	}
	if v := os.Getenv("EXO_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("EXO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) defaultCalibration() Calibration {
	if c.Backend == BackendFeetech {
		return FeetechCalibration()
	}
	return DefaultCalibration()
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}

// NewActuator opens the backend selected by cfg. The returned closer
// releases hardware resources and is never nil.
func NewActuator(cfg *Config, logger *zap.Logger) (Actuator, io.Closer, error) {
	switch cfg.Backend {
	case BackendMock:
		return NewMockActuator(), nopCloser{}, nil
	case BackendFeetech:
		a, err := NewServoActuator(cfg.Port, cfg.Calibration, logger)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), servoScanTimeout)
		defer cancel()
		if err := a.Enable(ctx); err != nil {
			a.Close()
			return nil, nil, err
		}
		return a, a, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Backend)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
