// Package config loads runtime configuration from the environment, an
// optional .env file and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ayusman/abhinaya/internal/controller"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every runtime setting of the abhinaya binary.
type Config struct {
	CameraID int `validate:"gte=0"`
	Mirror   bool
	FPS      int `validate:"min=1,max=120"`

	HTTPAddr string `validate:"required"`
	DataDir  string `validate:"required"`
	WebDir   string

	LogLevel string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFile  string

	MQTTBroker   string `validate:"omitempty,url"`
	MQTTClientID string `validate:"required_with=MQTTBroker"`
	MQTTPrefix   string `validate:"required_with=MQTTBroker"`

	PluginDir     string
	PluginTimeout time.Duration `validate:"gt=0"`

	Tray               bool
	RestoreCalibration bool
	TuningFile         string

	Tuning controller.Tuning `validate:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		CameraID:           0,
		Mirror:             true,
		FPS:                30,
		HTTPAddr:           "127.0.0.1:8080",
		DataDir:            filepath.Join(home, ".abhinaya"),
		LogLevel:           "info",
		MQTTClientID:       "abhinaya",
		MQTTPrefix:         "abhinaya",
		PluginTimeout:      5 * time.Second,
		Tray:               true,
		RestoreCalibration: true,
		Tuning:             controller.DefaultTuning(),
	}
}

// Load reads envFile if it exists, then applies ABHINAYA_* variables over
// the defaults. A missing envFile is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	c := Default()
	var err error
	if c.CameraID, err = envInt("ABHINAYA_CAMERA", c.CameraID); err != nil {
		return Config{}, err
	}
	if c.Mirror, err = envBool("ABHINAYA_MIRROR", c.Mirror); err != nil {
		return Config{}, err
	}
	if c.FPS, err = envInt("ABHINAYA_FPS", c.FPS); err != nil {
		return Config{}, err
	}
	c.HTTPAddr = envString("ABHINAYA_HTTP_ADDR", c.HTTPAddr)
	c.DataDir = envString("ABHINAYA_DATA_DIR", c.DataDir)
	c.WebDir = envString("ABHINAYA_WEB_DIR", c.WebDir)
	c.LogLevel = envString("ABHINAYA_LOG_LEVEL", c.LogLevel)
	c.LogFile = envString("ABHINAYA_LOG_FILE", c.LogFile)
	c.MQTTBroker = envString("ABHINAYA_MQTT_BROKER", c.MQTTBroker)
	c.MQTTClientID = envString("ABHINAYA_MQTT_CLIENT_ID", c.MQTTClientID)
	c.MQTTPrefix = envString("ABHINAYA_MQTT_PREFIX", c.MQTTPrefix)
	c.PluginDir = envString("ABHINAYA_PLUGIN_DIR", c.PluginDir)
	if c.PluginTimeout, err = envDuration("ABHINAYA_PLUGIN_TIMEOUT", c.PluginTimeout); err != nil {
		return Config{}, err
	}
	if c.Tray, err = envBool("ABHINAYA_TRAY", c.Tray); err != nil {
		return Config{}, err
	}
	if c.RestoreCalibration, err = envBool("ABHINAYA_RESTORE_CALIBRATION", c.RestoreCalibration); err != nil {
		return Config{}, err
	}
	c.TuningFile = envString("ABHINAYA_TUNING_FILE", c.TuningFile)

	return c, nil
}

// Finalize loads the tuning file, if any, and validates the result. It is
// called after command-line overrides have been applied.
func (c *Config) Finalize() error {
	if c.TuningFile != "" {
		t, err := controller.LoadTuning(c.TuningFile)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		c.Tuning = t
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Tuning.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// DBPath is the SQLite database location inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "abhinaya.db")
}

// PluginsPath is PluginDir, or the plugins directory inside DataDir.
func (c *Config) PluginsPath() string {
	if c.PluginDir != "" {
		return c.PluginDir
	}
	return filepath.Join(c.DataDir, "plugins")
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, key, v)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalid, key, v)
	}
	return d, nil
}
