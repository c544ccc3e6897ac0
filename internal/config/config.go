package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. FACEWATCH_CAMERA_DEVICE
const EnvPrefix = "FACEWATCH"

// Face detector variants supported by the dlib encoder
const (
	DetectorHOG = "hog"
	DetectorCNN = "cnn"
)

// Config is the top-level application configuration
type Config struct {
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Camera      CameraConfig      `mapstructure:"camera" yaml:"camera"`
	Processing  ProcessingConfig  `mapstructure:"processing" yaml:"processing"`
	Recognition RecognitionConfig `mapstructure:"recognition" yaml:"recognition"`
	Gallery     []GalleryEntry    `mapstructure:"gallery" yaml:"gallery"`
	Display     DisplayConfig     `mapstructure:"display" yaml:"display"`
	Events      EventsConfig      `mapstructure:"events" yaml:"events"`
	DB          DBConfig          `mapstructure:"db" yaml:"db"`
	MQTT        MQTTConfig        `mapstructure:"mqtt" yaml:"mqtt"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Cleanup     CleanupConfig     `mapstructure:"cleanup" yaml:"cleanup"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// CameraConfig selects and tunes the capture device
type CameraConfig struct {
	Device          int `mapstructure:"device" yaml:"device"`
	Width           int `mapstructure:"width" yaml:"width"`   // 0 keeps the device default
	Height          int `mapstructure:"height" yaml:"height"` // 0 keeps the device default
	MaxReadFailures int `mapstructure:"max_read_failures" yaml:"max_read_failures"` // consecutive, 0 = unlimited
}

// ProcessingConfig controls frame throttling
type ProcessingConfig struct {
	Downscale     int `mapstructure:"downscale" yaml:"downscale"`             // frames are shrunk to 1/Downscale before detection
	EveryNthFrame int `mapstructure:"every_nth_frame" yaml:"every_nth_frame"` // 2 = every other frame
}

// RecognitionConfig configures the encoder and the matcher
type RecognitionConfig struct {
	ModelsDir string  `mapstructure:"models_dir" yaml:"models_dir"`
	Detector  string  `mapstructure:"detector" yaml:"detector"`
	Tolerance float64 `mapstructure:"tolerance" yaml:"tolerance"`
}

// GalleryEntry is one labeled enrollment image
type GalleryEntry struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Image string `mapstructure:"image" yaml:"image"`
}

// DisplayConfig controls the preview window and label text
type DisplayConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	WindowName  string `mapstructure:"window_name" yaml:"window_name"`
	QuitKey     string `mapstructure:"quit_key" yaml:"quit_key"`
	Language    string `mapstructure:"language" yaml:"language"`
	LocalesDir  string `mapstructure:"locales_dir" yaml:"locales_dir"`
	DebugFrames int    `mapstructure:"debug_frames" yaml:"debug_frames"` // annotated frames kept for the debug API
}

// EventsConfig controls sighting notifications
type EventsConfig struct {
	Cooldown  time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	Snapshots bool          `mapstructure:"snapshots" yaml:"snapshots"`
}

// DBConfig holds database settings
type DBConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	File    string `mapstructure:"file" yaml:"file"`
}

// MQTTConfig holds the MQTT publisher configuration
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker      string `mapstructure:"broker" yaml:"broker"`
	Port        int    `mapstructure:"port" yaml:"port"`
	Username    string `mapstructure:"username" yaml:"username"`
	Password    string `mapstructure:"password" yaml:"password"`
	ClientID    string `mapstructure:"client_id" yaml:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix" yaml:"topic_prefix"`
	// Home Assistant MQTT discovery
	HomeAssistant   bool   `mapstructure:"homeassistant" yaml:"homeassistant"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix" yaml:"discovery_prefix"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Enabled       bool     `mapstructure:"enabled" yaml:"enabled"`
	Host          string   `mapstructure:"host" yaml:"host"`
	Port          int      `mapstructure:"port" yaml:"port"`
	DataDir       string   `mapstructure:"data_dir" yaml:"data_dir"`
	SnapshotDir   string   `mapstructure:"snapshot_dir" yaml:"snapshot_dir"`
	SessionSecret string   `mapstructure:"session_secret" yaml:"session_secret"`
	AllowOrigins  []string `mapstructure:"allow_origins" yaml:"allow_origins"`
	Timezone      string   `mapstructure:"timezone" yaml:"timezone"`
}

// CleanupConfig holds retention settings
type CleanupConfig struct {
	RetentionDays int           `mapstructure:"retention_days" yaml:"retention_days"`
	Interval      time.Duration `mapstructure:"interval" yaml:"interval"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	log.Debugf("Environment loaded from %s", path)
	return nil
}

// Load reads configuration from defaults, the optional file and the environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Environment variables override the file
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// setDefaults reproduces the webcam demo: device 0, quarter-size frames,
// every other frame, tolerance 0.6 and three sample images
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	v.SetDefault("camera.device", 0)
	v.SetDefault("camera.width", 0)
	v.SetDefault("camera.height", 0)
	v.SetDefault("camera.max_read_failures", 0)

	v.SetDefault("processing.downscale", 4)
	v.SetDefault("processing.every_nth_frame", 2)

	v.SetDefault("recognition.models_dir", "models")
	v.SetDefault("recognition.detector", DetectorHOG)
	v.SetDefault("recognition.tolerance", 0.6)

	v.SetDefault("gallery", []map[string]interface{}{
		{"name": "a_person", "image": "./a.jpg"},
		{"name": "b_person", "image": "./b.jpg"},
		{"name": "c_person", "image": "./c.jpg"},
	})

	v.SetDefault("display.enabled", true)
	v.SetDefault("display.window_name", "Video")
	v.SetDefault("display.quit_key", "q")
	v.SetDefault("display.language", "en")
	v.SetDefault("display.locales_dir", "locales")
	v.SetDefault("display.debug_frames", 30)

	v.SetDefault("events.cooldown", "10s")
	v.SetDefault("events.snapshots", false)

	v.SetDefault("db.enabled", true)
	v.SetDefault("db.file", "data/facewatch.db")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "facewatch-go")
	v.SetDefault("mqtt.topic_prefix", "facewatch")
	v.SetDefault("mqtt.homeassistant", false)
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.data_dir", "data")
	v.SetDefault("server.snapshot_dir", "data/snapshots")
	v.SetDefault("server.session_secret", "facewatch")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.timezone", "UTC")

	v.SetDefault("cleanup.retention_days", 30)
	v.SetDefault("cleanup.interval", "1h")
}

// Validate checks values that would otherwise fail deep inside the pipeline
func (c *Config) Validate() error {
	if c.Processing.Downscale < 1 {
		return fmt.Errorf("processing.downscale must be >= 1, got %d", c.Processing.Downscale)
	}
	if c.Processing.EveryNthFrame < 1 {
		return fmt.Errorf("processing.every_nth_frame must be >= 1, got %d", c.Processing.EveryNthFrame)
	}
	if c.Recognition.Tolerance <= 0 {
		return fmt.Errorf("recognition.tolerance must be > 0, got %f", c.Recognition.Tolerance)
	}
	switch c.Recognition.Detector {
	case DetectorHOG, DetectorCNN:
	default:
		return fmt.Errorf("recognition.detector must be %q or %q, got %q", DetectorHOG, DetectorCNN, c.Recognition.Detector)
	}
	if len(c.Gallery) == 0 {
		return errors.New("gallery must contain at least one entry")
	}
	seen := make(map[string]bool, len(c.Gallery))
	for i, entry := range c.Gallery {
		if entry.Name == "" || entry.Image == "" {
			return fmt.Errorf("gallery entry %d needs both name and image", i)
		}
		if seen[entry.Name] {
			return fmt.Errorf("gallery name %q is used more than once", entry.Name)
		}
		seen[entry.Name] = true
	}
	if len(c.Display.QuitKey) != 1 {
		return fmt.Errorf("display.quit_key must be a single character, got %q", c.Display.QuitKey)
	}
	if c.Camera.MaxReadFailures < 0 {
		return fmt.Errorf("camera.max_read_failures must be >= 0, got %d", c.Camera.MaxReadFailures)
	}
	return nil
}

// Dump renders the effective configuration as YAML with secrets masked
func Dump(cfg *Config) ([]byte, error) {
	masked := *cfg
	if masked.MQTT.Password != "" {
		masked.MQTT.Password = "********"
	}
	if masked.Server.SessionSecret != "" {
		masked.Server.SessionSecret = "********"
	}
	return yaml.Marshal(&masked)
}

// ensureDirectories creates the directories the enabled components write to
func ensureDirectories(cfg *Config) error {
	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if cfg.Events.Snapshots && cfg.Server.SnapshotDir != "" {
		if err := os.MkdirAll(cfg.Server.SnapshotDir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	if cfg.DB.Enabled && cfg.DB.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.File), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	return nil
}
