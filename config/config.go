package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const trueValue = "true"

// ModelConfig holds model store and inference configuration.
type ModelConfig struct {
	Dir        string `yaml:"dir"`         // Local model store directory
	ArchiveURL string `yaml:"archive_url"` // Remote model archive
	Device     string `yaml:"device"`      // cpu or cuda
}

// DatabaseConfig holds the optional scan-history database configuration.
type DatabaseConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Database     string `yaml:"database"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxLifetime  int    `yaml:"max_lifetime_seconds"`
	CleanupHours int    `yaml:"cleanup_hours"`
}

// LoggingConfig holds logging configuration options.
type LoggingConfig struct {
	Debug bool `yaml:"debug"` // Show label and confidence for every line
}

// Config holds all configuration for the classifier CLI.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Dir:        "./ner_model_bert",
			ArchiveURL: "https://nebula-models.s3.amazonaws.com/ner_model_bert.zip",
			Device:     "cpu",
		},
		Database: DatabaseConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "eclipse",
			Username:     "postgres",
			Password:     "",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 25,
			MaxLifetime:  300,
			CleanupHours: 24,
		},
		Logging: LoggingConfig{
			Debug: false,
		},
	}
}

// LoadFile overlays configuration from a YAML file. A missing file is not
// an error; the defaults stand.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 - config path is supplied by the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays configuration from environment variables.
func LoadEnv(cfg *Config) {
	loadModelConfig(cfg)
	loadDatabaseConfig(cfg)
	loadLoggingConfig(cfg)
}

func loadModelConfig(cfg *Config) {
	if dir := os.Getenv("ECLIPSE_MODEL_DIR"); dir != "" {
		cfg.Model.Dir = dir
	}
	if url := os.Getenv("ECLIPSE_MODEL_URL"); url != "" {
		cfg.Model.ArchiveURL = url
	}
	if device := os.Getenv("ECLIPSE_DEVICE"); device != "" {
		cfg.Model.Device = device
	}
}

func loadDatabaseConfig(cfg *Config) {
	if dbEnabled := os.Getenv("DB_ENABLED"); dbEnabled != "" {
		cfg.Database.Enabled = dbEnabled == trueValue
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Database.Port = p
		}
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Database = dbName
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.Username = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if sslMode := os.Getenv("DB_SSL_MODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}
	if cleanupHours := os.Getenv("DB_CLEANUP_HOURS"); cleanupHours != "" {
		if hours, err := strconv.Atoi(cleanupHours); err == nil {
			cfg.Database.CleanupHours = hours
		}
	}
}

func loadLoggingConfig(cfg *Config) {
	if debug := os.Getenv("ECLIPSE_DEBUG"); debug != "" {
		cfg.Logging.Debug = debug == trueValue
	}
}

// Validate checks the configuration for values the run cannot proceed
// without.
func (c *Config) Validate() error {
	if c.Model.Dir == "" {
		return fmt.Errorf("Model.Dir: model directory cannot be empty")
	}
	if c.Model.ArchiveURL == "" {
		return fmt.Errorf("Model.ArchiveURL: archive URL cannot be empty")
	}
	if c.Model.Device != "cpu" && c.Model.Device != "cuda" {
		return fmt.Errorf("Model.Device: must be \"cpu\" or \"cuda\" (current value: %s)", c.Model.Device)
	}
	if c.Database.Enabled {
		if c.Database.Host == "" {
			return fmt.Errorf("Database.Host: host cannot be empty when database is enabled")
		}
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("Database.Port: port must be between 1 and 65535 (current value: %d)", c.Database.Port)
		}
	}
	return nil
}

// MaxLifetimeDuration returns the connection max lifetime as a duration.
func (dc DatabaseConfig) MaxLifetimeDuration() time.Duration {
	return time.Duration(dc.MaxLifetime) * time.Second
}
