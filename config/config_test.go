package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model.Dir != "./ner_model_bert" {
		t.Errorf("Expected default model dir './ner_model_bert', got %s", cfg.Model.Dir)
	}
	if cfg.Model.Device != "cpu" {
		t.Errorf("Expected default device cpu, got %s", cfg.Model.Device)
	}
	if cfg.Database.Enabled {
		t.Error("Database must be disabled by default")
	}
	if cfg.Logging.Debug {
		t.Error("Debug logging must be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate, got: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eclipse.yaml")
	content := `
model:
  dir: /opt/models/ner
  device: cuda
database:
  enabled: true
  host: db.internal
logging:
  debug: true
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := LoadFile(path, cfg); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Model.Dir != "/opt/models/ner" {
		t.Errorf("Expected model dir from file, got %s", cfg.Model.Dir)
	}
	if cfg.Model.Device != "cuda" {
		t.Errorf("Expected device cuda, got %s", cfg.Model.Device)
	}
	if !cfg.Database.Enabled || cfg.Database.Host != "db.internal" {
		t.Errorf("Expected database settings from file, got %+v", cfg.Database)
	}
	if !cfg.Logging.Debug {
		t.Error("Expected debug enabled from file")
	}
	// Values the file doesn't mention keep their defaults.
	if cfg.Database.Port != 5432 {
		t.Errorf("Expected default port preserved, got %d", cfg.Database.Port)
	}
}

func TestLoadFile_MissingFileKeepsDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), cfg); err != nil {
		t.Errorf("Missing config file must not be an error, got: %v", err)
	}
	if cfg.Model.Dir != "./ner_model_bert" {
		t.Errorf("Defaults must stand, got %s", cfg.Model.Dir)
	}
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eclipse.yaml")
	if err := os.WriteFile(path, []byte("model: [broken"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := LoadFile(path, DefaultConfig()); err == nil {
		t.Error("Expected error for malformed config file")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ECLIPSE_MODEL_DIR", "/env/models")
	t.Setenv("ECLIPSE_DEVICE", "cuda")
	t.Setenv("ECLIPSE_DEBUG", "true")
	t.Setenv("DB_ENABLED", "true")
	t.Setenv("DB_HOST", "pg.example.com")
	t.Setenv("DB_PORT", "5433")

	cfg := DefaultConfig()
	LoadEnv(cfg)

	if cfg.Model.Dir != "/env/models" {
		t.Errorf("Expected model dir from env, got %s", cfg.Model.Dir)
	}
	if cfg.Model.Device != "cuda" {
		t.Errorf("Expected device from env, got %s", cfg.Model.Device)
	}
	if !cfg.Logging.Debug {
		t.Error("Expected debug enabled from env")
	}
	if !cfg.Database.Enabled {
		t.Error("Expected database enabled from env")
	}
	if cfg.Database.Host != "pg.example.com" {
		t.Errorf("Expected db host from env, got %s", cfg.Database.Host)
	}
	if cfg.Database.Port != 5433 {
		t.Errorf("Expected db port from env, got %d", cfg.Database.Port)
	}
}

func TestLoadEnv_InvalidPortIgnored(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")

	cfg := DefaultConfig()
	LoadEnv(cfg)

	if cfg.Database.Port != 5432 {
		t.Errorf("Invalid port must keep the default, got %d", cfg.Database.Port)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*Config)
		expectErr bool
		errString string
	}{
		{
			name:      "valid defaults",
			mutate:    func(c *Config) {},
			expectErr: false,
		},
		{
			name:      "empty model dir",
			mutate:    func(c *Config) { c.Model.Dir = "" },
			expectErr: true,
			errString: "Model.Dir: model directory cannot be empty",
		},
		{
			name:      "empty archive url",
			mutate:    func(c *Config) { c.Model.ArchiveURL = "" },
			expectErr: true,
			errString: "Model.ArchiveURL: archive URL cannot be empty",
		},
		{
			name:      "bad device",
			mutate:    func(c *Config) { c.Model.Device = "tpu" },
			expectErr: true,
			errString: "Model.Device",
		},
		{
			name: "database enabled without host",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Host = ""
			},
			expectErr: true,
			errString: "Database.Host",
		},
		{
			name: "database port out of range",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Port = 70000
			},
			expectErr: true,
			errString: "Database.Port",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.expectErr {
				if err == nil {
					t.Fatal("Expected validation error, got nil")
				}
				if !strings.Contains(err.Error(), tc.errString) {
					t.Errorf("Expected error containing %q, got %q", tc.errString, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}
