package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if !reflect.DeepEqual(cfg.Library.SearchPaths, []string{"."}) {
		t.Errorf("expected search paths [.], got %v", cfg.Library.SearchPaths)
	}
	if cfg.Library.CacheSize != 16 {
		t.Errorf("expected cache size 16, got %d", cfg.Library.CacheSize)
	}

	if cfg.Physics.FPS != 60 {
		t.Errorf("expected fps 60, got %g", cfg.Physics.FPS)
	}
	if cfg.Physics.Frames != 120 {
		t.Errorf("expected 120 frames, got %d", cfg.Physics.Frames)
	}
	if cfg.Physics.GravityScale != 1 {
		t.Errorf("expected gravity scale 1, got %g", cfg.Physics.GravityScale)
	}

	if cfg.Catalog.Path != "vrmtool.db" {
		t.Errorf("expected catalog vrmtool.db, got %s", cfg.Catalog.Path)
	}
	if cfg.Output.Format != FormatJSON || cfg.Output.Indent != 2 {
		t.Errorf("unexpected output defaults: %+v", cfg.Output)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "vrmtool.yaml")

	yamlContent := `
logging:
  level: "debug"
  log_file: "vrmtool.log"

library:
  search_paths: ["avatars", "/srv/vrm"]
  cache_size: 4

physics:
  fps: 30
  frames: 90
  gravity_scale: 0.5

catalog:
  path: "/var/lib/vrmtool/catalog.db"

output:
  format: yaml
  indent: 4
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "vrmtool.log" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if !reflect.DeepEqual(cfg.Library.SearchPaths, []string{"avatars", "/srv/vrm"}) {
		t.Errorf("search paths = %v", cfg.Library.SearchPaths)
	}
	if cfg.Library.CacheSize != 4 {
		t.Errorf("cache size = %d", cfg.Library.CacheSize)
	}
	if cfg.Physics.FPS != 30 || cfg.Physics.Frames != 90 || cfg.Physics.GravityScale != 0.5 {
		t.Errorf("physics = %+v", cfg.Physics)
	}
	if cfg.Catalog.Path != "/var/lib/vrmtool/catalog.db" {
		t.Errorf("catalog path = %s", cfg.Catalog.Path)
	}
	if cfg.Output.Format != FormatYAML || cfg.Output.Indent != 4 {
		t.Errorf("output = %+v", cfg.Output)
	}
}

func TestLoadFromFile_PartialKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "vrmtool.yaml")
	if err := os.WriteFile(configPath, []byte("physics:\n  fps: 24\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Physics.FPS != 24 {
		t.Errorf("fps = %g, want 24", cfg.Physics.FPS)
	}
	if cfg.Physics.Frames != 120 || cfg.Output.Format != FormatJSON {
		t.Error("unset keys should keep their defaults")
	}
}

func TestLoadFromFile_Empty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("empty file changed config: %+v", cfg)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := map[string]string{
		"syntax":      "physics:\n  fps: [unclosed\n",
		"type":        "physics:\n  frames: many\n",
		"unknown key": "graphics:\n  width: 800\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"format", func(c *Config) { c.Output.Format = "xml" }},
		{"indent", func(c *Config) { c.Output.Indent = -1 }},
		{"fps", func(c *Config) { c.Physics.FPS = 0 }},
		{"frames", func(c *Config) { c.Physics.Frames = -5 }},
		{"cache", func(c *Config) { c.Library.CacheSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "vrmtool.yaml"), []byte("physics:\n  fps: 30\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find vrmtool.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "log file flag",
			setup: func() { *flagLogFile = "run.log" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.LogFile != "run.log" {
					t.Errorf("expected log file run.log, got %s", cfg.Logging.LogFile)
				}
			},
			teardown: func() { *flagLogFile = "" },
		},
		{
			name:  "catalog flag",
			setup: func() { *flagCatalog = "other.db" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Catalog.Path != "other.db" {
					t.Errorf("expected catalog other.db, got %s", cfg.Catalog.Path)
				}
			},
			teardown: func() { *flagCatalog = "" },
		},
		{
			name:  "format flag",
			setup: func() { *flagFormat = FormatYAML },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Output.Format != FormatYAML {
					t.Errorf("expected yaml, got %s", cfg.Output.Format)
				}
			},
			teardown: func() { *flagFormat = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "vrmtool.yaml")
	yamlContent := `
logging:
  level: warn
output:
  format: yaml
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagFormat = FormatJSON
	defer func() {
		*flagConfig = ""
		*flagFormat = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// The flag beats the file.
	if cfg.Output.Format != FormatJSON {
		t.Errorf("expected json from flag, got %s", cfg.Output.Format)
	}
	// The file beats the defaults.
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected level warn from file, got %s", cfg.Logging.Level)
	}
}

func TestLoad_InvalidFlagValue(t *testing.T) {
	*flagConfig = filepath.Join(t.TempDir(), "absent-but-explicit.yaml")
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected error for a missing explicit config file")
	}

	*flagConfig = ""
	*flagFormat = "toml"
	defer func() { *flagFormat = "" }()

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if _, err := Load(); err == nil {
		t.Error("expected validation error for -format toml")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vrmtool.yaml")

	cfg := Default()
	cfg.Library.SearchPaths = []string{"a", "b"}
	cfg.Physics.GravityScale = 2
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestSave(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())

	if err := Default().Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ConfigDir(), "config.yaml")); err != nil {
		t.Errorf("saved file missing: %v", err)
	}
}
