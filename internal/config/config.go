// Package config handles vrmtool configuration loading and management.
package config

import "fmt"

// Config holds all vrmtool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Library LibraryConfig `yaml:"library"`
	Physics PhysicsConfig `yaml:"physics"`
	Catalog CatalogConfig `yaml:"catalog"`
	Output  OutputConfig  `yaml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// LibraryConfig controls where avatars are looked up and how many stay
// cached.
type LibraryConfig struct {
	SearchPaths []string `yaml:"search_paths"` // directories tried for relative names
	CacheSize   int      `yaml:"cache_size"`   // 0 disables caching
}

// PhysicsConfig holds spring-bone simulation defaults for `vrmtool simulate`.
type PhysicsConfig struct {
	FPS          float64 `yaml:"fps"`
	Frames       int     `yaml:"frames"`
	GravityScale float64 `yaml:"gravity_scale"` // multiplies every chain's gravity power
}

// CatalogConfig locates the SQLite catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig controls document output of `vrmtool migrate`.
type OutputConfig struct {
	Format string `yaml:"format"` // json or yaml
	Indent int    `yaml:"indent"`
}

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Library: LibraryConfig{
			SearchPaths: []string{"."},
			CacheSize:   16,
		},
		Physics: PhysicsConfig{
			FPS:          60,
			Frames:       120,
			GravityScale: 1,
		},
		Catalog: CatalogConfig{
			Path: "vrmtool.db",
		},
		Output: OutputConfig{
			Format: FormatJSON,
			Indent: 2,
		},
	}
}

// Validate rejects settings no command can run with.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}
	if c.Output.Indent < 0 {
		return fmt.Errorf("output.indent: must not be negative, got %d", c.Output.Indent)
	}
	if c.Physics.FPS <= 0 {
		return fmt.Errorf("physics.fps: must be positive, got %g", c.Physics.FPS)
	}
	if c.Physics.Frames < 0 {
		return fmt.Errorf("physics.frames: must not be negative, got %d", c.Physics.Frames)
	}
	if c.Library.CacheSize < 0 {
		return fmt.Errorf("library.cache_size: must not be negative, got %d", c.Library.CacheSize)
	}
	return nil
}
