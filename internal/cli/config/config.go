package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// FileName is the project file written by init and read by build.
	FileName = "project.wgen"
	// DirName is the per-project working folder.
	DirName = ".wgen"
	// EnvPrefix prefixes environment overrides, e.g. WGEN_PASS.
	EnvPrefix = "WGEN"
)

// ErrNotProject is returned when no project file can be found.
var ErrNotProject = errors.New("not a webduino-generator project")

// Config represents a webduino-generator project
type Config struct {
	Project    ProjectConfig    `mapstructure:"project"`
	Connection ConnectionConfig `mapstructure:"connection"`
	Board      BoardConfig      `mapstructure:"board"`
	Build      BuildConfig      `mapstructure:"build"`

	root string
}

// ProjectConfig holds the project folders, relative to the project root
type ProjectConfig struct {
	InputPath    string `mapstructure:"input_path"`
	TemplatePath string `mapstructure:"template_path"`
	OutputPath   string `mapstructure:"output_path"`
}

// ConnectionConfig holds network settings for the generated sketch.
// The password is read from the environment and never written back.
type ConnectionConfig struct {
	Mode     string `mapstructure:"mode"`
	SSID     string `mapstructure:"ssid"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"pass"`
}

// BoardConfig remembers the board chosen for compile and upload
type BoardConfig struct {
	Name    string `mapstructure:"name"`
	FQBN    string `mapstructure:"fqbn"`
	Address string `mapstructure:"address"`
}

// BuildConfig tunes classification. MimeTypes is keyed by extension
// without the leading dot since viper splits keys on dots.
type BuildConfig struct {
	DynamicExtensions []string          `mapstructure:"dynamic_extensions"`
	MimeTypes         map[string]string `mapstructure:"mime_types"`
	Workers           int               `mapstructure:"workers"`
}

// New returns the configuration written for a fresh project.
func New(mode, ssid string, port int) *Config {
	return &Config{
		Project: ProjectConfig{
			InputPath:    "input",
			TemplatePath: "template",
			OutputPath:   "output",
		},
		Connection: ConnectionConfig{
			Mode: mode,
			SSID: ssid,
			Port: port,
		},
		Build: BuildConfig{
			DynamicExtensions: []string{".cpp"},
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()

	// Set defaults
	v.SetDefault("project.input_path", "input")
	v.SetDefault("project.template_path", "template")
	v.SetDefault("project.output_path", "output")
	v.SetDefault("connection.mode", "wifinina")
	v.SetDefault("connection.port", 80)
	v.SetDefault("build.dynamic_extensions", []string{".cpp"})

	v.SetConfigType("yaml")

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("connection.ssid", EnvPrefix+"_SSID")
	_ = v.BindEnv("connection.pass", EnvPrefix+"_PASS")

	return v
}

// Load reads the project file in root. A .env file next to it is loaded
// first; variables already set in the environment win.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s not found in %s", ErrNotProject, FileName, root)
	}

	envPath := filepath.Join(root, ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", envPath, err)
		}
	}

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.root = root

	// Validate configuration
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the project file to root. The password is not persisted.
func (c *Config) Save(root string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("project.input_path", c.Project.InputPath)
	v.Set("project.template_path", c.Project.TemplatePath)
	v.Set("project.output_path", c.Project.OutputPath)
	v.Set("connection.mode", c.Connection.Mode)
	v.Set("connection.ssid", c.Connection.SSID)
	v.Set("connection.port", c.Connection.Port)
	v.Set("build.dynamic_extensions", c.Build.DynamicExtensions)
	if len(c.Build.MimeTypes) > 0 {
		mimes := make(map[string]string, len(c.Build.MimeTypes))
		for ext, typ := range c.Build.MimeTypes {
			mimes[strings.TrimPrefix(ext, ".")] = typ
		}
		v.Set("build.mime_types", mimes)
	}
	if c.Build.Workers > 0 {
		v.Set("build.workers", c.Build.Workers)
	}
	if c.Board.FQBN != "" {
		v.Set("board.name", c.Board.Name)
		v.Set("board.fqbn", c.Board.FQBN)
		v.Set("board.address", c.Board.Address)
	}

	if err := v.WriteConfigAs(filepath.Join(root, FileName)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.root = root
	return nil
}

// Root returns the directory the configuration was loaded from or saved to.
func (c *Config) Root() string {
	return c.root
}

// InputDir returns the input folder resolved against the project root.
func (c *Config) InputDir() string {
	return c.resolve(c.Project.InputPath)
}

// TemplateDir returns the template folder resolved against the project root.
func (c *Config) TemplateDir() string {
	return c.resolve(c.Project.TemplatePath)
}

// OutputDir returns the output folder resolved against the project root.
func (c *Config) OutputDir() string {
	return c.resolve(c.Project.OutputPath)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.root, p)
}

// InProject checks if dir holds a project file
func InProject(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// FindRoot walks up from start looking for a project file
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if InProject(dir) {
			return dir, nil
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return "", fmt.Errorf("%w (no %s found)", ErrNotProject, FileName)
		}
		dir = parent
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Connection.Port < 0 || cfg.Connection.Port > 65535 {
		return fmt.Errorf("connection.port must be between 0 and 65535, got: %d", cfg.Connection.Port)
	}
	for _, p := range []string{cfg.Project.InputPath, cfg.Project.TemplatePath, cfg.Project.OutputPath} {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("project paths must not be empty")
		}
	}
	return nil
}
