// Package config loads the mini run configuration from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/log"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/mini/pkg/evaluator"
)

const (
	// ProjectFile is looked up in the project directory.
	ProjectFile = ".mini.yaml"
	// DefaultPrompt is the REPL prompt when none is configured.
	DefaultPrompt = "mini> "
)

// Config is the effective run configuration.
type Config struct {
	// Path is the file the configuration was loaded from, empty for defaults.
	Path     string       `yaml:"-"`
	Limits   LimitsConfig `yaml:"limits"`
	Output   OutputConfig `yaml:"output"`
	LogLevel string       `yaml:"log_level"`
	REPL     REPLConfig   `yaml:"repl"`
}

// LimitsConfig bounds program execution. Zero max_iterations is unlimited.
type LimitsConfig struct {
	MaxCallDepth  int   `yaml:"max_call_depth"`
	MaxIterations int64 `yaml:"max_iterations"`
}

// OutputConfig controls diagnostic rendering.
type OutputConfig struct {
	Pretty bool `yaml:"pretty"`
}

// REPLConfig configures the interactive session.
type REPLConfig struct {
	HistoryFile string `yaml:"history_file"`
	Prompt      string `yaml:"prompt"`
}

// ValidationError lists every problem found in a configuration file.
type ValidationError struct {
	Path   string
	Issues []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config: %s is invalid:", e.Path)
	for _, issue := range e.Issues {
		b.WriteString("\n  - ")
		b.WriteString(issue)
	}
	return b.String()
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxCallDepth: evaluator.DefaultMaxCallDepth,
		},
		LogLevel: "info",
		REPL: REPLConfig{
			Prompt: DefaultPrompt,
		},
	}
}

// Discover finds the configuration for a project directory.
// Precedence: project (.mini.yaml) → user (~/.mini/config.yaml) → defaults.
// A file that exists but cannot be parsed is an error, not a fallthrough.
func Discover(projectDir string) (*Config, error) {
	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".mini", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Debugf("config: %s not found", path)
				continue
			}
			return nil, fmt.Errorf("config: stat %s: %w", path, err)
		}
		return Load(path)
	}

	log.Debugf("config: using defaults")
	return Default(), nil
}

// Load reads one configuration file. Keys absent from the file keep their
// default values; unknown keys are rejected.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	cfg, err := Decode(file)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			vErr.Path = path
			return nil, vErr
		}
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Path = path
	log.Debugf("config: loaded %s", path)
	return cfg, nil
}

// Decode parses YAML configuration from r on top of the defaults.
// An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var issues []string
	if c.Limits.MaxCallDepth < 0 || c.Limits.MaxCallDepth > evaluator.MaxCallDepthCeiling {
		issues = append(issues, fmt.Sprintf("limits.max_call_depth must be between 0 and %d, got %d",
			evaluator.MaxCallDepthCeiling, c.Limits.MaxCallDepth))
	}
	if c.Limits.MaxIterations < 0 {
		issues = append(issues, fmt.Sprintf("limits.max_iterations must be >= 0, got %d", c.Limits.MaxIterations))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		issues = append(issues, err.Error())
	}
	if len(issues) > 0 {
		return &ValidationError{Path: "<input>", Issues: issues}
	}
	return nil
}

// ExecLimits converts the limits section to evaluator limits.
func (c *Config) ExecLimits() evaluator.Limits {
	return evaluator.Limits{
		MaxCallDepth:  c.Limits.MaxCallDepth,
		MaxIterations: c.Limits.MaxIterations,
	}
}

// HistoryPath returns the REPL history file, defaulting to ~/.mini/history.
// It returns "" when no location can be determined.
func (c *Config) HistoryPath() string {
	if c.REPL.HistoryFile != "" {
		return c.REPL.HistoryFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".mini", "history")
}

// Prompt returns the REPL prompt.
func (c *Config) Prompt() string {
	if c.REPL.Prompt == "" {
		return DefaultPrompt
	}
	return c.REPL.Prompt
}

// ApplyLogLevel sets the process log level from the configuration.
func (c *Config) ApplyLogLevel() error {
	lvl, err := ParseLogLevel(c.LogLevel)
	if err != nil {
		return err
	}
	log.SetLogLevel(lvl)
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseLogLevel maps a configured level name to a logger level.
// The empty string means info.
func ParseLogLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.Debug, nil
	case "verbose":
		return log.Verbose, nil
	case "", "info":
		return log.Info, nil
	case "warning", "warn":
		return log.Warning, nil
	case "error":
		return log.Error, nil
	}
	return log.Info, fmt.Errorf("log_level %q is not one of debug, verbose, info, warning, error", name)
}
