package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the csig configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the csig configuration directory
const ConfigDirName = ".csig"

// Config holds all csig configuration
type Config struct {
	Preprocessor PreprocessorConfig `yaml:"preprocessor"`
	Extract      ExtractConfig      `yaml:"extract"`
	Output       OutputConfig       `yaml:"output"`
	Watch        WatchConfig        `yaml:"watch"`
}

// PreprocessorConfig holds configuration for the external C preprocessor
type PreprocessorConfig struct {
	Command     string   `yaml:"command"`
	Args        []string `yaml:"args"`
	IncludeDirs []string `yaml:"include_dirs"`
	// SystemHeaders turns off the stub libc so <stdio.h> and friends come
	// from the system
	SystemHeaders bool `yaml:"system_headers"`
}

// ExtractConfig holds configuration for signature extraction
type ExtractConfig struct {
	Lenient bool `yaml:"lenient"`
	Unique  bool `yaml:"unique"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	Format string `yaml:"format"`
}

// WatchConfig holds configuration for watch mode
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .csig/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		// No config dir found, return defaults
		return DefaultConfig(), nil
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	return LoadFromPath(configPath)
}

// LoadFromPath reads config from a specific path.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())

	if err := Validate(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// FindConfigDir locates the .csig directory by walking up from startDir.
// Returns the path to the .csig directory if found.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .csig directory if it doesn't exist.
// Returns the path to the .csig directory.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)

	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return configDir, nil
}

// Validate checks that config values are valid.
// Returns an error if validation fails.
func Validate(cfg *Config) error {
	if cfg.Preprocessor.Command == "" {
		return fmt.Errorf("%w: preprocessor.command must not be empty", ErrInvalidConfig)
	}

	for _, dir := range cfg.Preprocessor.IncludeDirs {
		if dir == "" {
			return fmt.Errorf("%w: preprocessor.include_dirs must not contain empty entries", ErrInvalidConfig)
		}
	}

	if !IsValidFormat(cfg.Output.Format) {
		return fmt.Errorf("%w: output.format must be one of %v, got %q",
			ErrInvalidConfig, ValidFormats, cfg.Output.Format)
	}

	if cfg.Watch.DebounceMillis < 0 {
		return fmt.Errorf("%w: watch.debounce_ms must be non-negative, got %d",
			ErrInvalidConfig, cfg.Watch.DebounceMillis)
	}

	return nil
}

// SaveDefault writes the default configuration to .csig/config.yaml in workDir.
// Creates the .csig directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	header := "# csig configuration\n# include_dirs are searched before the include path given on the command line\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}
