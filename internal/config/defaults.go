package config

import "strings"

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Preprocessor: PreprocessorConfig{
			Command: "cpp",
			Args:    []string{"-P"},
		},
		Extract: ExtractConfig{
			Lenient: false,
			Unique:  false,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Watch: WatchConfig{
			DebounceMillis: 250,
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	result := &Config{}

	result.Preprocessor = mergePreprocessorConfig(loaded.Preprocessor, defaults.Preprocessor)

	// Both extract flags default to false, so the loaded values win as-is.
	result.Extract = loaded.Extract

	result.Output = mergeOutputConfig(loaded.Output, defaults.Output)

	result.Watch = mergeWatchConfig(loaded.Watch, defaults.Watch)

	return result
}

func mergePreprocessorConfig(loaded, defaults PreprocessorConfig) PreprocessorConfig {
	result := PreprocessorConfig{}

	if loaded.Command != "" {
		result.Command = loaded.Command
	} else {
		result.Command = defaults.Command
	}

	// Args: a nil slice means unset, an explicit empty list clears the defaults
	if loaded.Args != nil {
		result.Args = loaded.Args
	} else {
		result.Args = defaults.Args
	}

	if len(loaded.IncludeDirs) > 0 {
		result.IncludeDirs = loaded.IncludeDirs
	} else {
		result.IncludeDirs = defaults.IncludeDirs
	}

	result.SystemHeaders = loaded.SystemHeaders

	return result
}

func mergeOutputConfig(loaded, defaults OutputConfig) OutputConfig {
	result := OutputConfig{}

	if loaded.Format != "" {
		result.Format = loaded.Format
	} else {
		result.Format = defaults.Format
	}

	return result
}

func mergeWatchConfig(loaded, defaults WatchConfig) WatchConfig {
	result := WatchConfig{}

	if loaded.DebounceMillis != 0 {
		result.DebounceMillis = loaded.DebounceMillis
	} else {
		result.DebounceMillis = defaults.DebounceMillis
	}

	return result
}

// ValidFormats lists the valid values for output format
var ValidFormats = []string{"text", "json", "yaml"}

// IsValidFormat checks if the given format value is valid, ignoring case
// and surrounding whitespace
func IsValidFormat(format string) bool {
	format = strings.TrimSpace(format)
	for _, valid := range ValidFormats {
		if strings.EqualFold(format, valid) {
			return true
		}
	}
	return false
}
