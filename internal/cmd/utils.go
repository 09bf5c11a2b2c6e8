package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pyapi/csig/internal/cache"
	"github.com/pyapi/csig/internal/config"
	"github.com/pyapi/csig/internal/extract"
	"github.com/pyapi/csig/internal/output"
	"github.com/pyapi/csig/internal/preprocess"
)

// Shared utility functions for command implementations

// logf writes a diagnostic line to stderr when --verbose is set.
func logf(format string, args ...interface{}) {
	if !verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "csig: "+format+"\n", args...)
}

// loadConfig loads the configuration named by --config, or the nearest
// .csig/config.yaml above the working directory.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		logf("loading config from %s", configPath)
		return config.LoadFromPath(configPath)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return config.Load(cwd)
}

// resolveFormat applies --format over output.format.
func resolveFormat(cfg *config.Config) (output.Format, error) {
	name := cfg.Output.Format
	if outputFormat != "" {
		name = outputFormat
	}
	return output.ParseFormat(name)
}

// writeOutput formats v for the command's standard output.
func writeOutput(cmd *cobra.Command, cfg *config.Config, v interface{}) error {
	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}
	formatter, err := output.GetFormatter(format)
	if err != nil {
		return fmt.Errorf("failed to get formatter: %w", err)
	}
	if err := formatter.FormatToWriter(cmd.OutOrStdout(), v); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

// Extraction flags shared by extract and watch
var (
	extractIncludes []string
	extractCPP      string
	extractLenient  bool
	extractUnique   bool
	extractSystem   bool
)

func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&extractIncludes, "include", "I", nil, "Extra include directory searched before the include path (repeatable)")
	cmd.Flags().StringVar(&extractCPP, "cpp", "", "Preprocessor command (default: preprocessor.command)")
	cmd.Flags().BoolVar(&extractLenient, "lenient", false, "Skip unparsable declarations instead of failing")
	cmd.Flags().BoolVar(&extractUnique, "unique", false, "Drop duplicate signature lines")
	cmd.Flags().BoolVar(&extractSystem, "system-headers", false, "Use the system C library headers instead of the stub libc")
}

// applyExtractFlags overrides cfg with the extraction flags set on cmd.
func applyExtractFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("include") {
		dirs := append([]string(nil), cfg.Preprocessor.IncludeDirs...)
		cfg.Preprocessor.IncludeDirs = append(dirs, extractIncludes...)
	}
	if flags.Changed("cpp") {
		cfg.Preprocessor.Command = extractCPP
	}
	if flags.Changed("lenient") {
		cfg.Extract.Lenient = extractLenient
	}
	if flags.Changed("unique") {
		cfg.Extract.Unique = extractUnique
	}
	if flags.Changed("system-headers") {
		cfg.Preprocessor.SystemHeaders = extractSystem
	}
}

func extractOptions(cfg *config.Config) extract.Options {
	return extract.Options{
		Lenient: cfg.Extract.Lenient,
		Unique:  cfg.Extract.Unique,
	}
}

// extractHeaders preprocesses the preamble against includePath and extracts
// the declared function signatures.
func extractHeaders(ctx context.Context, cfg *config.Config, includePath string) ([]extract.Signature, error) {
	pp := &preprocess.Preprocessor{
		Command:     cfg.Preprocessor.Command,
		Args:        cfg.Preprocessor.Args,
		IncludeDirs: cfg.Preprocessor.IncludeDirs,
		StubLibc:    !cfg.Preprocessor.SystemHeaders,
	}
	logf("running %s", pp.CommandLine("<preamble>", includePath))

	start := time.Now()
	source, err := pp.RunPreamble(ctx, includePath)
	if err != nil {
		return nil, err
	}
	logf("preprocessed %d bytes in %s", len(source), time.Since(start).Round(time.Millisecond))

	start = time.Now()
	sigs, err := extract.ExtractSource(ctx, source, extractOptions(cfg))
	if err != nil {
		return nil, err
	}
	logf("extracted %d signatures in %s", len(sigs), time.Since(start).Round(time.Millisecond))
	return sigs, nil
}

// findCacheDir returns the .csig directory holding the snapshot cache. With
// create set, a missing directory is created in the working directory.
func findCacheDir(create bool) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	dir, err := config.FindConfigDir(cwd)
	if err == nil {
		return dir, nil
	}
	if !errors.Is(err, config.ErrConfigNotFound) {
		return "", err
	}
	if !create {
		return "", fmt.Errorf("no %s directory found (save a snapshot with 'csig extract --save <name>')", config.ConfigDirName)
	}
	return config.EnsureConfigDir(cwd)
}

func openCache(create bool) (*cache.Cache, error) {
	dir, err := findCacheDir(create)
	if err != nil {
		return nil, err
	}
	c, err := cache.Open(dir)
	if err != nil {
		return nil, err
	}
	logf("using snapshot cache %s", c.Path())
	return c, nil
}
