package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// Config captures all command-line options required to run the converter.
type Config struct {
	MHTPath  string
	OutPath  string
	MediaDir string
	TempDir  string
	LogLevel string
	LogDir   string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("mht", "", "Path to the .mht archive to convert")
	flags.String("out", "", "Path of the TSV output file (stdout when empty)")
	flags.String("media-dir", "media", "Directory the extracted media files are moved into")
	flags.String("temp-dir", "", "Parent directory for the temporary extraction container (system default when empty)")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (file logging disabled when empty)")

	if err := cmd.MarkFlagRequired("mht"); err != nil {
		return err
	}

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	mhtPath, err := flags.GetString("mht")
	if err != nil {
		return Config{}, err
	}
	outPath, err := flags.GetString("out")
	if err != nil {
		return Config{}, err
	}
	mediaDir, err := flags.GetString("media-dir")
	if err != nil {
		return Config{}, err
	}
	tempDir, err := flags.GetString("temp-dir")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	if mediaDir != "" {
		mediaDir = filepath.Clean(mediaDir)
	}

	cfg := Config{
		MHTPath:  mhtPath,
		OutPath:  outPath,
		MediaDir: mediaDir,
		TempDir:  tempDir,
		LogLevel: logLevel,
		LogDir:   logDir,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.MHTPath == "" {
		return fmt.Errorf("--mht is required")
	}
	if cfg.MediaDir == "" {
		return fmt.Errorf("--media-dir must not be empty")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}
