package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/cesargomez89/cuesplit/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port        string `toml:"port"`
	Threads     int    `toml:"threads"`
	PairThreads int    `toml:"pair_threads"`
	Format      string `toml:"format"`
	NoCleanup   bool   `toml:"no_cleanup"`
	LogDir      string `toml:"log_dir"`
	DBPath      string `toml:"db_path"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`
	Tagger      string `toml:"tagger"`
	FFmpegBin   string `toml:"ffmpeg_bin"`
	ShnsplitBin string `toml:"shnsplit_bin"`
	CuetagBin   string `toml:"cuetag_bin"`
	DetectorBin string `toml:"detector_bin"`

	envErrors []string
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	cpus := runtime.NumCPU()
	return &Config{
		Port:        constants.DefaultPort,
		Threads:     cpus,
		PairThreads: cpus,
		Format:      constants.DefaultFormat,
		LogDir:      constants.DefaultLogDir,
		LogLevel:    "info",
		LogFormat:   "text",
		Tagger:      constants.DefaultTagger,
		FFmpegBin:   constants.DefaultFFmpegBin,
		ShnsplitBin: constants.DefaultShnsplitBin,
		CuetagBin:   constants.DefaultCuetagBin,
		DetectorBin: constants.DefaultDetectorBin,
	}
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}

// Path returns the config file to load: the --config value when given,
// otherwise CUE_SPLITTER_CONFIG. Empty means no file.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return getEnv("CUE_SPLITTER_CONFIG", "")
}

// LoadFile decodes an optional TOML file over the defaults and then applies
// environment overrides. An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Threads = c.getEnvInt("THREADS", c.Threads)
	c.PairThreads = c.getEnvInt("PAIR_THREADS", c.PairThreads)
	c.Format = strings.ToLower(getEnv("FORMAT", c.Format))
	c.NoCleanup = c.getEnvBool("NO_CLEANUP", c.NoCleanup)
	c.LogDir = getEnv("LOG_DIR", c.LogDir)
	c.DBPath = getEnv("CUE_SPLITTER_DB", c.DBPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.Tagger = getEnv("TAGGER", c.Tagger)
	c.FFmpegBin = getEnv("FFMPEG_BIN", c.FFmpegBin)
	c.ShnsplitBin = getEnv("SHNSPLIT_BIN", c.ShnsplitBin)
	c.CuetagBin = getEnv("CUETAG_BIN", c.CuetagBin)
	c.DetectorBin = getEnv("UCHARDET_BIN", c.DetectorBin)
}

// Cleanup reports whether consumed source files are deleted after a job.
func (c *Config) Cleanup() bool {
	return !c.NoCleanup
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	errors := append([]string{}, c.envErrors...)

	// Validate Port
	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.Threads < 1 {
		errors = append(errors, fmt.Sprintf("THREADS must be at least 1, got: %d", c.Threads))
	}
	if c.PairThreads < 1 {
		errors = append(errors, fmt.Sprintf("PAIR_THREADS must be at least 1, got: %d", c.PairThreads))
	}

	validFormats := map[string]bool{
		constants.FormatFLAC: true,
		constants.FormatMP3:  true,
		constants.FormatAAC:  true,
	}
	if !validFormats[c.Format] {
		errors = append(errors, fmt.Sprintf("FORMAT must be one of: flac, mp3, aac, got: %s", c.Format))
	}

	if c.LogDir == "" {
		errors = append(errors, "LOG_DIR cannot be empty")
	}

	validTaggers := map[string]bool{
		constants.TaggerCuetag: true,
		constants.TaggerNative: true,
	}
	if !validTaggers[c.Tagger] {
		errors = append(errors, fmt.Sprintf("TAGGER must be one of: cuetag, native, got: %s", c.Tagger))
	}

	// Validate LogLevel
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	// Validate LogFormat
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	for name, bin := range map[string]string{
		"FFMPEG_BIN":   c.FFmpegBin,
		"SHNSPLIT_BIN": c.ShnsplitBin,
		"CUETAG_BIN":   c.CuetagBin,
		"UCHARDET_BIN": c.DetectorBin,
	} {
		if strings.TrimSpace(bin) == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", name))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (c *Config) getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		c.envErrors = append(c.envErrors, fmt.Sprintf("%s must be a valid number, got: %s", key, value))
		return fallback
	}
	return n
}

func (c *Config) getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no", "":
		return false
	default:
		c.envErrors = append(c.envErrors, fmt.Sprintf("%s must be a boolean, got: %s", key, value))
		return fallback
	}
}
