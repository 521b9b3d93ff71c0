package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is looked up in the base folder before the XDG config directory.
const FileName = "gtfsman.yml"

// Environment overrides.
const (
	EnvBaseFolder = "GTFSMAN_BASE_FOLDER"
	EnvMaxDepth   = "GTFSMAN_MAX_DEPTH"
)

// Default returns the configuration used when no file is found.
func Default() AppConfig {
	return AppConfig{
		MaxDepth: 2,
		Probe: ProbeConfig{
			TimeoutMS: 30000,
		},
		Update: UpdateConfig{
			Concurrency:       1,
			DownloadTimeoutMS: 600000,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// DefaultConfigPath is the per-user config file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "gtfsman", "config.yml")
}

// DefaultHistoryPath is where the history database lives unless configured.
func DefaultHistoryPath() string {
	return filepath.Join(xdg.CacheHome, "gtfsman", "history.db")
}

// Load reads and validates the configuration.
//
// path, when set, must exist. Otherwise gtfsman.yml in the base folder and then
// DefaultConfigPath are tried, and defaults are used if neither exists. baseFolder, when
// set, wins over both the file and GTFSMAN_BASE_FOLDER.
func Load(path, baseFolder string) (AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("reading .env: %w", err)
	}

	searchBase := baseFolder
	if searchBase == "" {
		searchBase = os.Getenv(EnvBaseFolder)
	}

	cfg := Default()
	data, found, err := readConfigFile(path, searchBase)
	if err != nil {
		return AppConfig{}, err
	}
	if found {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("parsing config: %w", err)
		}
	}

	if v := os.Getenv(EnvBaseFolder); v != "" {
		cfg.BaseFolder = v
	}
	if v := os.Getenv(EnvMaxDepth); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return AppConfig{}, fmt.Errorf("%s: %w", EnvMaxDepth, err)
		}
		cfg.MaxDepth = depth
	}
	if baseFolder != "" {
		cfg.BaseFolder = baseFolder
	}
	if err := cfg.normalize(); err != nil {
		return AppConfig{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readConfigFile(path, baseFolder string) ([]byte, bool, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, false, fmt.Errorf("reading config: %w", err)
		}
		return data, true, nil
	}
	candidates := []string{DefaultConfigPath()}
	if baseFolder != "" {
		candidates = append([]string{filepath.Join(baseFolder, FileName)}, candidates...)
	} else if wd, err := os.Getwd(); err == nil {
		candidates = append([]string{filepath.Join(wd, FileName)}, candidates...)
	}
	for _, p := range candidates {
		data, err := os.ReadFile(p)
		if err == nil {
			return data, true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("reading config %s: %w", p, err)
		}
	}
	return nil, false, nil
}

func (c *AppConfig) normalize() error {
	if c.BaseFolder == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving base folder: %w", err)
		}
		c.BaseFolder = wd
	}
	abs, err := filepath.Abs(c.BaseFolder)
	if err != nil {
		return fmt.Errorf("resolving base folder: %w", err)
	}
	c.BaseFolder = abs
	if c.History.Path == "" {
		c.History.Path = DefaultHistoryPath()
	}
	return nil
}

// ProbeTimeout returns the probe timeout as a duration.
func (c AppConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutMS) * time.Millisecond
}

// DownloadTimeout returns the download timeout as a duration.
func (c AppConfig) DownloadTimeout() time.Duration {
	return time.Duration(c.Update.DownloadTimeoutMS) * time.Millisecond
}

// SelectFeed returns the seed configured for name, if any.
func (c AppConfig) SelectFeed(name string) (Feed, bool) {
	for _, f := range c.Feeds {
		if f.Name == name {
			return f, true
		}
	}
	return Feed{}, false
}
