// Package config holds the process-wide server configuration. It is read
// once at startup and never mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"harperls.dev/harper-ls/internal/log"
)

// AppName names the configuration and data directories.
const AppName = "harper-ls"

// LintOn selects when documents are linted.
type LintOn string

const (
	// LintOnChange lints after every edit
	LintOnChange LintOn = "change"
	// LintOnSave lints on open and save only
	LintOnSave LintOn = "save"
)

// Rules toggles individual lint rules.
type Rules struct {
	Spelling      bool `yaml:"spelling"`
	RepeatedWords bool `yaml:"repeatedWords"`
	Articles      bool `yaml:"articles"`
}

// Config is the server configuration.
type Config struct {
	// UserDictPath is the user dictionary word list
	UserDictPath string `yaml:"userDictPath"`
	// FileDictPath is the directory of per-file word lists
	FileDictPath string `yaml:"fileDictPath"`
	LintOn       LintOn `yaml:"lintOn"`
	// LintStrings includes string literals in source files
	LintStrings bool     `yaml:"lintStrings"`
	Rules       Rules    `yaml:"rules"`
	Ignore      []string `yaml:"ignore"`
	// CacheSize is the lint cache budget in bytes of text; 0 disables it
	CacheSize int64  `yaml:"cacheSize"`
	LogLevel  string `yaml:"logLevel"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		UserDictPath: filepath.Join(configDir(), AppName, "dictionary.txt"),
		FileDictPath: filepath.Join(dataDir(), AppName, "file_dictionaries"),
		LintOn:       LintOnChange,
		LintStrings:  true,
		Rules:        Rules{Spelling: true, RepeatedWords: true, Articles: true},
		CacheSize:    8 << 20,
		LogLevel:     "info",
	}
}

// DefaultPath is the optional configuration file.
func DefaultPath() string {
	return filepath.Join(configDir(), AppName, "config.yaml")
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	return os.TempDir()
}

// dataDir follows the XDG base directory layout.
func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); filepath.IsAbs(dir) {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share")
	}
	return os.TempDir()
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadYAML(cfg, path); err != nil {
			return nil, fmt.Errorf("config yaml: %w", err)
		}
	}

	loadEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	log.Debug("Loaded configuration from %s", path)
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.UserDictPath, "HARPER_LS_USER_DICT")
	setString(&cfg.FileDictPath, "HARPER_LS_FILE_DICT_DIR")
	setString((*string)(&cfg.LintOn), "HARPER_LS_LINT_ON")
	setString(&cfg.LogLevel, "HARPER_LS_LOG_LEVEL")
	setBool(&cfg.LintStrings, "HARPER_LS_LINT_STRINGS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn("Ignoring %s=%q: %v", key, v, err)
		return
	}
	*dst = b
}

// Validate checks the configuration and expands a leading ~ in paths.
func (c *Config) Validate() error {
	var errs []error

	c.UserDictPath = expandHome(c.UserDictPath)
	c.FileDictPath = expandHome(c.FileDictPath)

	if c.UserDictPath == "" {
		errs = append(errs, errors.New("userDictPath must not be empty"))
	}
	if c.FileDictPath == "" {
		errs = append(errs, errors.New("fileDictPath must not be empty"))
	}
	switch c.LintOn {
	case LintOnChange, LintOnSave:
	case "":
		c.LintOn = LintOnChange
	default:
		errs = append(errs, fmt.Errorf("lintOn must be %q or %q, got %q", LintOnChange, LintOnSave, c.LintOn))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cacheSize must not be negative, got %d", c.CacheSize))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for _, pattern := range c.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("invalid ignore pattern %q", pattern))
		}
	}
	return errors.Join(errs...)
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/' && rest[0] != filepath.Separator) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// Ignored reports whether a file path matches an ignore pattern.
func (c *Config) Ignored(path string) bool {
	if path == "" {
		return false
	}
	// doublestar.Match expects forward slashes; relative patterns match
	// against the path without its root.
	slashed := filepath.ToSlash(path)
	relative := strings.TrimPrefix(slashed, "/")
	for _, pattern := range c.Ignore {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, relative); ok {
			return true
		}
	}
	return false
}
