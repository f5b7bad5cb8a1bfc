package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	fileName = "config.yaml"
)

type Config struct {
	DataDir  string         `yaml:"-"`
	DBPath   string         `yaml:"-"`
	Storage  StorageConfig  `yaml:"storage"`
	Focus    FocusConfig    `yaml:"focus"`
	Identity IdentityConfig `yaml:"identity"`
	Journal  JournalConfig  `yaml:"journal"`
	Log      LogConfig      `yaml:"log"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// FocusConfig holds the duration menus offered by the timer, in minutes.
type FocusConfig struct {
	FocusMenu    []int `yaml:"focus_menu"`
	BreakMenu    []int `yaml:"break_menu"`
	DefaultBreak int   `yaml:"default_break"`
}

type IdentityConfig struct {
	UserID    string `yaml:"user_id"`
	Token     string `yaml:"token"`
	JWTSecret string `yaml:"jwt_secret"`
}

type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		DBPath:  filepath.Join(dataDir, ".focusloop", "focusloop.db"),
		Storage: StorageConfig{Driver: DriverSQLite},
		Focus: FocusConfig{
			FocusMenu:    []int{15, 25, 45, 60},
			BreakMenu:    []int{5, 10, 15},
			DefaultBreak: 5,
		},
		Identity: IdentityConfig{UserID: "local"},
		Journal:  JournalConfig{Dir: filepath.Join(dataDir, "journal")},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// New builds the configuration for dataDir: defaults, then <dataDir>/.focusloop/config.yaml,
// then FOCUSLOOP_* environment overrides.
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	cfg := Default(dataDir)
	if err := cfg.loadFile(filepath.Join(dataDir, ".focusloop", fileName)); err != nil {
		return Config{}, err
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("FOCUSLOOP_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := getenv("FOCUSLOOP_POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := getenv("FOCUSLOOP_USER_ID"); v != "" {
		c.Identity.UserID = v
	}
	if v := getenv("FOCUSLOOP_TOKEN"); v != "" {
		c.Identity.Token = v
	}
	if v := getenv("FOCUSLOOP_JWT_SECRET"); v != "" {
		c.Identity.JWTSecret = v
	}
	if v := getenv("FOCUSLOOP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("FOCUSLOOP_JOURNAL"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Journal.Enabled = enabled
		}
	}
}

// Validate fills in missing values and rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = DriverSQLite
	case DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	defaults := Default(c.DataDir)
	if len(positive(c.Focus.FocusMenu)) == 0 {
		c.Focus.FocusMenu = defaults.Focus.FocusMenu
	}
	if len(positive(c.Focus.BreakMenu)) == 0 {
		c.Focus.BreakMenu = defaults.Focus.BreakMenu
	}
	c.Focus.FocusMenu = positive(c.Focus.FocusMenu)
	c.Focus.BreakMenu = positive(c.Focus.BreakMenu)
	if !contains(c.Focus.BreakMenu, c.Focus.DefaultBreak) {
		c.Focus.DefaultBreak = c.Focus.BreakMenu[0]
	}
	if strings.TrimSpace(c.Identity.UserID) == "" {
		c.Identity.UserID = defaults.Identity.UserID
	}
	if c.Identity.Token != "" && c.Identity.JWTSecret == "" {
		return fmt.Errorf("identity.jwt_secret is required when a token is configured")
	}
	if c.Journal.Dir == "" {
		c.Journal.Dir = defaults.Journal.Dir
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	return nil
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
	if c.Storage.Driver == DriverPostgres {
		return c.Storage.PostgresDSN
	}
	return c.DBPath
}

func positive(values []int) []int {
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func contains(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
