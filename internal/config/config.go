package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Sheet  SheetConfig
	Cache  CacheConfig
	Tasks  TasksConfig
	Server ServerConfig
}

// SheetConfig holds remote spreadsheet settings.
type SheetConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	WorksheetName   string `mapstructure:"worksheet_name"`
	CredentialsFile string `mapstructure:"credentials_file"`
	MaxRows         int    `mapstructure:"max_rows"`
}

// CacheConfig holds cache store settings.
type CacheConfig struct {
	RedisURL string `mapstructure:"redis_url"`
}

// TasksConfig holds task queue settings.
type TasksConfig struct {
	DBPath          string        `mapstructure:"db_path"`
	RefreshDebounce time.Duration `mapstructure:"refresh_debounce"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

var spreadsheetURLPattern = regexp.MustCompile(`^https://docs\.google\.com/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// Load reads configuration from file and env. Env var overrides use prefix LEDGER_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("sheet.spreadsheet_id", "")
	v.SetDefault("sheet.worksheet_name", "Ledger")
	v.SetDefault("sheet.credentials_file", "creds.json")
	v.SetDefault("sheet.max_rows", 300)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("tasks.db_path", filepath.Join(os.Getenv("HOME"), ".local", "share", "ledger", "tasks.db"))
	v.SetDefault("tasks.refresh_debounce", 30*time.Second)
	v.SetDefault("server.port", "8080")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LEDGER_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "ledger"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Sheet.SpreadsheetID = NormalizeSpreadsheetID(c.Sheet.SpreadsheetID)
	return c, nil
}

// NormalizeSpreadsheetID accepts either a bare spreadsheet ID or a full
// document URL and returns the ID.
func NormalizeSpreadsheetID(raw string) string {
	if m := spreadsheetURLPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}
