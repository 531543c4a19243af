package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Admin      AdminConfig      `yaml:"admin"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Exports    ExportConfig     `yaml:"exports"`
	Hotel      HotelConfig      `yaml:"hotel"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// StorageConfig selects the snapshot backend: "sqlite" or "json".
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// RedisConfig is optional; an empty address disables Redis-backed features.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// AdminConfig holds the single administrator account. PasswordHash is a bcrypt
// hash; bcrypt's "$" characters collide with ${VAR} expansion, so reference it
// from the environment instead of inlining it.
type AdminConfig struct {
	Username     string        `yaml:"username"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type RateLimitConfig struct {
	PublicRequests int           `yaml:"public_requests"`
	PublicWindow   time.Duration `yaml:"public_window"`
	AdminRPS       float64       `yaml:"admin_rps"`
	AdminBurst     int           `yaml:"admin_burst"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadSheetID string `yaml:"bookings_spreadsheet_id"`
	SheetName            string `yaml:"sheet_name"`
}

func (g GoogleConfig) Enabled() bool {
	return g.CredentialsFile != "" && g.BookingSpreadSheetID != ""
}

type TelegramConfig struct {
	BotToken     string  `yaml:"bot_token"`
	ManagerChats []int64 `yaml:"manager_chats"`
	Debug        bool    `yaml:"debug"`
}

func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && len(t.ManagerChats) > 0
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

// HotelConfig seeds the hotel profile and the room catalog of an empty store.
// Timezone is an IANA name deciding the hotel's calendar day; empty means UTC.
type HotelConfig struct {
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Phone    string `yaml:"phone"`
	SeedPath string `yaml:"seed_path"`
	Timezone string `yaml:"timezone"`
}

func (h HotelConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(h.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("hotel.timezone: %w", err)
	}
	return loc, nil
}

// Load reads an optional .env, expands ${VAR} references and decodes the YAML file.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "json":
	default:
		return fmt.Errorf("storage.driver must be sqlite or json, got %q", c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	if c.Admin.Username == "" || c.Admin.PasswordHash == "" {
		return errors.New("admin username and password_hash are required")
	}
	if len(c.Admin.JWTSecret) < 16 {
		return errors.New("admin.jwt_secret must be at least 16 characters")
	}
	if c.RateLimit.PublicRequests < 0 || c.RateLimit.AdminRPS < 0 {
		return errors.New("rate limits must not be negative")
	}
	if _, err := c.Hotel.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "hotelbook"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 5 * time.Second
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == "json" {
			c.Storage.Path = "data/hotel.json"
		} else {
			c.Storage.Path = "data/hotel.db"
		}
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Admin.TokenTTL == 0 {
		c.Admin.TokenTTL = 24 * time.Hour
	}
	if c.RateLimit.PublicRequests == 0 {
		c.RateLimit.PublicRequests = 60
	}
	if c.RateLimit.PublicWindow == 0 {
		c.RateLimit.PublicWindow = time.Minute
	}
	if c.RateLimit.AdminRPS == 0 {
		c.RateLimit.AdminRPS = 10
	}
	if c.RateLimit.AdminBurst == 0 {
		c.RateLimit.AdminBurst = 20
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Bookings"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
