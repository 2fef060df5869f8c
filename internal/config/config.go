// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	AvailabilityTemplate  = "template"
	AvailabilityFixedGrid = "fixed_grid"

	LockDriverMemory = "memory"
	LockDriverRedis  = "redis"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type GridConfig struct {
	OpenHour    int     `yaml:"open_hour"`
	CloseHour   int     `yaml:"close_hour"`
	SlotMinutes int     `yaml:"slot_minutes"`
	Price       float64 `yaml:"price"`
}

type BookingConfig struct {
	CancellationCutoff   time.Duration `yaml:"cancellation_cutoff"`
	PendingHold          time.Duration `yaml:"pending_hold"`
	AvailabilityStrategy string        `yaml:"availability_strategy"`
	Grid                 GridConfig    `yaml:"grid"`
	OperationTimeout     time.Duration `yaml:"operation_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"` // Loaded from environment
}

type LockingConfig struct {
	Driver     string        `yaml:"driver"`
	TTL        time.Duration `yaml:"ttl"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	Redis      RedisConfig   `yaml:"redis"`
}

type RateLimitConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MinInterval      time.Duration `yaml:"min_interval"`
	MaxPerHour       int           `yaml:"max_per_hour"`
	MaxPerIPPerHour  int           `yaml:"max_per_ip_per_hour"`
	TrustProxyHeader bool          `yaml:"trust_proxy_header"`
}

type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	CompletionCron string `yaml:"completion_cron"`
	ExpiryCron     string `yaml:"expiry_cron"`
}

type Config struct {
	App struct {
		Name            string        `yaml:"name"`
		Environment     string        `yaml:"environment"`
		Port            int           `yaml:"port"`
		BaseURL         string        `yaml:"base_url"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"app"`

	Database  DatabaseConfig  `yaml:"database"`
	Booking   BookingConfig   `yaml:"booking"`
	Locking   LockingConfig   `yaml:"locking"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Features struct {
		EnableDebug bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.Locking.Redis.Password = os.Getenv("REDIS_PASSWORD")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML on top of the defaults without validating.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used for any key the file leaves out.
func Default() *Config {
	cfg := &Config{}
	cfg.App.Name = "courtbook"
	cfg.App.Environment = "development"
	cfg.App.Port = 8080
	cfg.App.ShutdownTimeout = 30 * time.Second

	cfg.Database.Driver = "sqlite"
	cfg.Database.Filename = "data/courtbook.db"

	cfg.Booking.CancellationCutoff = 2 * time.Hour
	cfg.Booking.AvailabilityStrategy = AvailabilityTemplate
	cfg.Booking.Grid = GridConfig{OpenHour: 9, CloseHour: 22, SlotMinutes: 60}
	cfg.Booking.OperationTimeout = 5 * time.Second

	cfg.Locking.Driver = LockDriverMemory
	cfg.Locking.TTL = 10 * time.Second
	cfg.Locking.RetryDelay = 25 * time.Millisecond

	cfg.RateLimit.MinInterval = 2 * time.Second
	cfg.RateLimit.MaxPerHour = 30
	cfg.RateLimit.MaxPerIPPerHour = 120

	cfg.Scheduler.Enabled = true
	cfg.Scheduler.CompletionCron = "*/10 * * * *"
	cfg.Scheduler.ExpiryCron = "*/5 * * * *"
	return cfg
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if err := c.Booking.validate(); err != nil {
		return err
	}
	if err := c.Locking.validate(); err != nil {
		return err
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MinInterval < 0 {
			return fmt.Errorf("rate_limit min_interval must not be negative")
		}
		if c.RateLimit.MaxPerHour <= 0 || c.RateLimit.MaxPerIPPerHour <= 0 {
			return fmt.Errorf("rate_limit hourly caps must be positive")
		}
	}

	if c.Scheduler.Enabled {
		for name, expr := range map[string]string{
			"completion_cron": c.Scheduler.CompletionCron,
			"expiry_cron":     c.Scheduler.ExpiryCron,
		} {
			if strings.TrimSpace(expr) == "" {
				return fmt.Errorf("scheduler %s is required", name)
			}
			if _, err := cron.ParseStandard(expr); err != nil {
				return fmt.Errorf("scheduler %s: %w", name, err)
			}
		}
	}

	return nil
}

func (b BookingConfig) validate() error {
	if b.CancellationCutoff < 0 {
		return fmt.Errorf("booking cancellation_cutoff must not be negative")
	}
	if b.PendingHold < 0 {
		return fmt.Errorf("booking pending_hold must not be negative")
	}
	if b.OperationTimeout <= 0 {
		return fmt.Errorf("booking operation_timeout must be positive")
	}
	switch b.AvailabilityStrategy {
	case AvailabilityTemplate:
	case AvailabilityFixedGrid:
		grid := b.Grid
		if grid.OpenHour < 0 || grid.CloseHour > 24 || grid.OpenHour >= grid.CloseHour {
			return fmt.Errorf("booking grid hours must satisfy 0 <= open_hour < close_hour <= 24")
		}
		if grid.SlotMinutes <= 0 || (grid.CloseHour-grid.OpenHour)*60%grid.SlotMinutes != 0 {
			return fmt.Errorf("booking grid slot_minutes must evenly divide the open hours")
		}
		if grid.Price < 0 {
			return fmt.Errorf("booking grid price must not be negative")
		}
	default:
		return fmt.Errorf("unsupported availability strategy: %s", b.AvailabilityStrategy)
	}
	return nil
}

func (l LockingConfig) validate() error {
	if l.TTL <= 0 {
		return fmt.Errorf("locking ttl must be positive")
	}
	if l.RetryDelay <= 0 {
		return fmt.Errorf("locking retry_delay must be positive")
	}
	switch l.Driver {
	case LockDriverMemory:
	case LockDriverRedis:
		if l.Redis.Addr == "" {
			return fmt.Errorf("locking redis addr is required for the redis driver")
		}
	default:
		return fmt.Errorf("unsupported lock driver: %s", l.Driver)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
