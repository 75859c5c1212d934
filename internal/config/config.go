package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Security     SecurityConfig     `mapstructure:"security"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Notification NotificationConfig `mapstructure:"notification"`
	Seed         SeedConfig         `mapstructure:"seed"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds storage configuration. Pool settings apply to sqlite only.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// SecurityConfig holds credential hashing settings
type SecurityConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// RegistrationConfig controls self-service sign-up
type RegistrationConfig struct {
	// DefaultManagerEmail is the manager assigned to every self-registered user.
	// Empty means new users have no manager.
	DefaultManagerEmail string   `mapstructure:"default_manager_email"`
	AllowedRoles        []string `mapstructure:"allowed_roles"`
}

// NotificationConfig holds the toast feed settings
type NotificationConfig struct {
	Capacity int `mapstructure:"capacity"`
	// Async delivers events to the feed in the background instead of before the request returns
	Async bool `mapstructure:"async"`
}

// SeedConfig controls loading of the sample organisation
type SeedConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Password string `mapstructure:"password"`
}

// Load reads an optional .env file, then configPath (if not empty), then
// environment variables, and validates the result.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	err := gotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/expenses.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("security.bcrypt_cost", 10)

	v.SetDefault("registration.default_manager_email", "manager@company.com")
	v.SetDefault("registration.allowed_roles", []string{string(entity.RoleEmployee), string(entity.RoleManager)})

	v.SetDefault("notification.capacity", 50)
	v.SetDefault("notification.async", false)

	v.SetDefault("seed.enabled", false)
	v.SetDefault("seed.password", "")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", "DATABASE_PATH")
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("seed.password", "SEED_PASSWORD")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverBolt, c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if _, err := c.Registration.Roles(); err != nil {
		return err
	}

	if c.Seed.Enabled && c.Seed.Password == "" {
		return fmt.Errorf("seed.password is required when seed.enabled is set")
	}

	return nil
}

// Roles parses registration.allowed_roles. Admin can never be self-assigned.
func (r RegistrationConfig) Roles() ([]entity.Role, error) {
	roles := make([]entity.Role, 0, len(r.AllowedRoles))
	for _, name := range r.AllowedRoles {
		role, ok := entity.ParseRole(name)
		if !ok {
			return nil, fmt.Errorf("registration.allowed_roles: unknown role %q", name)
		}
		if role == entity.RoleAdmin {
			return nil, fmt.Errorf("registration.allowed_roles: %s cannot self-register", role)
		}
		roles = append(roles, role)
	}
	return roles, nil
}
