package config

import (
	"fmt"
	"strconv"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port    string `json:"port"`
	GinMode string `json:"gin_mode"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Port == "" {
		c.Port = "8000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
}

// Validate checks the port is numeric and in range.
func (c ServerConfig) Validate() error {
	p, err := strconv.Atoi(c.Port)
	if err != nil || p <= 0 || p > 65535 {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown gin mode %s", c.GinMode)
	}
	return nil
}

// DatabaseConfig selects the store. URL wins over Path.
type DatabaseConfig struct {
	// URL is a Postgres DSN.
	URL string `json:"url"`
	// Path is the SQLite file used when URL is empty.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *DatabaseConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "orientation.db"
	}
}

// AuthConfig holds the admin and API key secrets.
type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	MasterSecret  string `json:"master_secret"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
	BcryptCost    int    `json:"bcrypt_cost"`
}

// SetDefaults applies sane defaults.
func (c *AuthConfig) SetDefaults() {
	if c.AdminUsername == "" {
		c.AdminUsername = "admin"
	}
	if c.AdminPassword == "" {
		c.AdminPassword = "admin123"
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 14
	}
}

// Validate checks the bcrypt cost is accepted by x/crypto.
func (c AuthConfig) Validate() error {
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost %d out of range", c.BcryptCost)
	}
	return nil
}

// SchedulerConfig tunes the assignment engine.
type SchedulerConfig struct {
	MaxHours float64 `json:"max_hours"`
}

// SetDefaults applies sane defaults.
func (c *SchedulerConfig) SetDefaults() {
	if c.MaxHours == 0 {
		c.MaxHours = 50
	}
}

// Validate rejects a non-positive cap.
func (c SchedulerConfig) Validate() error {
	if c.MaxHours <= 0 {
		return fmt.Errorf("max_hours must be positive, got %v", c.MaxHours)
	}
	return nil
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level"`
	// Env "dev" switches to the console writer.
	Env string `json:"env"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks the level is known.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
}

// OutputConfig controls where the CLI writes CSV files.
type OutputConfig struct {
	Dir    string `json:"dir"`
	Prefix string `json:"prefix"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "."
	}
	if c.Prefix == "" {
		c.Prefix = "enhanced_orientation_assignments"
	}
}
