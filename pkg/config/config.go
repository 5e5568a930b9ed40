package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds every setting of the server and the CLI.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Auth      AuthConfig      `json:"auth"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
	Output    OutputConfig    `json:"output"`
}

// envKeys maps the supported environment variables onto config keys.
var envKeys = map[string]string{
	"PORT":              "server.port",
	"GIN_MODE":          "server.gin_mode",
	"DATABASE_URL":      "database.url",
	"DATA_PATH":         "database.path",
	"JWT_SECRET":        "auth.jwt_secret",
	"API_MASTER_SECRET": "auth.master_secret",
	"ADMIN_USERNAME":    "auth.admin_username",
	"ADMIN_PASSWORD":    "auth.admin_password",
	"BCRYPT_COST":       "auth.bcrypt_cost",
	"MAX_HOURS":         "scheduler.max_hours",
	"LOG_LEVEL":         "logging.level",
	"APP_ENV":           "logging.env",
	"OUTPUT_DIR":        "output.dir",
	"OUTPUT_PREFIX":     "output.prefix",
}

// dotenvPaths are tried in order; a missing file is not an error.
var dotenvPaths = []string{".env", "../.env", "../../.env"}

// LoadDotEnv loads the first .env file found next to the working directory.
// Variables already set in the process environment win.
func LoadDotEnv() string {
	for _, p := range dotenvPaths {
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

// Load reads the optional config file at path, then applies environment
// overrides, defaults and validation. An empty path skips the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		return envKeys[key], value
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Database.SetDefaults()
	c.Auth.SetDefaults()
	c.Scheduler.SetDefaults()
	c.Logging.SetDefaults()
	c.Output.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Apply exports the logging environment so loggers created later pick it up.
func (c Config) Apply() {
	if c.Logging.Env != "" {
		_ = os.Setenv("APP_ENV", c.Logging.Env)
	}
	if c.Logging.Level != "" {
		_ = os.Setenv("LOG_LEVEL", c.Logging.Level)
	}
}
