package bootstrap

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"room-designer/internal/infra/setup"
)

// Config is the server configuration. Values come from the environment
// (after .env is loaded) and, when CONFIG_FILE names one, a YAML file whose
// keys are the lower-cased variable names. The environment wins.
type Config struct {
	AppEnv            string `mapstructure:"app_env"`
	LogLevel          string `mapstructure:"log_level"`
	ServerPort        string `mapstructure:"server_port"`
	CORSAllowedOrigin string `mapstructure:"cors_allowed_origin"`

	DBDriver   string `mapstructure:"db_driver"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBName     string `mapstructure:"db_name"`
	DBPath     string `mapstructure:"db_path"`

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	KeyPrefix     string        `mapstructure:"redis_key_prefix"`
	StateTTL      time.Duration `mapstructure:"state_ttl"`

	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTExpiryHours int    `mapstructure:"jwt_expiry_hours"`
	AdminEmails    string `mapstructure:"admin_emails"` // comma separated

	RateLimitMax    int           `mapstructure:"rate_limit_max"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`

	AssetsDir          string        `mapstructure:"assets_dir"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	ArchiveSchedule    string        `mapstructure:"archive_schedule"`
}

var configDefaults = map[string]interface{}{
	"app_env":              "development",
	"log_level":            "info",
	"server_port":          "5000",
	"cors_allowed_origin":  "http://localhost:5173",
	"db_driver":            setup.DriverMySQL,
	"db_user":              "",
	"db_password":          "",
	"db_host":              "127.0.0.1",
	"db_port":              "",
	"db_name":              "room_designer",
	"db_path":              "room-designer.db",
	"redis_addr":           "",
	"redis_password":       "",
	"redis_db":             0,
	"redis_key_prefix":     "rd:",
	"state_ttl":            "0s",
	"jwt_secret":           "",
	"jwt_expiry_hours":     24,
	"admin_emails":         "",
	"rate_limit_max":       100,
	"rate_limit_window":    "1s",
	"assets_dir":           "",
	"session_idle_timeout": "30m",
	"archive_schedule":     "@every 5m",
}

// LoadConfig reads .env, the optional CONFIG_FILE and the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 100
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Second
	}
	return cfg, nil
}

// DB returns the SQL connection settings.
func (c *Config) DB() setup.DBConfig {
	return setup.DBConfig{
		Driver:   c.DBDriver,
		User:     c.DBUser,
		Password: c.DBPassword,
		Host:     c.DBHost,
		Port:     c.DBPort,
		Name:     c.DBName,
		Path:     c.DBPath,
	}
}

// Admins splits AdminEmails.
func (c *Config) Admins() []string {
	var out []string
	for _, e := range strings.Split(c.AdminEmails, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
