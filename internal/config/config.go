package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dhos/janitor/internal/client"
)

// Task store backends.
const (
	TaskStoreMemory   = "memory"
	TaskStoreRedis    = "redis"
	TaskStorePostgres = "postgres"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	Env           string `mapstructure:"ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	AllowDropData bool   `mapstructure:"ALLOW_DROP_DATA"`
	AuthDisabled  bool   `mapstructure:"AUTH_DISABLED"`

	HSKey    string `mapstructure:"HS_KEY"`
	ProxyURL string `mapstructure:"PROXY_URL"`

	CustomerCode  string `mapstructure:"CUSTOMER_CODE"`
	PolarisAPIKey string `mapstructure:"POLARIS_API_KEY"`
	// ServiceURLs maps downstream service name to base URL, read from the
	// upper-cased service name (DHOS_USERS_API and so on).
	ServiceURLs map[string]string `mapstructure:"-"`

	StaticDataCacheTTLSec     int     `mapstructure:"STATIC_DATA_CACHE_TTL_SEC"`
	SystemJWTLifetimeSeconds  int     `mapstructure:"SYSTEM_JWT_LIFETIME_SECONDS"`
	ClinicianJWTLifetimeSec   int     `mapstructure:"CLINICIAN_JWT_LIFETIME_SECONDS"`
	PatientJWTLifetimeSeconds int     `mapstructure:"PATIENT_JWT_LIFETIME_SECONDS"`
	JWTTTLCoefficient         float64 `mapstructure:"JWT_TTL_COEFFICIENT"`
	ClientTimeoutSeconds      int     `mapstructure:"CLIENT_TIMEOUT_SECONDS"`
	DropTimeoutSeconds        int     `mapstructure:"DROP_TIMEOUT_SECONDS"`
	GlucoseProfile            string  `mapstructure:"GLUCOSE_PROFILE"`

	TaskStore            string `mapstructure:"TASK_STORE"`
	TaskRetentionSeconds int    `mapstructure:"TASK_RETENTION_SECONDS"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32  `mapstructure:"DB_MIN_CONNS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

// EnvKey returns the environment variable holding a service's base URL.
func EnvKey(service string) string {
	return strings.ToUpper(strings.ReplaceAll(service, "-", "_"))
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ALLOW_DROP_DATA", false)
	v.SetDefault("AUTH_DISABLED", false)
	v.SetDefault("STATIC_DATA_CACHE_TTL_SEC", 3600)
	v.SetDefault("SYSTEM_JWT_LIFETIME_SECONDS", 86400)
	v.SetDefault("CLINICIAN_JWT_LIFETIME_SECONDS", 3600)
	v.SetDefault("PATIENT_JWT_LIFETIME_SECONDS", 3600)
	v.SetDefault("JWT_TTL_COEFFICIENT", 0.75)
	v.SetDefault("CLIENT_TIMEOUT_SECONDS", 60)
	v.SetDefault("DROP_TIMEOUT_SECONDS", 30)
	v.SetDefault("TASK_STORE", TaskStoreMemory)
	v.SetDefault("TASK_RETENTION_SECONDS", 0)
	v.SetDefault("DB_MAX_CONNS", 5)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "ALLOW_DROP_DATA", "AUTH_DISABLED",
		"HS_KEY", "PROXY_URL", "CUSTOMER_CODE", "POLARIS_API_KEY",
		"STATIC_DATA_CACHE_TTL_SEC", "SYSTEM_JWT_LIFETIME_SECONDS",
		"CLINICIAN_JWT_LIFETIME_SECONDS", "PATIENT_JWT_LIFETIME_SECONDS",
		"JWT_TTL_COEFFICIENT", "CLIENT_TIMEOUT_SECONDS", "DROP_TIMEOUT_SECONDS",
		"GLUCOSE_PROFILE", "TASK_STORE", "TASK_RETENTION_SECONDS",
		"REDIS_URL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		v.BindEnv(key)
	}
	for _, service := range client.AllServices {
		v.BindEnv(EnvKey(service))
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ServiceURLs = make(map[string]string, len(client.AllServices))
	for _, service := range client.AllServices {
		if u := v.GetString(EnvKey(service)); u != "" {
			cfg.ServiceURLs[service] = u
		}
	}
	cfg.TaskStore = strings.ToLower(cfg.TaskStore)
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the settings every command needs. Missing downstream URLs
// are reported by the client on first use.
func (c *Config) Validate() error {
	if c.HSKey == "" {
		return fmt.Errorf("HS_KEY is required")
	}
	if c.ProxyURL == "" {
		return fmt.Errorf("PROXY_URL is required")
	}
	if c.AuthDisabled && !c.IsDev() {
		return fmt.Errorf("AUTH_DISABLED is only allowed when ENV=development (current ENV=%q)", c.Env)
	}
	if c.JWTTTLCoefficient <= 0 || c.JWTTTLCoefficient >= 1 {
		return fmt.Errorf("JWT_TTL_COEFFICIENT must be between 0 and 1, got %v", c.JWTTTLCoefficient)
	}
	switch c.TaskStore {
	case TaskStoreMemory:
	case TaskStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when TASK_STORE is %q", c.TaskStore)
		}
	case TaskStorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when TASK_STORE is %q", c.TaskStore)
		}
	default:
		return fmt.Errorf("TASK_STORE must be %q, %q or %q, got %q", TaskStoreMemory, TaskStoreRedis, TaskStorePostgres, c.TaskStore)
	}
	return nil
}

// ClientConfig builds the downstream client settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURLs:       c.ServiceURLs,
		Timeout:        seconds(c.ClientTimeoutSeconds),
		DropTimeout:    seconds(c.DropTimeoutSeconds),
		CustomerCode:   c.CustomerCode,
		APIKey:         c.PolarisAPIKey,
		StaticCacheTTL: seconds(c.StaticDataCacheTTLSec),
	}
}

func (c *Config) TaskRetention() time.Duration {
	return seconds(c.TaskRetentionSeconds)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
