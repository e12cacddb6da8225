package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	StoreBackend          string        `mapstructure:"STORE_BACKEND"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	ServiceBaseURL        string        `mapstructure:"SERVICE_BASE_URL"`
	ServiceToken          string        `mapstructure:"SERVICE_TOKEN"`
	ServiceTimeout        time.Duration `mapstructure:"SERVICE_TIMEOUT"`
	DefaultTenant         string        `mapstructure:"DEFAULT_TENANT"`
	AuthIssuer            string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience          string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey        string        `mapstructure:"AUTH_SIGNING_KEY"`
	GroupIdentifierSystem string        `mapstructure:"GROUP_IDENTIFIER_SYSTEM"`
	GroupDiscoveryLimit   int           `mapstructure:"GROUP_DISCOVERY_LIMIT"`
	DispenseListLimit     int           `mapstructure:"DISPENSE_LIST_LIMIT"`
	RateLimitRPS          float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int64         `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit             string        `mapstructure:"BODY_LIMIT"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
}

var keys = []string{
	"PORT", "ENV", "STORE_BACKEND", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"SERVICE_BASE_URL", "SERVICE_TOKEN", "SERVICE_TIMEOUT", "DEFAULT_TENANT",
	"AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"GROUP_IDENTIFIER_SYSTEM", "GROUP_DISCOVERY_LIMIT", "DISPENSE_LIST_LIMIT",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT", "CORS_ORIGINS",
}

// Load reads the environment, overlaid on an optional .env file, and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", BackendPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("SERVICE_TIMEOUT", "0s")
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("GROUP_IDENTIFIER_SYSTEM", "http://sys-ids.kemkes.go.id/prescription-group")
	v.SetDefault("GROUP_DISCOVERY_LIMIT", 100)
	v.SetDefault("DISPENSE_LIST_LIMIT", 1000)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
	case BackendRemote:
		if c.ServiceBaseURL == "" {
			return fmt.Errorf("SERVICE_BASE_URL is required when STORE_BACKEND is %q", BackendRemote)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendRemote, c.StoreBackend)
	}

	if c.GroupDiscoveryLimit <= 0 {
		return fmt.Errorf("GROUP_DISCOVERY_LIMIT must be positive, got %d", c.GroupDiscoveryLimit)
	}
	if c.DispenseListLimit <= 0 {
		return fmt.Errorf("DISPENSE_LIST_LIMIT must be positive, got %d", c.DispenseListLimit)
	}
	if c.ServiceTimeout < 0 {
		return fmt.Errorf("SERVICE_TIMEOUT must not be negative, got %s", c.ServiceTimeout)
	}
	if c.GroupIdentifierSystem == "" {
		return fmt.Errorf("GROUP_IDENTIFIER_SYSTEM is required")
	}

	// Outside development every request must carry a verifiable token.
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV is %q", c.Env)
	}
	return nil
}
