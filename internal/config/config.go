// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	Session   SessionConfig   `koanf:"session"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Panel     PanelConfig     `koanf:"panel"`
	Payment   PaymentConfig   `koanf:"payment"`
	Notify    NotifyConfig    `koanf:"notify"`
	Catalog   CatalogConfig   `koanf:"catalog"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL             string        `koanf:"url"`
	PoolSize        int           `koanf:"pool_size"`
	MinIdleConns    int           `koanf:"min_idle_conns"`
	PoolTimeout     time.Duration `koanf:"pool_timeout"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	DialTimeout     time.Duration `koanf:"dial_timeout"`
}

type JWTConfig struct {
	PrivateKeyPath string        `koanf:"private_key_path"`
	PublicKeyPath  string        `koanf:"public_key_path"`
	SessionExpire  time.Duration `koanf:"session_expire"`
	Issuer         string        `koanf:"issuer"`
	Audience       string        `koanf:"audience"`
}

type SessionConfig struct {
	CookieName string `koanf:"cookie_name"`
	Domain     string `koanf:"domain"`
	Secure     bool   `koanf:"secure"`
}

// RateLimitConfig budgets are counted per Window. Requests and Burst
// apply per client address, User* per account and Order* to order writes.
type RateLimitConfig struct {
	Window        time.Duration `koanf:"window"`
	Requests      int           `koanf:"requests"`
	Burst         int           `koanf:"burst"`
	AuthRequests  int           `koanf:"auth_requests"`
	AuthBurst     int           `koanf:"auth_burst"`
	UserRequests  int           `koanf:"user_requests"`
	UserBurst     int           `koanf:"user_burst"`
	OrderRequests int           `koanf:"order_requests"`
	OrderBurst    int           `koanf:"order_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// PanelConfig points at the Pterodactyl application API used for
// provisioning. Default* values apply when a product carries no
// explicit template or when its resource strings cannot be parsed.
type PanelConfig struct {
	URL               string        `koanf:"url"`
	APIKey            string        `koanf:"api_key"`
	Timeout           time.Duration `koanf:"timeout"`
	DefaultNestID     int           `koanf:"default_nest_id"`
	DefaultEggID      int           `koanf:"default_egg_id"`
	DefaultLocationID int           `koanf:"default_location_id"`
	DefaultMemoryMB   int           `koanf:"default_memory_mb"`
	DefaultCPU        int           `koanf:"default_cpu"`
	DefaultDiskMB     int           `koanf:"default_disk_mb"`
	DockerImage       string        `koanf:"docker_image"`
	Startup           string        `koanf:"startup"`
	UserLastName      string        `koanf:"user_last_name"`
}

type PaymentConfig struct {
	UPIID      string `koanf:"upi_id"`
	PayeeName  string `koanf:"payee_name"`
	Currency   string `koanf:"currency"`
	NotePrefix string `koanf:"note_prefix"`
	QRSize     int    `koanf:"qr_size"`
}

type NotifyConfig struct {
	DiscordWebhookURL string        `koanf:"discord_webhook_url"`
	MentionRoleID     string        `koanf:"mention_role_id"`
	Username          string        `koanf:"username"`
	AvatarURL         string        `koanf:"avatar_url"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxElapsed        time.Duration `koanf:"max_elapsed"`
}

type CatalogConfig struct {
	AllowAdHocPlans bool `koanf:"allow_ad_hoc_plans"`
}

// Load builds a Config from defaults, an optional YAML file, a .env file
// in the working directory and the process environment, in that order of
// precedence. The result is passed explicitly to every component.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "LumenNodes Portal",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "60s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":          10,
		"redis.min_idle_conns":     5,
		"redis.pool_timeout":       "30s",
		"redis.conn_max_idle_time": "5m",
		"redis.dial_timeout":       "5s",

		"jwt.session_expire":   "168h",
		"jwt.issuer":           "lumennodes-portal",
		"jwt.audience":         "lumennodes-portal-api",
		"jwt.private_key_path": "keys/private.pem",
		"jwt.public_key_path":  "keys/public.pem",

		"session.cookie_name": "auth-token",

		"rate_limit.requests":       100,
		"rate_limit.window":         "1m",
		"rate_limit.burst":          20,
		"rate_limit.auth_requests":  10,
		"rate_limit.auth_burst":     5,
		"rate_limit.user_requests":  60,
		"rate_limit.user_burst":     15,
		"rate_limit.order_requests": 6,
		"rate_limit.order_burst":    2,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "lumennodes-portal",

		"panel.timeout":             "8s",
		"panel.default_nest_id":     1,
		"panel.default_egg_id":      2,
		"panel.default_location_id": 1,
		"panel.default_memory_mb":   2048,
		"panel.default_cpu":         100,
		"panel.default_disk_mb":     10240,
		"panel.docker_image":        "ghcr.io/pterodactyl/yolks:java_17",
		"panel.startup":             "java -Xms128M -Xmx{{SERVER_MEMORY}}M -jar server.jar",
		"panel.user_last_name":      "LumenNodes",

		"payment.payee_name":  "LumenNodes",
		"payment.currency":    "INR",
		"payment.note_prefix": "LumenNodes",
		"payment.qr_size":     300,

		"notify.username":    "LumenNodes Bot",
		"notify.timeout":     "5s",
		"notify.max_elapsed": "4s",

		"catalog.allow_ad_hoc_plans": false,
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_AUTO_MIGRATE":       "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_SESSION_EXPIRE":          "jwt.session_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"SESSION_COOKIE_NAME":         "session.cookie_name",
	"SESSION_COOKIE_DOMAIN":       "session.domain",
	"SESSION_COOKIE_SECURE":       "session.secure",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"RATE_LIMIT_ORDER_REQUESTS":   "rate_limit.order_requests",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"PTERODACTYL_URL":             "panel.url",
	"PTERODACTYL_API_KEY":         "panel.api_key",
	"PTERODACTYL_TIMEOUT":         "panel.timeout",
	"UPI_ID":                      "payment.upi_id",
	"UPI_PAYEE_NAME":              "payment.payee_name",
	"DISCORD_WEBHOOK_URL":         "notify.discord_webhook_url",
	"DISCORD_ADMIN_ROLE_ID":       "notify.mention_role_id",
	"ALLOW_AD_HOC_PLANS":          "catalog.allow_ad_hoc_plans",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.JWT.SessionExpire <= 0 {
		return fmt.Errorf("jwt.session_expire must be positive")
	}

	if c.Panel.URL == "" {
		return fmt.Errorf("PTERODACTYL_URL is required")
	}

	if c.Panel.APIKey == "" {
		return fmt.Errorf("PTERODACTYL_API_KEY is required")
	}

	if c.Panel.Timeout <= 0 {
		return fmt.Errorf("panel.timeout must be positive")
	}

	if c.Payment.UPIID == "" {
		return fmt.Errorf("UPI_ID is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if c.Catalog.AllowAdHocPlans {
			return fmt.Errorf("ALLOW_AD_HOC_PLANS must be false in production")
		}
	}

	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive")
	}

	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("notify.timeout must be positive")
	}

	if c.Notify.MaxElapsed > c.Notify.Timeout {
		return fmt.Errorf(
			"notify.max_elapsed (%s) must not exceed notify.timeout (%s)",
			c.Notify.MaxElapsed,
			c.Notify.Timeout,
		)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
