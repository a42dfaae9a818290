package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	Port        string `env:"PORT,default=8080"`
	SiteURL     string `env:"SITE_URL,default=https://blazewallet.io"`

	// Comma-separated proxy IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies string `env:"TRUSTED_PROXIES"`

	DatabaseURL     string        `env:"DATABASE_URL"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS,default=10"`
	DBMaxIdleConns  int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	DBConnMaxLife   time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
	MigrateOnBoot   bool          `env:"MIGRATE_ON_BOOT,default=true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	CronSecret        string        `env:"CRON_SECRET"`
	JWTSecret         string        `env:"JWT_SECRET"`
	AdminEmails       string        `env:"ADMIN_EMAILS"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	AdminTokenTTL     time.Duration `env:"ADMIN_TOKEN_TTL,default=12h"`

	SendGridAPIKey    string        `env:"SENDGRID_API_KEY"`
	EmailFrom         string        `env:"EMAIL_FROM,default=hello@blazewallet.io"`
	EmailFromName     string        `env:"EMAIL_FROM_NAME,default=BLAZE Wallet"`
	EmailSendInterval time.Duration `env:"EMAIL_SEND_INTERVAL,default=200ms"`
	MaxSendsPerRun    int           `env:"MAX_SENDS_PER_RECIPIENT,default=1"`

	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`

	GeminiAPIKey   string  `env:"GEMINI_API_KEY"`
	ChatModel      string  `env:"CHAT_MODEL,default=gemini-2.0-flash"`
	ChatRatePerMin float64 `env:"CHAT_RATE_PER_MINUTE,default=10"`
	ChatBurst      int     `env:"CHAT_BURST,default=5"`

	SignupRatePerMin float64 `env:"SIGNUP_RATE_PER_MINUTE,default=6"`
	SignupBurst      int     `env:"SIGNUP_BURST,default=3"`

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL,default=60s"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE,default=blaze.events"`

	GeoIPURL         string        `env:"GEOIP_URL,default=https://ipapi.co/%s/json/"`
	GeoIPTimeout     time.Duration `env:"GEOIP_TIMEOUT,default=5s"`
	GeoIPConcurrency int           `env:"GEOIP_CONCURRENCY,default=4"`

	DripSchedule       string `env:"DRIP_SCHEDULE,default=@every 1h"`
	CommitmentSchedule string `env:"COMMITMENT_SCHEDULE,default=@every 1h"`

	Features Features
}

// Load reads an optional .env file and decodes the environment into Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

// Admins returns the lowercased admin allowlist.
func (c *Config) Admins() []string {
	var out []string
	for _, e := range strings.Split(c.AdminEmails, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Proxies returns the trusted proxy list, nil when none is configured.
func (c *Config) Proxies() []string {
	var out []string
	for _, p := range strings.Split(c.TrustedProxies, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
