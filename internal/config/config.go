package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Env      string `env:"APP_ENV" env-default:"local"`
	AppPort  string `env:"APP_PORT" env-default:"8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	DBDriver    string `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`

	JWTSecret    string        `env:"JWT_SECRET" env-required:"true"`
	TokenExpires time.Duration `env:"TOKEN_TTL" env-default:"24h"`
	CookieName   string        `env:"COOKIE_NAME" env-default:"session"`
	CookieSecure bool          `env:"COOKIE_SECURE" env-default:"true"`
	CORSOrigins  string        `env:"CORS_ORIGINS" env-default:"http://localhost:3000"`

	Redis    RedisConfig
	SMS      SMSConfig
	SMTP     SMTPConfig
	Telegram TelegramConfig
	Social   SocialConfig

	HamperMaxItems int `env:"HAMPER_MAX_ITEMS" env-default:"10"`
}

// RedisConfig enables the shared OTP counter when Addr is set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type SMSConfig struct {
	BaseURL    string `env:"SMS_BASE_URL" env-default:"https://api.twilio.com/2010-04-01"`
	AccountSID string `env:"SMS_ACCOUNT_SID"`
	AuthToken  string `env:"SMS_AUTH_TOKEN"`
	From       string `env:"SMS_FROM"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" env-default:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	Sender   string `env:"SMTP_SENDER"`
}

type TelegramConfig struct {
	BotToken    string `env:"TELEGRAM_BOT_TOKEN"`
	AdminChatID string `env:"TELEGRAM_ADMIN_CHAT_ID"`
}

type SocialConfig struct {
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleTokenInfoURL string `env:"GOOGLE_TOKENINFO_URL" env-default:"https://oauth2.googleapis.com/tokeninfo"`
	FacebookGraphURL   string `env:"FACEBOOK_GRAPH_URL" env-default:"https://graph.facebook.com/v19.0"`
	FacebookAppID      string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret  string `env:"FACEBOOK_APP_SECRET"`
}

// AllowedOrigins returns CORS origins in the comma-separated form fiber expects.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// Load reads .env (if present) and the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad is Load that exits the process on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.HamperMaxItems <= 0 {
		return fmt.Errorf("HAMPER_MAX_ITEMS must be positive")
	}
	return nil
}
