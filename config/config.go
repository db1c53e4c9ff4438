package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"APP_ENV" env-default:"development"`
	Port     string `env:"PORT" env-default:"8080"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	CORSOrigin string `env:"CORS_ORIGIN" env-default:"http://localhost:3000"`

	Database Database
	JWT      JWT
	Stripe   Stripe
	Auth     Auth
	Kafka    Kafka
	Payments Payments
}

type Database struct {
	URL             string        `env:"DB_URL" env-required:"true"`
	ConnectAttempts uint          `env:"DB_CONNECT_ATTEMPTS" env-default:"5"`
	ConnectDelay    time.Duration `env:"DB_CONNECT_DELAY" env-default:"500ms"`
	ConnectMaxDelay time.Duration `env:"DB_CONNECT_MAX_DELAY" env-default:"5s"`
}

type JWT struct {
	Secret string        `env:"JWT_SECRET" env-required:"true"`
	TTL    time.Duration `env:"JWT_TTL" env-default:"24h"`
}

// Stripe holds processor credentials. They are optional at startup: a missing
// secret key is reported per request as a configuration error.
type Stripe struct {
	SecretKey       string   `env:"STRIPE_SECRET_KEY"`
	WebhookSecret   string   `env:"STRIPE_WEBHOOK_SECRET"`
	PublishableKey  string   `env:"STRIPE_PUBLISHABLE_KEY"`
	HostingURL      string   `env:"HOSTING_URL" env-default:"http://localhost:3000"`
	PriceIDs        []string `env:"STRIPE_PRICE_IDS" env-separator:","`
	DefaultCurrency string   `env:"STRIPE_DEFAULT_CURRENCY" env-default:"usd"`
}

type Auth struct {
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURL  string `env:"GITHUB_REDIRECT_URL"`

	OIDCIssuerURL    string `env:"OIDC_ISSUER_URL"`
	OIDCClientID     string `env:"OIDC_CLIENT_ID"`
	OIDCClientSecret string `env:"OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `env:"OIDC_REDIRECT_URL"`

	FrontendRedirect string `env:"AUTH_FRONTEND_REDIRECT"`
}

type Kafka struct {
	Brokers       []string `env:"KAFKA_BROKERS" env-separator:","`
	PaymentsTopic string   `env:"KAFKA_PAYMENTS_TOPIC" env-default:"soloist.payments"`
	Version       string   `env:"KAFKA_VERSION" env-default:"3.6.0"`
}

type Payments struct {
	PendingTTL time.Duration `env:"PENDING_PAYMENT_TTL" env-default:"72h"`
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

// GitHubEnabled reports whether all GitHub OAuth settings are present.
func (a Auth) GitHubEnabled() bool {
	return a.GitHubClientID != "" && a.GitHubClientSecret != "" && a.GitHubRedirectURL != ""
}

func (a Auth) OIDCEnabled() bool {
	return a.OIDCIssuerURL != "" && a.OIDCClientID != ""
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}
