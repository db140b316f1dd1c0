package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/gondar-software/domain-manager/internal/logging"
)

// Certificate reissue policies
const (
	ReissueIfMissing  = "if-missing"
	ReissueIfExpiring = "if-expiring"
	ReissueAlways     = "always"
)

// Config holds all configuration for the application
type Config struct {
	// Server Configuration
	Environment string `env:"ENV" envDefault:"development"`
	Port        string `env:"API_PORT" envDefault:"8001"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`
	LogRequests bool   `env:"LOG_REQUESTS" envDefault:"false"`

	// Hosting
	RootDomain   string `env:"DOMAIN"`
	EmailAddress string `env:"EMAIL_ADDRESS"`

	// Authentication
	Password           string        `env:"PASSWORD"`
	JWTSecret          string        `env:"JWT_SECRET"`
	TokenExpireTimeout time.Duration `env:"TOKEN_EXPIRE_TIMEOUT" envDefault:"120m"`

	// DNS provider
	GoDaddyAPIKey         string        `env:"GODADDY_API_KEY"`
	GoDaddyAPISecret      string        `env:"GODADDY_API_SECRET"`
	GoDaddyURL            string        `env:"GODADDY_URL" envDefault:"https://api.godaddy.com"`
	PublicIPURL           string        `env:"PUBLIC_IP_URL" envDefault:"https://api.ipify.org"`
	DNSTimeout            time.Duration `env:"DNS_TIMEOUT" envDefault:"15s"`
	DNSPropagationTimeout time.Duration `env:"DNS_PROPAGATION_TIMEOUT" envDefault:"0s"`

	// Reverse proxy
	NginxConfigPath string `env:"NGINX_CONFIG_PATH" envDefault:"/etc/nginx/nginx.conf"`
	NginxBinary     string `env:"NGINX_BINARY" envDefault:"nginx"`
	NginxService    string `env:"NGINX_SERVICE" envDefault:"nginx"`
	NginxValidate   bool   `env:"NGINX_VALIDATE" envDefault:"false"`
	UseSudo         bool   `env:"USE_SUDO" envDefault:"true"`

	// Certificates
	LetsEncryptDir    string        `env:"LETSENCRYPT_DIR" envDefault:"/etc/letsencrypt"`
	CertbotBinary     string        `env:"CERTBOT_BINARY" envDefault:"certbot"`
	CertTimeout       time.Duration `env:"CERT_TIMEOUT" envDefault:"3m"`
	CertReissuePolicy string        `env:"CERT_REISSUE_POLICY" envDefault:"if-missing"`
	CertRenewBefore   time.Duration `env:"CERT_RENEW_BEFORE" envDefault:"720h"`
	ChallengePort     int           `env:"CHALLENGE_PORT" envDefault:"80"`

	// Orchestration
	OperationTimeout   time.Duration `env:"OPERATION_TIMEOUT" envDefault:"10m"`
	DNSMonitorInterval time.Duration `env:"DNS_MONITOR_INTERVAL" envDefault:"0s"`

	// HTTP surface
	RateLimitRPS   int      `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"20"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Telemetry Configuration
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"false"`

	// Notifications
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`
}

// Load loads the configuration from environment variables and .env files.
// Variables already present in the environment win over file values.
func Load() (*Config, error) {
	envLocations := []string{".env"}
	if envName := os.Getenv("ENV"); envName != "" {
		envLocations = append([]string{fmt.Sprintf(".env.%s", envName)}, envLocations...)
	}

	for _, loc := range envLocations {
		if _, err := os.Stat(loc); err != nil {
			continue
		}
		if err := godotenv.Load(loc); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", loc, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.RootDomain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(cfg.RootDomain)), ".")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.CertReissuePolicy {
	case ReissueIfMissing, ReissueIfExpiring, ReissueAlways:
	default:
		errs = append(errs, fmt.Errorf("unknown CERT_REISSUE_POLICY %q", c.CertReissuePolicy))
	}

	if c.OperationTimeout <= 0 {
		errs = append(errs, errors.New("OPERATION_TIMEOUT must be positive"))
	}

	if c.IsProduction() {
		if c.Password == "" {
			errs = append(errs, errors.New("PASSWORD is required in production"))
		}
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
		if c.RootDomain == "" {
			errs = append(errs, errors.New("DOMAIN is required in production"))
		}
		if c.EmailAddress == "" {
			errs = append(errs, errors.New("EMAIL_ADDRESS is required in production"))
		}
	}

	return errors.Join(errs...)
}

// LoggingConfig derives the logger settings.
func (c *Config) LoggingConfig() *logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = strings.ToLower(c.LogLevel)
	lc.File = c.LogFile
	lc.LogRequests = c.LogRequests
	return lc
}
