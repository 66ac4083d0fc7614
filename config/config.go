package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Supported values for STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// DefaultTokenLifetime is used when JWT_EXPIRES_IN is not set.
const DefaultTokenLifetime = 30 * 24 * time.Hour

type Config struct {
	ServerPort int `env:"PORT" envDefault:"5000"`

	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig
	HTTP     HTTPConfig
}

type DatabaseConfig struct {
	Driver      string `env:"STORE_DRIVER" envDefault:"postgres"`
	URL         string `env:"DATABASE_URL"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenLifetime TokenLifetime `env:"JWT_EXPIRES_IN" envDefault:"30d"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPConfig struct {
	// Comma-separated list of allowed origins, "*" allows any.
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	MaxRequestBodySize int64         `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
	ReadTimeout        time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout       time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// LoadConfig reads a .env file when one exists and then parses the
// environment. It does not validate; call Validate before serving.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting that prevents the server from starting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.TokenLifetime.Duration() <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	switch c.Database.Driver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Database.Driver)
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid PORT %d", c.ServerPort)
	}
	return nil
}

// AllowedOrigins splits CORSAllowedOrigins into its trimmed, non-empty parts.
func (c HTTPConfig) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// TokenLifetime is a duration that also accepts a day suffix ("30d") and
// bare seconds ("3600"), the forms JWT_EXPIRES_IN has historically used.
type TokenLifetime time.Duration

func (l TokenLifetime) Duration() time.Duration {
	return time.Duration(l)
}

func (l *TokenLifetime) UnmarshalText(text []byte) error {
	d, err := ParseLifetime(string(text))
	if err != nil {
		return err
	}
	*l = TokenLifetime(d)
	return nil
}

// ParseLifetime parses "30d", "12h", "90m", "1s" or "3600".
func ParseLifetime(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultTokenLifetime, nil
	}
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid lifetime %q", raw)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid lifetime %q", raw)
	}
	return d, nil
}

var keywordPassword = regexp.MustCompile(`(password=)(\S+)`)

// RedactDSN hides the password in a connection string so it can be printed.
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Redacted()
	}
	return keywordPassword.ReplaceAllString(dsn, "${1}xxxxx")
}
