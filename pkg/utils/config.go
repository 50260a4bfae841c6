package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"shelfhub/pkg/database"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Env             string
	HTTPAddr        string
	GRPCAddr        string
	LogLevel        string
	ShutdownTimeout time.Duration

	DB     DBConfig
	Auth   AuthConfig
	Search SearchConfig
}

type DBConfig struct {
	Driver string // "sqlite3" or "postgres"
	Path   string // sqlite file
	URL    string // postgres DSN
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
	BcryptCost  int

	// per-IP limiter on register/login
	RPS   float64
	Burst int
}

type SearchConfig struct {
	ProviderTimeout time.Duration
	ProviderLimit   int
	GoogleBooksURL  string
	AppleBooksURL   string
	JikanURL        string
}

// LoadEnvFiles reads .env and .env.local without overriding variables
// already present in the process environment.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".shelfhub", "data.db")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SHELFHUB")
	v.AutomaticEnv()

	v.SetDefault("env", "development")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("grpc_addr", ":9090")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", "10s")

	v.SetDefault("db_driver", "")
	v.SetDefault("db_path", defaultDBPath())

	v.SetDefault("jwt_secret", devJWTSecret)
	v.SetDefault("jwt_issuer", "shelfhub")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("auth_rps", 1.0)
	v.SetDefault("auth_burst", 5)

	v.SetDefault("search_provider_timeout", "8s")
	v.SetDefault("search_provider_limit", 10)
	v.SetDefault("google_books_url", "https://www.googleapis.com")
	v.SetDefault("apple_books_url", "https://itunes.apple.com")
	v.SetDefault("jikan_url", "https://api.jikan.moe")
	return v
}

// LoadConfig builds the process configuration from the environment.
func LoadConfig() (Config, error) {
	v := newViper()

	// DATABASE_URL is unprefixed so the usual hosting conventions work.
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg := Config{
		Env:             v.GetString("env"),
		HTTPAddr:        v.GetString("http_addr"),
		GRPCAddr:        v.GetString("grpc_addr"),
		LogLevel:        v.GetString("log_level"),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),
		DB: DBConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("db_driver"))),
			Path:   v.GetString("db_path"),
			URL:    dbURL,
		},
		Auth: AuthConfig{
			JWTSecret:   v.GetString("jwt_secret"),
			JWTIssuer:   v.GetString("jwt_issuer"),
			JWTDuration: v.GetDuration("jwt_ttl"),
			BcryptCost:  v.GetInt("bcrypt_cost"),
			RPS:         v.GetFloat64("auth_rps"),
			Burst:       v.GetInt("auth_burst"),
		},
		Search: SearchConfig{
			ProviderTimeout: v.GetDuration("search_provider_timeout"),
			ProviderLimit:   v.GetInt("search_provider_limit"),
			GoogleBooksURL:  strings.TrimRight(v.GetString("google_books_url"), "/"),
			AppleBooksURL:   strings.TrimRight(v.GetString("apple_books_url"), "/"),
			JikanURL:        strings.TrimRight(v.GetString("jikan_url"), "/"),
		},
	}

	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "sqlite3"
		if strings.HasPrefix(dbURL, "postgres") {
			cfg.DB.Driver = "postgres"
		}
	}
	if cfg.Auth.JWTDuration <= 0 {
		cfg.Auth.JWTDuration = 24 * time.Hour
	}
	if cfg.Search.ProviderLimit <= 0 {
		cfg.Search.ProviderLimit = 10
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite3":
		if c.DB.Path == "" {
			return fmt.Errorf("SHELFHUB_DB_PATH must be set for sqlite3")
		}
	case "postgres":
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL must be set for postgres")
		}
	default:
		return fmt.Errorf("unsupported db driver %q", c.DB.Driver)
	}

	if c.Env == "production" && c.Auth.JWTSecret == devJWTSecret {
		return fmt.Errorf("SHELFHUB_JWT_SECRET must be set in production")
	}
	return nil
}

func (c Config) DatabaseConfig() database.Config {
	return database.Config{Driver: c.DB.Driver, Path: c.DB.Path, URL: c.DB.URL}
}
