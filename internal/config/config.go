package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting. It is built once in main and passed
// down explicitly; nothing reads the environment after Load returns.
type Config struct {
	Port        string
	Environment string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	FrontendURL string
	SeedDir     string
}

// Load reads configuration from the environment, with an optional .env file
// layered underneath. Missing .env is not an error.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "tigercode"),
		DBPassword: getEnv("DB_PASSWORD", "tigercode"),
		DBName:     getEnv("DB_NAME", "tigercode"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret: getEnv("JWT_SECRET", "tigercode-dev-signing-key"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  getEnv("GOOGLE_CALLBACK_URL", "http://localhost:8080/api/v1/auth/google/callback"),

		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		SeedDir:     os.Getenv("SEED_DIR"),
	}

	if cfg.Environment == "production" {
		for name, v := range map[string]string{
			"JWT_SECRET":  os.Getenv("JWT_SECRET"),
			"DB_PASSWORD": os.Getenv("DB_PASSWORD"),
		} {
			if v == "" {
				return nil, fmt.Errorf("%s is required in production", name)
			}
		}
	}

	return cfg, nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// GoogleOAuthEnabled reports whether Google login is configured.
func (c *Config) GoogleOAuthEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
