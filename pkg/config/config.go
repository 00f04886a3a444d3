package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime settings read from the environment
type Config struct {
	Port             string
	DatabaseURL      string
	DataPath         string
	JWTSecret        string
	APIMasterSecret  string
	AdminUsername    string
	AdminPassword    string
	GinMode          string
	Locale           string
	LogLevel         string
	DefaultRateLimit int
}

// DefaultEnvPaths are tried in order; the first existing file is loaded
var DefaultEnvPaths = []string{".env", "../.env", "../../.env"}

// LoadEnvFile loads the first .env file found in paths. Variables already set
// in the environment are not overridden.
func LoadEnvFile(paths ...string) string {
	if len(paths) == 0 {
		paths = DefaultEnvPaths
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if godotenv.Load(p) == nil {
				return p
			}
		}
	}
	return ""
}

// Load reads the configuration from environment variables, after loading an
// optional .env file
func Load(envPaths ...string) Config {
	LoadEnvFile(envPaths...)
	return FromEnv()
}

// FromEnv reads the configuration from the current environment only
func FromEnv() Config {
	return Config{
		Port:             getenv("PORT", "8000"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DataPath:         getenv("DATA_PATH", "grouper.db"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		APIMasterSecret:  os.Getenv("API_MASTER_SECRET"),
		AdminUsername:    getenv("ADMIN_USERNAME", "admin"),
		AdminPassword:    getenv("ADMIN_PASSWORD", "admin123"),
		GinMode:          os.Getenv("GIN_MODE"),
		Locale:           getenv("GROUPER_LOCALE", "en-US"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
		DefaultRateLimit: getenvInt("DEFAULT_RATE_LIMIT", 10000),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
