package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	BackendURL   string // base URL of the Zyra assistant backend
	DatabasePath string // local SQLite transcript database
	Shop         string // shop domain passed on the command line (install-link analog)
	SessionID    string // resume an existing chat session
	LogLevel     string
	Debug        bool
}

// Load reads configuration from a .env file (if present) and the
// environment. Command line flags are bound over the result in main.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	return Config{
		BackendURL:   getEnv("ZYRA_BACKEND_URL", "http://localhost:3003"),
		DatabasePath: getEnv("ZYRA_DB_PATH", "zyra.db"),
		Shop:         getEnv("ZYRA_SHOP", ""),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
