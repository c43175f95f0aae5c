package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	DBDriver   string // postgres | sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string
	DBLogLevel string

	CORSOrigins []string

	PointOfSale  string
	BusinessCUIT string
	CAEValidDays int
}

// Load reads configs/.env when present; real environment variables take precedence.
func Load() Config {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	return Config{
		Port:         getEnv("PORT", "8080"),
		DBDriver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "postgres"),
		DBName:       getEnv("DB_NAME", "bakery"),
		DBSSLMode:    getEnv("DB_SSLMODE", "disable"),
		SQLitePath:   getEnv("SQLITE_PATH", "bakery.db"),
		DBLogLevel:   strings.ToLower(getEnv("DB_LOG_LEVEL", "warn")),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		PointOfSale:  getEnv("DEFAULT_POINT_OF_SALE", "0001"),
		BusinessCUIT: getEnv("BUSINESS_CUIT", "20000000001"),
		CAEValidDays: getEnvInt("CAE_VALID_DAYS", 10),
	}
}

// PostgresDSN builds the connection URL from the DB_* settings.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Printf("WARNING: invalid %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
