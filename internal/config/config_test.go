package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("CAE_VALID_DAYS", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 10, cfg.CAEValidDays)
	assert.Equal(t, "0001", cfg.PointOfSale)
	assert.NotEmpty(t, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("CAE_VALID_DAYS", "30")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 30, cfg.CAEValidDays)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoad_InvalidNumberFallsBack(t *testing.T) {
	t.Setenv("CAE_VALID_DAYS", "ten")
	assert.Equal(t, 10, Load().CAEValidDays)

	t.Setenv("CAE_VALID_DAYS", "-3")
	assert.Equal(t, 10, Load().CAEValidDays)
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "5432", DBName: "bakery", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/bakery?sslmode=disable", cfg.PostgresDSN())
}
