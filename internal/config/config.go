package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	TerminalID            string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	ReportCacheTTLSeconds int
	DefaultExpenses       decimal.Decimal
}

func Load() Config {
	// A missing .env file is fine; real env vars still apply.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("REPORT_CACHE_TTL_SECONDS", "30"))
	if err != nil || ttl < 1 {
		ttl = 30
	}
	expenses, err := decimal.NewFromString(getEnv("DEFAULT_EXPENSES", "500.00"))
	if err != nil || expenses.IsNegative() {
		expenses = decimal.NewFromInt(500)
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		TerminalID:            getEnv("DEFAULT_TERMINAL_ID", "terminal-1"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		ReportCacheTTLSeconds: ttl,
		DefaultExpenses:       expenses,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
