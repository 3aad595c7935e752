package config

import (
	"os"
)

type Config struct {
	DatabaseURL        string
	Port               string
	Environment        string
	PokemonTCGAPIKey   string
	PriceTrackerAPIKey string
	MailRelayURL       string
	MailRelayToken     string
	AppURL             string
}

func Load() *Config {
	// Default MySQL connection string
	defaultDSN := "root:tcgarb@tcp(127.0.0.1:3306)/tcg_arbitrage?charset=utf8mb4&parseTime=True&loc=Local"

	return &Config{
		DatabaseURL:        getEnv("DATABASE_URL", defaultDSN),
		Port:               getEnv("PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		PokemonTCGAPIKey:   getEnv("POKEMONTCG_API_KEY", ""),
		PriceTrackerAPIKey: getEnv("PRICETRACKER_API_KEY", ""),
		MailRelayURL:       getEnv("MAIL_RELAY_URL", ""),
		MailRelayToken:     getEnv("MAIL_RELAY_TOKEN", ""),
		AppURL:             getEnv("APP_URL", "http://localhost:8080"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
