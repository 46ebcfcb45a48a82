package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	JWTSecret       string
	MongoURI        string
	DBName          string
	SkipAuth        bool
	Environment     string
	AppId           string
	EscalationCron  string // cron spec for the escalation scan
	EscalationBatch int64  // max requests handled per scan tick
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnv("DB_NAME", "storesone"),
		SkipAuth:        getEnv("SKIP_AUTH", "false") == "true",
		Environment:     getEnv("ENVIRONMENT", "development"),
		AppId:           getEnv("APP_ID", "storesone-approvals"),
		EscalationCron:  getEnv("ESCALATION_CRON", "@every 1m"),
		EscalationBatch: getEnvInt64("ESCALATION_BATCH", 500),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
