package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadENV loads environment variables from .env when GO_ENV is unset or "development"
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

// Env holds all environment configuration for the service
type Env struct {
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT configuration
	JWT_GLOBAL_SECRET string
	JWT_ISSUER        string
	ACCESS_TOKEN_TTL  time.Duration
	REFRESH_TOKEN_TTL time.Duration
	// Redis configuration
	REDIS_URL string
	// Rate limiting
	RATE_LIMIT_REQUESTS int
	RATE_LIMIT_WINDOW   time.Duration
}

// Get reads the environment into an Env struct, applying defaults
func Get() (*Env, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	accessTTL := 30 * time.Minute
	if minutes, err := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MINUTES")); err == nil && minutes > 0 {
		accessTTL = time.Duration(minutes) * time.Minute
	}

	refreshTTL := 7 * 24 * time.Hour
	if hours, err := strconv.Atoi(os.Getenv("REFRESH_TOKEN_TTL_HOURS")); err == nil && hours > 0 {
		refreshTTL = time.Duration(hours) * time.Hour
	}

	rateLimitRequests := 60
	if n, err := strconv.Atoi(os.Getenv("RATE_LIMIT_REQUESTS")); err == nil && n > 0 {
		rateLimitRequests = n
	}

	rateLimitWindow := time.Minute
	if seconds, err := strconv.Atoi(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); err == nil && seconds > 0 {
		rateLimitWindow = time.Duration(seconds) * time.Second
	}

	env := &Env{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// JWT
		JWT_GLOBAL_SECRET: os.Getenv("JWT_GLOBAL_SECRET"),
		JWT_ISSUER:        os.Getenv("JWT_ISSUER"),
		ACCESS_TOKEN_TTL:  accessTTL,
		REFRESH_TOKEN_TTL: refreshTTL,
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Rate limiting
		RATE_LIMIT_REQUESTS: rateLimitRequests,
		RATE_LIMIT_WINDOW:   rateLimitWindow,
	}

	return env, nil
}
