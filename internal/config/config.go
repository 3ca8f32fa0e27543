package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"task_webapp/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort  string
	Database DatabaseConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	APIRateLimit  int
	APIRateWindow time.Duration
	AllowedOrigin string

	LogLevel string
	LogJSON  bool
}

// DatabaseConfig describes the PostgreSQL connection. URL wins over the
// individual parts when both are set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PoolSize int
	Debug    bool
}

// DSN returns a connection string for pgx.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	return u.String()
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// FromEnv builds the config from a getenv function.
func FromEnv(getenv func(string) string) (*Config, error) {
	db := DatabaseConfig{
		URL:      getenv("DATABASE_URL"),
		Host:     getenv("DATABASE_HOST"),
		Port:     intOr(getenv("DATABASE_PORT"), 5432),
		User:     getenv("DATABASE_USER"),
		Password: getenv("DATABASE_PASSWORD"),
		Name:     getenv("DATABASE_NAME"),
		PoolSize: intOr(getenv("DATABASE_POOL_SIZE"), 5),
		Debug:    getenv("DB_DEBUG") == "true",
	}
	if db.URL == "" && (db.Host == "" || db.User == "" || db.Name == "") {
		return nil, errors.New("DATABASE_URL or DATABASE_HOST, DATABASE_USER and DATABASE_NAME must be set")
	}

	port := getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		AppPort:       port,
		Database:      db,
		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		RedisDB:       intOr(getenv("REDIS_DB"), 0),
		APIRateLimit:  intOr(getenv("API_RATE_LIMIT"), 120),
		APIRateWindow: time.Duration(intOr(getenv("API_RATE_WINDOW_SECONDS"), 60)) * time.Second,
		AllowedOrigin: getenv("ALLOWED_ORIGIN"),
		LogLevel:      getenv("LOG_LEVEL"),
		LogJSON:       getenv("LOG_JSON") == "true",
	}, nil
}

// intOr parses v, falling back to def when v is empty, malformed or negative.
func intOr(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
