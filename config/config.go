package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBDriver   string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	SQLitePath string

	HTTPPort  string
	JWTSecret string
	TokenTTL  time.Duration

	RabbitMQURL     string
	OrderExchange   string
	OrderQueue      string
	DeadLetterQueue string

	RedisAddr     string
	SubmissionTTL time.Duration

	StoreBaseURL     string
	StoreTimeout     time.Duration
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DBDriver:         getEnv("DB_DRIVER", "mysql"),
		DBUser:           getEnv("DB_USER", "root"),
		DBPassword:       getEnvFromFile("DB_PASSWORD_FILE", "DB_PASSWORD", ""),
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "3306"),
		DBName:           getEnv("DB_NAME", "glutation"),
		SQLitePath:       getEnv("SQLITE_PATH", "pedidos.db"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		JWTSecret:        getEnvFromFile("JWT_SECRET_FILE", "JWT_SECRET", "change-me"),
		TokenTTL:         getDuration("TOKEN_TTL", 24*time.Hour),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		OrderExchange:    getEnv("ORDER_EXCHANGE", "pedidos_exchange"),
		OrderQueue:       getEnv("ORDER_QUEUE", "pedidos_audit"),
		DeadLetterQueue:  getEnv("DEAD_LETTER_QUEUE", "pedidos_dead_letter"),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		SubmissionTTL:    getDuration("SUBMISSION_TTL", 30*time.Second),
		StoreBaseURL:     getEnv("STORE_BASE_URL", "http://localhost:8080/"),
		StoreTimeout:     getDuration("STORE_TIMEOUT", 10*time.Second),
		BreakerThreshold: uint32(getInt("BREAKER_THRESHOLD", 5)),
		BreakerCooldown:  getDuration("BREAKER_COOLDOWN", 30*time.Second),
	}
}

// MySQLDSN returns a go-sql-driver DSN. Timestamps are parsed into time.Time
// and kept in UTC.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT must not be empty")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT secret must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFromFile(fileKey, envKey, defaultValue string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, defaultValue)
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
