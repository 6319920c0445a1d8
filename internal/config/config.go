package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	API     APIConfig
	Scan    ScanConfig
	Auth    AuthConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Kiosk   KioskConfig
	Logging LoggingConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ScanConfig struct {
	AckDelay time.Duration
}

type AuthConfig struct {
	Scheme        string
	Token         string
	EncryptionKey string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	Enabled    bool
}

type KioskConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Dir   string
	Color bool
	Debug bool
}

func Load() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("CHECKIN_API_BASE_URL", "http://localhost:3000/api"), "/"),
			Timeout: time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Scan: ScanConfig{
			AckDelay: getEnvDuration("SCAN_ACK_DELAY_MS", 500*time.Millisecond),
		},
		Auth: AuthConfig{
			Scheme:        getEnv("AUTH_SCHEME", "JWT"),
			Token:         os.Getenv("CHECKIN_TOKEN"),
			EncryptionKey: os.Getenv("ENCRYPTION_KEY"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "ticketly.checkin.audit"),
			Enabled:    getEnvBool("KAFKA_ENABLED", false),
		},
		Kiosk: KioskConfig{
			Addr:            getEnv("KIOSK_ADDR", ":8090"),
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Dir:   os.Getenv("LOG_DIR"),
			Color: getEnvBool("LOG_COLOR", true),
			Debug: getEnvBool("LOG_DEBUG", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration reads a millisecond count.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
