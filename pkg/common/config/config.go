package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	EnableDB         bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	EnableRedis   bool
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	EnableKafka      bool
	KafkaBrokers     []string
	KafkaGroupID     string
	AppointmentTopic string

	// Dataset
	DatasetSource string
	VitalsPolicy  string

	// Model
	ModelArtifactPath string
	ModelServingURL   string
	ModelTimeout      time.Duration
	ServingPort       string

	// Risk rules
	ThresholdsFile string

	// Dashboard
	SessionTTL         time.Duration
	AppointmentLogPath string
	RateLimitRPS       int
	RateLimitBurst     int
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, seeds variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		EnableDB:         getBoolEnv("ENABLE_DB", false),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "vitals"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "vitals"),
		PostgresDB:       getEnv("POSTGRES_DB", "vitals"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		EnableRedis:   getBoolEnv("ENABLE_REDIS", false),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		EnableKafka:      getBoolEnv("ENABLE_KAFKA", false),
		KafkaBrokers:     getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "vitals-appointment-recorder"),
		AppointmentTopic: getEnv("APPOINTMENT_TOPIC", "appointments"),

		DatasetSource: getEnv("DATASET_SOURCE", "data/patients.csv"),
		VitalsPolicy:  getEnv("VITALS_POLICY", "drop"),

		ModelArtifactPath: getEnv("MODEL_ARTIFACT_PATH", "artifacts/heart_risk_latest.json"),
		ModelServingURL:   getEnv("MODEL_SERVING_URL", ""),
		ModelTimeout:      getDuration("MODEL_TIMEOUT", 2*time.Second),
		ServingPort:       getEnv("SERVING_PORT", "8089"),

		ThresholdsFile: getEnv("THRESHOLDS_FILE", ""),

		SessionTTL:         getDuration("SESSION_TTL", 12*time.Hour),
		AppointmentLogPath: getEnv("APPOINTMENT_LOG_PATH", "data/appointments.csv"),
		RateLimitRPS:       getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 100),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
