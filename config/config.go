package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	LogLevel        string        `yaml:"log_level"`
	LogPretty       bool          `yaml:"log_pretty"`
	DBHost          string        `yaml:"db_host"`
	DBPort          string        `yaml:"db_port"`
	DBUser          string        `yaml:"db_user"`
	DBPass          string        `yaml:"db_pass"`
	DBName          string        `yaml:"db_name"`
	RedisHost       string        `yaml:"redis_host"`
	RedisPort       string        `yaml:"redis_port"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	MinioHost       string        `yaml:"minio_host"`
	MinioPort       string        `yaml:"minio_port"`
	MinioUsername   string        `yaml:"minio_username"`
	MinioPassword   string        `yaml:"minio_password"`
	MinioUseSSL     bool          `yaml:"minio_use_ssl"`
	BucketName      string        `yaml:"bucket_name"`
	MongoURI        string        `yaml:"mongo_uri"`
	MongoDB         string        `yaml:"mongo_db"`
	MongoBucket     string        `yaml:"mongo_bucket"`
	RabbitMQURL     string        `yaml:"rabbitmq_url"`
	RabbitMQHost    string        `yaml:"rabbitmq_host"`
	RabbitMQPort    string        `yaml:"rabbitmq_port"`
	RabbitMQUser    string        `yaml:"rabbitmq_user"`
	RabbitMQPass    string        `yaml:"rabbitmq_pass"`
	RabbitMQVhost   string        `yaml:"rabbitmq_vhost"`
	RabbitMQEnabled bool          `yaml:"rabbitmq_enabled"`
	RecordCacheTTL  time.Duration `yaml:"record_cache_ttl"`
	UploadTimeout   time.Duration `yaml:"upload_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	CORSOrigins     []string      `yaml:"cors_origins"`

	RabbitMQPrefetch   int             `yaml:"rabbitmq_prefetch"`
	CleanupConcurrency int             `yaml:"cleanup_concurrency"`
	CleanupTimeout     time.Duration   `yaml:"cleanup_timeout"`
	CleanupRate        float64         `yaml:"cleanup_rate"`
	CleanupBurst       int             `yaml:"cleanup_burst"`
	CleanupRetryMax    int             `yaml:"cleanup_retry_max"`
	CleanupRetryDelays []time.Duration `yaml:"cleanup_retry_delays"`
	OrphanGrace        time.Duration   `yaml:"orphan_grace"`
	SweepInterval      time.Duration   `yaml:"sweep_interval"`
}

var AppConfig Config

// getEnv returns the environment value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDurationList(key string, defaultValue []time.Duration) []time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := time.ParseDuration(part)
		if err != nil {
			return defaultValue
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// InitConfig loads configuration from the environment and initializes sub-configs.
func InitConfig() {
	rabbitHost := getEnv("RABBITMQ_HOST", "localhost")
	rabbitPort := getEnv("RABBITMQ_PORT", "5672")
	rabbitUser := getEnv("RABBITMQ_USER", "guest")
	rabbitPass := getEnv("RABBITMQ_PASSWORD", "guest")
	rabbitVhost := getEnv("RABBITMQ_VHOST", "/")
	rabbitURL := getEnv("RABBITMQ_URL", "")
	if rabbitURL == "" {
		rabbitURL = fmt.Sprintf(
			"amqp://%s:%s@%s:%s/%s",
			url.PathEscape(rabbitUser),
			url.PathEscape(rabbitPass),
			rabbitHost,
			rabbitPort,
			url.PathEscape(rabbitVhost),
		)
	}
	retryDelays := getEnvDurationList(
		"CLEANUP_RETRY_DELAYS",
		[]time.Duration{10 * time.Second, 1 * time.Minute, 5 * time.Minute, 30 * time.Minute},
	)
	AppConfig = Config{
		HTTPAddr:           getEnv("HTTP_ADDR", ":5001"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogPretty:          getEnvBool("LOG_PRETTY", false),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "3306"),
		DBUser:             getEnv("DB_USER", "root"),
		DBPass:             getEnv("DB_PASS", "root"),
		DBName:             getEnv("DB_NAME", "chunkvault"),
		RedisHost:          getEnv("REDIS_HOST", ""),
		RedisPort:          getEnv("REDIS_PORT", "6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		MinioHost:          getEnv("MINIO_HOST", "localhost"),
		MinioPort:          getEnv("MINIO_PORT", "9000"),
		MinioUsername:      getEnv("MINIO_USERNAME", "minioadmin"),
		MinioPassword:      getEnv("MINIO_PASSWORD", "minioadmin"),
		MinioUseSSL:        getEnvBool("MINIO_USE_SSL", false),
		BucketName:         getEnv("BUCKET_NAME", "uploads"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getEnv("MONGO_DB", "chunkvault"),
		MongoBucket:        getEnv("MONGO_BUCKET", "uploads"),
		RabbitMQURL:        rabbitURL,
		RabbitMQHost:       rabbitHost,
		RabbitMQPort:       rabbitPort,
		RabbitMQUser:       rabbitUser,
		RabbitMQPass:       rabbitPass,
		RabbitMQVhost:      rabbitVhost,
		RabbitMQEnabled:    getEnvBool("RABBITMQ_ENABLED", false),
		RecordCacheTTL:     getEnvDuration("RECORD_CACHE_TTL", 5*time.Minute),
		UploadTimeout:      getEnvDuration("UPLOAD_TIMEOUT", 30*time.Minute),
		MaxUploadBytes:     getEnvInt64("MAX_UPLOAD_BYTES", 0),
		CORSOrigins:        getEnvList("CORS_ORIGINS", nil),
		RabbitMQPrefetch:   getEnvInt("RABBITMQ_PREFETCH", 8),
		CleanupConcurrency: getEnvInt("CLEANUP_CONCURRENCY", 4),
		CleanupTimeout:     getEnvDuration("CLEANUP_TIMEOUT", time.Minute),
		CleanupRate:        getEnvFloat("CLEANUP_RATE", 5),
		CleanupBurst:       getEnvInt("CLEANUP_BURST", 10),
		CleanupRetryMax:    getEnvInt("CLEANUP_RETRY_MAX", 5),
		CleanupRetryDelays: retryDelays,
		OrphanGrace:        getEnvDuration("ORPHAN_GRACE", time.Hour),
		SweepInterval:      getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
	}

	InitStorageConfig()
}

// LoadFile overlays values from a YAML file onto the current configuration.
// Keys missing from the file keep their environment or default value.
func LoadFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var file struct {
		Config  `yaml:",inline"`
		Storage *StorageConfig `yaml:"storage"`
	}
	file.Config = AppConfig
	if StorageConfigInstance != nil {
		storage := *StorageConfigInstance
		file.Storage = &storage
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	AppConfig = file.Config
	if file.Storage != nil {
		StorageConfigInstance = file.Storage
	}
	return nil
}
