package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	AppEnv   string
	LogLevel string

	StorageBackend string
	AWSEndpoint    string
	AWSRegion      string
	Postgres       PostgresConfig

	Valkey ValkeyConfig
	Kafka  KafkaConfig

	Reddit  RedditConfig
	Twitter TwitterConfig
	RSSHub  RSSHubConfig
	Reward  RewardConfig

	Ingest              IngestConfig
	Wallet              WalletConfig
	Cascade             CascadeConfig
	HealthCheckInterval time.Duration
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type ValkeyConfig struct {
	Address  string
	Password string
	TLS      bool
	SeenTTL  time.Duration
}

type KafkaConfig struct {
	Broker          string
	RawContentTopic string
}

type RedditConfig struct {
	ClientID     string
	ClientSecret string
	RPS          int
}

type TwitterConfig struct {
	BearerToken string
	RPS         int
}

type RSSHubConfig struct {
	BaseURL string
	RPS     int
}

type RewardConfig struct {
	BaseURL string
	APIKey  string
}

type IngestConfig struct {
	RedditInterval   time.Duration
	TwitterInterval  time.Duration
	FacebookInterval time.Duration
	RepairInterval   time.Duration
	TickTimeout      time.Duration
	Workers          int
}

type WalletConfig struct {
	DeriveTimeout time.Duration
	SS58Prefix    int
}

type CascadeConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Load reads the configuration from the process environment. Call LoadEnv
// first to populate it from the env file.
func Load() Config {
	return Config{
		AppEnv:         getEnv("APP_ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StorageBackend: getEnv("STORAGE_BACKEND", BackendDynamoDB),
		AWSEndpoint:    getEnv("AWS_ENDPOINT", "http://localhost:8000"),
		AWSRegion:      getEnv("AWS_REGION", "us-west-2"),
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "myriad"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "myriad"),
		},
		Valkey: ValkeyConfig{
			Address:  os.Getenv("VALKEY_INIT_ADDRESS"),
			Password: os.Getenv("VALKEY_PASSWORD"),
			TLS:      os.Getenv("VALKEY_TLS") == "true",
			SeenTTL:  getDuration("VALKEY_SEEN_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Broker:          os.Getenv("KAFKA_BROKER"),
			RawContentTopic: getEnv("KAFKA_TOPIC_RAW_CONTENT", "raw-content"),
		},
		Reddit: RedditConfig{
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			RPS:          getInt("REDDIT_RPS", 1),
		},
		Twitter: TwitterConfig{
			BearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
			RPS:         getInt("TWITTER_RPS", 1),
		},
		RSSHub: RSSHubConfig{
			BaseURL: getEnv("RSSHUB_BASE_URL", "https://rsshub.app"),
			RPS:     getInt("RSSHUB_RPS", 2),
		},
		Reward: RewardConfig{
			BaseURL: os.Getenv("REWARD_API_URL"),
			APIKey:  os.Getenv("REWARD_API_KEY"),
		},
		Ingest: IngestConfig{
			RedditInterval:   getDuration("REDDIT_FETCH_INTERVAL", 30*time.Minute),
			TwitterInterval:  getDuration("TWITTER_FETCH_INTERVAL", 30*time.Minute),
			FacebookInterval: getDuration("FACEBOOK_FETCH_INTERVAL", 30*time.Minute),
			RepairInterval:   getDuration("WALLET_REPAIR_INTERVAL", 6*time.Hour),
			TickTimeout:      getDuration("INGEST_TICK_TIMEOUT", 20*time.Minute),
			Workers:          getInt("INGEST_WORKERS", 4),
		},
		Wallet: WalletConfig{
			DeriveTimeout: getDuration("WALLET_DERIVE_TIMEOUT", 5*time.Second),
			SS58Prefix:    getInt("WALLET_SS58_PREFIX", 214),
		},
		Cascade: CascadeConfig{
			Workers:   getInt("CASCADE_WORKERS", 4),
			QueueSize: getInt("CASCADE_QUEUE_SIZE", 1024),
			Timeout:   getDuration("CASCADE_TIMEOUT", 30*time.Second),
		},
		HealthCheckInterval: getDuration("HEALTHCHECK_INTERVAL", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("[Config] Invalid integer, using default",
			slog.String("key", key),
			slog.String("value", raw))
		return defaultValue
	}
	return v
}

// getDuration accepts Go duration strings ("30m") or a bare number of seconds,
// which is how the interval variables were historically set.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("[Config] Invalid duration, using default",
		slog.String("key", key),
		slog.String("value", raw))
	return defaultValue
}
