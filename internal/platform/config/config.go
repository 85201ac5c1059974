package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	// Broker
	KafkaBrokers    []string
	TopicPrefix     string
	ConsumerGroupID string
	ConsumeTopics   []string

	// Read store / cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Outbox dispatcher
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxRetries   int

	// Inbox processor
	InboxPollInterval time.Duration
	InboxBatchSize    int
	InboxMaxRetries   int

	// Saga orchestrator
	SagaRetention       time.Duration
	SagaJanitorInterval time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")
	viper.SetDefault("TOPIC_PREFIX", "finflow")
	viper.SetDefault("CONSUMER_GROUP_ID", "finflow-backend")
	viper.SetDefault("CONSUME_TOPICS", "finflow.journal,finflow.transaction")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("OUTBOX_POLL_INTERVAL", "5s")
	viper.SetDefault("OUTBOX_BATCH_SIZE", 50)
	viper.SetDefault("OUTBOX_MAX_RETRIES", 3)
	viper.SetDefault("INBOX_POLL_INTERVAL", "5s")
	viper.SetDefault("INBOX_BATCH_SIZE", 50)
	viper.SetDefault("INBOX_MAX_RETRIES", 3)
	viper.SetDefault("SAGA_RETENTION", "1h")
	viper.SetDefault("SAGA_JANITOR_INTERVAL", "10m")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")

	cfg.KafkaBrokers = viper.GetStringSlice("KAFKA_BROKERS")
	cfg.TopicPrefix = viper.GetString("TOPIC_PREFIX")
	cfg.ConsumerGroupID = viper.GetString("CONSUMER_GROUP_ID")
	cfg.ConsumeTopics = viper.GetStringSlice("CONSUME_TOPICS")

	cfg.RedisAddr = viper.GetString("REDIS_ADDR")
	cfg.RedisPassword = viper.GetString("REDIS_PASSWORD")
	cfg.RedisDB = viper.GetInt("REDIS_DB")

	cfg.OutboxPollInterval = parseDurationOr("OUTBOX_POLL_INTERVAL", 5*time.Second)
	cfg.OutboxBatchSize = viper.GetInt("OUTBOX_BATCH_SIZE")
	cfg.OutboxMaxRetries = viper.GetInt("OUTBOX_MAX_RETRIES")

	cfg.InboxPollInterval = parseDurationOr("INBOX_POLL_INTERVAL", 5*time.Second)
	cfg.InboxBatchSize = viper.GetInt("INBOX_BATCH_SIZE")
	cfg.InboxMaxRetries = viper.GetInt("INBOX_MAX_RETRIES")

	cfg.SagaRetention = parseDurationOr("SAGA_RETENTION", time.Hour)
	cfg.SagaJanitorInterval = parseDurationOr("SAGA_JANITOR_INTERVAL", 10*time.Minute)

	return cfg, nil
}

func parseDurationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback.String())
		}
		return fallback
	}
	return d
}
