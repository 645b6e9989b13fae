package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Crawler    CrawlerConfig
	Batch      BatchConfig
	Spellcheck SpellcheckConfig
	HTTP       HTTPConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

type CrawlerConfig struct {
	UserAgent         string
	QueueBatchSize    int
	Concurrency       int
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

type BatchConfig struct {
	Interval   time.Duration
	TotalNodes int
	NodeIndex  int
	Role       string
}

type SpellcheckConfig struct {
	MetaPath     string
	MetaMaxWords int
}

type HTTPConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
}

// Load reads configuration from the environment. A local .env file is
// honored when present. Missing required variables fail fast.
func Load() (*Config, error) {
	_ = godotenv.Load()

	db := DatabaseConfig{
		Host:     getEnvRequired("POSTGRES_HOST"),
		Port:     getEnvRequired("POSTGRES_PORT"),
		Name:     getEnvRequired("POSTGRES_DB"),
		User:     getEnvRequired("POSTGRES_USER"),
		Password: getEnvRequired("POSTGRES_PASSWORD"),
	}
	if db.Host == "" || db.Port == "" || db.Name == "" || db.User == "" || db.Password == "" {
		return nil, fmt.Errorf("database configuration incomplete: POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER and POSTGRES_PASSWORD are required")
	}

	crawler := CrawlerConfig{
		UserAgent:         getEnvRequired("CRAWLER_USER_AGENT"),
		QueueBatchSize:    getEnvInt("QUEUE_BATCH_SIZE", 0),
		Concurrency:       getEnvInt("CRAWLER_CONCURRENCY", 8),
		RequestTimeout:    time.Duration(getEnvInt("REQUEST_TIMEOUT_S", 0)) * time.Second,
		RequestsPerSecond: getEnvFloat("CRAWLER_REQUESTS_PER_SECOND", 1.0),
	}
	if crawler.UserAgent == "" {
		return nil, fmt.Errorf("CRAWLER_USER_AGENT is required")
	}
	if crawler.QueueBatchSize <= 0 {
		return nil, fmt.Errorf("QUEUE_BATCH_SIZE must be a positive integer")
	}
	if crawler.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT_S must be a positive integer")
	}

	batch := BatchConfig{
		Interval:   time.Duration(getEnvInt("BATCH_INTERVAL_S", 0)) * time.Second,
		TotalNodes: getEnvInt("BATCH_TOTAL_NODES", 1),
		NodeIndex:  getEnvInt("BATCH_NODE_INDEX", 0),
		Role:       strings.ToLower(strings.TrimSpace(getEnvOrDefault("BATCH_ROLE", "auto"))),
	}
	if batch.TotalNodes < 1 {
		batch.TotalNodes = 1
	}
	switch batch.Role {
	case "auto", "coordinator", "worker":
	default:
		return nil, fmt.Errorf("invalid BATCH_ROLE %q: must be auto, coordinator or worker", batch.Role)
	}

	spellcheck := SpellcheckConfig{
		MetaPath:     getEnvOrDefault("SPELLCHECK_META_PATH", "/tmp/spellcheck_meta.json"),
		MetaMaxWords: getEnvInt("SPELLCHECK_META_MAX_WORDS", 120000),
	}

	httpCfg := HTTPConfig{
		Addr:              getEnvOrDefault("HTTP_ADDR", ":8080"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Config{
		Database:   db,
		Crawler:    crawler,
		Batch:      batch,
		Spellcheck: spellcheck,
		HTTP:       httpCfg,
	}, nil
}

// ConnString builds a pgx connection string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

func getEnvRequired(key string) string {
	return os.Getenv(key)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
