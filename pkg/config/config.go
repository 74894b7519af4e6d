package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Mining pipeline
	Mining MiningConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// MiningConfig holds the itemset mining pipeline configuration
type MiningConfig struct {
	PythonBin  string // python interpreter used for the miner scripts
	ScriptsDir string // directory holding the miner scripts (working dir for stages 2-3)
	DataDir    string // directory for exported artifacts

	TransactionFile    string // stage-1 output: one order per line
	ProfitFile         string // stage-1 output: productID profit pairs
	AnalysisFile       string // stage-3 output: productID -> ranked neighbor IDs
	CorrelationMapFile string // stage-4 output consumed by the serving path

	MineScript    string // stage-2 script name
	AnalyzeScript string // stage-3 script name
	ServiceScript string // real-time recommendation service script

	StageTimeout  time.Duration // ceiling per external stage
	MaxMiners     int           // cap on concurrent real-time miner processes
	OrderLimit    int           // max orders fed to the real-time path (0 = all)
	DefaultProfit int           // profit for products missing from the catalog
	CartCacheTTL  time.Duration // redis TTL for cart-analysis responses
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "5000"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "fashionstore"),
			User:            getEnv("DB_USER", "fashionstore"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Mining pipeline
		Mining: MiningConfig{
			PythonBin:  getEnv("MINING_PYTHON_BIN", "python3"),
			ScriptsDir: getEnv("MINING_SCRIPTS_DIR", "./miner"),
			DataDir:    getEnv("MINING_DATA_DIR", "./data"),

			TransactionFile:    getEnv("MINING_TRANSACTION_FILE", "transactions.dat"),
			ProfitFile:         getEnv("MINING_PROFIT_FILE", "profits.txt"),
			AnalysisFile:       getEnv("MINING_ANALYSIS_FILE", "correlation_recommendations.json"),
			CorrelationMapFile: getEnv("MINING_CORRELATION_MAP_FILE", "correlation_map.json"),

			MineScript:    getEnv("MINING_MINE_SCRIPT", "run_store_mining.py"),
			AnalyzeScript: getEnv("MINING_ANALYZE_SCRIPT", "analyze_correlations.py"),
			ServiceScript: getEnv("MINING_SERVICE_SCRIPT", "recommendation_service.py"),

			StageTimeout:  getEnvAsDuration("MINING_STAGE_TIMEOUT", "5m"),
			MaxMiners:     getEnvAsInt("MINING_MAX_MINERS", 4),
			OrderLimit:    getEnvAsInt("MINING_ORDER_LIMIT", 5000),
			DefaultProfit: getEnvAsInt("MINING_DEFAULT_PROFIT", 1000),
			CartCacheTTL:  getEnvAsDuration("MINING_CART_CACHE_TTL", "10m"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Mining.MaxMiners < 1 {
		return fmt.Errorf("MINING_MAX_MINERS must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
