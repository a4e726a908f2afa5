package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
}

// DatabaseConfig holds MongoDB connection settings
type DatabaseConfig struct {
	URI  string
	Name string
}

// CacheConfig holds Redis connection settings and the TTLs of the two cache
// namespaces this service owns.
type CacheConfig struct {
	Addr            string
	Password        string
	FeedTTL         time.Duration
	RelationshipTTL time.Duration
}

// ScoreConfig holds the engagement score weighting. The exact weights are
// deliberately configuration, not constants; the defaults below are the
// documented baseline.
type ScoreConfig struct {
	WeightLikes    float64
	WeightComments float64
	WeightShares   float64
	WeightViews    float64
	HalfLifeHours  float64
}

// FeedConfig holds paging limits and the trending window default.
type FeedConfig struct {
	DefaultLimit         int
	MaxLimit             int
	TrendingDefaultHours int
}

// Config holds the complete application configuration
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Cache          *CacheConfig
	Score          *ScoreConfig
	Feed           *FeedConfig
	JWTSecret      string
	AllowedOrigins []string
	Debug          bool
}

// DefaultServerConfig provides default server settings
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8080,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
	}
}

// DefaultScoreConfig provides the documented baseline score weighting.
func DefaultScoreConfig() *ScoreConfig {
	return &ScoreConfig{
		WeightLikes:    4,
		WeightComments: 6,
		WeightShares:   8,
		WeightViews:    1,
		HalfLifeHours:  24,
	}
}

// DefaultFeedConfig provides default paging settings.
func DefaultFeedConfig() *FeedConfig {
	return &FeedConfig{
		DefaultLimit:         20,
		MaxLimit:             50,
		TrendingDefaultHours: 24,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// A missing .env file is fine; env vars may come from the environment.
	_ = godotenv.Load()

	serverConfig := DefaultServerConfig()
	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			serverConfig.Port = port
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}
	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}

	dbConfig := &DatabaseConfig{
		URI:  getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		Name: getEnvOrDefault("MONGODB_DATABASE", "ripple_feed"),
	}

	cacheConfig := &CacheConfig{
		Addr:            getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		Password:        os.Getenv("REDIS_PASSWORD"),
		FeedTTL:         getEnvDuration("FEED_CACHE_TTL", 60*time.Second),
		RelationshipTTL: getEnvDuration("RELATIONSHIP_CACHE_TTL", 5*time.Minute),
	}

	scoreConfig := DefaultScoreConfig()
	scoreConfig.WeightLikes = getEnvFloat("FEED_SCORE_WEIGHT_LIKES", scoreConfig.WeightLikes)
	scoreConfig.WeightComments = getEnvFloat("FEED_SCORE_WEIGHT_COMMENTS", scoreConfig.WeightComments)
	scoreConfig.WeightShares = getEnvFloat("FEED_SCORE_WEIGHT_SHARES", scoreConfig.WeightShares)
	scoreConfig.WeightViews = getEnvFloat("FEED_SCORE_WEIGHT_VIEWS", scoreConfig.WeightViews)
	scoreConfig.HalfLifeHours = getEnvFloat("FEED_SCORE_HALF_LIFE_HOURS", scoreConfig.HalfLifeHours)
	if scoreConfig.HalfLifeHours <= 0 {
		return nil, fmt.Errorf("FEED_SCORE_HALF_LIFE_HOURS must be positive, got %v", scoreConfig.HalfLifeHours)
	}

	feedConfig := DefaultFeedConfig()
	if v := getEnvInt("FEED_DEFAULT_LIMIT", feedConfig.DefaultLimit); v > 0 {
		feedConfig.DefaultLimit = v
	}
	if v := getEnvInt("FEED_MAX_LIMIT", feedConfig.MaxLimit); v > 0 {
		feedConfig.MaxLimit = v
	}
	if v := getEnvInt("TRENDING_DEFAULT_HOURS", feedConfig.TrendingDefaultHours); v > 0 {
		feedConfig.TrendingDefaultHours = v
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	config := &Config{
		Server:         serverConfig,
		Database:       dbConfig,
		Cache:          cacheConfig,
		Score:          scoreConfig,
		Feed:           feedConfig,
		JWTSecret:      jwtSecret,
		AllowedOrigins: []string{"*"},
		Debug:          false,
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}
	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
	}

	return config, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return defaultValue
}
