package config

import (
	"fmt"
	"math"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`

	ProviderBaseURL   string `mapstructure:"PROVIDER_BASE_URL"`
	ProviderAPIKey    string `mapstructure:"PROVIDER_API_KEY"`
	ProviderTimeout   int    `mapstructure:"PROVIDER_TIMEOUT_SECONDS"`
	ProviderPageLimit int    `mapstructure:"PROVIDER_PAGE_LIMIT"`

	AnalysisLimit        int    `mapstructure:"ANALYSIS_LIMIT"`
	PoolSize             int    `mapstructure:"POOL_SIZE"`
	PerUnitTimeout       int    `mapstructure:"PER_UNIT_TIMEOUT_SECONDS"`
	MaxRetriesPerUnit    int    `mapstructure:"MAX_RETRIES_PER_UNIT"`
	MaxRespawnsPerWorker int    `mapstructure:"MAX_RESPAWNS_PER_WORKER"`
	ScrapeBudget         int    `mapstructure:"SCRAPE_BUDGET_SECONDS"`
	NavTimeout           int    `mapstructure:"NAV_TIMEOUT_SECONDS"`
	Headless             bool   `mapstructure:"HEADLESS"`
	UserAgents           string `mapstructure:"USER_AGENTS"`
	Proxies              string `mapstructure:"PROXIES"`

	RecencyWindowDays int `mapstructure:"RECENCY_WINDOW_DAYS"`
	DedupeTTLHours    int `mapstructure:"DEDUPE_TTL_HOURS"`

	WeightPosts         float64 `mapstructure:"WEIGHT_POSTS"`
	WeightPhotos        float64 `mapstructure:"WEIGHT_PHOTOS"`
	WeightReviewRecency float64 `mapstructure:"WEIGHT_REVIEW_RECENCY"`
	WeightRating        float64 `mapstructure:"WEIGHT_RATING"`
	WeightReviewVolume  float64 `mapstructure:"WEIGHT_REVIEW_VOLUME"`
	WeightProfile       float64 `mapstructure:"WEIGHT_PROFILE"`
	WeightContact       float64 `mapstructure:"WEIGHT_CONTACT"`

	TargetPosts          int     `mapstructure:"TARGET_POSTS"`
	TargetOwnerPhotos    int     `mapstructure:"TARGET_OWNER_PHOTOS"`
	TargetCustomerPhotos int     `mapstructure:"TARGET_CUSTOMER_PHOTOS"`
	TargetRecentReviews  int     `mapstructure:"TARGET_RECENT_REVIEWS"`
	TargetReviewVolume   int     `mapstructure:"TARGET_REVIEW_VOLUME"`
	TargetAttributes     int     `mapstructure:"TARGET_ATTRIBUTES"`
	DescriptionBonus     float64 `mapstructure:"DESCRIPTION_BONUS"`

	NarrativeBaseURL    string `mapstructure:"NARRATIVE_BASE_URL"`
	NarrativeAPIKey     string `mapstructure:"NARRATIVE_API_KEY"`
	NarrativeModelFast  string `mapstructure:"NARRATIVE_MODEL_FAST"`
	NarrativeModelDeep  string `mapstructure:"NARRATIVE_MODEL_DEEP"`
	NarrativeTimeout    int    `mapstructure:"NARRATIVE_TIMEOUT_SECONDS"`
	NarrativePromptPath string `mapstructure:"NARRATIVE_PROMPT_PATH"`
}

// Load reads configuration from the .env file or environment variables and
// validates it. A Config that Load returns is safe to run with.
func Load() (*Config, error) {
	// Fold a local .env into the process environment when one exists.
	// Variables already set in the environment win, so production deploys
	// are unaffected by a stray file.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("POSTGRES_URL", "")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")

	viper.SetDefault("PROVIDER_BASE_URL", "https://serpapi.com")
	viper.SetDefault("PROVIDER_API_KEY", "")
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 15)
	viper.SetDefault("PROVIDER_PAGE_LIMIT", 3)

	viper.SetDefault("ANALYSIS_LIMIT", 100)
	viper.SetDefault("POOL_SIZE", 2)
	viper.SetDefault("PER_UNIT_TIMEOUT_SECONDS", 20)
	viper.SetDefault("MAX_RETRIES_PER_UNIT", 2)
	viper.SetDefault("MAX_RESPAWNS_PER_WORKER", 2)
	viper.SetDefault("SCRAPE_BUDGET_SECONDS", 300)
	viper.SetDefault("NAV_TIMEOUT_SECONDS", 30)
	viper.SetDefault("HEADLESS", true)
	viper.SetDefault("USER_AGENTS", "")
	viper.SetDefault("PROXIES", "")

	viper.SetDefault("RECENCY_WINDOW_DAYS", 30)
	viper.SetDefault("DEDUPE_TTL_HOURS", 48)

	viper.SetDefault("WEIGHT_POSTS", 0.20)
	viper.SetDefault("WEIGHT_PHOTOS", 0.20)
	viper.SetDefault("WEIGHT_REVIEW_RECENCY", 0.20)
	viper.SetDefault("WEIGHT_RATING", 0.15)
	viper.SetDefault("WEIGHT_REVIEW_VOLUME", 0.15)
	viper.SetDefault("WEIGHT_PROFILE", 0.05)
	viper.SetDefault("WEIGHT_CONTACT", 0.05)

	viper.SetDefault("TARGET_POSTS", 4)
	viper.SetDefault("TARGET_OWNER_PHOTOS", 10)
	viper.SetDefault("TARGET_CUSTOMER_PHOTOS", 30)
	viper.SetDefault("TARGET_RECENT_REVIEWS", 5)
	viper.SetDefault("TARGET_REVIEW_VOLUME", 100)
	viper.SetDefault("TARGET_ATTRIBUTES", 26)
	viper.SetDefault("DESCRIPTION_BONUS", 1.0)

	viper.SetDefault("NARRATIVE_BASE_URL", "")
	viper.SetDefault("NARRATIVE_API_KEY", "")
	viper.SetDefault("NARRATIVE_MODEL_FAST", "gemini-2.5-flash")
	viper.SetDefault("NARRATIVE_MODEL_DEEP", "gemini-2.5-pro")
	viper.SetDefault("NARRATIVE_TIMEOUT_SECONDS", 60)
	viper.SetDefault("NARRATIVE_PROMPT_PATH", "prompts/analysis_prompt.txt")
}

// Validate rejects configurations the pipeline cannot run with. It is called
// at startup so a bad weight table never reaches the scoring engine.
func (c *Config) Validate() error {
	weights := map[string]float64{
		"WEIGHT_POSTS":          c.WeightPosts,
		"WEIGHT_PHOTOS":         c.WeightPhotos,
		"WEIGHT_REVIEW_RECENCY": c.WeightReviewRecency,
		"WEIGHT_RATING":         c.WeightRating,
		"WEIGHT_REVIEW_VOLUME":  c.WeightReviewVolume,
		"WEIGHT_PROFILE":        c.WeightProfile,
		"WEIGHT_CONTACT":        c.WeightContact,
	}
	sum := 0.0
	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("config: %s must not be negative, got %v", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("config: score weights must sum to 1.0, got %v", sum)
	}

	positives := map[string]int{
		"ANALYSIS_LIMIT":           c.AnalysisLimit,
		"POOL_SIZE":                c.PoolSize,
		"PER_UNIT_TIMEOUT_SECONDS": c.PerUnitTimeout,
		"SCRAPE_BUDGET_SECONDS":    c.ScrapeBudget,
		"NAV_TIMEOUT_SECONDS":      c.NavTimeout,
		"RECENCY_WINDOW_DAYS":      c.RecencyWindowDays,
		"TARGET_POSTS":             c.TargetPosts,
		"TARGET_OWNER_PHOTOS":      c.TargetOwnerPhotos,
		"TARGET_CUSTOMER_PHOTOS":   c.TargetCustomerPhotos,
		"TARGET_RECENT_REVIEWS":    c.TargetRecentReviews,
		"TARGET_REVIEW_VOLUME":     c.TargetReviewVolume,
		"TARGET_ATTRIBUTES":        c.TargetAttributes,
	}
	for name, v := range positives {
		if v < 1 {
			return fmt.Errorf("config: %s must be at least 1, got %d", name, v)
		}
	}
	if c.MaxRetriesPerUnit < 0 {
		return fmt.Errorf("config: MAX_RETRIES_PER_UNIT must not be negative, got %d", c.MaxRetriesPerUnit)
	}
	if c.MaxRespawnsPerWorker < 0 {
		return fmt.Errorf("config: MAX_RESPAWNS_PER_WORKER must not be negative, got %d", c.MaxRespawnsPerWorker)
	}
	return nil
}
