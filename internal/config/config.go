package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Pivot      PivotConfig      `yaml:"pivot" mapstructure:"pivot"`
	CrossSell  CrossSellConfig  `yaml:"crosssell" mapstructure:"crosssell"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Sync       SyncConfig       `yaml:"sync" mapstructure:"sync"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Pool sizing applies to the postgres driver only.
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// ScoringConfig holds the tunable sets used by the fit scorer. Score
// increments and tier thresholds are fixed step functions and live in code.
type ScoringConfig struct {
	HighPotentialIndustries []string `yaml:"high_potential_industries" mapstructure:"high_potential_industries"`
	PrimaryCities           []string `yaml:"primary_cities" mapstructure:"primary_cities"`
	SecondaryCities         []string `yaml:"secondary_cities" mapstructure:"secondary_cities"`
	RevenueHighBandYen      int64    `yaml:"revenue_high_band_yen" mapstructure:"revenue_high_band_yen"`
	RevenueMidBandYen       int64    `yaml:"revenue_mid_band_yen" mapstructure:"revenue_mid_band_yen"`
	CapitalBandYen          int64    `yaml:"capital_band_yen" mapstructure:"capital_band_yen"`
}

// PivotConfig configures the pivot alert detector.
type PivotConfig struct {
	MinCallsLowRate       int     `yaml:"min_calls_low_rate" mapstructure:"min_calls_low_rate"`
	MinCallsHighRejection int     `yaml:"min_calls_high_rejection" mapstructure:"min_calls_high_rejection"`
	RejectionThreshold    float64 `yaml:"rejection_threshold" mapstructure:"rejection_threshold"`
	DefaultMinApptRate    float64 `yaml:"default_min_appt_rate" mapstructure:"default_min_appt_rate"`
}

// CrossSellConfig configures the cross-sell recommender.
type CrossSellConfig struct {
	MaxRejectedCompanies int `yaml:"max_rejected_companies" mapstructure:"max_rejected_companies"`
	MinScore             int `yaml:"min_score" mapstructure:"min_score"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string  `yaml:"client_id" mapstructure:"client_id"`
	Username string  `yaml:"username" mapstructure:"username"`
	KeyPath  string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string  `yaml:"login_url" mapstructure:"login_url"`
	RateRPS  float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
}

// AnthropicConfig holds settings for the narrative drafting collaborator.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SyncConfig configures the Salesforce lead sync.
type SyncConfig struct {
	BatchSize      int `yaml:"batch_size" mapstructure:"batch_size"`
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port          int     `yaml:"port" mapstructure:"port"`
	EventRateRPS  float64 `yaml:"event_rate_rps" mapstructure:"event_rate_rps"`
	EventBurst    int     `yaml:"event_burst" mapstructure:"event_burst"`
	AllowedOrigin string  `yaml:"allowed_origin" mapstructure:"allowed_origin"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.event_rate_rps", 50)
	v.SetDefault("server.event_burst", 100)
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("scoring.high_potential_industries", []string{
		"IT", "ソフトウェア", "SaaS", "通信", "金融", "製造", "医療", "人材",
	})
	v.SetDefault("scoring.primary_cities", []string{"東京", "大阪"})
	v.SetDefault("scoring.secondary_cities", []string{
		"名古屋", "福岡", "横浜", "札幌", "神戸", "京都",
	})
	v.SetDefault("scoring.revenue_high_band_yen", int64(10_000_000_000))
	v.SetDefault("scoring.revenue_mid_band_yen", int64(1_000_000_000))
	v.SetDefault("scoring.capital_band_yen", int64(100_000_000))
	v.SetDefault("pivot.min_calls_low_rate", 50)
	v.SetDefault("pivot.min_calls_high_rejection", 30)
	v.SetDefault("pivot.rejection_threshold", 0.70)
	v.SetDefault("pivot.default_min_appt_rate", 50)
	v.SetDefault("crosssell.max_rejected_companies", 50)
	v.SetDefault("crosssell.min_score", 60)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_rps", 5)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("sync.batch_size", 200)
	v.SetDefault("sync.max_concurrency", 4)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
