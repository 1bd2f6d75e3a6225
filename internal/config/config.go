package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the maskrisk configuration, loaded by Load.
type Config struct {
	Scorer ScorerConfig `yaml:"scorer" mapstructure:"scorer"`
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ScorerConfig configures distance estimation and risk classification.
// Tier thresholds are density lower bounds in units of severity per
// ReferenceDistanceCM: one unmasked pair standing exactly the reference
// distance apart scores MediumThreshold under the defaults.
type ScorerConfig struct {
	AvgFaceWidth        float64 `yaml:"avg_face_width" mapstructure:"avg_face_width"`
	ShareEndpoints      bool    `yaml:"share_endpoints" mapstructure:"share_endpoints"`
	ReferenceDistanceCM float64 `yaml:"reference_distance_cm" mapstructure:"reference_distance_cm"`
	SeverityBothMasked  float64 `yaml:"severity_both_masked" mapstructure:"severity_both_masked"`
	SeverityOneMasked   float64 `yaml:"severity_one_masked" mapstructure:"severity_one_masked"`
	SeverityNoneMasked  float64 `yaml:"severity_none_masked" mapstructure:"severity_none_masked"`
	VeryHighThreshold   float64 `yaml:"very_high_threshold" mapstructure:"very_high_threshold"`
	HighThreshold       float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	MediumThreshold     float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`
	LowThreshold        float64 `yaml:"low_threshold" mapstructure:"low_threshold"`
}

// IngestConfig configures detector output loading.
type IngestConfig struct {
	DetectionThreshold float64 `yaml:"detection_threshold" mapstructure:"detection_threshold"`
	FTPTimeoutSecs     int     `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
	FTPAttempts        int     `yaml:"ftp_attempts" mapstructure:"ftp_attempts"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BatchConfig bounds the batch command.
type BatchConfig struct {
	MaxConcurrentFiles int `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory when present, then
// applies MASKRISK_* environment overrides on top of the defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MASKRISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("scorer.avg_face_width", 20.0)
	v.SetDefault("scorer.share_endpoints", false)
	v.SetDefault("scorer.reference_distance_cm", 182.88)
	v.SetDefault("scorer.severity_both_masked", 1.0)
	v.SetDefault("scorer.severity_one_masked", 3.0)
	v.SetDefault("scorer.severity_none_masked", 6.0)
	v.SetDefault("scorer.very_high_threshold", 12.0)
	v.SetDefault("scorer.high_threshold", 9.0)
	v.SetDefault("scorer.medium_threshold", 6.0)
	v.SetDefault("scorer.low_threshold", 4.0)
	v.SetDefault("ingest.detection_threshold", 0.4)
	v.SetDefault("ingest.ftp_timeout_secs", 30)
	v.SetDefault("ingest.ftp_attempts", 3)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "maskrisk.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("batch.max_concurrent_files", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// config.yaml is optional
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

// InitLogger builds a zap logger from cfg and installs it as the global.
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
