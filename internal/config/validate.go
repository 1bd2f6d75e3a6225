package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command mode depends on. Modes are
// "score", "batch", "serve" and "runs". All problems are reported together.
// Scorer settings are checked by scorer.ValidateConfig.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "score":
		errs = append(errs, c.Ingest.problems()...)
	case "batch":
		errs = append(errs, c.Ingest.problems()...)
		if c.Batch.MaxConcurrentFiles < 1 || c.Batch.MaxConcurrentFiles > 64 {
			errs = append(errs, "batch.max_concurrent_files must be between 1 and 64")
		}
	case "serve":
		errs = append(errs, c.Store.problems()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RateLimit <= 0 {
			errs = append(errs, "server.rate_limit must be > 0")
		}
		if c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_burst must be >= 1")
		}
	case "runs":
		errs = append(errs, c.Store.problems()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (i IngestConfig) problems() []string {
	var errs []string
	if i.DetectionThreshold < 0 || i.DetectionThreshold > 1 {
		errs = append(errs, "ingest.detection_threshold must be between 0 and 1")
	}
	if i.FTPTimeoutSecs < 0 {
		errs = append(errs, "ingest.ftp_timeout_secs must be >= 0")
	}
	if i.FTPAttempts < 0 {
		errs = append(errs, "ingest.ftp_attempts must be >= 0")
	}
	return errs
}

func (s StoreConfig) problems() []string {
	var errs []string
	switch s.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or postgres", s.Driver))
	}
	if s.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}
