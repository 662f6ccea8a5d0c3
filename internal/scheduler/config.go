package scheduler

import (
	"os"
	"strings"
	"time"

	"github.com/smallbiznis/autobazaar/internal/config"
)

// Config controls scheduler intervals and which jobs run.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	// EnabledJobs limits the run to the named jobs; empty runs all of them.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		JobTimeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

// ProvideConfig ticks at least as often as catalogs go stale.
func ProvideConfig(holder *config.CatalogConfigHolder) Config {
	cfg := DefaultConfig()
	if holder != nil {
		if interval := holder.Get().RefreshInterval; interval > 0 && interval < cfg.RunInterval {
			cfg.RunInterval = interval
		}
	}
	if raw := strings.TrimSpace(os.Getenv("SCHEDULER_JOBS")); raw != "" {
		for _, job := range strings.Split(raw, ",") {
			if job = strings.TrimSpace(job); job != "" {
				cfg.EnabledJobs = append(cfg.EnabledJobs, job)
			}
		}
	}
	return cfg
}
