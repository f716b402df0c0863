// Package config handles environment-based configuration loading.
package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const Prefix = "REPORT"

type Config struct {
	HTTP struct {
		Addr         string        `default:":8080"`
		ReadTimeout  time.Duration `default:"10s"`
		WriteTimeout time.Duration `default:"10s"`
		// Proxies whose X-Forwarded-For is believed. Empty trusts none.
		TrustedProxies []string
	}
	Log struct {
		Level string `default:"info"`
	}
	Redis struct {
		// Empty address switches the submission guard to memory.
		Addr     string `default:""`
		Password string `default:""`
		DB       int    `default:"0"`
	}
	Auth struct {
		Secret string `default:""`
		Issuer string `default:""`
		Cookie string `default:"__session"`
	}
	CORS struct {
		Origins []string `default:"http://localhost:3000"`
	}
	RateLimit struct {
		RPS   int           `default:"10"`
		Burst int           `default:"20"`
		TTL   time.Duration `default:"5m"`
	}
	Generation struct {
		ImageURLs []string `default:"https://picsum.photos/seed/report-1/512/512,https://picsum.photos/seed/report-2/512/512,https://picsum.photos/seed/report-3/512/512"`
	}
	Form struct {
		// Empty generates in-process; otherwise the form posts to this API base URL.
		Endpoint      string        `default:""`
		Timeout       time.Duration `default:"15s"`
		SurfaceErrors bool          `default:"false"`
		TokenTTL      time.Duration `default:"10m"`
	}
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("REPORT_HTTP_ADDR is required")
	}
	if len(c.Generation.ImageURLs) != 3 {
		return errors.New("REPORT_GENERATION_IMAGEURLS must list exactly three urls")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("REPORT_RATELIMIT_RPS and REPORT_RATELIMIT_BURST must be > 0")
	}
	return nil
}
