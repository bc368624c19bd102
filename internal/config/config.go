// internal/config/config.go
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type TelephonyConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type PredictionConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type LimitsConfig struct {
	MaxCPS                  int `yaml:"max_cps"`
	MaxConcurrentVoice      int `yaml:"max_concurrent_voice"`
	MaxConcurrentSMS        int `yaml:"max_concurrent_sms"`
	DispatchBatchSize       int `yaml:"dispatch_batch_size"`
	StaleAfterMinutes       int `yaml:"stale_after_minutes"`
	MaxCampaignRuntimeHours int `yaml:"max_campaign_runtime_hours"`
}

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBDSN      string `yaml:"db_dsn"`
	AMQPURL    string `yaml:"amqp_url"`
	DialQueue  string `yaml:"dial_queue"`

	// RateStore selects the shared CPS counter backend: "postgres"
	// (default, correct across processes) or "local" (in-process TTL
	// cache, single-worker deployments only).
	RateStore string `yaml:"rate_store"`

	Telephony  TelephonyConfig  `yaml:"telephony"`
	Prediction PredictionConfig `yaml:"prediction"`
	Limits     LimitsConfig     `yaml:"limits"`
}

// Load reads the YAML config, applies defaults, then lets environment
// variables override the connection settings (the .env file is loaded by
// the cmd mains before this runs).
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(&cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DialQueue == "" {
		c.DialQueue = "dial_tasks"
	}
	if c.RateStore == "" {
		c.RateStore = "postgres"
	}
	if c.Telephony.TimeoutSeconds == 0 {
		c.Telephony.TimeoutSeconds = 3
	}
	if c.Prediction.TimeoutMS == 0 {
		c.Prediction.TimeoutMS = 500
	}
	if c.Limits.MaxCPS == 0 {
		c.Limits.MaxCPS = 50
	}
	if c.Limits.MaxConcurrentVoice == 0 {
		c.Limits.MaxConcurrentVoice = 10
	}
	if c.Limits.MaxConcurrentSMS == 0 {
		c.Limits.MaxConcurrentSMS = 20
	}
	if c.Limits.DispatchBatchSize == 0 {
		c.Limits.DispatchBatchSize = 100
	}
	if c.Limits.StaleAfterMinutes == 0 {
		c.Limits.StaleAfterMinutes = 30
	}
	if c.Limits.MaxCampaignRuntimeHours == 0 {
		c.Limits.MaxCampaignRuntimeHours = 24
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DBDSN = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		c.AMQPURL = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("TELEPHONY_BASE_URL"); v != "" {
		c.Telephony.BaseURL = v
	}
	if v := os.Getenv("MAX_CPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Limits.MaxCPS = n
		}
	}
}

// AdmissionLimits returns the per-resource-class caps keyed the way the
// admission controller expects them.
func (c *Config) AdmissionLimits() map[string]int {
	return map[string]int{
		"voice": c.Limits.MaxConcurrentVoice,
		"sms":   c.Limits.MaxConcurrentSMS,
	}
}
