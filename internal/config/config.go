package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.inbox/config.toml.
type Config struct {
	DefaultSession string  `toml:"default_session"`
	LogLevel       string  `toml:"log_level"`
	Backend        Backend `toml:"backend"`
	Sync           Sync    `toml:"sync"`
	Push           Push    `toml:"push"`
	Outbox         Outbox  `toml:"outbox"`
	Ledger         Ledger  `toml:"ledger"`
}

// Backend locates the remote messaging service.
type Backend struct {
	BaseURL        string   `toml:"base_url"`
	APIPrefix      string   `toml:"api_prefix"`
	HealthPath     string   `toml:"health_path"`
	PushPath       string   `toml:"push_path"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// Sync tunes the reconciliation engine.
type Sync struct {
	PollInterval     Duration `toml:"poll_interval"`
	SendTimeout      Duration `toml:"send_timeout"`
	DeliveryFallback Duration `toml:"delivery_fallback"`
	EchoTolerance    Duration `toml:"echo_tolerance"`
	ProbeInterval    Duration `toml:"probe_interval"`
}

// Push tunes the push channel reconnection policy.
type Push struct {
	MaxAttempts int      `toml:"max_attempts"`
	Backoff     Duration `toml:"backoff"`
	Heartbeat   Duration `toml:"heartbeat"`
}

type Outbox struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

type Ledger struct {
	DSN string `toml:"dsn"`
}

// Duration is a time.Duration that reads and writes as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:3000"
	}
	if c.Backend.APIPrefix == "" {
		c.Backend.APIPrefix = "/api"
	}
	if c.Backend.HealthPath == "" {
		c.Backend.HealthPath = "/health"
	}
	if c.Backend.PushPath == "" {
		c.Backend.PushPath = "/ws"
	}
	setDuration(&c.Backend.RequestTimeout, 20*time.Second)
	setDuration(&c.Sync.PollInterval, 30*time.Second)
	setDuration(&c.Sync.SendTimeout, 15*time.Second)
	setDuration(&c.Sync.DeliveryFallback, 5*time.Second)
	setDuration(&c.Sync.EchoTolerance, 5*time.Second)
	setDuration(&c.Sync.ProbeInterval, 15*time.Second)
	if c.Push.MaxAttempts <= 0 {
		c.Push.MaxAttempts = 10
	}
	setDuration(&c.Push.Backoff, time.Second)
	setDuration(&c.Push.Heartbeat, 25*time.Second)
	if c.Outbox.Workers <= 0 {
		c.Outbox.Workers = 2
	}
	if c.Outbox.QueueSize <= 0 {
		c.Outbox.QueueSize = 64
	}
	if c.Ledger.DSN == "" {
		c.Ledger.DSN = "file:inbox-ledger?mode=memory&cache=shared"
	}
}

func setDuration(d *Duration, def time.Duration) {
	if d.Duration <= 0 {
		d.Duration = def
	}
}

// Load reads config from the given path. Returns zero config and error if file missing.
// Keys absent from the file take their default values.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault is Load, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
