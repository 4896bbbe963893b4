package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Config represents the global ~/.rolechat/config.toml.
type Config struct {
	DefaultWorkspace string    `toml:"default_workspace"`
	HTTP             HTTP      `toml:"http"`
	Delivery         Delivery  `toml:"delivery"`
	Storage          Storage   `toml:"storage"`
	Chat             Chat      `toml:"chat"`
	Translate        Translate `toml:"translate"`
}

type HTTP struct {
	Addr string `toml:"addr"`
}

type Delivery struct {
	ReadDelay time.Duration `toml:"read_delay"`
}

type Storage struct {
	Backend       string        `toml:"backend"`
	FlushInterval time.Duration `toml:"flush_interval"`
}

type Chat struct {
	MaxTextLen        int     `toml:"max_text_len"`
	AllowSelfMessages bool    `toml:"allow_self_messages"`
	SendRate          float64 `toml:"send_rate"`
	SendBurst         int     `toml:"send_burst"`
}

type Translate struct {
	Timeout time.Duration `toml:"timeout"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		HTTP:      HTTP{Addr: "127.0.0.1:8080"},
		Delivery:  Delivery{ReadDelay: time.Second},
		Storage:   Storage{Backend: BackendSQLite, FlushInterval: 2 * time.Second},
		Chat:      Chat{MaxTextLen: 4000, SendRate: 5, SendBurst: 10},
		Translate: Translate{Timeout: 2 * time.Second},
	}
}

// Load reads config from the given path on top of Default. Returns an
// error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
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
