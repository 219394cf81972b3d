package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

type Config struct {
	Port         int           `env:"PORT,default=3000"`
	MasterSecret string        `env:"MASTER_SECRET"`
	GinMode      string        `env:"GIN_MODE,default=release"`
	TLSCertFile  string        `env:"TLS_CERT_FILE"`
	TLSKeyFile   string        `env:"TLS_KEY_FILE"`
	TokenExpiry  time.Duration `env:"TOKEN_EXPIRY,default=720h"`
	DataDir      string        `env:"DATA_DIR"`
	LogDebug     bool          `env:"LOG_DEBUG,default=false"`
}

// ClientConfig drives the chatcli binary.
type ClientConfig struct {
	BaseURL      string        `env:"CHAT_BASE_URL,default=http://localhost:3000"`
	StateFile    string        `env:"CHAT_STATE_FILE"`
	PollInterval time.Duration `env:"CHAT_POLL_INTERVAL,default=7s"`
	HTTPTimeout  time.Duration `env:"CHAT_HTTP_TIMEOUT,default=10s"`
	LogDebug     bool          `env:"LOG_DEBUG,default=false"`
}

func environ() env.EnvSet {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return env.EnvSet{}
	}
	return es
}

func LoadConfig() (Config, error) {
	return LoadConfigFromEnv(environ())
}

func LoadConfigFromEnv(es env.EnvSet) (Config, error) {
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, errors.New("invalid PORT")
	}
	if cfg.MasterSecret == "" {
		return Config{}, errors.New("MASTER_SECRET is required")
	}
	if cfg.TokenExpiry <= 0 {
		return Config{}, errors.New("invalid TOKEN_EXPIRY")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return Config{}, errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return cfg, nil
}

func LoadClientConfig() (ClientConfig, error) {
	return LoadClientConfigFromEnv(environ())
}

func LoadClientConfigFromEnv(es env.EnvSet) (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Unmarshal(es, &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		return ClientConfig{}, errors.New("CHAT_BASE_URL is required")
	}
	if cfg.PollInterval <= 0 {
		return ClientConfig{}, errors.New("invalid CHAT_POLL_INTERVAL")
	}
	if cfg.HTTPTimeout <= 0 {
		return ClientConfig{}, errors.New("invalid CHAT_HTTP_TIMEOUT")
	}
	return cfg, nil
}
