package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the ambient runtime configuration of the process: where data
// lives, how long provider calls may take, where traces go. Connection
// settings for the AI provider (apiUrl/apiKey/model) are NOT here — they
// are user data, persisted through the settings store.
type Config struct {
	Env            string        `mapstructure:"env"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	DataDir        string        `mapstructure:"data_dir"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	OTLPEndpoint   string        `mapstructure:"otlp_endpoint"`
}

// Load reads configuration from the environment with built-in defaults.
// Variables use the FRIDGECHEF_ prefix (FRIDGECHEF_DATA_DIR etc.).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FRIDGECHEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be positive, got %s", cfg.RequestTimeout)
	}

	return &cfg, nil
}

// MustLoad is Load for main; it panics on a broken environment.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("service_name", "fridgechef")
	v.SetDefault("service_version", "1.0.0")
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("request_timeout", "60s")
	v.SetDefault("otlp_endpoint", "")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fridgechef"
	}
	return filepath.Join(home, ".fridgechef")
}
