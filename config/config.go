package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Dotenv   string `mapstructure:"dotenv"`
	Handlers struct {
		Prometheus struct {
			Port      string `mapstructure:"port"`
			CertFile  string `mapstructure:"certFile"`
			KeyFile   string `mapstructure:"keyFile"`
			EnableTLS bool   `mapstructure:"enableTLS"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	AI struct {
		Provider       string `mapstructure:"provider"`
		Model          string `mapstructure:"model"`
		TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	} `mapstructure:"ai"`
	Generation struct {
		PoolMin               int `mapstructure:"poolMin"`
		PoolMax               int `mapstructure:"poolMax"`
		StreamDeadlineSeconds int `mapstructure:"streamDeadlineSeconds"`
		PoolCacheTTLMinutes   int `mapstructure:"poolCacheTTLMinutes"`
	} `mapstructure:"generation"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// AITimeout returns the per-call provider timeout as a duration.
func (c *Config) AITimeout() time.Duration {
	if c.AI.TimeoutSeconds <= 0 {
		return 45 * time.Second
	}
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// StreamDeadline returns the hard limit for one streamed generation request.
func (c *Config) StreamDeadline() time.Duration {
	if c.Generation.StreamDeadlineSeconds <= 0 {
		return 280 * time.Second
	}
	return time.Duration(c.Generation.StreamDeadlineSeconds) * time.Second
}
