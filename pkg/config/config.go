package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config captures runtime settings for the sketchd service.
type Config struct {
	ListenAddr    string `mapstructure:"listen_addr"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	GeminiModel   string `mapstructure:"gemini_model"`
	GeminiBaseURL string `mapstructure:"gemini_base_url"`
	DefaultFQBN   string `mapstructure:"default_fqbn"`
	DatabaseURL   string `mapstructure:"database_url"`
}

// Load reads configuration from defaults, ./configs/config.*, and
// SKETCHD_* env vars. GOOGLE_API_KEY is honored as a fallback for the
// Gemini key so existing environments keep working.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.SetEnvPrefix("SKETCHD")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8090")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "gemini-1.5-pro-latest")
	v.SetDefault("gemini_base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("default_fqbn", "Seeeduino:samd:seeed_XIAO_m0")
	v.SetDefault("database_url", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = os.Getenv("GOOGLE_API_KEY")
	}

	return cfg, nil
}
