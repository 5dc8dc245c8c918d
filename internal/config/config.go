package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	LLM     LLMConfig
	Server  ServerConfig
	History HistoryConfig
	Resume  ResumeConfig
	Log     LogConfig
}

// LLMConfig holds the completion service configuration
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	// AppURL is sent as HTTP-Referer so the remote service can attribute traffic.
	AppURL   string `mapstructure:"app_url"`
	AppTitle string `mapstructure:"app_title"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ServiceName    string   `mapstructure:"service_name"`
}

// HistoryConfig holds the turn store configuration
type HistoryConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// ResumeConfig points at an optional file replacing the built-in resume.
type ResumeConfig struct {
	File string `mapstructure:"file"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// envAliases maps config keys to the environment variables the deployment
// has always used.
var envAliases = map[string]string{
	"llm.api_key":            "OPENROUTER_API_KEY",
	"llm.app_url":            "APP_URL",
	"server.allowed_origins": "FRONTEND_URL",
	"server.port":            "PORT",
	"history.db_path":        "HISTORY_DB_PATH",
	"resume.file":            "RESUME_FILE",
	"log.level":              "LOG_LEVEL",
	"log.file":               "LOG_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "amazon/nova-lite-v1:free")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_tokens", 500)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.app_url", "http://localhost:5173")
	v.SetDefault("llm.app_title", "Juily Bagate Portfolio")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.service_name", "Juily Bagate Portfolio API")
	v.SetDefault("history.db_path", "chat_history.db")
	v.SetDefault("resume.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load loads the configuration from config.yaml (or CONFIG_PATH) and the
// environment. A missing default config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return nil, err
		}
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.Server.AllowedOrigins = splitOrigins(config.Server.AllowedOrigins)

	return &config, nil
}

// splitOrigins flattens comma-separated entries and drops blanks.
func splitOrigins(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, o := range strings.Split(entry, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, strings.TrimSuffix(o, "/"))
			}
		}
	}
	return out
}
