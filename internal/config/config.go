package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config keeps runtime settings for the server, the bot and the terminal client.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string
	HTTPAddr       string
	TelegramToken  string
	ReportInterval time.Duration
	ReportDailyAt  string
	APIURL         string
	Seed           bool
}

// BotEnabled reports whether a Telegram token was configured.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

func defaults(v *viper.Viper) {
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_url", "todolist.db")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("telegram_token", "")
	v.SetDefault("report_interval_hours", 0)
	v.SetDefault("report_daily_at", "09:00")
	v.SetDefault("api_url", "http://localhost:8080")
	v.SetDefault("seed", false)
}

// Load reads configuration with sane defaults. An optional config file
// (config.yaml or config.json in the working directory or
// $HOME/.config/todolist, or the explicit path) is overridden by
// environment variables such as DATABASE_URL or TELEGRAM_TOKEN.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "todolist"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()

	cfg := Config{
		DatabaseDriver: strings.ToLower(strings.TrimSpace(v.GetString("database_driver"))),
		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
		HTTPAddr:       strings.TrimSpace(v.GetString("http_addr")),
		TelegramToken:  strings.TrimSpace(v.GetString("telegram_token")),
		ReportDailyAt:  strings.TrimSpace(v.GetString("report_daily_at")),
		APIURL:         strings.TrimSpace(v.GetString("api_url")),
		Seed:           v.GetBool("seed"),
	}

	hours := v.GetInt("report_interval_hours")
	if hours < 0 {
		return cfg, fmt.Errorf("REPORT_INTERVAL_HOURS must not be negative, got %d", hours)
	}
	cfg.ReportInterval = time.Duration(hours) * time.Hour

	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return cfg, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}
