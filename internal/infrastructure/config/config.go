package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/hucksarn/movieflixdash/internal/shared/config"
)

type Config struct {
	Store      sharedConfig.StoreConfig      `mapstructure:"store"`
	Logger     sharedConfig.LoggerConfig     `mapstructure:"logger"`
	Telegram   sharedConfig.TelegramConfig   `mapstructure:"telegram"`
	Reconciler sharedConfig.ReconcilerConfig `mapstructure:"reconciler"`
	Bot        sharedConfig.BotConfig        `mapstructure:"bot"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables.
func Load(env string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	viper.SetEnvPrefix("MOVIEFLIXDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is acceptable: defaults plus environment
		// variables are enough to run against a local document directory.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		viper.Set("logger.level", levelForEnv(env))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func levelForEnv(env string) string {
	if env == "development" || env == "debug" {
		return "debug"
	}
	return viper.GetString("logger.level")
}

func setDefaults() {
	// Store defaults
	viper.SetDefault("store.dir", "./data")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	// Telegram defaults
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.poll_timeout", 5)

	// Reconciler defaults
	viper.SetDefault("reconciler.interval", "10s")
	viper.SetDefault("reconciler.debounce", "500ms")

	// Bot defaults
	viper.SetDefault("bot.sweep_interval", "3s")
	viper.SetDefault("bot.debounce", "300ms")
}
