// Package config defines the static configuration types shared across the
// application. Runtime settings editable by administrators (service URLs, API
// keys, feature flags) live in the settings document instead; see the
// settings package.
package config

import "time"

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// StoreConfig locates the shared document directory.
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// TelegramConfig carries bot transport settings. The token may be overridden
// by the settings document at runtime; this is the bootstrap fallback.
type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	PollTimeout int    `mapstructure:"poll_timeout"`
}

// ReconcilerConfig tunes the access policy reconciler loop.
type ReconcilerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// BotConfig tunes the approval workflow engine loop.
type BotConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	Debounce      time.Duration `mapstructure:"debounce"`
}
