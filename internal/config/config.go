package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const DefaultSystemInstruction = `You are an AI meeting assistant integrated into a video conferencing application.
Your role is to:
- Help summarize discussions
- Answer questions about the meeting content
- Provide helpful suggestions and insights
- Translate content if needed
- Keep responses concise and helpful
Be conversational, friendly, and professional.`

var DefaultModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
	"gemini-2.0-flash-lite",
	"gemini-pro",
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	Gemini GeminiConfig `mapstructure:"gemini"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Collab CollabConfig `mapstructure:"collab"`
}

type GeminiConfig struct {
	APIKey            string   `mapstructure:"api_key"`
	Models            []string `mapstructure:"models"`
	MaxRetries        int      `mapstructure:"max_retries"`
	SystemInstruction string   `mapstructure:"system_instruction"`
}

// ChatConfig bounds how often one client may hit the AI backend.
type ChatConfig struct {
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type CollabConfig struct {
	RetainSnapshots bool `mapstructure:"retain_snapshots"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default). Missing
// files fall back to defaults; MEETASSIST_* variables override both.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix("MEETASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("gemini.api_key", "MEETASSIST_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Strs("models", cfg.Gemini.Models).
		Bool("ai_configured", cfg.Gemini.APIKey != "").
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 5000)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 10<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.models", DefaultModels)
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.system_instruction", DefaultSystemInstruction)

	v.SetDefault("chat.rate_per_second", 1.0)
	v.SetDefault("chat.burst", 5)

	v.SetDefault("collab.retain_snapshots", false)
}

func (c *Config) validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if len(c.Gemini.Models) == 0 {
		errs = append(errs, errors.New("gemini.models is empty"))
	}
	if c.SendBuffer < 1 {
		errs = append(errs, fmt.Errorf("send_buffer must be positive: %d", c.SendBuffer))
	}
	if c.PingPeriod <= 0 || c.WriteWait <= 0 {
		errs = append(errs, errors.New("ping_period and write_wait must be positive"))
	}
	return errors.Join(errs...)
}
