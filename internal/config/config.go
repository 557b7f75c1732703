// Package config provides Viper-based configuration loading for the quizwar
// binaries.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix for overrides, e.g.
// QUIZWAR_GAME_MAX_TURNS.
const EnvPrefix = "QUIZWAR"

// Question source kinds.
const (
	SourceBuiltin  = "builtin"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Generator providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is an optional file path. Empty means stderr.
	Output string `mapstructure:"output"`
}

// GameConfig holds per-match rules.
type GameConfig struct {
	MaxTurns    int    `mapstructure:"max_turns"`
	Difficulty  string `mapstructure:"difficulty"`
	LogCapacity int    `mapstructure:"log_capacity"`
	// AIThinkDelay is how long a front end waits before letting the
	// computer side act.
	AIThinkDelay time.Duration `mapstructure:"ai_think_delay"`
}

// QuestionsConfig selects where the question bank comes from.
type QuestionsConfig struct {
	// Source is one of "builtin", "file", or "postgres".
	Source string `mapstructure:"source"`
	// Path is the YAML file read when Source is "file".
	Path string `mapstructure:"path"`
	// Bank is the bank name read when Source is "postgres".
	Bank string `mapstructure:"bank"`
}

// StrategyConfig holds AI policy settings.
type StrategyConfig struct {
	// Profile is a path to a strategy profile YAML that new games use when
	// they name none. Empty selects the built-in profile.
	Profile string `mapstructure:"profile"`
	// ProfileDir holds additional profile YAML files that games may select
	// by ID.
	ProfileDir string `mapstructure:"profile_dir"`
	// ScriptDir holds Lua override hooks. Files at the top level are shared
	// by every profile; a subdirectory named after a profile ID gives that
	// profile its own VM. Empty disables scripting.
	ScriptDir        string `mapstructure:"script_dir"`
	InstructionLimit int    `mapstructure:"instruction_limit"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// GameServerConfig holds game host gRPC settings.
type GameServerConfig struct {
	// GRPCHost is the bind/connect address for the game host gRPC service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the game host gRPC service.
	GRPCPort int `mapstructure:"grpc_port"`
	// SessionIdleTimeout is how long a game may go untouched before it is reaped.
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	// ReapInterval is how often idle games are swept.
	ReapInterval time.Duration `mapstructure:"reap_interval"`
	// FeedBuffer is the per-game event buffer for watch streams.
	FeedBuffer int `mapstructure:"feed_buffer"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// GeneratorConfig holds LLM question generation settings.
type GeneratorConfig struct {
	// Provider is "gemini" or "anthropic".
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	// APIKeyEnv names the environment variable holding the provider key.
	APIKeyEnv string        `mapstructure:"api_key_env"`
	Count     int           `mapstructure:"count"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Game       GameConfig       `mapstructure:"game"`
	Questions  QuestionsConfig  `mapstructure:"questions"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Database   DatabaseConfig   `mapstructure:"database"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateLogging(c.Logging),
		validateGame(c.Game),
		validateQuestions(c.Questions),
		validateStrategy(c.Strategy),
		validateDatabase(c.Database),
		validateGameServer(c.GameServer),
		validateGenerator(c.Generator),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.MaxTurns < 1 {
		errs = append(errs, fmt.Sprintf("game.max_turns must be >= 1, got %d", g.MaxTurns))
	}
	validDifficulty := map[string]bool{"easy": true, "medium": true, "hard": true}
	if !validDifficulty[g.Difficulty] {
		errs = append(errs, fmt.Sprintf("game.difficulty must be one of [easy, medium, hard], got %q", g.Difficulty))
	}
	if g.LogCapacity < 1 {
		errs = append(errs, fmt.Sprintf("game.log_capacity must be >= 1, got %d", g.LogCapacity))
	}
	if g.AIThinkDelay < 0 {
		errs = append(errs, "game.ai_think_delay must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateQuestions(q QuestionsConfig) error {
	switch q.Source {
	case SourceBuiltin:
		return nil
	case SourceFile:
		if q.Path == "" {
			return errors.New("questions.path must not be empty when questions.source is file")
		}
		return nil
	case SourcePostgres:
		if q.Bank == "" {
			return errors.New("questions.bank must not be empty when questions.source is postgres")
		}
		return nil
	default:
		return fmt.Errorf("questions.source must be one of [builtin, file, postgres], got %q", q.Source)
	}
}

func validateStrategy(s StrategyConfig) error {
	if s.InstructionLimit < 0 {
		return fmt.Errorf("strategy.instruction_limit must be >= 0, got %d", s.InstructionLimit)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.SessionIdleTimeout <= 0 {
		errs = append(errs, "gameserver.session_idle_timeout must be positive")
	}
	if g.ReapInterval <= 0 {
		errs = append(errs, "gameserver.reap_interval must be positive")
	}
	if g.FeedBuffer < 0 {
		errs = append(errs, fmt.Sprintf("gameserver.feed_buffer must be >= 0, got %d", g.FeedBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGenerator(g GeneratorConfig) error {
	var errs []string
	validProviders := map[string]bool{ProviderGemini: true, ProviderAnthropic: true}
	if !validProviders[g.Provider] {
		errs = append(errs, fmt.Sprintf("generator.provider must be one of [gemini, anthropic], got %q", g.Provider))
	}
	if g.Model == "" {
		errs = append(errs, "generator.model must not be empty")
	}
	if g.Count < 1 {
		errs = append(errs, fmt.Sprintf("generator.count must be >= 1, got %d", g.Count))
	}
	if g.Timeout < 0 {
		errs = append(errs, "generator.timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and
// yields defaults plus environment overrides.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and QUIZWAR_ environment
// overrides applied.
//
// Postcondition: Returns a non-nil *viper.Viper.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "")

	v.SetDefault("game.max_turns", 20)
	v.SetDefault("game.difficulty", "medium")
	v.SetDefault("game.log_capacity", 20)
	v.SetDefault("game.ai_think_delay", "1s")

	v.SetDefault("questions.source", SourceBuiltin)
	v.SetDefault("questions.path", "")
	v.SetDefault("questions.bank", "default")

	v.SetDefault("strategy.profile", "")
	v.SetDefault("strategy.profile_dir", "")
	v.SetDefault("strategy.script_dir", "")
	v.SetDefault("strategy.instruction_limit", 100000)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "quizwar")
	v.SetDefault("database.password", "quizwar")
	v.SetDefault("database.name", "quizwar")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.session_idle_timeout", "30m")
	v.SetDefault("gameserver.reap_interval", "1m")
	v.SetDefault("gameserver.feed_buffer", 64)

	v.SetDefault("generator.provider", ProviderGemini)
	v.SetDefault("generator.model", "gemini-1.5-flash")
	v.SetDefault("generator.api_key_env", "GEMINI_API_KEY")
	v.SetDefault("generator.count", 10)
	v.SetDefault("generator.timeout", "60s")
}
