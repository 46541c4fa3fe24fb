package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// Config holds everything the service needs to run. Values layer in
// order: defaults, then the YAML config file, then WORDVAULT_*
// environment variables, then command-line flags.
type Config struct {
	Addr       string        `koanf:"addr" validate:"required,hostname_port"`
	DBPath     string        `koanf:"db_path" validate:"required"`
	ReposDir   string        `koanf:"repos_dir" validate:"required"`
	JWTSecret  string        `koanf:"jwt_secret" validate:"required,min=16"`
	TokenTTL   time.Duration `koanf:"token_ttl" validate:"required"`
	BcryptCost int           `koanf:"bcrypt_cost" validate:"gte=4,lte=31"`
	LogLevel   string        `koanf:"log_level" validate:"oneof=debug info warn error"`
}

const envPrefix = "WORDVAULT_"

// Load builds the configuration. configFile may be empty; flags may be
// nil. Validation failures are returned as errors, never defaulted
// over: a service with no JWT secret must not start.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Config{
		Addr:       ":8080",
		DBPath:     "wordvault.db",
		ReposDir:   "repos",
		TokenTTL:   24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
		LogLevel:   "info",
	}

	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}

	// WORDVAULT_JWT_SECRET -> jwt_secret
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flag config: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Flags returns the command-line flag set understood by Load. Flag
// names match the koanf keys so posflag can map them directly.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("wordvault", pflag.ContinueOnError)
	f.String("addr", ":8080", "address to listen on")
	f.String("db_path", "wordvault.db", "path to the SQLite database file")
	f.String("repos_dir", "repos", "directory for mirrored git vocabulary sources")
	f.String("log_level", "info", "log level: debug, info, warn or error")
	f.String("config", "", "path to a YAML config file")
	return f
}
