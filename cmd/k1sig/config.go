package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/mahdiidarabi/k1sig/pkg/k1sig"
)

// Config holds settings shared by every command. Values come from the
// config file, then K1SIG_* environment variables, then flags.
type Config struct {
	PrivateKey   string
	Encoding     k1sig.Encoding
	Workers      int
	KeyCacheSize int
	LogLevel     zerolog.Level
	Format       string
}

// LoadConfig reads the optional config file and the environment.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("encoding", string(k1sig.DefaultEncoding))
	v.SetDefault("workers", 0)
	v.SetDefault("key_cache_size", k1sig.DefaultKeyCacheSize)
	v.SetDefault("log_level", "info")
	v.SetDefault("format", "text")

	v.SetEnvPrefix("K1SIG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	enc, err := k1sig.ParseEncoding(v.GetString("encoding"))
	if err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log_level: %w", err)
	}

	return &Config{
		PrivateKey:   v.GetString("private_key"),
		Encoding:     enc,
		Workers:      v.GetInt("workers"),
		KeyCacheSize: v.GetInt("key_cache_size"),
		LogLevel:     level,
		Format:       v.GetString("format"),
	}, nil
}

// applyFlags lets explicitly set flags override file and environment values.
func (cfg *Config) applyFlags(cmd *cli.Command) error {
	if cmd.IsSet("log-level") {
		level, err := zerolog.ParseLevel(cmd.String("log-level"))
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		cfg.LogLevel = level
	}
	return nil
}

func (cfg *Config) encoding(cmd *cli.Command) (k1sig.Encoding, error) {
	if cmd.IsSet("encoding") {
		return k1sig.ParseEncoding(cmd.String("encoding"))
	}
	return cfg.Encoding, nil
}

func (cfg *Config) format(cmd *cli.Command) string {
	if cmd.IsSet("format") {
		return cmd.String("format")
	}
	return cfg.Format
}

// privateKey resolves the signing key from the flag, the config, or a
// terminal prompt, in that order.
func (cfg *Config) privateKey(cmd *cli.Command) (*k1sig.PrivateKey, error) {
	text := cmd.String("key")
	if text == "" {
		text = cfg.PrivateKey
	}
	if text == "" {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return nil, fmt.Errorf("no private key: use --key, K1SIG_PRIVATE_KEY or private_key in the config file")
		}
		fmt.Fprint(os.Stderr, "Private key: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		text = strings.TrimSpace(string(b))
	}
	return k1sig.ParsePrivateKey(text)
}
