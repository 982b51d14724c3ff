package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	tomlrepo "github.com/bnema/lobbyopoly-cli/internal/adapters/repo/toml"
	"github.com/bnema/lobbyopoly-cli/internal/logging"
	"github.com/bnema/lobbyopoly-cli/internal/reconcile"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	keyServerURL    = "server.url"
	keySyncMode     = "sync.mode"
	keyPollInterval = "sync.poll_interval"
	keyHTTPTimeout  = "http.timeout"
	keyLogLevel     = "log.level"

	envPrefix        = "LOBBYOPOLY"
	configDir        = ".lobbyopoly"
	configFile       = "config.toml"
	defaultServerURL = "http://localhost:5000"
	defaultTimeout   = 15 * time.Second

	syncModeStream = "stream"
	syncModePoll   = "poll"
)

// loadConfig layers defaults, ~/.lobbyopoly/config.toml, a .env file in the
// working directory and LOBBYOPOLY_* variables. Flags are bound later.
func loadConfig() (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := viper.New()
	cfg.SetDefault(keyServerURL, defaultServerURL)
	cfg.SetDefault(keySyncMode, syncModeStream)
	cfg.SetDefault(keyPollInterval, reconcile.DefaultPollInterval)
	cfg.SetDefault(keyHTTPTimeout, defaultTimeout)
	cfg.SetDefault(keyLogLevel, logging.DefaultLevel)
	cfg.SetDefault(tomlrepo.SessionPathKey, "")

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	path := filepath.Join(homeDir, configDir, configFile)
	if _, err := os.Stat(path); err == nil {
		cfg.SetConfigFile(path)
		if err := cfg.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	return cfg, nil
}

func (a *app) bindFlags(flags *pflag.FlagSet) error {
	for key, name := range map[string]string{
		keyServerURL: "server",
		keySyncMode:  "mode",
		keyLogLevel:  "log-level",
	} {
		if err := a.cfg.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}
