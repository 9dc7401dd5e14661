package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFile   string
	parseOnce sync.Once
)

// MustLoad populates T from the environment and panics on failure.
// Prefix namespaces the envconfig lookup, e.g. MustLoad[printful.Config]("PRINTFUL").
func MustLoad[T any](prefix string) *T {
	conf, err := Load[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// Load reads an optional .env file (via the -env flag, or ./.env when present)
// into the process environment, then decodes T with envconfig.
func Load[T any](prefix string) (*T, error) {
	path := envFlagPath()
	if path != "" {
		if err := exportEnvFile(path); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", path, err)
		}
	} else if err := exportEnvFileIfExists(".env"); err != nil {
		return nil, fmt.Errorf("load default env file: %w", err)
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func envFlagPath() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFile, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFile)
}

func exportEnvFileIfExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	return exportEnvFile(path)
}

func exportEnvFile(path string) error {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return err
	}
	for k, v := range viper.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(v)); err != nil {
			return err
		}
	}
	return nil
}
