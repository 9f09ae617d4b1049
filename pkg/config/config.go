package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFilePath string
	parseOnce   sync.Once

	loadOnce sync.Once
	loadErr  error
)

func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// New fills T from the environment under prefix. The -env file (or ./.env)
// is read once per process; variables already set in the environment win.
func New[T any](prefix string) (*T, error) {
	loadOnce.Do(func() { loadErr = loadEnvFile(resolveEnvPath()) })
	if loadErr != nil {
		return nil, loadErr
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("config %s: %w", strings.ToLower(prefix), err)
	}
	return &conf, nil
}

func resolveEnvPath() string {
	parseOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFilePath, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})
	return strings.TrimSpace(envFilePath)
}

func loadEnvFile(path string) error {
	if path == "" {
		info, err := os.Stat(".env")
		if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load default env file: %w", err)
		}
		path = ".env"
	}
	if err := exportEnvironment(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func exportEnvironment(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	for k, val := range v.AllSettings() {
		key := strings.ToUpper(k)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile loads a YAML or JSON document and expands ${VAR} / ${VAR:default}
// references in every string value.
func ReadFile(path string) (map[string]any, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("config file %s must be .yaml, .yml or .json", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	expanded, _ := ExpandEnv(v.AllSettings()).(map[string]any)
	if expanded == nil {
		expanded = map[string]any{}
	}
	return expanded, nil
}

// ExpandEnv walks maps and slices and substitutes whole-string env references.
func ExpandEnv(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = ExpandEnv(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = ExpandEnv(val)
		}
		return out
	case string:
		return expandString(t)
	default:
		return v
	}
}

func expandString(s string) string {
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return s
	}
	ref := s[2 : len(s)-1]
	name, def, hasDefault := strings.Cut(ref, ":")
	if val, ok := os.LookupEnv(name); ok {
		return val
	}
	if hasDefault {
		return def
	}
	return ""
}
