// Package config loads the bvault configuration file.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (BVAULT_*, e.g. BVAULT_STORAGE_PASSWORD)
//  2. Credentials file named by storage.credentials
//  3. Configuration file
//  4. Default values
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/keshon/bvault/internal/hashing"
	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/units"
)

const (
	EnvPrefix = "BVAULT"
	AppDir    = ".bvault"
)

var ErrNoConfig = errors.New("unable to locate the configuration file")

// Config is the complete configuration.
type Config struct {
	Logging    logger.Config    `mapstructure:"logging" yaml:"logging"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`
	Defaults   Policy           `mapstructure:"defaults" yaml:"defaults"`
	Rules      []Rule           `mapstructure:"rules" yaml:"rules" validate:"dive"`

	// File is the path the configuration was read from.
	File string `mapstructure:"-" yaml:"-"`
}

// StorageConfig selects and parameterizes the repository backend.
type StorageConfig struct {
	Module         string `mapstructure:"module" yaml:"module" validate:"omitempty,oneof=dir ftp s3 postgres mongo memory"`
	Connection     string `mapstructure:"connection" yaml:"connection"`
	Username       string `mapstructure:"username" yaml:"username,omitempty"`
	Password       string `mapstructure:"password" yaml:"password,omitempty"`
	Credentials    string `mapstructure:"credentials" yaml:"credentials,omitempty"`
	Region         string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`
	Table          string `mapstructure:"table" yaml:"table,omitempty"`
	Database       string `mapstructure:"database" yaml:"database,omitempty"`
	Collection     string `mapstructure:"collection" yaml:"collection,omitempty"`
}

type CacheConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

type RepositoryConfig struct {
	// Hash is written into the configuration record of new repositories.
	Hash string `mapstructure:"hash" yaml:"hash" validate:"required"`
}

// Load reads configPath, or the first file of SearchPaths when configPath
// is empty, and returns the validated configuration.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("%w (searched %s)", ErrNoConfig, strings.Join(SearchPaths(), ", "))
		}
	}

	v := viper.New()
	setupViper(v, configPath)
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoConfig, configPath)
		}
		return nil, fmt.Errorf("read config %q: %w", configPath, err)
	}

	if cred := v.GetString("storage.credentials"); cred != "" {
		if err := mergeCredentials(v, expandHome(cred)); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = configPath
	cfg.Cache.Path = expandHome(cfg.Cache.Path)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SearchPaths lists the locations tried when no file is given explicitly.
func SearchPaths() []string {
	paths := []string{
		"/usr/local/etc/bvault/config.yaml",
		"/etc/bvault/config.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append([]string{filepath.Join(home, AppDir, "config.yaml")}, paths...)
	}
	return paths
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	setDefaults(v)
}

// mergeCredentials overlays a second YAML file so secrets can live apart
// from the main configuration.
func mergeCredentials(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to read credentials file %q: %w", path, err)
	}
	defer f.Close()
	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("merge credentials file %q: %w", path, err)
	}
	return nil
}

// Validate checks struct constraints and names that resolve against the
// codec and hash registries.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}
	if _, err := hashing.New(cfg.Repository.Hash); err != nil {
		return fmt.Errorf("repository.hash: %w", err)
	}
	if err := cfg.Defaults.validate(); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	for i, r := range cfg.Rules {
		if err := r.validate(cfg.Defaults); err != nil {
			return fmt.Errorf("rules[%d] %q: %w", i, r.Match, err)
		}
	}
	return nil
}

// Save writes cfg as YAML with owner-only permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook accepts "1mb", "64 kb", "4MiB" or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(units.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return units.ParseByteSize(v)
		case int:
			return units.ByteSize(v), nil
		case int64:
			return units.ByteSize(v), nil
		case uint64:
			return units.ByteSize(v), nil
		case float64:
			return units.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook accepts Go durations, "2 hours" style strings and
// plain numbers of seconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return units.ParseDuration(v)
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		default:
			return data, nil
		}
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

