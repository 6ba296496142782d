package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/keshon/bvault/internal/hashing"
	"github.com/keshon/bvault/internal/logger"
	"github.com/keshon/bvault/internal/units"
)

// Default scan policy.
const (
	DefaultCooldown  = time.Minute
	DefaultPeriod    = time.Hour
	DefaultCompress  = "deflate"
	DefaultBlockSize = units.MiB
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "WARN")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("cache.path", filepath.Join("~", AppDir, "cache"))
	v.SetDefault("repository.hash", hashing.Default)

	v.SetDefault("defaults.skip", false)
	v.SetDefault("defaults.cooldown", DefaultCooldown)
	v.SetDefault("defaults.period", DefaultPeriod)
	v.SetDefault("defaults.compress", DefaultCompress)
	v.SetDefault("defaults.level", 0)
	v.SetDefault("defaults.blocksize", DefaultBlockSize)
}

// Default returns the configuration used when a file sets nothing.
func Default() *Config {
	return &Config{
		Logging:    logger.Config{Level: "WARN", Format: "text", Output: "stderr"},
		Cache:      CacheConfig{Path: expandHome(filepath.Join("~", AppDir, "cache"))},
		Repository: RepositoryConfig{Hash: hashing.Default},
		Defaults:   DefaultPolicy(),
	}
}

// DefaultPolicy returns the scan policy applied to paths no rule matches.
func DefaultPolicy() Policy {
	return Policy{
		Cooldown:  DefaultCooldown,
		Period:    DefaultPeriod,
		Compress:  DefaultCompress,
		BlockSize: DefaultBlockSize,
	}
}
