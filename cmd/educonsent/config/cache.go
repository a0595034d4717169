package config

import (
	"time"

	"github.com/zachmann/go-utils/duration"

	"github.com/WhitehatD/Student-Identity-Consent/internal/cache"
)

// cachingConf configures the redis cache for reconstructed consent logs. The
// cache is only used if redis_addr is set and it is not disabled.
type cachingConf struct {
	RedisAddr   string                  `yaml:"redis_addr"`
	Username    string                  `yaml:"username"`
	Password    string                  `yaml:"password"`
	RedisDB     int                     `yaml:"redis_db"`
	Disabled    bool                    `yaml:"disabled"`
	MaxLifetime duration.DurationOption `yaml:"max_lifetime"`
}

var defaultCachingConf = cachingConf{
	MaxLifetime: duration.DurationOption(5 * time.Minute),
}

// Enabled tells if the consent log cache should be used
func (c cachingConf) Enabled() bool {
	return c.RedisAddr != "" && !c.Disabled
}

// Options returns the cache.Options for this configuration
func (c cachingConf) Options() cache.Options {
	return cache.Options{
		Addr:        c.RedisAddr,
		Username:    c.Username,
		Password:    c.Password,
		DB:          c.RedisDB,
		MaxLifetime: c.MaxLifetime.Duration(),
	}
}
