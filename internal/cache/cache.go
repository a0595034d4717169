package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/WhitehatD/Student-Identity-Consent/consent"
	"github.com/WhitehatD/Student-Identity-Consent/internal/metrics"
)

const keyPrefix = "educonsent:consent-logs"

// DefaultLifetime is used when no lifetime is configured
const DefaultLifetime = 5 * time.Minute

// Options holds the redis connection options for the consent log cache
type Options struct {
	Addr        string
	Username    string
	Password    string
	DB          int
	MaxLifetime time.Duration
}

// Backend is the part of the redis client used by the cache
type Backend interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// ConsentLogCache stores reconstructed consent logs in redis, keyed by owner
// and the block height they were reconstructed at. It implements
// consent.LogCache.
type ConsentLogCache struct {
	backend  Backend
	lifetime time.Duration
}

// NewConsentLogCache creates a ConsentLogCache on top of an existing redis
// client
func NewConsentLogCache(backend Backend, lifetime time.Duration) *ConsentLogCache {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &ConsentLogCache{
		backend:  backend,
		lifetime: lifetime,
	}
}

// UseRedis connects to redis and returns a ConsentLogCache using it
func UseRedis(ctx context.Context, opts Options) (*ConsentLogCache, *redis.Client, error) {
	rdb := redis.NewClient(
		&redis.Options{
			Addr:     opts.Addr,
			Username: opts.Username,
			Password: opts.Password,
			DB:       opts.DB,
		},
	)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, errors.Wrapf(err, "could not connect to redis at '%s'", opts.Addr)
	}
	log.WithField("addr", opts.Addr).Debug("connected to redis")
	return NewConsentLogCache(rdb, opts.MaxLifetime), rdb, nil
}

func logKey(owner string, block uint64) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, strings.ToLower(owner), block)
}

// Get implements consent.LogCache
func (c *ConsentLogCache) Get(ctx context.Context, owner string, block uint64) ([]consent.LogEntry, bool, error) {
	data, err := c.backend.Get(ctx, logKey(owner, block)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.LogCacheLookup("miss")
			return nil, false, nil
		}
		metrics.LogCacheLookup("error")
		return nil, false, errors.WithStack(err)
	}
	var entries []consent.LogEntry
	if err = msgpack.Unmarshal(data, &entries); err != nil {
		metrics.LogCacheLookup("error")
		return nil, false, errors.Wrap(err, "could not decode cached consent logs")
	}
	if entries == nil {
		entries = []consent.LogEntry{}
	}
	metrics.LogCacheLookup("hit")
	return entries, true, nil
}

// Set implements consent.LogCache
func (c *ConsentLogCache) Set(ctx context.Context, owner string, block uint64, entries []consent.LogEntry) error {
	data, err := msgpack.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "could not encode consent logs")
	}
	return errors.WithStack(c.backend.Set(ctx, logKey(owner, block), data, c.lifetime).Err())
}
