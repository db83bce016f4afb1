package local_cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
)

type Options struct {
	MaxKeys int64
	Metrics bool
}

type Option func(*Options)

// WithMaxKeys bounds how many suppression keys are held at once. Every key
// costs 1.
func WithMaxKeys(n int64) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxKeys = n
		}
	}
}

func WithMetrics() Option {
	return func(o *Options) { o.Metrics = true }
}

// Cache is a TTL key set used to suppress repeated events, such as the
// same missing automation target reported on every monitor tick.
type Cache struct {
	c *ristretto.Cache
}

func NewLocalCache(opts ...Option) (*Cache, error) {
	conf := Options{MaxKeys: 10_000}
	for _, fn := range opts {
		fn(&conf)
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:            conf.MaxKeys * 10,
		MaxCost:                conf.MaxKeys,
		BufferItems:            64,
		Metrics:                conf.Metrics,
		IgnoreInternalCost:     true,
		TtlTickerDurationInSec: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create local cache")
	}
	return &Cache{c: c}, nil
}

// Allow reports whether key has not been seen within window and, if so,
// remembers it for window. A nil Cache allows everything.
func (c *Cache) Allow(key string, window time.Duration) bool {
	if c == nil || window <= 0 {
		return true
	}
	if _, found := c.c.Get(key); found {
		return false
	}
	c.c.SetWithTTL(key, struct{}{}, 1, window)
	c.c.Wait()
	return true
}

// Forget lets the next Allow for key through.
func (c *Cache) Forget(key string) {
	if c == nil {
		return
	}
	c.c.Del(key)
}

func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.c.Close()
}
