// Package cache keeps recent scrape results in Redis so repeated requests for
// the same url skip the browser.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

const (
	DefaultTTL = 6 * time.Hour
	keyPrefix  = "product-images:result:"
)

// Store reads and writes cached results.
type Store interface {
	Get(ctx context.Context, url string) (entities.Result, bool, error)
	Set(ctx context.Context, url string, r entities.Result) error
}

// Key is the redis key a url's result lives under.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))

	return keyPrefix + hex.EncodeToString(sum[:])
}

var _ Store = (*Redis)(nil)

type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Redis{client: client, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, url string) (entities.Result, bool, error) {
	b, err := c.client.Get(ctx, Key(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.Result{}, false, nil
		}

		return entities.Result{}, false, fmt.Errorf("cache get: %w", err)
	}

	var ans entities.Result
	if err := json.Unmarshal(b, &ans); err != nil {
		return entities.Result{}, false, fmt.Errorf("cache decode: %w", err)
	}

	return ans, true, nil
}

func (c *Redis) Set(ctx context.Context, url string, r entities.Result) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, Key(url), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	return nil
}

func (c *Redis) Close() error {
	return c.client.Close()
}

var _ entities.Scraper = (*Scraper)(nil)

// Scraper serves results from a Store and fills it on a miss. Only results
// that found images are cached; failures are retried on the next request.
type Scraper struct {
	next  entities.Scraper
	store Store
	log   *zap.Logger
}

func Wrap(next entities.Scraper, store Store, log *zap.Logger) *Scraper {
	if log == nil {
		log = zap.NewNop()
	}

	return &Scraper{next: next, store: store, log: log}
}

func (s *Scraper) Scrape(ctx context.Context, url string) (entities.Result, error) {
	cached, ok, err := s.store.Get(ctx, url)

	switch {
	case err != nil:
		s.log.Warn("cache lookup failed", zap.String("url", url), zap.Error(err))
	case ok:
		s.log.Debug("cache hit", zap.String("url", url))

		return cached, nil
	}

	res, err := s.next.Scrape(ctx, url)
	if err != nil {
		return res, err
	}

	if res.TotalImages > 0 {
		if err := s.store.Set(ctx, url, res); err != nil {
			s.log.Warn("cache store failed", zap.String("url", url), zap.Error(err))
		}
	}

	return res, nil
}
