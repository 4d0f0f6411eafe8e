// Package redis wires the asynq task queue and the go-redis client used by the
// result cache.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis/config"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis/tasks"
)

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 5 * time.Second
)

// Client enqueues scrape tasks.
type Client struct {
	client *asynq.Client
	cfg    *config.RedisConfig
	mu     sync.RWMutex
}

func NewClient(cfg *config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(clientOpt(cfg)),
		cfg:    cfg,
	}
}

// EnqueueTask enqueues a raw task. Common options are asynq.MaxRetry,
// asynq.Queue, asynq.Timeout and asynq.Retention.
func (c *Client) EnqueueTask(ctx context.Context, taskType string, payload []byte, opts ...asynq.Option) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	task := asynq.NewTask(taskType, payload)
	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// EnqueueScrape queues one product url for a worker.
func (c *Client) EnqueueScrape(ctx context.Context, payload tasks.ScrapePayload, timeout time.Duration) error {
	task, err := tasks.NewScrapeTask(payload)
	if err != nil {
		return err
	}

	opts := []asynq.Option{
		asynq.Queue(tasks.PriorityDefault),
		asynq.MaxRetry(c.cfg.MaxRetries),
		asynq.Retention(c.cfg.RetentionPeriod),
	}

	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("failed to enqueue scrape of %s: %w", payload.URL, err)
	}

	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// NewUniversalClient builds the go-redis client used for caching results.
func NewUniversalClient(cfg *config.RedisConfig) goredis.UniversalClient {
	opts := goredis.UniversalOptions{
		Addrs:        []string{cfg.GetRedisAddr()},
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}

	if cfg.UseTLS {
		opts.TLSConfig = tlsConfig(cfg)
	}

	return goredis.NewUniversalClient(&opts)
}

func clientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}

	if cfg.UseTLS {
		opt.TLSConfig = tlsConfig(cfg)
	}

	return opt
}

func tlsConfig(cfg *config.RedisConfig) *tls.Config {
	return &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
}
