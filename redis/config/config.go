// Package config holds the Redis connection settings shared by the task
// queue and the result cache.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort          = 6379
	defaultWorkers       = 1
	defaultRetryInterval = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetention     = 24 * time.Hour
	maxDB                = 15
)

var ErrEmptyURL = errors.New("redis url is empty")

// DefaultQueuePriorities is the asynq queue weighting.
var DefaultQueuePriorities = map[string]int{
	"critical": 6,
	"default":  3,
	"low":      1,
}

type RedisConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	DB              int
	UseTLS          bool
	Workers         int
	RetryInterval   time.Duration
	MaxRetries      int
	RetentionPeriod time.Duration
	QueuePriorities map[string]int
}

// Parse reads a redis:// or rediss:// url. Workers below 1 fall back to a
// single worker since every worker drives its own browser.
func Parse(rawURL string, workers int) (*RedisConfig, error) {
	if rawURL == "" {
		return nil, ErrEmptyURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	cfg := RedisConfig{
		Host:            u.Hostname(),
		Port:            defaultPort,
		Workers:         workers,
		RetryInterval:   defaultRetryInterval,
		MaxRetries:      defaultMaxRetries,
		RetentionPeriod: defaultRetention,
		QueuePriorities: make(map[string]int, len(DefaultQueuePriorities)),
	}

	switch u.Scheme {
	case "redis":
	case "rediss":
		cfg.UseTLS = true
	default:
		return nil, fmt.Errorf("invalid redis url scheme %q", u.Scheme)
	}

	if cfg.Host == "" {
		return nil, fmt.Errorf("invalid redis url: missing host")
	}

	if port := u.Port(); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return nil, fmt.Errorf("invalid port in redis url: %q", port)
		}

		cfg.Port = p
	}

	if u.User != nil {
		cfg.Username = u.User.Username()

		if pw, ok := u.User.Password(); ok {
			cfg.Password = pw
		}
	}

	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil || n < 0 || n > maxDB {
			return nil, fmt.Errorf("invalid database number in redis url: %q", db)
		}

		cfg.DB = n
	}

	if cfg.Workers < 1 {
		cfg.Workers = defaultWorkers
	}

	for queue, priority := range DefaultQueuePriorities {
		cfg.QueuePriorities[queue] = priority
	}

	return &cfg, nil
}

// GetRedisAddr returns host:port, bracketing IPv6 hosts.
func (c *RedisConfig) GetRedisAddr() string {
	host := c.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}

	return fmt.Sprintf("%s:%d", host, c.Port)
}
