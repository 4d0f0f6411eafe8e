// Package redisrunner consumes scrape tasks from the redis queue.
package redisrunner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis/config"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis/tasks"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner"
)

type redisRunner struct {
	cfg     *config.RedisConfig
	log     *zap.Logger
	server  *redis.Server
	handler *tasks.Handler
	closers []func() error
}

func New(cfg *runner.Config, log *zap.Logger) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeRedis {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	rcfg, err := config.Parse(cfg.RedisURL, cfg.Workers)
	if err != nil {
		return nil, err
	}

	ans := redisRunner{
		cfg: rcfg,
		log: log,
	}

	store, err := runner.OpenStore(context.Background(), cfg.DataFolder)
	if err != nil {
		return nil, err
	}

	ans.closers = append(ans.closers, store.Close)

	deps, err := runner.Build(cfg, log)
	if err != nil {
		return nil, multierr.Append(err, ans.Close(context.Background()))
	}

	ans.closers = append(ans.closers, deps.Close)

	// scrapes hold the browser lock, so the task budget covers queueing
	// behind the other workers too
	ans.handler = tasks.NewHandler(deps.Scraper,
		tasks.WithJobStore(store),
		tasks.WithLogger(log),
		tasks.WithTaskTimeout(cfg.Timeout*time.Duration(rcfg.Workers)),
	)
	ans.server = redis.NewServer(rcfg, log)

	return &ans, nil
}

func (r *redisRunner) Run(ctx context.Context) error {
	r.log.Info("queue worker started", zap.Int("workers", r.cfg.Workers), zap.String("redis", r.cfg.GetRedisAddr()))

	if err := r.server.Start(r.handler); err != nil {
		return err
	}

	<-ctx.Done()

	r.server.Shutdown()

	return nil
}

func (r *redisRunner) Close(context.Context) error {
	var err error

	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i]())
	}

	r.closers = nil

	return err
}
