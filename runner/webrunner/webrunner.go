// Package webrunner serves the scraping HTTP API.
package webrunner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis/config"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis/tasks"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/worker"
)

const shutdownTimeout = 10 * time.Second

type webrunner struct {
	cfg     *runner.Config
	log     *zap.Logger
	e       *echo.Echo
	worker  entities.Worker
	closers []func() error
}

func New(cfg *runner.Config, log *zap.Logger) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeWeb {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	if cfg.DataFolder == "" {
		return nil, fmt.Errorf("%w: data folder is required", runner.ErrInvalidConfig)
	}

	ans := webrunner{
		cfg: cfg,
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

	var scheduler Scheduler

	if cfg.RedisURL != "" {
		rcfg, err := config.Parse(cfg.RedisURL, cfg.Workers)
		if err != nil {
			return nil, multierr.Append(err, ans.Close(context.Background()))
		}

		client := redis.NewClient(rcfg)
		ans.closers = append(ans.closers, client.Close)

		scheduler = &queueScheduler{client: client, timeout: cfg.Timeout}
	} else {
		ans.worker = worker.NewWorker(deps.Scraper, store, log)
		scheduler = ans.worker
	}

	ans.e = NewEcho(NewServer(deps.Scraper, store, scheduler, log), log)

	return &ans, nil
}

func (w *webrunner) Run(ctx context.Context) error {
	egroup, ctx := errgroup.WithContext(ctx)

	if w.worker != nil {
		egroup.Go(func() error {
			return w.worker.Start(ctx)
		})
	}

	egroup.Go(func() error {
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return w.e.Shutdown(sctx)
	})

	egroup.Go(func() error {
		w.log.Info("api listening", zap.String("addr", w.cfg.Addr))

		if err := w.e.Start(w.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return egroup.Wait()
}

func (w *webrunner) Close(context.Context) error {
	var err error

	for i := len(w.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, w.closers[i]())
	}

	w.closers = nil

	return err
}

// queueScheduler hands jobs to queue workers. Workers record status and
// results in the shared jobs database.
type queueScheduler struct {
	client  *redis.Client
	timeout time.Duration
}

func (q *queueScheduler) ScheduleJob(ctx context.Context, job entities.Job) error {
	return q.client.EnqueueScrape(ctx, tasks.ScrapePayload{JobID: job.ID, URL: job.URL}, q.timeout)
}
