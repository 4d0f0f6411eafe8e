package runner

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/cache"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/cascade"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/fetchers"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis/config"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/scraper"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/sqlite"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/strategies"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/tlmt"
)

const jobsDB = "jobs.db"

// Deps is the scraping stack shared by every run mode.
type Deps struct {
	Log     *zap.Logger
	Scraper entities.Scraper

	pool  *fetchers.Pool
	cache *cache.Redis
}

// Build wires cascade, page service and browser pool. With a redis url and
// a positive cache ttl, results are cached.
func Build(cfg *Config, log *zap.Logger) (*Deps, error) {
	c, err := cascade.Default(strategies.DefaultThresholds(),
		cascade.WithLogger(log),
		cascade.WithStrategyTimeout(cfg.StrategyTimeout),
	)
	if err != nil {
		return nil, err
	}

	svc := scraper.New(c,
		scraper.WithLogger(log),
		scraper.WithNavTimeout(cfg.NavTimeout),
		scraper.WithSettle(cfg.Settle),
	)

	pool, err := fetchers.New(fetchers.Options{
		Browser:  cfg.Browser,
		Headless: !cfg.Headful,
		Proxies:  cfg.Proxies,
	})
	if err != nil {
		return nil, err
	}

	d := Deps{
		Log:  log,
		pool: pool,
	}

	var s entities.Scraper = scraper.NewBrowserScraper(svc, pool, cfg.Timeout)

	s = &reportingScraper{next: s}

	if cfg.RedisURL != "" && cfg.CacheTTL > 0 {
		rcfg, err := config.Parse(cfg.RedisURL, cfg.Workers)
		if err != nil {
			pool.Close()

			return nil, err
		}

		d.cache = cache.NewRedis(redis.NewUniversalClient(rcfg), cfg.CacheTTL)
		s = cache.Wrap(s, d.cache, log)
	}

	d.Scraper = s

	return &d, nil
}

func (d *Deps) Close() error {
	var err error

	if d.cache != nil {
		err = multierr.Append(err, d.cache.Close())
	}

	if d.pool != nil {
		d.pool.Close()
	}

	return err
}

// OpenStore opens the jobs database under the data folder and marks jobs
// left running by a previous process as stopped.
func OpenStore(ctx context.Context, dataFolder string) (*sqlite.Store, error) {
	if err := os.MkdirAll(dataFolder, os.ModePerm); err != nil {
		return nil, err
	}

	store, err := sqlite.New(filepath.Join(dataFolder, jobsDB))
	if err != nil {
		return nil, err
	}

	if err := store.AutoMigrate(ctx); err != nil {
		return nil, multierr.Append(err, store.Close())
	}

	if err := store.CleanUpIncompleteJobs(ctx); err != nil {
		return nil, multierr.Append(err, store.Close())
	}

	return store, nil
}

// reportingScraper sends a telemetry event per finished scrape.
type reportingScraper struct {
	next entities.Scraper
}

func (r *reportingScraper) Scrape(ctx context.Context, target string) (entities.Result, error) {
	started := time.Now()

	res, err := r.next.Scrape(ctx, target)
	if err != nil {
		return res, err
	}

	var host string
	if u, perr := url.Parse(target); perr == nil {
		host = u.Hostname()
	}

	_ = Telemetry().Send(ctx, tlmt.NewScrapeEvent(host, res, time.Since(started)))

	return res, nil
}
