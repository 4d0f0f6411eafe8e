// Package worker runs queued scrape jobs one at a time.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

type worker struct {
	jobs    chan entities.Job
	scraper entities.Scraper
	store   entities.JobStore
	log     *zap.Logger
}

func NewWorker(scraper entities.Scraper, store entities.JobStore, log *zap.Logger) entities.Worker {
	if log == nil {
		log = zap.NewNop()
	}

	ans := worker{
		jobs:    make(chan entities.Job),
		scraper: scraper,
		store:   store,
		log:     log,
	}

	return &ans
}

func (w *worker) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-w.jobs:
			if err := w.ProcessJob(ctx, job); err != nil {
				return err
			}
		}
	}
}

// ScheduleJob hands job to the worker. It never queues: a busy worker
// rejects the job with ErrOtherJobRunning.
func (w *worker) ScheduleJob(ctx context.Context, job entities.Job) error {
	select {
	case <-ctx.Done():
		return nil
	case w.jobs <- job:
	default:
		return entities.ErrOtherJobRunning
	}

	return nil
}

// ProcessJob scrapes job.URL and records the outcome. A failed scrape is
// recorded on the job; only store failures are returned.
func (w *worker) ProcessJob(ctx context.Context, job entities.Job) error {
	log := w.log.With(zap.String("job_id", job.ID), zap.String("url", job.URL))

	if err := w.store.SetJobStatus(ctx, job.ID, entities.JobStatusRunning); err != nil {
		return err
	}

	res, err := w.scraper.Scrape(ctx, job.URL)
	if err != nil {
		log.Error("job failed", zap.Error(err))

		if ctx.Err() != nil {
			// the process is shutting down; startup cleanup marks it stopped
			return nil
		}

		return w.store.SetJobError(ctx, job.ID, err.Error())
	}

	log.Info("job finished", zap.String("strategy", res.StrategyUsed), zap.Int("images", res.TotalImages))

	return w.store.SetJobResult(ctx, job.ID, res)
}
