// Package tasks defines the queued scrape task and its handler.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
)

const defaultTaskTimeout = 3 * time.Minute

var ErrEmptyURL = errors.New("scrape payload has no url")

// NewScrapeTask encodes payload as a TypeScrapeProduct task.
func NewScrapeTask(payload ScrapePayload) (*asynq.Task, error) {
	if payload.URL == "" {
		return nil, ErrEmptyURL
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scrape payload: %w", err)
	}

	return asynq.NewTask(TypeScrapeProduct, data), nil
}

var _ asynq.Handler = (*Handler)(nil)

type Handler struct {
	scraper     entities.Scraper
	store       entities.JobStore
	taskTimeout time.Duration
	log         *zap.Logger
}

type HandlerOption func(*Handler)

func WithTaskTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.taskTimeout = timeout
	}
}

// WithJobStore records job status and results as tasks run.
func WithJobStore(store entities.JobStore) HandlerOption {
	return func(h *Handler) {
		h.store = store
	}
}

func WithLogger(log *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.log = log
	}
}

func NewHandler(scraper entities.Scraper, opts ...HandlerOption) *Handler {
	h := &Handler{
		scraper:     scraper,
		taskTimeout: defaultTaskTimeout,
		log:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ctx, cancel := context.WithTimeout(ctx, h.taskTimeout)
	defer cancel()

	switch task.Type() {
	case TypeScrapeProduct:
		return h.processScrapeTask(ctx, task)
	case TypeHealthCheck:
		return nil
	default:
		return fmt.Errorf("unknown task type %s: %w", task.Type(), asynq.SkipRetry)
	}
}

func (h *Handler) processScrapeTask(ctx context.Context, task *asynq.Task) error {
	var payload ScrapePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal scrape payload: %v: %w", err, asynq.SkipRetry)
	}

	if payload.URL == "" {
		return fmt.Errorf("%w: %w", ErrEmptyURL, asynq.SkipRetry)
	}

	log := h.log.With(zap.String("job_id", payload.JobID), zap.String("url", payload.URL))

	if err := h.setStatus(ctx, payload.JobID, entities.JobStatusRunning); err != nil {
		return err
	}

	started := time.Now()

	res, err := h.scraper.Scrape(ctx, payload.URL)
	if err != nil {
		log.Error("scrape failed", zap.Error(err))

		if h.store != nil && payload.JobID != "" {
			if serr := h.store.SetJobError(context.WithoutCancel(ctx), payload.JobID, err.Error()); serr != nil {
				log.Error("cannot record job error", zap.Error(serr))
			}
		}

		return err
	}

	log.Info("scrape finished",
		zap.String("strategy", res.StrategyUsed),
		zap.Int("images", res.TotalImages),
		zap.Duration("took", time.Since(started)),
	)

	if h.store == nil || payload.JobID == "" {
		return nil
	}

	return h.store.SetJobResult(ctx, payload.JobID, res)
}

func (h *Handler) setStatus(ctx context.Context, jobID, status string) error {
	if h.store == nil || jobID == "" {
		return nil
	}

	return h.store.SetJobStatus(ctx, jobID, status)
}
