// Package exiter watches a batch run and cancels it once every url has been
// processed.
package exiter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const tick = time.Second

type Exiter interface {
	SetURLCount(int)
	SetMaxResults(int)
	SetCancelFunc(context.CancelFunc)
	IncrCompleted(int)
	IncrResultsWritten(int)
	Progress() (completed int, total int)
	ResultsWritten() int
	Run(context.Context)
}

type exiter struct {
	urlCount       int
	completed      int
	resultsWritten int
	// 0 means unlimited
	maxResults int
	triggered  bool

	mu         *sync.Mutex
	cancelFunc context.CancelFunc
	log        *zap.Logger
}

func New(log *zap.Logger) Exiter {
	if log == nil {
		log = zap.NewNop()
	}

	return &exiter{
		mu:  &sync.Mutex{},
		log: log,
	}
}

func (e *exiter) SetURLCount(val int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.urlCount = val
}

func (e *exiter) SetMaxResults(val int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.maxResults = val
}

func (e *exiter) SetCancelFunc(fn context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelFunc = fn
}

func (e *exiter) Progress() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.completed, e.urlCount
}

func (e *exiter) ResultsWritten() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.resultsWritten
}

func (e *exiter) IncrCompleted(val int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.completed += val
}

// IncrResultsWritten counts results that found at least one image and
// cancels the run as soon as the max results limit is hit.
func (e *exiter) IncrResultsWritten(val int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.resultsWritten += val

	if e.maxResults > 0 && e.resultsWritten >= e.maxResults && !e.triggered {
		e.triggered = true

		e.log.Info("max results reached",
			zap.Int("written", e.resultsWritten),
			zap.Int("limit", e.maxResults),
		)

		if e.cancelFunc != nil {
			go e.cancelFunc()
		}
	}
}

func (e *exiter) Run(ctx context.Context) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.isDone() {
				continue
			}

			completed, total := e.Progress()

			e.log.Info("batch finished",
				zap.Int("completed", completed),
				zap.Int("total", total),
				zap.Int("results", e.ResultsWritten()),
			)

			e.mu.Lock()
			cancel := e.cancelFunc
			e.mu.Unlock()

			if cancel != nil {
				cancel()
			}

			return
		}
	}
}

func (e *exiter) isDone() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.maxResults > 0 && e.resultsWritten >= e.maxResults {
		return true
	}

	return e.urlCount > 0 && e.completed >= e.urlCount
}
