package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/redis/config"
)

// Server consumes scrape tasks.
type Server struct {
	server *asynq.Server
	cfg    *config.RedisConfig
	mu     sync.Mutex
}

func NewServer(cfg *config.RedisConfig, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	srv := asynq.NewServer(
		clientOpt(cfg),
		asynq.Config{
			Concurrency:    cfg.Workers,
			RetryDelayFunc: RetryDelay(cfg.RetryInterval),
			ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
				log.Warn("task failed", zap.String("type", task.Type()), zap.Error(err))
			}),
			Queues:         cfg.QueuePriorities,
			StrictPriority: true,
			Logger:         log.Sugar(),
		},
	)

	return &Server{
		server: srv,
		cfg:    cfg,
	}
}

// RetryDelay backs off exponentially from one second, capped at maxDelay.
func RetryDelay(maxDelay time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		if n > 30 {
			return maxDelay
		}

		delay := time.Duration(1<<uint(n)) * time.Second
		if delay > maxDelay {
			delay = maxDelay
		}

		return delay
	}
}

// Start runs h until Shutdown is called.
func (s *Server) Start(h asynq.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.server.Start(h); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.server.Shutdown()
}
