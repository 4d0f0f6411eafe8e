package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner/clirunner"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner/filerunner"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner/installplaywright"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner/redisrunner"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner/webrunner"
)

func main() {
	_ = godotenv.Load()

	os.Exit(run())
}

func run() int {
	cfg, err := runner.ParseConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}

	log, err := runner.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	defer func() { _ = log.Sync() }()
	defer runner.Telemetry().Close()

	runner.Banner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runnerInstance, err := runnerFactory(cfg, log)
	if err != nil {
		log.Error("cannot start", zap.Error(err))

		return 1
	}

	err = runnerInstance.Run(ctx)
	if ctx.Err() != nil {
		log.Info("received signal, shutting down")
	}

	if cerr := runnerInstance.Close(context.WithoutCancel(ctx)); cerr != nil {
		log.Warn("close failed", zap.Error(cerr))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		if !errors.Is(err, clirunner.ErrFailed) {
			log.Error("run failed", zap.Error(err))
		}

		return 1
	}

	return 0
}

func runnerFactory(cfg *runner.Config, log *zap.Logger) (runner.Runner, error) {
	switch cfg.RunMode {
	case runner.RunModeCLI:
		return clirunner.New(cfg, log)
	case runner.RunModeFile:
		return filerunner.New(cfg, log)
	case runner.RunModeWeb:
		return webrunner.New(cfg, log)
	case runner.RunModeRedis:
		return redisrunner.New(cfg, log)
	case runner.RunModeInstallPlaywright:
		return installplaywright.New(cfg)
	default:
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}
}
