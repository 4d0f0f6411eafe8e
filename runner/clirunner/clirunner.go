// Package clirunner scrapes a single url and prints the result record.
package clirunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/scraper"
)

// ErrFailed is returned after an error record has been written.
var ErrFailed = errors.New("scrape failed")

type cliRunner struct {
	url     string
	out     io.Writer
	log     *zap.Logger
	build   func() (entities.Scraper, func() error, error)
	closers []func() error
}

func New(cfg *runner.Config, log *zap.Logger) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeCLI {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	build := func() (entities.Scraper, func() error, error) {
		deps, err := runner.Build(cfg, log)
		if err != nil {
			return nil, nil, err
		}

		return deps.Scraper, deps.Close, nil
	}

	return newRunner(cfg.URL, os.Stdout, log, build), nil
}

func newRunner(url string, out io.Writer, log *zap.Logger, build func() (entities.Scraper, func() error, error)) *cliRunner {
	if log == nil {
		log = zap.NewNop()
	}

	return &cliRunner{
		url:   url,
		out:   out,
		log:   log,
		build: build,
	}
}

// Run validates the url before any browser is launched so argument errors
// are reported without side effects. A panic anywhere below Run is reported
// as a crash record.
func (r *cliRunner) Run(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("scraper panicked", zap.String("url", r.url), zap.Any("panic", p))

			err = r.fail(entities.CodeScraperCrash, fmt.Sprint(p))
		}
	}()

	switch err := scraper.ValidateURL(r.url); {
	case r.url == "":
		return r.fail(entities.CodeMissingArgument, "No URL provided")
	case err != nil:
		return r.fail(entities.CodeInvalidURL, err.Error())
	}

	s, closeFn, err := r.build()
	if err != nil {
		return r.fail(entities.CodeScraperCrash, err.Error())
	}

	r.closers = append(r.closers, closeFn)

	res, err := s.Scrape(ctx, r.url)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}

		r.log.Error("scrape crashed", zap.String("url", r.url), zap.Error(err))

		return r.fail(entities.CodeScraperCrash, err.Error())
	}

	return r.write(res)
}

func (r *cliRunner) Close(context.Context) error {
	var err error

	for _, fn := range r.closers {
		err = multierr.Append(err, fn())
	}

	r.closers = nil

	return err
}

func (r *cliRunner) fail(code, msg string) error {
	if err := r.write(entities.ErrorRecord{ErrorCode: code, Message: msg}); err != nil {
		return err
	}

	return fmt.Errorf("%w: %s", ErrFailed, code)
}

func (r *cliRunner) write(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(v)
}
