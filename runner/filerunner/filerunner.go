// Package filerunner scrapes a list of urls and writes one JSON record per
// line.
package filerunner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/deduper"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/exiter"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/runner"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/s3uploader"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/scraper"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/tlmt"
)

// Uploader ships the finished results file.
type Uploader interface {
	UploadFile(ctx context.Context, bucket, key, file string) error
}

// record is a result line, or an error line when the url could not be
// scraped at all.
type record struct {
	*entities.Result
	*entities.ErrorRecord
	URL string `json:"url,omitempty"`
}

type fileRunner struct {
	cfg      *runner.Config
	log      *zap.Logger
	scraper  entities.Scraper
	input    io.Reader
	output   io.Writer
	uploader Uploader
	closers  []func() error
}

func New(cfg *runner.Config, log *zap.Logger) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeFile {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	ans := &fileRunner{
		cfg: cfg,
		log: log,
	}

	if err := ans.setInput(); err != nil {
		return nil, err
	}

	if err := ans.setOutput(); err != nil {
		return nil, multierr.Append(err, ans.Close(context.Background()))
	}

	if cfg.S3Bucket != "" {
		up, err := s3uploader.New(context.Background(), cfg.AwsAccessKey, cfg.AwsSecretKey, cfg.AwsRegion)
		if err != nil {
			return nil, multierr.Append(err, ans.Close(context.Background()))
		}

		ans.uploader = up
	}

	deps, err := runner.Build(cfg, log)
	if err != nil {
		return nil, multierr.Append(err, ans.Close(context.Background()))
	}

	ans.scraper = deps.Scraper
	ans.closers = append(ans.closers, deps.Close)

	return ans, nil
}

func (r *fileRunner) Run(ctx context.Context) (err error) {
	t0 := time.Now().UTC()

	urls, err := readURLs(ctx, r.input)
	if err != nil {
		return err
	}

	defer func() {
		params := map[string]any{
			"url_count": len(urls),
			"duration":  time.Now().UTC().Sub(t0).String(),
		}

		if err != nil {
			params["error"] = err.Error()
		}

		_ = runner.Telemetry().Send(ctx, tlmt.NewEvent("file_runner", params))
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exitMonitor := exiter.New(r.log)
	exitMonitor.SetURLCount(len(urls))
	exitMonitor.SetMaxResults(r.cfg.MaxResults)
	exitMonitor.SetCancelFunc(cancel)

	go exitMonitor.Run(ctx)

	if err := r.process(ctx, urls, exitMonitor); err != nil {
		return err
	}

	if r.uploader == nil {
		return nil
	}

	key := s3uploader.ResultsKey(r.cfg.ResultsFile, t0)

	// ctx may already be cancelled by the exit monitor
	return r.uploader.UploadFile(context.WithoutCancel(ctx), r.cfg.S3Bucket, key, r.cfg.ResultsFile)
}

// process scrapes urls in order until done or the exit monitor cancels ctx.
func (r *fileRunner) process(ctx context.Context, urls []string, ex exiter.Exiter) error {
	enc := json.NewEncoder(r.output)
	enc.SetEscapeHTML(false)

	for _, u := range urls {
		if ctx.Err() != nil {
			return nil
		}

		rec := record{}

		res, err := r.scraper.Scrape(ctx, u)

		switch {
		case err == nil:
			rec.Result = &res
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, scraper.ErrInvalidURL):
			rec.URL = u
			rec.ErrorRecord = &entities.ErrorRecord{ErrorCode: entities.CodeInvalidURL, Message: err.Error()}
		default:
			r.log.Error("scrape crashed", zap.String("url", u), zap.Error(err))

			rec.URL = u
			rec.ErrorRecord = &entities.ErrorRecord{ErrorCode: entities.CodeScraperCrash, Message: err.Error()}
		}

		if err := enc.Encode(rec); err != nil {
			return err
		}

		if rec.Result != nil && rec.Result.TotalImages > 0 {
			ex.IncrResultsWritten(1)
		}

		ex.IncrCompleted(1)
	}

	return nil
}

func (r *fileRunner) Close(context.Context) error {
	var err error

	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i]())
	}

	r.closers = nil

	return err
}

func (r *fileRunner) setInput() error {
	if r.cfg.InputFile == "stdin" {
		r.input = os.Stdin

		return nil
	}

	f, err := os.Open(r.cfg.InputFile)
	if err != nil {
		return err
	}

	r.input = f
	r.closers = append(r.closers, f.Close)

	return nil
}

func (r *fileRunner) setOutput() error {
	if r.cfg.ResultsFile == "stdout" {
		if r.cfg.S3Bucket != "" {
			return fmt.Errorf("%w: -s3-bucket needs a -results file", runner.ErrInvalidConfig)
		}

		r.output = os.Stdout

		return nil
	}

	f, err := os.Create(r.cfg.ResultsFile)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)

	r.output = &flushWriter{w: w}
	r.closers = append(r.closers, f.Close)

	return nil
}

// flushWriter flushes after every line so a killed run keeps what it wrote.
type flushWriter struct {
	w *bufio.Writer
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}

	return n, f.w.Flush()
}

// readURLs returns the distinct urls of r, skipping blank lines and
// # comments.
func readURLs(ctx context.Context, r io.Reader) ([]string, error) {
	dedup := deduper.New()

	var ans []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if dedup.AddIfNotExists(ctx, line) {
			ans = append(ans, line)
		}
	}

	return ans, scanner.Err()
}
