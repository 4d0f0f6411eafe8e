// Package scraper loads a product page and runs the extraction cascade on it.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/cascade"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

var ErrInvalidURL = errors.New("invalid url")

const (
	DefaultNavTimeout = 60 * time.Second
	DefaultSettle     = 5 * time.Second

	stabilizeX    = 100
	stabilizeY    = 100
	stabilizeWait = 500 * time.Millisecond

	navErrorLen = 50
)

// ValidateURL accepts absolute http(s) urls only.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return nil
}

type Option func(*Service)

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithNavTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.navTimeout = d
		}
	}
}

// WithSettle sets the wait after the document has loaded, before anything is
// read from the page.
func WithSettle(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.settle = d
		}
	}
}

type Service struct {
	cascade    *cascade.Cascade
	log        *zap.Logger
	navTimeout time.Duration
	settle     time.Duration
}

func New(c *cascade.Cascade, opts ...Option) *Service {
	s := &Service{
		cascade:    c,
		log:        zap.NewNop(),
		navTimeout: DefaultNavTimeout,
		settle:     DefaultSettle,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Scrape navigates page to targetURL and extracts its product images.
//
// Navigation failures and blocked pages are not errors: they produce a Result
// with no images and an explanatory note. An error means the browser or the
// context gave out and the run could not complete.
func (s *Service) Scrape(ctx context.Context, page pageinspect.Page, targetURL string) (entities.Result, error) {
	start := time.Now()
	log := s.log.With(zap.String("url", targetURL))

	if err := page.Navigate(ctx, targetURL, s.navTimeout); err != nil {
		if ctx.Err() != nil || errors.Is(err, pageinspect.ErrClosed) {
			return entities.Result{}, err
		}

		log.Warn("navigation failed", zap.Error(err))

		return noImages(targetURL, "Navigation Failed: "+navError(err)), nil
	}

	if err := page.Wait(ctx, s.settle); err != nil {
		return entities.Result{}, err
	}

	s.stabilize(ctx, page)

	if note, blocked := s.blocked(ctx, page); blocked {
		log.Warn("page blocked", zap.String("note", note))

		return noImages(targetURL, note), nil
	}

	out, err := s.cascade.Run(ctx, page, targetURL)
	if err != nil {
		return entities.Result{}, fmt.Errorf("cascade: %w", err)
	}

	log.Info("scrape finished",
		zap.String("strategy", out.StrategyUsed),
		zap.Int("images", len(out.Images)),
		zap.Duration("took", time.Since(start)),
	)

	return entities.NewResult(targetURL, out), nil
}

// stabilize nudges pages that only hydrate after user input. Failures are
// ignored.
func (s *Service) stabilize(ctx context.Context, page pageinspect.Page) {
	if err := page.MoveMouse(ctx, stabilizeX, stabilizeY); err != nil {
		s.log.Debug("mouse move failed", zap.Error(err))

		return
	}

	_ = page.Wait(ctx, stabilizeWait)
}

func (s *Service) blocked(ctx context.Context, page pageinspect.Page) (string, bool) {
	title, err := page.Title(ctx)
	if err == nil && IsAccessDenied(title) {
		return NoteAccessDenied, true
	}

	html, err := page.Content(ctx)
	if err != nil {
		s.log.Debug("content unavailable", zap.Error(err))

		return "", false
	}

	if ok, reason := IsBlocked(html); ok {
		return NoteBotChallenge + reason, true
	}

	return "", false
}

func noImages(targetURL, note string) entities.Result {
	return entities.NewResult(targetURL, entities.Outcome{
		StrategyUsed: entities.StrategyNone,
		Note:         note,
	})
}

func navError(err error) string {
	msg := err.Error()

	// drop our own prefix so the note carries the browser's message
	msg = strings.TrimPrefix(msg, pageinspect.ErrNavigation.Error()+": ")

	r := []rune(msg)
	if len(r) > navErrorLen {
		r = r[:navErrorLen]
	}

	return string(r)
}
