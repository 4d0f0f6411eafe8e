// Package cascade runs the extraction strategies against one loaded page and
// accepts the first usable answer.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/judges"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/normalize"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/strategies"
)

var (
	ErrDuplicatePriority = errors.New("duplicate strategy priority")
	ErrNoStrategies      = errors.New("no strategies configured")
)

type Option func(*Cascade)

func WithLogger(log *zap.Logger) Option {
	return func(c *Cascade) {
		if log != nil {
			c.log = log
		}
	}
}

func WithNormalizer(n *normalize.Normalizer) Option {
	return func(c *Cascade) {
		if n != nil {
			c.norm = n
		}
	}
}

func WithJudges(p *judges.Pipeline) Option {
	return func(c *Cascade) {
		if p != nil {
			c.judges = p
		}
	}
}

// WithStrategyTimeout bounds every single strategy. Zero leaves only the
// caller's deadline.
func WithStrategyTimeout(d time.Duration) Option {
	return func(c *Cascade) {
		c.strategyTimeout = d
	}
}

// Cascade holds the strategies sorted by priority, highest first.
type Cascade struct {
	strategies      []strategies.Strategy
	norm            *normalize.Normalizer
	judges          *judges.Pipeline
	log             *zap.Logger
	strategyTimeout time.Duration
}

func New(list []strategies.Strategy, opts ...Option) (*Cascade, error) {
	if len(list) == 0 {
		return nil, ErrNoStrategies
	}

	seen := make(map[int]string, len(list))

	for _, s := range list {
		if other, ok := seen[s.Priority()]; ok {
			return nil, fmt.Errorf("%w: %q and %q both use %d", ErrDuplicatePriority, other, s.Name(), s.Priority())
		}

		seen[s.Priority()] = s.Name()
	}

	sorted := make([]strategies.Strategy, len(list))
	copy(sorted, list)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})

	c := &Cascade{
		strategies: sorted,
		norm:       normalize.New(),
		log:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.judges == nil {
		c.judges = judges.NewPipeline(c.log)
	}

	return c, nil
}

// Default builds the cascade over the full strategy set.
func Default(th strategies.Thresholds, opts ...Option) (*Cascade, error) {
	return New(strategies.Default(th), opts...)
}

// Strategies returns the strategy labels in evaluation order.
func (c *Cascade) Strategies() []string {
	ans := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		ans[i] = s.Name()
	}

	return ans
}

// Run evaluates the strategies in order and stops at the first one whose
// output survives normalization and judging. An exhausted cascade is not an
// error; only a cancelled context or a closed page is.
func (c *Cascade) Run(ctx context.Context, page pageinspect.Page, targetURL string) (entities.Outcome, error) {
	pctx, err := ExtractPageContext(ctx, page)
	if err != nil {
		if fatal(ctx, err) {
			return failed(), err
		}

		c.log.Debug("page context unavailable", zap.Error(err))
	}

	var diagnostics error

	for _, s := range c.strategies {
		if !s.Applies(targetURL) {
			c.log.Debug("strategy skipped", zap.String("strategy", s.Name()))

			continue
		}

		res, err := c.invoke(ctx, s, page, pctx)
		if err != nil {
			if fatal(ctx, err) {
				return failed(), err
			}

			diagnostics = multierr.Append(diagnostics, fmt.Errorf("%s: %w", s.Name(), err))

			c.log.Debug("strategy failed", zap.String("strategy", s.Name()), zap.Error(err))

			continue
		}

		raw := res.URLs()
		if len(raw) == 0 {
			c.log.Debug("strategy found nothing", zap.String("strategy", s.Name()), zap.String("note", res.Note))

			continue
		}

		if s.SelfValidating() {
			c.log.Info("strategy accepted",
				zap.String("strategy", s.Name()),
				zap.Int("images", len(raw)),
				zap.Bool("self_validated", true),
			)

			return entities.Outcome{StrategyUsed: s.Name(), Images: raw, Note: res.Note}, nil
		}

		base := page.URL()
		if base == "" {
			base = pctx.PageURL
		}

		approved := c.judges.Run(pctx, c.norm.Normalize(raw, base), s.Name())
		if len(approved) == 0 {
			c.log.Debug("strategy rejected by judges",
				zap.String("strategy", s.Name()),
				zap.Int("candidates", len(raw)),
			)

			continue
		}

		c.log.Info("strategy accepted",
			zap.String("strategy", s.Name()),
			zap.Int("candidates", len(raw)),
			zap.Int("images", len(approved)),
		)

		return entities.Outcome{StrategyUsed: s.Name(), Images: approved, Note: res.Note}, nil
	}

	if diagnostics != nil {
		c.log.Warn("cascade exhausted",
			zap.Int("failures", len(multierr.Errors(diagnostics))),
			zap.Error(diagnostics),
		)
	}

	return failed(), nil
}

// invoke runs one strategy inside its own fault boundary.
func (c *Cascade) invoke(ctx context.Context, s strategies.Strategy, page pageinspect.Page, pctx entities.PageContext) (res entities.StrategyResult, err error) {
	sctx := ctx

	if c.strategyTimeout > 0 {
		var cancel context.CancelFunc

		sctx, cancel = context.WithTimeout(ctx, c.strategyTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res = entities.StrategyResult{Label: s.Name()}
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return s.Extract(sctx, page, pctx)
}

// fatal reports whether err must end the whole run rather than one strategy.
func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, pageinspect.ErrClosed)
}

func failed() entities.Outcome {
	return entities.Outcome{
		StrategyUsed: entities.StrategyNone,
		Images:       []string{},
		Note:         entities.NoteAllFailed,
	}
}
