package strategies

import (
	"context"
	"fmt"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/normalize"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

const (
	gridSelector = ".image-grid-image"
	noteGrid     = "Agent 4 (Myntra Background)"
	noteGridNone = "Myntra Agent found no background images."
)

var _ Strategy = (*BackgroundGrid)(nil)

// BackgroundGrid reads product images that Myntra renders as CSS backgrounds.
// The grid is lazy, so an empty first read is followed by a few scroll steps
// and a single reload.
type BackgroundGrid struct {
	th   Thresholds
	norm *normalize.Normalizer
}

func NewBackgroundGrid(th Thresholds, norm *normalize.Normalizer) *BackgroundGrid {
	if norm == nil {
		norm = normalize.New()
	}

	return &BackgroundGrid{th: th, norm: norm}
}

func (s *BackgroundGrid) Name() string         { return LabelGrid }
func (s *BackgroundGrid) Priority() int        { return PriorityGrid }
func (s *BackgroundGrid) SelfValidating() bool { return false }

func (s *BackgroundGrid) Applies(targetURL string) bool {
	return hostContains(targetURL, "myntra.com")
}

func (s *BackgroundGrid) Extract(ctx context.Context, page pageinspect.Page, _ entities.PageContext) (entities.StrategyResult, error) {
	urls, err := s.collect(ctx, page)
	if err != nil {
		return empty(s.Name(), ""), err
	}

	for i := 0; len(urls) == 0 && i < s.th.GridScrollSteps; i++ {
		if err := page.ScrollBy(ctx, s.th.GridScrollStep); err != nil {
			return empty(s.Name(), ""), fmt.Errorf("grid scroll: %w", err)
		}

		if err := page.Wait(ctx, s.th.GridScrollWait); err != nil {
			return empty(s.Name(), ""), err
		}

		if urls, err = s.collect(ctx, page); err != nil {
			return empty(s.Name(), ""), err
		}
	}

	if len(urls) == 0 {
		if urls, err = s.afterReload(ctx, page); err != nil {
			return empty(s.Name(), ""), err
		}
	}

	if len(urls) == 0 {
		return empty(s.Name(), noteGridNone), nil
	}

	return fromURLs(s.Name(), noteGrid, "grid", urls), nil
}

func (s *BackgroundGrid) afterReload(ctx context.Context, page pageinspect.Page) ([]string, error) {
	if err := page.Reload(ctx); err != nil {
		return nil, fmt.Errorf("grid reload: %w", err)
	}

	// network idle is best effort; long-polling pages never reach it
	_ = page.WaitForNetworkIdle(ctx, s.th.GridIdleTimeout)

	if err := page.Wait(ctx, s.th.GridReloadSettle); err != nil {
		return nil, err
	}

	return s.collect(ctx, page)
}

func (s *BackgroundGrid) collect(ctx context.Context, page pageinspect.Page) ([]string, error) {
	report, err := runProbe(ctx, page, probeOptions{
		Backgrounds:        true,
		BackgroundSelector: gridSelector,
	}, s.th.ProbeLimit)
	if err != nil {
		return nil, fmt.Errorf("grid probe: %w", err)
	}

	var ans []string

	for _, p := range report.Items {
		if p.Kind != kindBackground || p.Hidden || p.Rect.area() <= 0 {
			continue
		}

		u := backgroundURL(p.Background)
		if !usable(u) {
			continue
		}

		ans = append(ans, s.norm.Rewrite(resolve(report.BaseURI, u)))
	}

	return dedupe(ans), nil
}
