package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/entities"
	"github.com/EquitysotKaushikChaturvedi/Universal-E-commerce-Product-Image-Scraper-API/pageinspect"
)

// PageProvider hands out a page for the duration of fn.
type PageProvider interface {
	WithPage(ctx context.Context, fn func(context.Context, pageinspect.Page) error) error
}

var _ entities.Scraper = (*BrowserScraper)(nil)

// BrowserScraper runs Service scrapes one at a time on pages from a provider.
type BrowserScraper struct {
	svc     *Service
	pages   PageProvider
	timeout time.Duration

	mu sync.Mutex
}

// NewBrowserScraper wraps svc. timeout bounds every scrape; zero means the
// caller's deadline only.
func NewBrowserScraper(svc *Service, pages PageProvider, timeout time.Duration) *BrowserScraper {
	return &BrowserScraper{svc: svc, pages: pages, timeout: timeout}
}

func (b *BrowserScraper) Scrape(ctx context.Context, targetURL string) (entities.Result, error) {
	if err := ValidateURL(targetURL); err != nil {
		return entities.Result{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	var ans entities.Result

	err := b.pages.WithPage(ctx, func(ctx context.Context, page pageinspect.Page) error {
		var err error

		ans, err = b.svc.Scrape(ctx, page, targetURL)

		return err
	})

	return ans, err
}
